//go:build with_cv
// +build with_cv

package cvwindow

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/av1bridge/window/memory"
	"gocv.io/x/gocv"
)

// Window renders into a memory.Window and shows every posted frame.
//
// highgui has to be driven from the main OS thread on most platforms, so
// the session calling Render must run there.
type Window struct {
	*memory.Window
	cvWindow *gocv.Window
}

var _ window.Window = (*Window)(nil)
var _ window.Surface = (*Window)(nil)

func New(title string) *Window {
	w := &Window{
		Window:   memory.New(),
		cvWindow: gocv.NewWindow(title),
	}
	w.Window.OnPost = w.show
	return w
}

func (w *Window) AcquireWindow(ctx context.Context) (window.Window, error) {
	if _, err := w.Window.AcquireWindow(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) show(ctx context.Context, frame memory.Frame) {
	if err := w.showFrame(frame); err != nil {
		logger.Errorf(ctx, "unable to show the frame: %v", err)
	}
}

func (w *Window) showFrame(frame memory.Frame) error {
	packed, width, height, err := packYV12(frame)
	if err != nil {
		return err
	}

	yv12, err := gocv.NewMatFromBytes(height*3/2, width, gocv.MatTypeCV8UC1, packed)
	if err != nil {
		return fmt.Errorf("unable to wrap the frame: %w", err)
	}
	defer yv12.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(yv12, &bgr, gocv.ColorYUVToBGRYV12)

	w.cvWindow.IMShow(bgr)
	w.cvWindow.WaitKey(1)
	return nil
}

func (w *Window) Close() error {
	return w.cvWindow.Close()
}

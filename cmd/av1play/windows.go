package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/av1bridge/window/memory"
)

// newSurface returns the presentation target and a function to dispose
// it after the session is closed.
func newSurface(
	ctx context.Context,
	kind string,
	output string,
) (window.Surface, func() error, error) {
	switch kind {
	case "", "none":
		return nil, func() error { return nil }, nil
	case "memory":
		return memory.New(), func() error { return nil }, nil
	case "yuvfile":
		return newYUVFileSurface(ctx, output)
	case "mmap":
		return newMmapSurface(ctx, output)
	case "cv":
		return newCVSurface(ctx, output)
	default:
		return nil, nil, fmt.Errorf("unknown window kind '%s'", kind)
	}
}

// newYUVFileSurface appends every posted buffer (padding included) to
// output.
func newYUVFileSurface(
	ctx context.Context,
	output string,
) (window.Surface, func() error, error) {
	if output == "" {
		return nil, nil, fmt.Errorf("the output path is not set")
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create '%s': %w", output, err)
	}

	w := memory.New()
	w.OnPost = func(ctx context.Context, frame memory.Frame) {
		if _, err := f.Write(frame.Bits); err != nil {
			logger.Errorf(ctx, "unable to write the frame to '%s': %v", output, err)
		}
	}
	logger.Infof(ctx, "writing raw YV12 frames to '%s'", output)
	return w, f.Close, nil
}

// Package memory implements window.Window on top of a heap buffer.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/xsync"
)

const DefaultStrideAlign = 16

var (
	ErrNotConfigured   = errors.New("buffers geometry is not set")
	ErrAlreadyLocked   = errors.New("the buffer is already locked")
	ErrNotLocked       = errors.New("the buffer is not locked")
	ErrInvalidFormat   = errors.New("unsupported pixel format")
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Frame is a posted buffer.
type Frame struct {
	window.Geometry
	Stride int
	Bits   []byte
}

// Window keeps the back buffer in memory and hands a copy of it to OnPost.
type Window struct {
	// StrideAlign is the luma row alignment in pixels.
	StrideAlign int

	// Garbage, if non-zero, fills every freshly locked buffer, to make
	// rows that were not written visible.
	Garbage byte

	OnPost func(ctx context.Context, frame Frame)

	locker         xsync.Mutex
	geometry       window.Geometry
	stride         int
	buf            []byte
	locked         bool
	refs           int
	configureCount int
	postCount      int
}

var _ window.Window = (*Window)(nil)
var _ window.Surface = (*Window)(nil)

func New() *Window {
	return &Window{
		StrideAlign: DefaultStrideAlign,
	}
}

// BufferSize is the size of a YV12 buffer with the given luma stride.
func BufferSize(stride, height int) int {
	chromaStride := internal.AlignUp(stride/2, 16)
	return stride*height + 2*chromaStride*internal.HalfUp(height)
}

// AcquireWindow returns w itself, counting the reference.
func (w *Window) AcquireWindow(ctx context.Context) (window.Window, error) {
	w.locker.Do(ctx, func() {
		w.refs++
	})
	return w, nil
}

func (w *Window) SetBuffersGeometry(
	ctx context.Context,
	width, height int,
	format window.PixelFormat,
) (_err error) {
	logger.Tracef(ctx, "SetBuffersGeometry(%d, %d, %s)", width, height, format)
	defer func() { logger.Tracef(ctx, "/SetBuffersGeometry(%d, %d, %s): %v", width, height, format, _err) }()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}
	if format != window.PixelFormatYV12 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	return xsync.DoR1(ctx, &w.locker, func() error {
		if w.locked {
			return ErrAlreadyLocked
		}
		w.geometry = window.Geometry{Width: width, Height: height, Format: format}
		w.stride = internal.AlignUp(width, max(w.StrideAlign, 1))
		w.buf = nil
		w.configureCount++
		return nil
	})
}

func (w *Window) Lock(ctx context.Context) (*window.Buffer, error) {
	return xsync.DoR2(ctx, &w.locker, func() (*window.Buffer, error) {
		if w.geometry.Format == 0 {
			return nil, ErrNotConfigured
		}
		if w.locked {
			return nil, ErrAlreadyLocked
		}
		size := BufferSize(w.stride, w.geometry.Height)
		if len(w.buf) != size {
			w.buf = make([]byte, size)
		}
		if w.Garbage != 0 {
			copy(w.buf, bytes.Repeat([]byte{w.Garbage}, size))
		}
		w.locked = true
		return &window.Buffer{
			Bits:   w.buf,
			Width:  w.geometry.Width,
			Height: w.geometry.Height,
			Stride: w.stride,
			Format: w.geometry.Format,
		}, nil
	})
}

func (w *Window) UnlockAndPost(ctx context.Context) error {
	var frame Frame
	err := xsync.DoR1(ctx, &w.locker, func() error {
		if !w.locked {
			return ErrNotLocked
		}
		w.locked = false
		w.postCount++
		frame = Frame{
			Geometry: w.geometry,
			Stride:   w.stride,
			Bits:     bytes.Clone(w.buf),
		}
		return nil
	})
	if err != nil {
		return err
	}
	if w.OnPost != nil {
		w.OnPost(ctx, frame)
	}
	return nil
}

func (w *Window) Release(ctx context.Context) {
	w.locker.Do(ctx, func() {
		if w.refs > 0 {
			w.refs--
		}
	})
}

// Refs is the amount of acquired and not yet released references.
func (w *Window) Refs(ctx context.Context) int {
	return xsync.DoR1(ctx, &w.locker, func() int { return w.refs })
}

// ConfigureCount is how many times the geometry was set.
func (w *Window) ConfigureCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &w.locker, func() int { return w.configureCount })
}

func (w *Window) PostCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &w.locker, func() int { return w.postCount })
}

func (w *Window) Geometry(ctx context.Context) window.Geometry {
	return xsync.DoR1(ctx, &w.locker, func() window.Geometry { return w.geometry })
}

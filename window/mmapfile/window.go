//go:build unix
// +build unix

package mmapfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/av1bridge/window/memory"
	"github.com/xaionaro-go/xsync"
	"golang.org/x/sys/unix"
)

var (
	ErrClosed   = errors.New("the window is closed")
	ErrLocked   = errors.New("the buffer is already locked")
	ErrUnlocked = errors.New("the buffer is not locked")
)

type Window struct {
	locker  xsync.Mutex
	file    *os.File
	mapping []byte
	header  Header
	locked  bool
	refs    int
}

var _ window.Window = (*Window)(nil)
var _ window.Surface = (*Window)(nil)

// Create creates (or truncates) the file at path.
func Create(ctx context.Context, path string) (_ret *Window, _err error) {
	logger.Debugf(ctx, "Create(ctx, '%s')", path)
	defer func() { logger.Debugf(ctx, "/Create(ctx, '%s'): %v", path, _err) }()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	w := &Window{file: f}
	if err := w.remapLocked(HeaderSize); err != nil {
		f.Close()
		return nil, err
	}
	w.header.Encode(w.mapping)
	return w, nil
}

func (w *Window) AcquireWindow(ctx context.Context) (window.Window, error) {
	return xsync.DoR2(ctx, &w.locker, func() (window.Window, error) {
		if w.file == nil {
			return nil, ErrClosed
		}
		w.refs++
		return w, nil
	})
}

func (w *Window) remapLocked(size int) error {
	if w.mapping != nil {
		if err := unix.Munmap(w.mapping); err != nil {
			return fmt.Errorf("unable to unmap: %w", err)
		}
		w.mapping = nil
	}
	if err := w.file.Truncate(int64(size)); err != nil {
		return fmt.Errorf("unable to resize the file to %d bytes: %w", size, err)
	}
	mapping, err := unix.Mmap(int(w.file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("unable to mmap %d bytes: %w", size, err)
	}
	w.mapping = mapping
	return nil
}

func (w *Window) SetBuffersGeometry(
	ctx context.Context,
	width, height int,
	format window.PixelFormat,
) (_err error) {
	logger.Debugf(ctx, "SetBuffersGeometry(%d, %d, %s)", width, height, format)
	defer func() { logger.Debugf(ctx, "/SetBuffersGeometry(%d, %d, %s): %v", width, height, format, _err) }()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", memory.ErrInvalidGeometry, width, height)
	}
	if format != window.PixelFormatYV12 {
		return fmt.Errorf("%w: %s", memory.ErrInvalidFormat, format)
	}
	return xsync.DoR1(ctx, &w.locker, func() error {
		if w.file == nil {
			return ErrClosed
		}
		if w.locked {
			return ErrLocked
		}
		stride := internal.AlignUp(width, memory.DefaultStrideAlign)
		size := memory.BufferSize(stride, height)
		if err := w.remapLocked(HeaderSize + size); err != nil {
			return err
		}
		w.header.Width = uint32(width)
		w.header.Height = uint32(height)
		w.header.Stride = uint32(stride)
		w.header.Format = format
		w.header.Size = uint32(size)
		w.header.Encode(w.mapping)
		return nil
	})
}

func (w *Window) Lock(ctx context.Context) (*window.Buffer, error) {
	return xsync.DoR2(ctx, &w.locker, func() (*window.Buffer, error) {
		switch {
		case w.file == nil:
			return nil, ErrClosed
		case w.header.Format == 0:
			return nil, memory.ErrNotConfigured
		case w.locked:
			return nil, ErrLocked
		}
		w.locked = true
		return &window.Buffer{
			Bits:   w.mapping[HeaderSize : HeaderSize+int(w.header.Size)],
			Width:  int(w.header.Width),
			Height: int(w.header.Height),
			Stride: int(w.header.Stride),
			Format: w.header.Format,
		}, nil
	})
}

func (w *Window) UnlockAndPost(ctx context.Context) error {
	return xsync.DoR1(ctx, &w.locker, func() error {
		if w.file == nil {
			return ErrClosed
		}
		if !w.locked {
			return ErrUnlocked
		}
		w.locked = false
		w.header.Sequence++
		w.header.Encode(w.mapping)
		if err := unix.Msync(w.mapping, unix.MS_ASYNC); err != nil {
			return fmt.Errorf("unable to msync: %w", err)
		}
		return nil
	})
}

// Release drops a reference; the file is closed with the last one.
func (w *Window) Release(ctx context.Context) {
	w.locker.Do(ctx, func() {
		if w.refs > 0 {
			w.refs--
		}
		if w.refs == 0 {
			if err := w.closeLocked(); err != nil {
				logger.Errorf(ctx, "unable to close the window: %v", err)
			}
		}
	})
}

// Close unmaps and closes the file regardless of the references.
func (w *Window) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &w.locker, w.closeLocked)
}

func (w *Window) closeLocked() error {
	if w.file == nil {
		return nil
	}
	var errs []error
	if w.mapping != nil {
		if err := unix.Munmap(w.mapping); err != nil {
			errs = append(errs, fmt.Errorf("unable to unmap: %w", err))
		}
		w.mapping = nil
	}
	if err := w.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("unable to close the file: %w", err))
	}
	w.file = nil
	return errors.Join(errs...)
}

func (w *Window) Header(ctx context.Context) Header {
	return xsync.DoR1(ctx, &w.locker, func() Header { return w.header })
}

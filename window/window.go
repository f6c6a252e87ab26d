// Package window defines the platform windowing contract the presenter
// draws into (modelled after ANativeWindow).
package window

import (
	"context"
	"fmt"
)

// PixelFormat is a window buffer format; values are FourCCs.
type PixelFormat uint32

// PixelFormatYV12 is the planar Y, V, U layout (Android ImageFormat.YV12).
const PixelFormatYV12 = PixelFormat(0x32315659)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatYV12:
		return "YV12"
	default:
		return fmt.Sprintf("PixelFormat(0x%08X)", uint32(f))
	}
}

// Geometry is what SetBuffersGeometry was called with.
type Geometry struct {
	Width  int
	Height int
	Format PixelFormat
}

// Buffer is a locked window buffer.
type Buffer struct {
	Bits   []byte
	Width  int
	Height int

	// Stride is the luma row stride; for YV12 it is both pixels and bytes.
	Stride int
	Format PixelFormat
}

// Window is a presentation target.
type Window interface {
	SetBuffersGeometry(ctx context.Context, width, height int, format PixelFormat) error

	// Lock returns the back buffer for writing; it stays valid until
	// UnlockAndPost.
	Lock(ctx context.Context) (*Buffer, error)
	UnlockAndPost(ctx context.Context) error

	// Release drops the reference acquired by Surface.AcquireWindow.
	Release(ctx context.Context)
}

// Surface is something a Window can be acquired from.
type Surface interface {
	AcquireWindow(ctx context.Context) (Window, error)
}

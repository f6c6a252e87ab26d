package decoder

import (
	"fmt"
	"sync"
)

// PixelLayout is the chroma subsampling of a picture (Dav1dPixelLayout).
type PixelLayout int

const (
	PixelLayoutI400 = PixelLayout(iota)
	PixelLayoutI420
	PixelLayoutI422
	PixelLayoutI444
)

func (l PixelLayout) String() string {
	switch l {
	case PixelLayoutI400:
		return "I400"
	case PixelLayoutI420:
		return "I420"
	case PixelLayoutI422:
		return "I422"
	case PixelLayoutI444:
		return "I444"
	default:
		return fmt.Sprintf("PixelLayout(%d)", int(l))
	}
}

// Plane indexes.
const (
	PlaneY = 0
	PlaneU = 1
	PlaneV = 2
)

// Picture is a decoded picture borrowed from the decoder. Planes point into
// decoder memory which stays valid until Release.
type Picture struct {
	Width    int
	Height   int
	BitDepth int
	Layout   PixelLayout

	// Planes are Y, U (Cb), V (Cr); each is at least Stride*rows long.
	Planes  [3][]byte
	Strides [3]int

	// PTS is echoed from the originating Data.
	PTS int64

	releaseOnce sync.Once
	release     func(*Picture)
}

// NewPicture returns a picture that calls release once on the first Release.
func NewPicture(release func(*Picture)) *Picture {
	return &Picture{release: release}
}

// ChromaSize returns the dimensions of the U and V planes.
func (p *Picture) ChromaSize() (width, height int) {
	switch p.Layout {
	case PixelLayoutI420:
		return (p.Width + 1) / 2, (p.Height + 1) / 2
	case PixelLayoutI422:
		return (p.Width + 1) / 2, p.Height
	case PixelLayoutI444:
		return p.Width, p.Height
	default:
		return 0, 0
	}
}

// Release returns the picture resources to the decoder. Safe on nil and
// idempotent.
func (p *Picture) Release() {
	if p == nil {
		return
	}
	p.releaseOnce.Do(func() {
		if p.release != nil {
			p.release(p)
		}
		p.Planes = [3][]byte{}
	})
}

func (p *Picture) String() string {
	if p == nil {
		return "Picture(nil)"
	}
	return fmt.Sprintf("Picture(%dx%d %s %dbpc pts:%d)", p.Width, p.Height, p.Layout, p.BitDepth, p.PTS)
}

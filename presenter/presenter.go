// Package presenter copies decoded pictures into window buffers.
package presenter

import (
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/window"
)

var (
	// ErrUnsupported is returned for pictures other than 8-bit 4:2:0 and
	// for buffers other than YV12.
	ErrUnsupported = errors.New("unsupported picture format")

	ErrBufferTooSmall = errors.New("window buffer is too small")
	ErrInvalidPicture = errors.New("invalid picture")
)

// TargetFormat is the only window format the presenter writes.
const TargetFormat = window.PixelFormatYV12

// chromaStrideAlignment is required by the YV12 buffer convention.
const chromaStrideAlignment = 16

// Layout describes where the planes of a YV12 buffer are.
type Layout struct {
	Width  int
	Height int

	LumaStride   int
	ChromaStride int
	ChromaWidth  int
	ChromaHeight int

	YOffset int
	VOffset int
	UOffset int

	// Size is the amount of bytes the three planes occupy.
	Size int
}

// YV12Layout computes the plane placement for a buffer with the given luma
// stride: Y, then V (Cr), then U (Cb), chroma rows padded to 16 bytes.
func YV12Layout(width, height, stride int) Layout {
	l := Layout{
		Width:        width,
		Height:       height,
		LumaStride:   stride,
		ChromaStride: internal.AlignUp(stride/2, chromaStrideAlignment),
		ChromaWidth:  internal.HalfUp(width),
		ChromaHeight: internal.HalfUp(height),
	}
	lumaSize := l.LumaStride * height
	chromaSize := l.ChromaStride * l.ChromaHeight
	l.YOffset = 0
	l.VOffset = lumaSize
	l.UOffset = lumaSize + chromaSize
	l.Size = lumaSize + 2*chromaSize
	return l
}

// CheckSupported returns ErrUnsupported (wrapped) if pic cannot be presented.
func CheckSupported(pic *decoder.Picture) error {
	if pic == nil {
		return fmt.Errorf("%w: nil picture", ErrInvalidPicture)
	}
	if pic.BitDepth != 8 {
		return fmt.Errorf("%w: bit depth %d", ErrUnsupported, pic.BitDepth)
	}
	if pic.Layout != decoder.PixelLayoutI420 {
		return fmt.Errorf("%w: layout %s", ErrUnsupported, pic.Layout)
	}
	return nil
}

// CopyToBuffer writes pic into dst. Padding bytes of every written row are
// zeroed.
func CopyToBuffer(dst *window.Buffer, pic *decoder.Picture) (Layout, error) {
	if err := CheckSupported(pic); err != nil {
		return Layout{}, err
	}
	if dst == nil {
		return Layout{}, fmt.Errorf("%w: nil buffer", ErrBufferTooSmall)
	}
	if dst.Format != TargetFormat {
		return Layout{}, fmt.Errorf("%w: buffer format %s", ErrUnsupported, dst.Format)
	}
	if dst.Stride <= 0 {
		return Layout{}, fmt.Errorf("%w: stride %d", ErrBufferTooSmall, dst.Stride)
	}

	l := YV12Layout(pic.Width, pic.Height, dst.Stride)
	if l.Size > len(dst.Bits) {
		return l, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, l.Size, len(dst.Bits))
	}

	planes := []struct {
		src       int
		offset    int
		dstStride int
		width     int
		height    int
	}{
		{decoder.PlaneY, l.YOffset, l.LumaStride, pic.Width, pic.Height},
		{decoder.PlaneV, l.VOffset, l.ChromaStride, l.ChromaWidth, l.ChromaHeight},
		{decoder.PlaneU, l.UOffset, l.ChromaStride, l.ChromaWidth, l.ChromaHeight},
	}
	for _, p := range planes {
		src, srcStride := pic.Planes[p.src], pic.Strides[p.src]
		if !planeFits(src, srcStride, p.width, p.height) {
			return l, fmt.Errorf("%w: plane %d is %d bytes with stride %d, but %dx%d is expected", ErrInvalidPicture, p.src, len(src), srcStride, p.width, p.height)
		}
	}
	for _, p := range planes {
		src, srcStride := pic.Planes[p.src], pic.Strides[p.src]
		copyPlane(
			dst.Bits[p.offset:p.offset+p.dstStride*p.height], p.dstStride,
			src, srcStride,
			p.width, p.height,
		)
	}
	return l, nil
}

func planeFits(src []byte, srcStride, width, height int) bool {
	if height == 0 || width == 0 {
		return true
	}
	if srcStride < width {
		return false
	}
	return len(src) >= (height-1)*srcStride+width
}

// copyPlane copies min(width, dstStride) bytes of each of the height rows
// and zeroes the rest of every destination row.
func copyPlane(
	dst []byte, dstStride int,
	src []byte, srcStride int,
	width, height int,
) {
	n := min(width, dstStride)
	for row := 0; row < height; row++ {
		dstRow := dst[row*dstStride : (row+1)*dstStride]
		copy(dstRow[:n], src[row*srcStride:row*srcStride+n])
		clear(dstRow[n:])
	}
}

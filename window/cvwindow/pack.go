// Package cvwindow shows the posted frames in an OpenCV highgui window
// (build with the "with_cv" tag).
package cvwindow

import (
	"fmt"

	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/window/memory"
)

// packYV12 drops the row padding: OpenCV expects a YV12 image with
// chroma rows exactly half as wide as luma rows. Odd sizes are cropped to
// even ones.
func packYV12(frame memory.Frame) (_ []byte, width, height int, _ error) {
	width, height = frame.Width&^1, frame.Height&^1
	if width == 0 || height == 0 {
		return nil, 0, 0, fmt.Errorf("the frame %dx%d is too small", frame.Width, frame.Height)
	}
	if len(frame.Bits) < memory.BufferSize(frame.Stride, frame.Height) {
		return nil, 0, 0, fmt.Errorf("the frame buffer is %d bytes, expected at least %d", len(frame.Bits), memory.BufferSize(frame.Stride, frame.Height))
	}

	chromaStride := internal.AlignUp(frame.Stride/2, 16)
	chromaRows := internal.HalfUp(frame.Height)
	out := make([]byte, 0, width*height*3/2)
	for row := 0; row < height; row++ {
		out = append(out, frame.Bits[row*frame.Stride:row*frame.Stride+width]...)
	}
	for _, planeOffset := range []int{
		frame.Stride * frame.Height,
		frame.Stride*frame.Height + chromaStride*chromaRows,
	} {
		for row := 0; row < height/2; row++ {
			offset := planeOffset + row*chromaStride
			out = append(out, frame.Bits[offset:offset+width/2]...)
		}
	}
	return out, width, height, nil
}

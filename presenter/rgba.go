package presenter

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/xaionaro-go/av1bridge/decoder"
)

// ToRGBA converts a 4:2:0 picture into RGBA using integer BT.601 (limited
// range) coefficients. It is an approximation meant for previews; pictures
// deeper than 8 bits are shifted down to 8 bits first.
func ToRGBA(pic *decoder.Picture) (*image.RGBA, error) {
	if pic == nil {
		return nil, fmt.Errorf("%w: nil picture", ErrInvalidPicture)
	}
	if pic.Layout != decoder.PixelLayoutI420 {
		return nil, fmt.Errorf("%w: layout %s", ErrUnsupported, pic.Layout)
	}
	if pic.BitDepth < 8 || pic.BitDepth > 16 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrUnsupported, pic.BitDepth)
	}

	bytesPerSample := 1
	if pic.BitDepth > 8 {
		bytesPerSample = 2
	}
	chromaWidth, chromaHeight := pic.ChromaSize()
	if !planeFits(pic.Planes[decoder.PlaneY], pic.Strides[decoder.PlaneY], pic.Width*bytesPerSample, pic.Height) ||
		!planeFits(pic.Planes[decoder.PlaneU], pic.Strides[decoder.PlaneU], chromaWidth*bytesPerSample, chromaHeight) ||
		!planeFits(pic.Planes[decoder.PlaneV], pic.Strides[decoder.PlaneV], chromaWidth*bytesPerSample, chromaHeight) {
		return nil, fmt.Errorf("%w: planes are smaller than %dx%d", ErrInvalidPicture, pic.Width, pic.Height)
	}

	shift := uint(pic.BitDepth - 8)
	sample := func(plane, x, y int) int {
		offset := y*pic.Strides[plane] + x*bytesPerSample
		if bytesPerSample == 1 {
			return int(pic.Planes[plane][offset])
		}
		return int(binary.LittleEndian.Uint16(pic.Planes[plane][offset:]) >> shift)
	}

	img := image.NewRGBA(image.Rect(0, 0, pic.Width, pic.Height))
	for y := 0; y < pic.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < pic.Width; x++ {
			r, g, b := bt601(
				sample(decoder.PlaneY, x, y),
				sample(decoder.PlaneU, x>>1, y>>1),
				sample(decoder.PlaneV, x>>1, y>>1),
			)
			px := row[x*4 : x*4+4]
			px[0], px[1], px[2], px[3] = r, g, b, 0xff
		}
	}
	return img, nil
}

func bt601(y, u, v int) (r, g, b uint8) {
	c := 298 * max(y-16, 0)
	d := u - 128
	e := v - 128
	return clamp8((c + 409*e + 128) >> 8),
		clamp8((c - 100*d - 208*e + 128) >> 8),
		clamp8((c + 516*d + 128) >> 8)
}

func clamp8(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 0xff:
		return 0xff
	default:
		return uint8(v)
	}
}

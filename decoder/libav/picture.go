package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/av1bridge/decoder"
)

type pixelFormatInfo struct {
	Layout   decoder.PixelLayout
	BitDepth int
}

var pixelFormats = map[astiav.PixelFormat]pixelFormatInfo{
	astiav.PixelFormatGray8:       {decoder.PixelLayoutI400, 8},
	astiav.PixelFormatYuv420P:     {decoder.PixelLayoutI420, 8},
	astiav.PixelFormatYuv422P:     {decoder.PixelLayoutI422, 8},
	astiav.PixelFormatYuv444P:     {decoder.PixelLayoutI444, 8},
	astiav.PixelFormatGray10Le:    {decoder.PixelLayoutI400, 10},
	astiav.PixelFormatYuv420P10Le: {decoder.PixelLayoutI420, 10},
	astiav.PixelFormatYuv422P10Le: {decoder.PixelLayoutI422, 10},
	astiav.PixelFormatYuv444P10Le: {decoder.PixelLayoutI444, 10},
	astiav.PixelFormatYuv420P12Le: {decoder.PixelLayoutI420, 12},
}

// pictureFromFrame copies the frame planes out of libav memory, so the
// frame may be unref-ed right away.
func pictureFromFrame(f *astiav.Frame) (*decoder.Picture, error) {
	info, ok := pixelFormats[f.PixelFormat()]
	if !ok {
		return nil, fmt.Errorf("unexpected pixel format %s", f.PixelFormat())
	}

	buf, err := f.Data().Bytes(1)
	if err != nil {
		return nil, fmt.Errorf("unable to copy the frame data: %w", err)
	}

	pic := decoder.NewPicture(nil)
	pic.Width = f.Width()
	pic.Height = f.Height()
	pic.BitDepth = info.BitDepth
	pic.Layout = info.Layout
	pic.PTS = f.Pts()

	bytesPerSample := (info.BitDepth + 7) / 8
	chromaWidth, chromaHeight := pic.ChromaSize()
	pic.Strides = [3]int{
		pic.Width * bytesPerSample,
		chromaWidth * bytesPerSample,
		chromaWidth * bytesPerSample,
	}
	sizes := [3]int{
		pic.Strides[decoder.PlaneY] * pic.Height,
		pic.Strides[decoder.PlaneU] * chromaHeight,
		pic.Strides[decoder.PlaneV] * chromaHeight,
	}
	if total := sizes[0] + sizes[1] + sizes[2]; len(buf) < total {
		return nil, fmt.Errorf("the frame data is %d bytes, but %d are expected", len(buf), total)
	}

	offset := 0
	for plane, size := range sizes {
		pic.Planes[plane] = buf[offset : offset+size : offset+size]
		offset += size
	}
	return pic, nil
}

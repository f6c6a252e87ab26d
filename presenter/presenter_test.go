package presenter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/window"
)

const garbage = 0xAA

func newTestPicture(width, height, yStride, uvStride int) *decoder.Picture {
	pic := decoder.NewPicture(nil)
	pic.Width, pic.Height = width, height
	pic.BitDepth = 8
	pic.Layout = decoder.PixelLayoutI420
	pic.Strides = [3]int{yStride, uvStride, uvStride}

	chromaWidth, chromaHeight := pic.ChromaSize()
	y := make([]byte, yStride*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			y[row*yStride+col] = byte(row*width + col)
		}
	}
	u := bytes.Repeat([]byte{0x55}, uvStride*chromaHeight)
	v := bytes.Repeat([]byte{0x66}, uvStride*chromaHeight)
	for row := 0; row < chromaHeight; row++ {
		// make the source padding distinguishable from the payload
		for col := chromaWidth; col < uvStride; col++ {
			u[row*uvStride+col] = 0xEE
			v[row*uvStride+col] = 0xEF
		}
	}
	pic.Planes = [3][]byte{y, u, v}
	return pic
}

func newTestBuffer(stride, size int) *window.Buffer {
	return &window.Buffer{
		Bits:   bytes.Repeat([]byte{garbage}, size),
		Stride: stride,
		Format: window.PixelFormatYV12,
	}
}

func TestYV12Layout(t *testing.T) {
	l := YV12Layout(18, 10, 32)
	require.Equal(t, Layout{
		Width:        18,
		Height:       10,
		LumaStride:   32,
		ChromaStride: 16,
		ChromaWidth:  9,
		ChromaHeight: 5,
		YOffset:      0,
		VOffset:      320,
		UOffset:      400,
		Size:         480,
	}, l)

	l = YV12Layout(1920, 1080, 1920)
	require.Equal(t, 960, l.ChromaStride)
	require.Equal(t, 1920*1080, l.VOffset)
	require.Equal(t, 1920*1080+960*540, l.UOffset)

	l = YV12Layout(100, 7, 100)
	require.Equal(t, 64, l.ChromaStride)
	require.Equal(t, 4, l.ChromaHeight)
}

func TestCopyToBufferOddChroma(t *testing.T) {
	for dstStride, chromaStride := range map[int]int{18: 16, 32: 16, 64: 32} {
		pic := newTestPicture(18, 10, 24, 12)
		l := YV12Layout(18, 10, dstStride)
		buf := newTestBuffer(dstStride, l.Size+7)

		gotLayout, err := CopyToBuffer(buf, pic)
		require.NoError(t, err)
		require.Equal(t, l, gotLayout)
		require.Equal(t, chromaStride, l.ChromaStride)

		for row := 0; row < 10; row++ {
			dstRow := buf.Bits[row*dstStride : (row+1)*dstStride]
			require.Equal(t, pic.Planes[decoder.PlaneY][row*24:row*24+18], dstRow[:18], "luma row %d", row)
			require.Equal(t, make([]byte, dstStride-18), dstRow[18:], "luma padding row %d", row)
		}

		for row := 0; row < 5; row++ {
			vRow := buf.Bits[l.VOffset+row*l.ChromaStride : l.VOffset+(row+1)*l.ChromaStride]
			require.Equal(t, bytes.Repeat([]byte{0x66}, 9), vRow[:9], "V row %d", row)
			require.Equal(t, make([]byte, l.ChromaStride-9), vRow[9:], "V padding row %d", row)

			uRow := buf.Bits[l.UOffset+row*l.ChromaStride : l.UOffset+(row+1)*l.ChromaStride]
			require.Equal(t, bytes.Repeat([]byte{0x55}, 9), uRow[:9], "U row %d", row)
			require.Equal(t, make([]byte, l.ChromaStride-9), uRow[9:], "U padding row %d", row)
		}

		// bytes past the planes are not touched
		require.Equal(t, bytes.Repeat([]byte{garbage}, 7), buf.Bits[l.Size:])
	}
}

func TestCopyToBufferPlaneOrder(t *testing.T) {
	const width, height, stride = 32, 4, 32
	pic := newTestPicture(width, height, width, width/2)
	for idx := range pic.Planes[decoder.PlaneY] {
		pic.Planes[decoder.PlaneY][idx] = 0x11
	}
	for idx := range pic.Planes[decoder.PlaneU] {
		pic.Planes[decoder.PlaneU][idx] = 0x22
	}
	for idx := range pic.Planes[decoder.PlaneV] {
		pic.Planes[decoder.PlaneV][idx] = 0x33
	}

	l := YV12Layout(width, height, stride)
	buf := newTestBuffer(stride, l.Size)
	_, err := CopyToBuffer(buf, pic)
	require.NoError(t, err)

	var expected []byte
	expected = append(expected, bytes.Repeat([]byte{0x11}, stride*height)...)
	expected = append(expected, bytes.Repeat([]byte{0x33}, 16*2)...)
	expected = append(expected, bytes.Repeat([]byte{0x22}, 16*2)...)
	require.Equal(t, expected, buf.Bits)
}

func TestCopyToBufferUnsupported(t *testing.T) {
	for name, mutate := range map[string]func(*decoder.Picture, *window.Buffer){
		"10bit":        func(p *decoder.Picture, b *window.Buffer) { p.BitDepth = 10 },
		"I444":         func(p *decoder.Picture, b *window.Buffer) { p.Layout = decoder.PixelLayoutI444 },
		"I400":         func(p *decoder.Picture, b *window.Buffer) { p.Layout = decoder.PixelLayoutI400 },
		"non-YV12 dst": func(p *decoder.Picture, b *window.Buffer) { b.Format = window.PixelFormat(1) },
	} {
		t.Run(name, func(t *testing.T) {
			pic := newTestPicture(18, 10, 18, 9)
			buf := newTestBuffer(32, 480)
			mutate(pic, buf)
			_, err := CopyToBuffer(buf, pic)
			require.ErrorIs(t, err, ErrUnsupported)
			require.Equal(t, bytes.Repeat([]byte{garbage}, 480), buf.Bits)
		})
	}
}

func TestCopyToBufferTooSmall(t *testing.T) {
	pic := newTestPicture(18, 10, 18, 9)
	buf := newTestBuffer(32, 479)
	_, err := CopyToBuffer(buf, pic)
	require.ErrorIs(t, err, ErrBufferTooSmall)

	_, err = CopyToBuffer(nil, pic)
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestCopyToBufferShortPlane(t *testing.T) {
	pic := newTestPicture(18, 10, 18, 9)
	pic.Planes[decoder.PlaneU] = pic.Planes[decoder.PlaneU][:10]
	buf := newTestBuffer(32, 480)
	_, err := CopyToBuffer(buf, pic)
	require.ErrorIs(t, err, ErrInvalidPicture)
}

func TestToRGBA(t *testing.T) {
	pic := newTestPicture(4, 2, 4, 2)
	copy(pic.Planes[decoder.PlaneY], []byte{16, 16, 235, 235, 16, 16, 235, 235})
	for plane := decoder.PlaneU; plane <= decoder.PlaneV; plane++ {
		for idx := range pic.Planes[plane] {
			pic.Planes[plane][idx] = 128
		}
	}

	img, err := ToRGBA(pic)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0xff}, img.Pix[0:4])
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, img.Pix[8:12])
	require.Equal(t, []byte{0, 0, 0, 0xff}, img.Pix[img.Stride:img.Stride+4])

	pic.Layout = decoder.PixelLayoutI444
	_, err = ToRGBA(pic)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestToRGBAHighBitDepth(t *testing.T) {
	pic := decoder.NewPicture(nil)
	pic.Width, pic.Height = 2, 2
	pic.BitDepth = 10
	pic.Layout = decoder.PixelLayoutI420
	pic.Strides = [3]int{4, 2, 2}
	// 940 (10-bit white) little-endian, shifted down to 235
	pic.Planes = [3][]byte{
		{0xAC, 0x03, 0xAC, 0x03, 0xAC, 0x03, 0xAC, 0x03},
		{0x00, 0x02},
		{0x00, 0x02},
	}

	img, err := ToRGBA(pic)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, img.Pix[0:4])
}

//go:build dav1d
// +build dav1d

package dav1d

/*
#cgo pkg-config: dav1d

#include <errno.h>
#include <stdlib.h>
#include <dav1d/dav1d.h>
*/
import "C"
import (
	"context"
	"fmt"
	"unsafe"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/xsync"
)

type Decoder struct {
	locker xsync.Mutex
	ctx    *C.Dav1dContext
}

var _ decoder.Decoder = (*Decoder)(nil)

func Opener() decoder.Opener {
	return func(ctx context.Context, settings decoder.Settings) (decoder.Decoder, error) {
		return Open(ctx, settings)
	}
}

func Open(
	ctx context.Context,
	settings decoder.Settings,
) (_ret *Decoder, _err error) {
	logger.Debugf(ctx, "Open(ctx, %#+v)", settings)
	defer func() { logger.Debugf(ctx, "/Open(ctx, %#+v): %v", settings, _err) }()

	var s C.Dav1dSettings
	C.dav1d_default_settings(&s)
	s.n_threads = C.int(max(settings.FrameThreads, 1))
	if settings.MaxFrameDelay > 0 {
		s.max_frame_delay = C.int(settings.MaxFrameDelay)
	}

	d := &Decoder{}
	if ret := C.dav1d_open(&d.ctx, &s); ret != 0 {
		return nil, decoder.CodedError{Op: "dav1d_open", Code: int(ret)}
	}
	return d, nil
}

// Version is the dav1d API version, "major.minor.patch".
func (d *Decoder) Version() string {
	return FormatAPIVersion(uint32(C.dav1d_version_api()))
}

func (d *Decoder) String() string {
	return fmt.Sprintf("dav1d(%s)", C.GoString(C.dav1d_version()))
}

func (d *Decoder) NewData(ctx context.Context, size int) (*decoder.Data, error) {
	if size <= 0 {
		return nil, decoder.CodedError{Op: "dav1d_data_create", Code: -int(C.EINVAL)}
	}

	cData := (*C.Dav1dData)(C.calloc(1, C.size_t(unsafe.Sizeof(C.Dav1dData{}))))
	if cData == nil {
		return nil, decoder.CodedError{Op: "dav1d_data_create", Code: -int(C.ENOMEM)}
	}
	ptr := C.dav1d_data_create(cData, C.size_t(size))
	if ptr == nil {
		C.free(unsafe.Pointer(cData))
		return nil, decoder.CodedError{Op: "dav1d_data_create", Code: -int(C.ENOMEM)}
	}

	data := decoder.NewData(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size), func(data *decoder.Data) {
		cData, ok := data.Opaque.(*C.Dav1dData)
		if !ok || cData == nil {
			return
		}
		C.dav1d_data_unref(cData)
		C.free(unsafe.Pointer(cData))
		data.Opaque = nil
	})
	data.Opaque = cData
	return data, nil
}

func (d *Decoder) SendData(ctx context.Context, data *decoder.Data) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.ctx == nil {
			return decoder.CodedError{Op: "dav1d_send_data", Code: -int(C.EINVAL)}
		}
		cData, ok := data.Opaque.(*C.Dav1dData)
		if !ok || cData == nil {
			return decoder.CodedError{Op: "dav1d_send_data", Code: -int(C.EINVAL)}
		}
		cData.m.timestamp = C.int64_t(data.PTS)

		ret := C.dav1d_send_data(d.ctx, cData)
		switch {
		case ret == 0:
			// dav1d took the reference and zeroed cData
			C.free(unsafe.Pointer(cData))
			data.Opaque = nil
			data.Buf = nil
			return nil
		case ret == -C.EAGAIN:
			return decoder.ErrAgain
		default:
			return decoder.CodedError{Op: "dav1d_send_data", Code: int(ret)}
		}
	})
}

func (d *Decoder) GetPicture(ctx context.Context) (*decoder.Picture, error) {
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &d.locker, func() (*decoder.Picture, error) {
		if d.ctx == nil {
			return nil, decoder.CodedError{Op: "dav1d_get_picture", Code: -int(C.EINVAL)}
		}

		cPic := (*C.Dav1dPicture)(C.calloc(1, C.size_t(unsafe.Sizeof(C.Dav1dPicture{}))))
		if cPic == nil {
			return nil, decoder.CodedError{Op: "dav1d_get_picture", Code: -int(C.ENOMEM)}
		}
		ret := C.dav1d_get_picture(d.ctx, cPic)
		switch {
		case ret == 0:
		case ret == -C.EAGAIN:
			C.free(unsafe.Pointer(cPic))
			return nil, decoder.ErrAgain
		default:
			C.free(unsafe.Pointer(cPic))
			return nil, decoder.CodedError{Op: "dav1d_get_picture", Code: int(ret)}
		}
		return wrapPicture(cPic), nil
	})
}

func wrapPicture(cPic *C.Dav1dPicture) *decoder.Picture {
	pic := decoder.NewPicture(func(*decoder.Picture) {
		C.dav1d_picture_unref(cPic)
		C.free(unsafe.Pointer(cPic))
	})
	pic.Width = int(cPic.p.w)
	pic.Height = int(cPic.p.h)
	pic.BitDepth = int(cPic.p.bpc)
	pic.PTS = int64(cPic.m.timestamp)
	switch cPic.p.layout {
	case C.DAV1D_PIXEL_LAYOUT_I400:
		pic.Layout = decoder.PixelLayoutI400
	case C.DAV1D_PIXEL_LAYOUT_I420:
		pic.Layout = decoder.PixelLayoutI420
	case C.DAV1D_PIXEL_LAYOUT_I422:
		pic.Layout = decoder.PixelLayoutI422
	case C.DAV1D_PIXEL_LAYOUT_I444:
		pic.Layout = decoder.PixelLayoutI444
	}

	lumaStride := int(cPic.stride[0])
	chromaStride := int(cPic.stride[1])
	pic.Strides = [3]int{lumaStride, chromaStride, chromaStride}
	_, chromaHeight := pic.ChromaSize()
	rows := [3]int{pic.Height, chromaHeight, chromaHeight}
	for plane := range pic.Planes {
		ptr := cPic.data[plane]
		if ptr == nil || rows[plane] == 0 {
			continue
		}
		pic.Planes[plane] = unsafe.Slice((*byte)(ptr), pic.Strides[plane]*rows[plane])
	}
	return pic
}

// SignalEndOfStream is a no-op: dav1d drains on its own once
// dav1d_get_picture is called with no more data pending.
func (d *Decoder) SignalEndOfStream(ctx context.Context) error {
	return nil
}

func (d *Decoder) Flush(ctx context.Context) {
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if d.ctx == nil {
			return
		}
		C.dav1d_flush(d.ctx)
	})
}

func (d *Decoder) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if d.ctx == nil {
			return
		}
		C.dav1d_close(&d.ctx)
		d.ctx = nil
	})
	return nil
}

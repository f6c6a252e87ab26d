// Package libav implements decoder.Decoder on top of libavcodec (through
// go-astiav), preferring its libdav1d wrapper.
package libav

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/xsync"
)

// CodecNames are tried in order by Open.
var CodecNames = []string{"libdav1d", "libaom-av1", "av1"}

type Decoder struct {
	locker       xsync.Mutex
	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	closer       *astikit.Closer
}

var _ decoder.Decoder = (*Decoder)(nil)

// Opener is a decoder.Opener for Open.
func Opener() decoder.Opener {
	return func(ctx context.Context, settings decoder.Settings) (decoder.Decoder, error) {
		return Open(ctx, settings)
	}
}

func findCodec(ctx context.Context) *astiav.Codec {
	for _, name := range CodecNames {
		if c := astiav.FindDecoderByName(name); c != nil {
			return c
		}
		logger.Debugf(ctx, "decoder '%s' is not available", name)
	}
	return astiav.FindDecoder(astiav.CodecIDAv1)
}

func Open(
	ctx context.Context,
	settings decoder.Settings,
) (_ret *Decoder, _err error) {
	logger.Debugf(ctx, "Open(ctx, %#+v)", settings)
	defer func() { logger.Debugf(ctx, "/Open(ctx, %#+v): %v", settings, _err) }()

	d := &Decoder{
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			d.closer.Close()
		}
	}()

	d.codec = findCodec(ctx)
	if d.codec == nil {
		return nil, fmt.Errorf("no AV1 decoder found in libavcodec (tried %v)", CodecNames)
	}
	ctx = belt.WithField(ctx, "codec", d.codec.Name())

	d.codecContext = astiav.AllocCodecContext(d.codec)
	if d.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate codec context")
	}
	d.closer.Add(d.codecContext.Free)

	d.codecContext.SetThreadCount(max(settings.FrameThreads, 1))
	d.codecContext.SetThreadType(astiav.ThreadTypeFrame)
	d.codecContext.SetFlags(d.codecContext.Flags() | astiav.CodecContextFlags(astiav.CodecContextFlagLowDelay))

	options := astiav.NewDictionary()
	defer options.Free()
	if settings.MaxFrameDelay > 0 {
		if err := options.Set("max_frame_delay", strconv.Itoa(settings.MaxFrameDelay), 0); err != nil {
			logger.Errorf(ctx, "unable to set max_frame_delay: %v", err)
		}
	}
	if settings.TileThreads > 1 {
		logger.Debugf(ctx, "tile threads hint %d is left to libavcodec", settings.TileThreads)
	}

	logger.Tracef(ctx, "codecContext.Open(%s)", d.codec.Name())
	if err := d.codecContext.Open(d.codec, options); err != nil {
		return nil, fmt.Errorf("unable to open codec context: %w", wrapAVError("open", err))
	}
	return d, nil
}

func (d *Decoder) String() string {
	return fmt.Sprintf("Decoder(%s)", d.Version())
}

// Version is the name of the libavcodec decoder in use (e.g. "libdav1d"):
// libavcodec does not expose the version of the library it wraps.
func (d *Decoder) Version() string {
	if d.codec == nil {
		return ""
	}
	return d.codec.Name()
}

func (d *Decoder) NewData(ctx context.Context, size int) (*decoder.Data, error) {
	if size <= 0 {
		return nil, decoder.CodedError{Op: "data_create", Code: int(astiav.ErrEinval)}
	}
	return decoder.NewData(make([]byte, size), nil), nil
}

func (d *Decoder) SendData(ctx context.Context, data *decoder.Data) (_err error) {
	logger.Tracef(ctx, "SendData(%d bytes, pts:%d)", data.Len(), data.PTS)
	defer func() { logger.Tracef(ctx, "/SendData(%d bytes, pts:%d): %v", data.Len(), data.PTS, _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.codecContext == nil {
			return decoder.CodedError{Op: "send_data", Code: int(astiav.ErrEinval)}
		}

		pkt := packetPool.Get()
		if pkt == nil {
			return decoder.CodedError{Op: "send_data", Code: int(astiav.ErrEnomem)}
		}
		defer packetPool.Put(pkt)
		if err := pkt.FromData(data.Buf); err != nil {
			return wrapAVError("send_data", err)
		}
		pkt.SetPts(data.PTS)
		pkt.SetDts(data.PTS)

		err := d.codecContext.SendPacket(pkt)
		switch {
		case err == nil:
			// libavcodec keeps its own reference
			data.Unref()
			return nil
		case errors.Is(err, astiav.ErrEagain):
			return decoder.ErrAgain
		default:
			return wrapAVError("send_data", err)
		}
	})
}

func (d *Decoder) GetPicture(ctx context.Context) (*decoder.Picture, error) {
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &d.locker, func() (*decoder.Picture, error) {
		if d.codecContext == nil {
			return nil, decoder.CodedError{Op: "get_picture", Code: int(astiav.ErrEinval)}
		}

		f := framePool.Get()
		if f == nil {
			return nil, decoder.CodedError{Op: "get_picture", Code: int(astiav.ErrEnomem)}
		}
		defer framePool.Put(f)

		err := d.codecContext.ReceiveFrame(f)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEagain), errors.Is(err, astiav.ErrEof):
			return nil, decoder.ErrAgain
		default:
			return nil, wrapAVError("get_picture", err)
		}

		pic, err := pictureFromFrame(f)
		if err != nil {
			return nil, fmt.Errorf("unable to convert the frame: %w", err)
		}
		logger.Tracef(ctx, "got %s", pic)
		return pic, nil
	})
}

// SignalEndOfStream enters draining mode by sending a nil packet.
func (d *Decoder) SignalEndOfStream(ctx context.Context) error {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.codecContext == nil {
			return decoder.CodedError{Op: "signal_eos", Code: int(astiav.ErrEinval)}
		}
		err := d.codecContext.SendPacket(nil)
		switch {
		case err == nil, errors.Is(err, astiav.ErrEof):
			return nil
		case errors.Is(err, astiav.ErrEagain):
			return decoder.ErrAgain
		default:
			return wrapAVError("signal_eos", err)
		}
	})
}

func (d *Decoder) Flush(ctx context.Context) {
	logger.Tracef(ctx, "Flush")
	defer func() { logger.Tracef(ctx, "/Flush") }()
	d.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		if d.codecContext == nil {
			return
		}
		d.codecContext.FlushBuffers()
	})
}

func (d *Decoder) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	packetsAllocated, packetsReused := packetPool.Stats()
	framesAllocated, framesReused := framePool.Stats()
	logger.Debugf(ctx, "pools: packets %d allocated, %d reused; frames %d allocated, %d reused",
		packetsAllocated, packetsReused, framesAllocated, framesReused)
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if d.closer == nil {
			return nil
		}
		err := d.closer.Close()
		d.closer = nil
		d.codecContext = nil
		return err
	})
}

func wrapAVError(op string, err error) error {
	var avErr astiav.Error
	if errors.As(err, &avErr) {
		return fmt.Errorf("%w: %w", decoder.CodedError{Op: op, Code: int(avErr)}, err)
	}
	return err
}

// Package av1bridge drives an external AV1 decoder through a bounded,
// non-blocking push/poll pipeline and presents the decoded pictures into
// YV12 windows.
package av1bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/xsync"
)

// Session owns a decoder instance, the packets waiting for it and the bound
// window.
//
// Push, Dequeue, Flush, SignalEndOfStream and Close are expected to be
// called by one goroutine at a time. SetWindow/SetSurface and Render may be
// called from different goroutines. GetStats may be called from anywhere.
type Session struct {
	CommonsStatistics
	Config Config

	decoder         decoder.Decoder
	queue           inputQueue
	endOfStream     bool
	endOfStreamSent bool

	windowLocker   xsync.Mutex
	window         window.Window
	windowGeometry window.Geometry
}

// New opens a decoder. On failure nothing is left allocated.
func New(
	ctx context.Context,
	open decoder.Opener,
	cfg Config,
) (_ret *Session, _err error) {
	cfg = cfg.WithDefaults()
	logger.Debugf(ctx, "New(ctx, %#+v)", cfg)
	defer func() { logger.Debugf(ctx, "/New(ctx, %#+v): %v", cfg, _err) }()
	if open == nil {
		return nil, fmt.Errorf("%w: no decoder opener", ErrInvalidArgument)
	}

	settings := cfg.DecoderSettings()
	logger.Tracef(ctx, "decoder settings: %s", internal.Dump(settings))
	dec, err := open(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("unable to open the decoder: %w", err)
	}
	if dec == nil {
		return nil, fmt.Errorf("the decoder opener returned nil")
	}

	s := &Session{
		Config:  cfg,
		decoder: dec,
		queue:   newInputQueue(cfg.InputQueueCapacity),
	}
	logger.Infof(ctx, "decoder %s opened (threads=%d)", s.Name(), cfg.FrameThreads)
	return s, nil
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(%s)", s.Name())
}

// Name identifies the decoder, e.g. "av1bridge-dav1d-1.4.3" with the dav1d
// backend or "av1bridge-dav1d-libdav1d" with the libav one.
func (s *Session) Name() string {
	return "av1bridge-dav1d-" + s.Version()
}

// Version is the decoder library version, empty after Close.
func (s *Session) Version() string {
	if s == nil || s.decoder == nil {
		return ""
	}
	return s.decoder.Version()
}

func (s *Session) IsClosed() bool {
	return s == nil || s.decoder == nil
}

// HasCapacity reports whether a Push would be queued rather than refused
// with ErrWouldBlock. It is advisory: nothing is reserved.
func (s *Session) HasCapacity() bool {
	if s.IsClosed() {
		return false
	}
	return s.queue.HasCapacity()
}

// QueueLength is the amount of packets waiting for the decoder.
func (s *Session) QueueLength() int {
	if s.IsClosed() {
		return 0
	}
	return s.queue.Len()
}

// IsEndOfStream reports whether SignalEndOfStream was called since the last
// Flush.
func (s *Session) IsEndOfStream() bool {
	return s.endOfStream
}

// Push copies buf[offset:offset+length] into a new packet, queues it and
// feeds the decoder. A nil error does not mean the decoder already
// accepted the packet. After SignalEndOfStream it answers ErrEndOfStream
// until Flush.
func (s *Session) Push(
	ctx context.Context,
	buf []byte,
	offset, length int,
	pts int64,
) (_err error) {
	logger.Tracef(ctx, "Push(ctx, buf[%d], %d, %d, %d)", len(buf), offset, length, pts)
	defer func() { logger.Tracef(ctx, "/Push(ctx, buf[%d], %d, %d, %d): %v", len(buf), offset, length, pts, _err) }()

	switch {
	case s.IsClosed():
		return ErrClosed
	case buf == nil:
		return fmt.Errorf("%w: nil buffer", ErrInvalidArgument)
	case length <= 0:
		return fmt.Errorf("%w: length %d", ErrInvalidArgument, length)
	case offset < 0 || offset > len(buf) || length > len(buf)-offset:
		return fmt.Errorf("%w: range [%d:%d] is out of the buffer of size %d", ErrInvalidArgument, offset, offset+length, len(buf))
	}
	if s.endOfStream {
		return ErrEndOfStream
	}
	if !s.queue.HasCapacity() {
		return ErrWouldBlock
	}

	data, err := s.decoder.NewData(ctx, length)
	if err != nil {
		return fmt.Errorf("%w: unable to allocate a packet of %d bytes: %w", ErrOutOfMemory, length, err)
	}
	if data == nil || len(data.Buf) < length {
		data.Unref()
		return fmt.Errorf("%w: the decoder returned a buffer of %d bytes instead of %d", ErrOutOfMemory, data.Len(), length)
	}
	copy(data.Buf, buf[offset:offset+length])
	data.PTS = pts

	ok := s.queue.PushBack(data)
	if !ok {
		data.Unref()
		return ErrWouldBlock
	}
	s.PacketsSubmitted.Inc()
	s.BytesSubmitted.Add(uint64(length))

	s.feed(ctx)
	return nil
}

// Flush drops the queued packets and resets the decoder state; used on
// seeks and discontinuities.
func (s *Session) Flush(ctx context.Context) {
	logger.Debugf(ctx, "Flush")
	defer func() { logger.Debugf(ctx, "/Flush") }()
	if s.IsClosed() {
		return
	}

	dropped := uint64(s.queue.Discard())
	s.PacketsDroppedAtFlush.Add(dropped)
	s.FramesNeverDecoded.Add(dropped)
	if dropped > 0 {
		logger.Debugf(ctx, "dropped %d not yet accepted packets", dropped)
	}

	s.decoder.Flush(ctx)
	s.endOfStream = false
	s.endOfStreamSent = false
}

// SignalEndOfStream tells the decoder no more data follows, so it outputs
// the pictures it is holding back. Keep calling Dequeue until it answers
// DequeueStatusPending. Packets still queued are submitted first.
func (s *Session) SignalEndOfStream(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "SignalEndOfStream")
	defer func() { logger.Debugf(ctx, "/SignalEndOfStream: %v", _err) }()
	if s.IsClosed() {
		return ErrClosed
	}

	s.endOfStream = true
	s.feed(ctx)
	return nil
}

// Close discards the queued packets, closes the decoder and releases the
// bound window. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	if s == nil {
		return nil
	}

	var errs []error
	if s.decoder != nil {
		discarded := uint64(s.queue.Discard())
		s.FramesNeverDecoded.Add(discarded)

		if err := s.decoder.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close the decoder: %w", err))
		}
		s.decoder = nil
	}
	s.SetWindow(ctx, nil)
	return errors.Join(errs...)
}

func (s *Session) GetStats() *Statistics {
	return ptr(s.CommonsStatistics.Convert())
}

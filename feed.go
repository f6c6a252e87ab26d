package av1bridge

import (
	"context"
	"errors"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/internal"
	"github.com/xaionaro-go/av1bridge/logger"
)

// feed submits queued packets to the decoder until the queue is empty or
// the decoder pushes back. A packet the decoder refuses is dropped and the
// loop goes on with the next one. Calling it with nothing queued is a no-op
// (except for a pending end-of-stream marker, which is retried until the
// decoder takes it).
func (s *Session) feed(ctx context.Context) {
	logger.Tracef(ctx, "feed: %d queued", s.queue.Len())
	defer func() { logger.Tracef(ctx, "/feed: %d queued", s.queue.Len()) }()
	internal.Assertf(ctx, s.queue.Len() <= s.queue.capacity, "the input queue holds %d packets, capacity is %d", s.queue.Len(), s.queue.capacity)

	for {
		data := s.queue.Front()
		if data == nil {
			break
		}

		size := uint64(data.Len())
		pts := data.PTS
		err := s.decoder.SendData(ctx, data)
		switch {
		case err == nil:
			// the decoder owns the data now, it must not be unref-ed here
			s.queue.PopFront()
			s.PacketsAccepted.Inc()
			s.BytesAccepted.Add(size)
			s.LastSubmittedPTS.Store(pts)
			continue
		case errors.Is(err, decoder.ErrAgain):
			s.PacketsBackpressured.Inc()
			logger.Tracef(ctx, "the decoder is full, keeping %d packets queued", s.queue.Len())
			return
		default:
			logger.Errorf(ctx, "the decoder refused the packet (pts:%d, size:%d), dropping it: %v", pts, size, err)
			s.queue.PopFront()
			data.Unref()
			s.PacketsRejected.Inc()
		}
	}

	if s.endOfStream && !s.endOfStreamSent {
		logger.Debugf(ctx, "all the packets are submitted, sending the end-of-stream marker")
		err := s.decoder.SignalEndOfStream(ctx)
		switch {
		case err == nil:
			s.endOfStreamSent = true
		case errors.Is(err, decoder.ErrAgain):
			logger.Tracef(ctx, "the decoder is not ready for the end-of-stream marker yet")
		default:
			logger.Errorf(ctx, "unable to signal the end of stream: %v", err)
		}
	}
}

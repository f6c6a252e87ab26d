package av1bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
)

type DequeueStatus int

const (
	DequeueStatusUndefined = DequeueStatus(iota)

	// DequeueStatusPending means no picture is ready yet; push more data
	// or poll again later.
	DequeueStatusPending

	DequeueStatusOK

	// DequeueStatusFatal means the decoder failed; see DequeueResult.Err.
	DequeueStatusFatal
)

func (s DequeueStatus) String() string {
	switch s {
	case DequeueStatusUndefined:
		return "undefined"
	case DequeueStatusPending:
		return "pending"
	case DequeueStatusOK:
		return "ok"
	case DequeueStatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("DequeueStatus(%d)", int(s))
	}
}

type DequeueResult struct {
	Status DequeueStatus

	// Picture is set only with DequeueStatusOK; the caller must Release it.
	Picture *decoder.Picture

	// Err and Code are set only with DequeueStatusFatal. Code is the raw
	// decoder error code, or -1 if the decoder did not provide one.
	Err  error
	Code int
}

func (r DequeueResult) Width() int {
	if r.Picture == nil {
		if r.Status == DequeueStatusFatal {
			return -1
		}
		return 0
	}
	return r.Picture.Width
}

func (r DequeueResult) Height() int {
	if r.Picture == nil {
		return 0
	}
	return r.Picture.Height
}

func (r DequeueResult) PTS() int64 {
	if r.Picture == nil {
		return 0
	}
	return r.Picture.PTS
}

func (r DequeueResult) String() string {
	switch r.Status {
	case DequeueStatusOK:
		return fmt.Sprintf("ok: %s", r.Picture)
	case DequeueStatusFatal:
		return fmt.Sprintf("fatal (%d): %v", r.Code, r.Err)
	default:
		return r.Status.String()
	}
}

// Dequeue feeds the decoder and then asks it for at most one picture. It
// never blocks.
func (s *Session) Dequeue(ctx context.Context) (_ret DequeueResult) {
	logger.Tracef(ctx, "Dequeue")
	defer func() { logger.Tracef(ctx, "/Dequeue: %s", _ret) }()
	if s.IsClosed() {
		return DequeueResult{
			Status: DequeueStatusFatal,
			Err:    ErrClosed,
			Code:   -1,
		}
	}

	s.feed(ctx)

	pic, err := s.decoder.GetPicture(ctx)
	switch {
	case err == nil && pic != nil:
		s.PicturesExtracted.Inc()
		return DequeueResult{
			Status:  DequeueStatusOK,
			Picture: pic,
		}
	case err == nil, errors.Is(err, decoder.ErrAgain):
		s.PicturesStarved.Inc()
		return DequeueResult{Status: DequeueStatusPending}
	default:
		code := decoder.CodeOf(err)
		logger.Errorf(ctx, "unable to get a picture from the decoder (code %d): %v", code, err)
		return DequeueResult{
			Status: DequeueStatusFatal,
			Err:    fmt.Errorf("unable to get a picture: %w", err),
			Code:   code,
		}
	}
}

// ReleasePicture returns the picture to the decoder; nil is a no-op.
func (s *Session) ReleasePicture(ctx context.Context, pic *decoder.Picture) {
	logger.Tracef(ctx, "ReleasePicture(%s)", pic)
	pic.Release()
}

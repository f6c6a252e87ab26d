// Package bridge exposes av1bridge sessions to callers that can only pass
// integers around: sessions and pictures are referred to by handles, and
// failures are reported as negative errno values.
package bridge

import (
	"context"

	"github.com/xaionaro-go/av1bridge"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/xsync"
)

// Handle refers to a session; 0 is never a valid one.
type Handle uint64

// PictureHandle refers to a dequeued picture; 0 means "no picture".
type PictureHandle uint64

type pictureEntry struct {
	owner   Handle
	picture *decoder.Picture
}

// Bridge is the handle table. Handles are never reused.
type Bridge struct {
	Opener decoder.Opener

	// VersionFunc returns the decoder library version for GetVersion.
	VersionFunc func() string

	// Config is the base configuration; Create overrides FrameThreads.
	Config av1bridge.Config

	locker     xsync.Mutex
	lastHandle uint64
	sessions   map[Handle]*av1bridge.Session
	pictures   map[PictureHandle]pictureEntry
}

func New(open decoder.Opener, versionFunc func() string) *Bridge {
	return &Bridge{
		Opener:      open,
		VersionFunc: versionFunc,
		sessions:    map[Handle]*av1bridge.Session{},
		pictures:    map[PictureHandle]pictureEntry{},
	}
}

func (b *Bridge) nextIDLocked() uint64 {
	b.lastHandle++
	return b.lastHandle
}

func (b *Bridge) session(ctx context.Context, h Handle) *av1bridge.Session {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() *av1bridge.Session {
		return b.sessions[h]
	})
}

// Create opens a session; returns 0 on failure.
func (b *Bridge) Create(ctx context.Context, threadCount int) (_ret Handle) {
	logger.Debugf(ctx, "Create(%d)", threadCount)
	defer func() { logger.Debugf(ctx, "/Create(%d): %d", threadCount, _ret) }()

	cfg := b.Config
	cfg.FrameThreads = threadCount
	s, err := av1bridge.New(ctx, b.Opener, cfg)
	if err != nil {
		logger.Errorf(ctx, "unable to create a session: %v", err)
		return 0
	}

	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() Handle {
		h := Handle(b.nextIDLocked())
		b.sessions[h] = s
		return h
	})
}

func (b *Bridge) Push(
	ctx context.Context,
	h Handle,
	buf []byte,
	offset, length int,
	pts int64,
) Status {
	s := b.session(ctx, h)
	if s == nil {
		return StatusInvalidArgument
	}
	return StatusFromError(s.Push(ctx, buf, offset, length, pts))
}

func (b *Bridge) HasCapacity(ctx context.Context, h Handle) bool {
	s := b.session(ctx, h)
	if s == nil {
		return false
	}
	return s.HasCapacity()
}

// DequeueOutput mirrors the out-parameters of a dequeue call: on a fatal
// decoder failure Width is -1 and ErrorCode is the raw decoder code.
type DequeueOutput struct {
	Picture   PictureHandle
	Width     int
	Height    int
	PTS       int64
	Fatal     bool
	ErrorCode int
}

func (b *Bridge) Dequeue(ctx context.Context, h Handle) DequeueOutput {
	s := b.session(ctx, h)
	if s == nil {
		return DequeueOutput{Width: -1, Fatal: true, ErrorCode: int(StatusInvalidArgument)}
	}

	res := s.Dequeue(ctx)
	switch res.Status {
	case av1bridge.DequeueStatusOK:
		ph := xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() PictureHandle {
			ph := PictureHandle(b.nextIDLocked())
			b.pictures[ph] = pictureEntry{owner: h, picture: res.Picture}
			return ph
		})
		return DequeueOutput{
			Picture: ph,
			Width:   res.Width(),
			Height:  res.Height(),
			PTS:     res.PTS(),
		}
	case av1bridge.DequeueStatusFatal:
		return DequeueOutput{
			Width:     -1,
			Fatal:     true,
			ErrorCode: res.Code,
		}
	default:
		return DequeueOutput{}
	}
}

func (b *Bridge) picture(ctx context.Context, h Handle, ph PictureHandle) *decoder.Picture {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() *decoder.Picture {
		entry, ok := b.pictures[ph]
		if !ok || entry.owner != h {
			return nil
		}
		return entry.picture
	})
}

// SetSurface binds a window acquired from surface; nil unbinds.
func (b *Bridge) SetSurface(ctx context.Context, h Handle, surface window.Surface) Status {
	s := b.session(ctx, h)
	if s == nil {
		return StatusInvalidArgument
	}
	return StatusFromError(s.SetSurface(ctx, surface))
}

func (b *Bridge) Render(ctx context.Context, h Handle, ph PictureHandle) Status {
	s := b.session(ctx, h)
	if s == nil {
		return StatusInvalidArgument
	}
	pic := b.picture(ctx, h, ph)
	if pic == nil {
		return StatusInvalidArgument
	}
	err := s.Render(ctx, pic)
	if err != nil {
		logger.Debugf(ctx, "unable to render picture %d: %v", ph, err)
	}
	return StatusFromError(err)
}

// ReleasePicture is a no-op for 0 and for already released pictures.
func (b *Bridge) ReleasePicture(ctx context.Context, h Handle, ph PictureHandle) {
	if ph == 0 {
		return
	}
	pic := xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() *decoder.Picture {
		entry, ok := b.pictures[ph]
		if !ok || entry.owner != h {
			return nil
		}
		delete(b.pictures, ph)
		return entry.picture
	})
	pic.Release()
}

func (b *Bridge) Flush(ctx context.Context, h Handle) {
	if s := b.session(ctx, h); s != nil {
		s.Flush(ctx)
	}
}

func (b *Bridge) SignalEndOfStream(ctx context.Context, h Handle) Status {
	s := b.session(ctx, h)
	if s == nil {
		return StatusInvalidArgument
	}
	return StatusFromError(s.SignalEndOfStream(ctx))
}

// Close closes the session and releases the pictures it still has out.
func (b *Bridge) Close(ctx context.Context, h Handle) Status {
	ctx = logger.CtxWithField(ctx, "handle", h)
	var pictures []*decoder.Picture
	s := xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() *av1bridge.Session {
		s := b.sessions[h]
		delete(b.sessions, h)
		for ph, entry := range b.pictures {
			if entry.owner == h {
				pictures = append(pictures, entry.picture)
				delete(b.pictures, ph)
			}
		}
		return s
	})
	if s == nil {
		return StatusInvalidArgument
	}
	if len(pictures) > 0 {
		logger.Warnf(ctx, "%d pictures were not released before close", len(pictures))
	}
	for _, pic := range pictures {
		pic.Release()
	}
	if err := s.Close(ctx); err != nil {
		logger.Errorf(ctx, "unable to close the session: %v", err)
		return StatusIO
	}
	return StatusOK
}

func (b *Bridge) GetVersion() string {
	if b.VersionFunc == nil {
		return ""
	}
	return b.VersionFunc()
}

// GetStats returns nil for unknown handles.
func (b *Bridge) GetStats(ctx context.Context, h Handle) *av1bridge.Statistics {
	s := b.session(ctx, h)
	if s == nil {
		return nil
	}
	return s.GetStats()
}

// Sessions is the amount of open sessions.
func (b *Bridge) Sessions(ctx context.Context) int {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &b.locker, func() int {
		return len(b.sessions)
	})
}

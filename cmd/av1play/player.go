package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/xaionaro-go/av1bridge"
	"github.com/xaionaro-go/av1bridge/container"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/playback"
)

type playerStats struct {
	Presented     uint64
	DecodeOnly    uint64
	DroppedLate   uint64
	KeyframeSkips uint64
	SkippedInput  uint64
}

type player struct {
	Config      Config
	Session     *av1bridge.Session
	Source      container.Source
	Snapshotter *snapshotter
	HasWindow   bool

	policy         playback.Policy
	clock          *playback.Clock
	pending        *container.Packet
	sourceEOF      bool
	eosSignaled    bool
	skipToKeyframe bool
	reanchor       bool
	unsupported    bool
	stats          playerStats
}

func newPlayer(
	cfg Config,
	session *av1bridge.Session,
	source container.Source,
	snapshotter *snapshotter,
	hasWindow bool,
) *player {
	clock := playback.NewClock()
	clock.Speed = cfg.Speed
	return &player{
		Config:      cfg,
		Session:     session,
		Source:      source,
		Snapshotter: snapshotter,
		HasWindow:   hasWindow,
		policy:      playback.DefaultPolicy,
		clock:       clock,
	}
}

// Run pushes the whole source through the session and handles the
// decoded pictures until the decoder is drained.
func (p *player) Run(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Run")
	defer func() { logger.Debugf(ctx, "/Run: %v", _err) }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pushed, err := p.pushAvailable(ctx)
		if err != nil {
			return err
		}

		if p.sourceEOF && p.pending == nil && !p.eosSignaled {
			if err := p.Session.SignalEndOfStream(ctx); err != nil {
				return fmt.Errorf("unable to signal the end of stream: %w", err)
			}
			p.eosSignaled = true
		}

		res := p.Session.Dequeue(ctx)
		switch res.Status {
		case av1bridge.DequeueStatusOK:
			if err := p.handlePicture(ctx, res.Picture); err != nil {
				return err
			}
		case av1bridge.DequeueStatusFatal:
			return fmt.Errorf("the decoder failed (code %d): %w", res.Code, res.Err)
		case av1bridge.DequeueStatusPending:
			if p.eosSignaled && p.Session.QueueLength() == 0 {
				return nil
			}
			if pushed == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func (p *player) nextPacket() (*container.Packet, error) {
	if p.pending != nil {
		pkt := p.pending
		p.pending = nil
		return pkt, nil
	}
	return p.Source.NextPacket()
}

func (p *player) pushAvailable(ctx context.Context) (int, error) {
	pushed := 0
	for !p.sourceEOF && p.Session.HasCapacity() {
		pkt, err := p.nextPacket()
		if errors.Is(err, io.EOF) {
			p.sourceEOF = true
			break
		}
		if err != nil {
			return pushed, fmt.Errorf("unable to read a packet: %w", err)
		}
		if p.skipToKeyframe {
			if !pkt.Keyframe {
				p.stats.SkippedInput++
				continue
			}
			p.skipToKeyframe = false
		}

		err = p.Session.Push(ctx, pkt.Data, 0, len(pkt.Data), pkt.PTS)
		switch {
		case err == nil:
			pushed++
		case errors.Is(err, av1bridge.ErrWouldBlock):
			p.pending = pkt
			return pushed, nil
		case errors.Is(err, av1bridge.ErrInvalidArgument) && len(pkt.Data) == 0:
			logger.Warnf(ctx, "skipping an empty packet (pts:%d)", pkt.PTS)
		default:
			return pushed, fmt.Errorf("unable to push a packet (pts:%d): %w", pkt.PTS, err)
		}
	}
	return pushed, nil
}

func (p *player) handlePicture(ctx context.Context, pic *decoder.Picture) error {
	defer p.Session.ReleasePicture(ctx, pic)

	if pic.PTS < p.Config.StartPTS {
		p.stats.DecodeOnly++
		return nil
	}

	if p.Config.Realtime {
		if p.reanchor {
			p.clock.Reset(pic.PTS, p.clock.Now())
			p.reanchor = false
		}
		early := p.clock.Early(pic.PTS)
		action := p.policy.Decide(early)
		logger.Tracef(ctx, "%s is %v early: %s", pic, early, action)
		switch action {
		case playback.ActionWait:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(early):
			}
		case playback.ActionDrop:
			p.stats.DroppedLate++
			return nil
		case playback.ActionDropToKeyframe:
			logger.Warnf(ctx, "%v behind, skipping to the next keyframe", -early)
			p.stats.KeyframeSkips++
			p.Session.Flush(ctx)
			p.pending = nil
			p.skipToKeyframe = true
			p.reanchor = true
			return nil
		}
	}

	p.Snapshotter.Take(ctx, pic)
	if !p.HasWindow {
		p.stats.Presented++
		return nil
	}

	err := p.Session.Render(ctx, pic)
	switch {
	case err == nil:
		p.stats.Presented++
	case errors.Is(err, av1bridge.ErrUnsupported):
		if !p.unsupported {
			logger.Warnf(ctx, "unable to present %s: %v", pic, err)
			p.unsupported = true
		}
	default:
		return fmt.Errorf("unable to render %s: %w", pic, err)
	}
	return nil
}

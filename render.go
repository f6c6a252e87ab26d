package av1bridge

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/presenter"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/xsync"
)

// Render copies pic into the bound window and posts it. The window
// geometry is (re)configured only when the picture size changes.
func (s *Session) Render(ctx context.Context, pic *decoder.Picture) (_err error) {
	logger.Tracef(ctx, "Render(%s)", pic)
	defer func() { logger.Tracef(ctx, "/Render(%s): %v", pic, _err) }()
	if pic == nil {
		return fmt.Errorf("%w: nil picture", ErrInvalidArgument)
	}
	if err := presenter.CheckSupported(pic); err != nil {
		return err
	}

	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.windowLocker, func() error {
		return s.renderLocked(ctx, pic)
	})
}

func (s *Session) renderLocked(ctx context.Context, pic *decoder.Picture) error {
	if s.window == nil {
		return ErrNoDevice
	}

	geometry := window.Geometry{
		Width:  pic.Width,
		Height: pic.Height,
		Format: presenter.TargetFormat,
	}
	if geometry != s.windowGeometry {
		logger.Debugf(ctx, "reconfiguring the window: %#+v -> %#+v", s.windowGeometry, geometry)
		if err := s.window.SetBuffersGeometry(ctx, geometry.Width, geometry.Height, geometry.Format); err != nil {
			s.windowGeometry = window.Geometry{}
			return fmt.Errorf("unable to set the window geometry to %dx%d %s: %w", geometry.Width, geometry.Height, geometry.Format, err)
		}
		s.windowGeometry = geometry
	}

	buf, err := s.window.Lock(ctx)
	if err != nil {
		return fmt.Errorf("unable to lock the window buffer: %w", err)
	}

	_, copyErr := presenter.CopyToBuffer(buf, pic)
	if err := s.window.UnlockAndPost(ctx); err != nil {
		if copyErr != nil {
			return fmt.Errorf("unable to copy the picture: %w (and unable to post the buffer: %v)", copyErr, err)
		}
		return fmt.Errorf("unable to post the window buffer: %w", err)
	}
	if copyErr != nil {
		return fmt.Errorf("unable to copy the picture: %w", copyErr)
	}

	s.FramesPresented.Inc()
	return nil
}

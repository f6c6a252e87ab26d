package av1bridge

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/xsync"
)

// SetWindow binds w as the presentation target, releasing the previously
// bound window. A nil w unbinds. The session takes over the reference: w
// is released on the next SetWindow or on Close.
func (s *Session) SetWindow(ctx context.Context, w window.Window) {
	logger.Debugf(ctx, "SetWindow(%T)", w)
	defer func() { logger.Debugf(ctx, "/SetWindow(%T)", w) }()
	s.windowLocker.Do(xsync.WithNoLogging(ctx, true), func() {
		s.setWindowLocked(ctx, w)
	})
}

func (s *Session) setWindowLocked(ctx context.Context, w window.Window) {
	if s.window != nil {
		s.window.Release(ctx)
	}
	s.window = w
	s.windowGeometry = window.Geometry{}
}

// SetSurface acquires a window from surface and binds it; a nil surface
// unbinds. If the acquisition fails, the previously bound window is
// released anyway, so the session is left without a window.
func (s *Session) SetSurface(ctx context.Context, surface window.Surface) (_err error) {
	logger.Debugf(ctx, "SetSurface")
	defer func() { logger.Debugf(ctx, "/SetSurface: %v", _err) }()
	if surface == nil {
		s.SetWindow(ctx, nil)
		return nil
	}

	w, err := surface.AcquireWindow(ctx)
	if err != nil {
		s.SetWindow(ctx, nil)
		return fmt.Errorf("%w: unable to acquire a window: %w", ErrNoDevice, err)
	}
	s.SetWindow(ctx, w)
	return nil
}

func (s *Session) HasWindow(ctx context.Context) bool {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.windowLocker, func() bool {
		return s.window != nil
	})
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/av1bridge/presenter"
)

type snapshotter struct {
	SnapshotConfig
	count int
}

func newSnapshotter(cfg SnapshotConfig) (*snapshotter, error) {
	if cfg.Dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create '%s': %w", cfg.Dir, err)
	}
	return &snapshotter{SnapshotConfig: cfg}, nil
}

// Take saves every Every-th picture it is called with; safe on nil.
func (s *snapshotter) Take(ctx context.Context, pic *decoder.Picture) {
	if s == nil {
		return
	}
	s.count++
	if s.Every > 1 && (s.count-1)%s.Every != 0 {
		return
	}
	path, err := s.save(pic)
	if err != nil {
		logger.Errorf(ctx, "unable to save a snapshot of %s: %v", pic, err)
		return
	}
	logger.Debugf(ctx, "saved %s to '%s'", pic, path)
}

func (s *snapshotter) save(pic *decoder.Picture) (string, error) {
	img, err := presenter.ToRGBA(pic)
	if err != nil {
		return "", err
	}
	if s.Width > 0 && s.Width != pic.Width {
		height := max(1, pic.Height*s.Width/pic.Width)
		img = transform.Resize(img, s.Width, height, transform.Linear)
	}

	path := filepath.Join(s.Dir, fmt.Sprintf("pts%012d.png", pic.PTS))
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return path, nil
}

//go:build unix
// +build unix

package main

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/av1bridge/window/mmapfile"
)

func newMmapSurface(
	ctx context.Context,
	output string,
) (window.Surface, func() error, error) {
	if output == "" {
		return nil, nil, fmt.Errorf("the output path is not set")
	}
	w, err := mmapfile.Create(ctx, output)
	if err != nil {
		return nil, nil, err
	}
	return w, func() error { return w.Close(ctx) }, nil
}

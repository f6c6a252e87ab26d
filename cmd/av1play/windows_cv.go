//go:build with_cv
// +build with_cv

package main

import (
	"context"

	"github.com/xaionaro-go/av1bridge/window"
	"github.com/xaionaro-go/av1bridge/window/cvwindow"
)

func newCVSurface(
	ctx context.Context,
	title string,
) (window.Surface, func() error, error) {
	if title == "" {
		title = "av1play"
	}
	w := cvwindow.New(title)
	return w, w.Close, nil
}

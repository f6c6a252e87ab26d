//go:build !with_cv
// +build !with_cv

package main

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/window"
)

func newCVSurface(
	ctx context.Context,
	title string,
) (window.Surface, func() error, error) {
	return nil, nil, fmt.Errorf("built without OpenCV support (use the with_cv build tag)")
}

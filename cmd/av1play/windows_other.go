//go:build !unix
// +build !unix

package main

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/av1bridge/window"
)

func newMmapSurface(
	ctx context.Context,
	output string,
) (window.Surface, func() error, error) {
	return nil, nil, fmt.Errorf("the mmap window is supported only on unix")
}

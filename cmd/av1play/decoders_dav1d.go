//go:build dav1d
// +build dav1d

package main

import (
	"github.com/xaionaro-go/av1bridge/decoder/dav1d"
)

func init() {
	decoderBackends["dav1d"] = decoderBackend{
		Opener: dav1d.Opener(),
	}
}

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/xaionaro-go/av1bridge/decoder"
	"github.com/xaionaro-go/av1bridge/decoder/libav"
	"github.com/xaionaro-go/av1bridge/logger"
)

type decoderBackend struct {
	Opener decoder.Opener
	Setup  func(ctx context.Context, level logger.Level)
}

var decoderBackends = map[string]decoderBackend{
	"libav": {
		Opener: libav.Opener(),
		Setup:  libav.SetupLogging,
	},
}

func getDecoderBackend(name string) (decoderBackend, error) {
	backend, ok := decoderBackends[name]
	if !ok {
		var names []string
		for name := range decoderBackends {
			names = append(names, name)
		}
		sort.Strings(names)
		return decoderBackend{}, fmt.Errorf("unknown decoder '%s', available: %v", name, names)
	}
	return backend, nil
}

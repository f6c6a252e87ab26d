package av1bridge

import (
	"github.com/xaionaro-go/av1bridge/decoder"
)

// DefaultInputQueueCapacity is the amount of packets that may wait for the
// decoder before Push answers ErrWouldBlock.
const DefaultInputQueueCapacity = 8

type Config struct {
	// FrameThreads is the decoder thread count; values <= 0 mean 1.
	FrameThreads int `yaml:"frame_threads"`

	// TileThreads is a hint for backends that use it; values <= 0 mean 1.
	TileThreads int `yaml:"tile_threads"`

	// MaxFrameDelay is passed to the decoder as is; 0 is the decoder
	// default.
	MaxFrameDelay int `yaml:"max_frame_delay"`

	InputQueueCapacity int `yaml:"input_queue_capacity"`
}

func (cfg Config) WithDefaults() Config {
	if cfg.FrameThreads <= 0 {
		cfg.FrameThreads = 1
	}
	if cfg.TileThreads <= 0 {
		cfg.TileThreads = 1
	}
	if cfg.MaxFrameDelay < 0 {
		cfg.MaxFrameDelay = 0
	}
	if cfg.InputQueueCapacity <= 0 {
		cfg.InputQueueCapacity = DefaultInputQueueCapacity
	}
	return cfg
}

func (cfg Config) DecoderSettings() decoder.Settings {
	return decoder.Settings{
		FrameThreads:  cfg.FrameThreads,
		TileThreads:   cfg.TileThreads,
		MaxFrameDelay: cfg.MaxFrameDelay,
	}
}

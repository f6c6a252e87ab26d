package main

import (
	"fmt"
	"os"
	"time"

	"github.com/xaionaro-go/av1bridge"
	"gopkg.in/yaml.v3"
)

type SnapshotConfig struct {
	Dir   string `yaml:"dir"`
	Every int    `yaml:"every"`
	Width int    `yaml:"width"`
}

type Config struct {
	Session       av1bridge.Config `yaml:"session"`
	Decoder       string           `yaml:"decoder"`
	Window        string           `yaml:"window"`
	Output        string           `yaml:"output"`
	Realtime      bool             `yaml:"realtime"`
	Speed         float64          `yaml:"speed"`
	StartPTS      int64            `yaml:"start_pts"`
	StatsInterval time.Duration    `yaml:"stats_interval"`
	Snapshot      SnapshotConfig   `yaml:"snapshot"`
}

func defaultConfig() Config {
	return Config{
		Session: av1bridge.Config{
			FrameThreads:       1,
			InputQueueCapacity: av1bridge.DefaultInputQueueCapacity,
		},
		Decoder:       "libav",
		Window:        "memory",
		Speed:         1,
		StatsInterval: time.Second,
		Snapshot: SnapshotConfig{
			Every: 30,
		},
	}
}

// loadConfig reads path on top of defaultConfig.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to open the config '%s': %w", path, err)
	}
	defer f.Close()

	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse the config '%s': %w", path, err)
	}
	return cfg, nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/pkg/runtime"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/av1bridge"
	"github.com/xaionaro-go/av1bridge/container"
	"github.com/xaionaro-go/av1bridge/logger"
	"github.com/xaionaro-go/observability"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [options] <file.ivf|file.mp4>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	cfg := defaultConfig()
	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	configPath := pflag.String("config", "", "path to a YAML config; flags set explicitly override it")
	frameThreads := pflag.Int("threads", cfg.Session.FrameThreads, "decoder thread count")
	maxFrameDelay := pflag.Int("max-frame-delay", cfg.Session.MaxFrameDelay, "decoder max frame delay, 0 means the decoder default")
	queueCapacity := pflag.Int("queue", cfg.Session.InputQueueCapacity, "input queue capacity in packets")
	decoderName := pflag.String("decoder", cfg.Decoder, "decoder backend")
	windowKind := pflag.String("window", cfg.Window, "where to present the pictures: none, memory, yuvfile, mmap, cv")
	output := pflag.String("output", cfg.Output, "output path for the yuvfile/mmap windows, or the title of the cv window")
	realtime := pflag.Bool("realtime", cfg.Realtime, "present the pictures at their PTS, dropping late ones")
	speed := pflag.Float64("speed", cfg.Speed, "playback speed for --realtime")
	startPTS := pflag.Int64("start-pts", cfg.StartPTS, "decode but do not present pictures before this PTS (microseconds)")
	statsInterval := pflag.Duration("stats-interval", cfg.StatsInterval, "how often to print the statistics; 0 disables")
	snapshotDir := pflag.String("snapshot-dir", cfg.Snapshot.Dir, "save PNG snapshots into this directory")
	snapshotEvery := pflag.Int("snapshot-every", cfg.Snapshot.Every, "save every N-th picture")
	snapshotWidth := pflag.Int("snapshot-width", cfg.Snapshot.Width, "resize the snapshots to this width, 0 keeps the size")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}

	if *configPath != "" {
		var err error
		cfg, err = loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	flags := pflag.CommandLine
	for name, apply := range map[string]func(){
		"threads":         func() { cfg.Session.FrameThreads = *frameThreads },
		"max-frame-delay": func() { cfg.Session.MaxFrameDelay = *maxFrameDelay },
		"queue":           func() { cfg.Session.InputQueueCapacity = *queueCapacity },
		"decoder":         func() { cfg.Decoder = *decoderName },
		"window":          func() { cfg.Window = *windowKind },
		"output":          func() { cfg.Output = *output },
		"realtime":        func() { cfg.Realtime = *realtime },
		"speed":           func() { cfg.Speed = *speed },
		"start-pts":       func() { cfg.StartPTS = *startPTS },
		"stats-interval":  func() { cfg.StatsInterval = *statsInterval },
		"snapshot-dir":    func() { cfg.Snapshot.Dir = *snapshotDir },
		"snapshot-every":  func() { cfg.Snapshot.Every = *snapshotEvery },
		"snapshot-width":  func() { cfg.Snapshot.Width = *snapshotWidth },
	} {
		if *configPath == "" || flags.Changed(name) {
			apply()
		}
	}

	runtime.DefaultCallerPCFilter = observability.CallerPCFilter(runtime.DefaultCallerPCFilter)
	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.SetDefault(func() logger.Logger {
		return l
	})
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(context.Context) { logger.Errorf(ctx, "%v", http.ListenAndServe(*netPprofAddr, nil)) })
	}

	if err := run(ctx, cfg, loggerLevel, pflag.Arg(0)); err != nil {
		l.Fatal(err)
	}
}

func run(
	ctx context.Context,
	cfg Config,
	loggerLevel logger.Level,
	inputPath string,
) (_err error) {
	backend, err := getDecoderBackend(cfg.Decoder)
	if err != nil {
		return err
	}
	if backend.Setup != nil {
		backend.Setup(ctx, loggerLevel)
	}

	source, sourceCloser, err := container.Open(inputPath)
	if err != nil {
		return err
	}
	defer sourceCloser.Close()
	info := source.Info()
	logger.Infof(ctx, "opened '%s': %s %dx%d", inputPath, info.Format, info.Width, info.Height)

	session, err := av1bridge.New(ctx, backend.Opener, cfg.Session)
	if err != nil {
		return fmt.Errorf("unable to open the decoder '%s': %w", cfg.Decoder, err)
	}
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Errorf(ctx, "unable to close the session: %v", err)
		}
	}()
	logger.Infof(ctx, "decoder: %s", session.Name())

	surface, disposeSurface, err := newSurface(ctx, cfg.Window, cfg.Output)
	if err != nil {
		return fmt.Errorf("unable to initialize the window '%s': %w", cfg.Window, err)
	}
	defer func() {
		session.SetWindow(ctx, nil)
		if err := disposeSurface(); err != nil {
			logger.Errorf(ctx, "unable to dispose the window: %v", err)
		}
	}()
	if surface != nil {
		if err := session.SetSurface(ctx, surface); err != nil {
			return err
		}
	}

	snapshots, err := newSnapshotter(cfg.Snapshot)
	if err != nil {
		return err
	}

	if cfg.StatsInterval > 0 {
		statsCtx, cancelStats := context.WithCancel(ctx)
		defer cancelStats()
		observability.Go(statsCtx, func(ctx context.Context) {
			printStats(ctx, session, cfg.StatsInterval)
		})
	}

	startedAt := time.Now()
	p := newPlayer(cfg, session, source, snapshots, surface != nil)
	err = p.Run(ctx)

	stats := session.GetStats()
	logger.Infof(ctx,
		"done in %v: %d packets (%s) accepted, %d pictures decoded, %d presented, %d dropped late, %d decode-only",
		time.Since(startedAt).Round(time.Millisecond),
		stats.PacketsAccepted, humanize.Bytes(stats.BytesAccepted),
		stats.PicturesExtracted, p.stats.Presented, p.stats.DroppedLate, p.stats.DecodeOnly,
	)
	return err
}

func printStats(
	ctx context.Context,
	session *av1bridge.Session,
	interval time.Duration,
) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			statsJSON, err := json.Marshal(session.GetStats())
			if err != nil {
				logger.Errorf(ctx, "unable to serialize the statistics: %v", err)
				return
			}
			fmt.Fprintf(os.Stderr, "%s\n", statsJSON)
		}
	}
}

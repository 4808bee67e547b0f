package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

var (
	configPath      = flag.String("config", "", "path to a TOML config file")
	portFlag        = flag.String("port", "", `serial port to open at startup, or "auto"`)
	fileFlag        = flag.String("file", "", "WAV file to load at startup")
	sensitivityFlag = flag.Float64("sensitivity", -1, "torque sensitivity in [0, 25000]; overrides the config when set")
	zoomFlag        = flag.Float64("zoom", 0, "seconds of audio per knob rotation in [1, 3]; overrides the config when set")
	recordFlag      = flag.String("record", "", "also record the scrubbed audio to this WAV file")
	noAudio         = flag.Bool("no_audio", false, "do not open an audio output device")
)

func main() {
	flag.Parse()
	defer log.Flush()

	cfg, err := loadConfig()
	if err != nil {
		log.Exitf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting up and reading commands from stdin")
	if err := doMain(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Exitf("failed to run: %v", err)
	}
	log.Info("shut down")
}

func loadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = ParseFromFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *fileFlag != "" {
		cfg.Audio.File = *fileFlag
	}
	if *sensitivityFlag >= 0 {
		cfg.Scrub.Sensitivity = *sensitivityFlag
	}
	if *zoomFlag > 0 {
		cfg.Scrub.SecondsPerRotation = *zoomFlag
	}
	if *recordFlag != "" {
		cfg.Playback.Record = *recordFlag
	}
	return cfg, cfg.Validate()
}

func doMain(ctx context.Context, cfg *Config, input io.Reader, output io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink, closeSink, err := buildSink(cfg.Playback, !*noAudio)
	if err != nil {
		return err
	}
	defer closeSink()

	conn := NewConnection(SerialOpener(cfg.Serial.ReadTimeout.Duration), cfg.Serial.Baud)
	// Neutral torque goes out however we leave.
	defer conn.Shutdown()

	session := NewSession(cfg.Scrub.Deadband, cfg.Scrub.Sensitivity, cfg.Scrub.SecondsPerRotation)
	queue := NewPlaybackQueue()
	engine := NewEngine(session, queue, conn, EngineConfig{
		TaperFraction:  cfg.Scrub.TaperFraction,
		TorqueLimit:    cfg.Scrub.TorqueLimit,
		VelocityWindow: cfg.Scrub.VelocityWindow,
		IdleInterval:   cfg.Serial.IdleInterval.Duration,
	})
	drainer := NewDrainer(queue, sink, cfg.Playback.DrainInterval.Duration)
	console := NewConsole(session, conn, engine, drainer, output)

	if cfg.Audio.File != "" {
		if err := console.load([]string{cfg.Audio.File}); err != nil {
			return err
		}
	}
	if cfg.Serial.Port != "" {
		// The knob may be plugged in later with the open command.
		if err := console.open([]string{cfg.Serial.Port}); err != nil {
			log.Warningf("starting without a serial connection: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx, conn) })
	g.Go(func() error { return drainer.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		// Unblocks a pending serial read.
		conn.Shutdown()
		return nil
	})

	// A blocked read on input cannot be interrupted, so the console stays out
	// of the group. Quitting ends the session; end of input does not.
	go func() {
		quit, err := console.Run(gctx, input)
		if err != nil {
			log.Errorf("console: %v", err)
		}
		if quit {
			cancel()
			return
		}
		log.Info("no more commands on stdin; running until interrupted")
	}()

	return g.Wait()
}

func buildSink(cfg PlaybackConfig, withDevice bool) (Sink, func(), error) {
	var (
		sinks   MultiSink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warningf("failed to close audio output: %v", err)
			}
		}
	}
	if withDevice {
		pa, err := NewPortAudioSink(cfg.FramesPerBuffer, cfg.QueueDepth)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pa)
		closers = append(closers, pa.Close)
	}
	if cfg.Record != "" {
		rec, err := NewWAVRecorder(cfg.Record)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, rec)
		closers = append(closers, rec.Close)
	}
	if len(sinks) == 0 {
		return nil, nil, fmt.Errorf("no audio output: -no_audio needs -record")
	}
	return sinks, closeAll, nil
}

// blurry: vision service that flags blurry camera frames
// Scores frames by the variance of the Laplacian and serves the result
// over HTTP, with an optional background monitor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/blurry-classifier/internal/config"
	"github.com/teslashibe/blurry-classifier/internal/log"
	"github.com/teslashibe/blurry-classifier/internal/metrics"
	"github.com/teslashibe/blurry-classifier/pkg/archive"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"github.com/teslashibe/blurry-classifier/pkg/hub"
	"github.com/teslashibe/blurry-classifier/pkg/monitor"
	"github.com/teslashibe/blurry-classifier/pkg/video"
	"github.com/teslashibe/blurry-classifier/pkg/web"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Path to YAML config (default $BLURRY_CONFIG or ./blurry.yaml)")
	addr       = flag.String("addr", "", "Listen address, overrides the config")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// webrtcConnectTimeout bounds the wait for the robot's video track.
const webrtcConnectTimeout = 15 * time.Second

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "blurry: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *debug {
		cfg.Log.Level = "debug"
	}

	logger := log.Init(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync()

	variant, err := cfg.Variant()
	if err != nil {
		return err
	}
	blurCfg, err := cfg.BlurConfig()
	if err != nil {
		return err
	}

	logger.Info("starting blurry",
		zap.String("version", version),
		zap.String("service", cfg.Service.Name),
		zap.String("model", variant.Model))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cameras, closers, err := buildCameras(ctx, cfg.Cameras, logger)
	defer func() {
		for _, c := range closers {
			if cerr := c(); cerr != nil {
				logger.Warn("camera close failed", zap.Error(cerr))
			}
		}
	}()
	if err != nil {
		return err
	}

	recorder := metrics.New()
	svc, err := blur.NewFromConfig(cfg.Service.Name, variant, blurCfg, cameras,
		blur.WithLogger(logger),
		blur.WithObserver(recorder),
	)
	if err != nil {
		return err
	}

	events := hub.New("events", logger)
	go events.Run(ctx)

	var latest web.LatestSource
	if cfg.Monitor.Enabled {
		sink, err := buildSink(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		opts := []monitor.Option{
			monitor.WithLogger(logger),
			monitor.WithPublisher(events),
			monitor.WithArchiveHook(recorder.ObserveArchived),
		}
		if sink != nil {
			opts = append(opts, monitor.WithSink(sink))
		}
		m := monitor.New(svc, cfg.Monitor.Interval, opts...)
		go m.Run(ctx)
		latest = m
	}

	server := web.NewServer(svc, cameras, web.Options{
		AuthSecret:   cfg.Server.AuthSecret,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Metrics:      recorder,
		Events:       events,
		Monitor:      latest,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}

	select {
	case <-events.Done():
	case <-shutdownCtx.Done():
		logger.Warn("event hub did not stop in time")
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.LoadFromEnv()
}

// buildCameras registers every configured source. WebRTC sources are
// connected here since they need a live session before the first frame.
func buildCameras(ctx context.Context, sources []camera.SourceConfig, logger *zap.Logger) (*camera.Registry, []func() error, error) {
	reg := camera.NewRegistry()
	var closers []func() error

	for _, src := range sources {
		var cam camera.Camera

		switch src.Type {
		case camera.TypeWebRTC:
			client := video.NewClient(src.RobotIP, videoOptions(src, logger)...)
			closers = append(closers, client.Close)

			timeout := src.Timeout
			if timeout <= 0 {
				timeout = webrtcConnectTimeout
			}
			connectCtx, cancel := context.WithTimeout(ctx, timeout)
			err := client.Connect(connectCtx)
			cancel()
			if err != nil {
				return nil, closers, fmt.Errorf("camera %s: %w", src.Name, err)
			}
			cam = client

		default:
			var err error
			cam, err = camera.NewFromConfig(src)
			if err != nil {
				return nil, closers, fmt.Errorf("camera %s: %w", src.Name, err)
			}
		}

		if err := reg.Register(src.Name, cam); err != nil {
			return nil, closers, err
		}
		logger.Info("camera registered", zap.String("camera", src.Name), zap.String("type", src.Type))
	}
	return reg, closers, nil
}

func videoOptions(src camera.SourceConfig, logger *zap.Logger) []video.Option {
	opts := []video.Option{video.WithLogger(logger.With(zap.String("camera", src.Name)))}
	if src.SignallingURL != "" {
		opts = append(opts, video.WithSignallingURL(src.SignallingURL))
	}
	if src.Producer != "" {
		opts = append(opts, video.WithProducer(src.Producer))
	}
	if src.FFmpeg != "" {
		dec := video.NewDecoder(video.DefaultDecodeInterval)
		dec.Command = src.FFmpeg
		opts = append(opts, video.WithDecoder(dec))
	}
	return opts
}

func buildSink(ctx context.Context, cfg config.ArchiveConfig) (archive.Sink, error) {
	switch cfg.Type {
	case config.ArchiveNone:
		return nil, nil
	case config.ArchiveDir:
		return archive.NewDirSink(cfg.Dir)
	case config.ArchiveGCS:
		return archive.NewGCSSink(ctx, archive.GCSConfig{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.CredentialsFile,
		})
	}
	return nil, errors.New("unknown archive type " + cfg.Type)
}

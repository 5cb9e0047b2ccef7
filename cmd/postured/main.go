package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/api"
	"github.com/danghamo/posture/internal/app/pipeline"
	"github.com/danghamo/posture/internal/audio"
	"github.com/danghamo/posture/internal/cqrs"
	"github.com/danghamo/posture/internal/domain/posture"
	"github.com/danghamo/posture/internal/landmark"
	"github.com/danghamo/posture/pkg/config"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/redisx"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: search ./, ./configs, /etc/postured)")
	replayPath := flag.String("replay", "", "landmark recording to replay, overrides replay.path")
	flag.Parse()

	cfg, log, err := initialize(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Ensure logger is flushed on exit
	defer func() {
		_ = log.Sync()
	}()

	if *replayPath != "" {
		cfg.Replay.Path = *replayPath
	}

	log.Info("Starting posture daemon",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Server.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("Shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg, log); err != nil && err != context.Canceled {
		log.Error("Daemon error", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Daemon gracefully stopped")
}

func initialize(path string) (*config.Config, *logger.Logger, error) {
	if path == "" {
		return config.Initialize()
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.SetGlobalLogger(log)
	return cfg, log, nil
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	player := audio.NewPlayer(
		audio.NewDevice(cfg.Audio.Device, cfg.Audio.Command, log),
		audio.Config{SoundsDir: cfg.Audio.SoundsDir, Tracks: cfg.Audio.Tracks},
		log,
	)
	defer player.Stop()

	detector := posture.NewSittingDetector(cfg.Posture.Thresholds)

	p := pipeline.New(pipeline.Dependencies{
		Extractor:  landmark.NewExtractor(landmark.NewReplayEstimator(), cfg.Posture.MinConfidence, log),
		Classifier: detector,
		Audio:      player,
	}, log)
	defer p.Close()

	ingress := pipeline.NewIngress(p.Input(), cfg.Ingress.MaxFPS, log)

	transport := strings.ToLower(cfg.Feed.Transport)

	var redisClient *redisx.Client
	if cfg.Feed.Enabled && transport == api.TransportRedis {
		client, err := redisx.NewClient(cfg.Feed.RedisURL, log)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis client: %w", err)
		}
		defer client.Close()
		redisClient = client
	}

	var events *api.Events
	if cfg.Feed.Enabled {
		e, err := api.NewEvents(api.FeedConfig{
			Transport:   transport,
			TopicPrefix: cfg.Feed.TopicPrefix,
			BufferSize:  cfg.Feed.BufferSize,
		}, redisClient, log)
		if err != nil {
			return err
		}
		events = e
	}

	serverDone := make(chan error, 1)
	if cfg.Server.Enabled {
		server, err := api.NewServer(api.ServerConfig{
			Addr:             cfg.Server.GetServerAddr(),
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     0,
			IdleTimeout:      60 * time.Second,
			StatusRatePerSec: 10,
			StatusRateBurst:  20,
		}, api.Dependencies{
			Pipeline: p,
			Ingress:  ingress,
			Events:   events,
			Redis:    redisClient,
		}, log)
		if err != nil {
			return err
		}
		go func() {
			serverDone <- server.Start(ctx)
		}()
	} else {
		close(serverDone)
	}

	if events != nil {
		// gochannel only delivers to subscribers that already exist
		if err := events.Run(ctx); err != nil {
			return err
		}
		defer func() {
			if err := events.Close(); err != nil {
				log.Error("Event stack shutdown error", zap.Error(err))
			}
		}()

		feed := cqrs.NewAlertFeed(p.Alerts(), events.EventBus(), cfg.Feed.BufferSize, log)
		feed.Start(ctx)
		defer func() {
			feed.Stop()
			log.Info("Alert feed stopped",
				zap.Uint64("published", feed.Published()),
				zap.Uint64("dropped", feed.Dropped()))
		}()
	}

	if err := replay(ctx, cfg.Replay, ingress, log); err != nil {
		return err
	}
	// A one-shot replay without a server has nothing left to do
	if !cfg.Server.Enabled && cfg.Replay.Path != "" {
		stop()
	}

	<-ctx.Done()
	if err := <-serverDone; err != nil {
		log.Error("Server error", zap.Error(err))
	}

	stats := p.Stats()
	log.Info("Pipeline stopped",
		zap.Uint64("frames", stats.Frames),
		zap.Uint64("transitions", stats.Transitions),
		zap.Uint64("dropped_busy", ingress.Stats().DroppedBusy),
		zap.Uint64("dropped_rate", ingress.Stats().DroppedRate))
	return nil
}

// replay feeds the configured recording into the ingress. Without a
// recording it returns at once and the daemon idles serving its endpoints.
func replay(ctx context.Context, cfg config.ReplayConfig, target landmark.FrameTarget, log *logger.Logger) error {
	if cfg.Path == "" {
		log.Info("No recording configured, waiting for shutdown")
		return nil
	}

	file, err := os.Open(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	frames, err := landmark.ReadRecording(file)
	file.Close()
	if err != nil {
		return err
	}

	replayer, err := landmark.NewReplayer(frames, target, cfg.FPS, cfg.Loop, log)
	if err != nil {
		return err
	}

	log.Info("Replaying recording",
		zap.String("path", cfg.Path),
		zap.Int("frames", len(frames)),
		zap.Float64("fps", cfg.FPS),
		zap.Bool("loop", cfg.Loop))

	stats, err := replayer.Run(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	log.Info("Replay finished",
		zap.Uint64("offered", stats.Offered),
		zap.Uint64("admitted", stats.Admitted),
		zap.Uint64("passes", stats.Passes))
	return nil
}

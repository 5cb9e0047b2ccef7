package config

import (
	"fmt"

	"github.com/danghamo/posture/pkg/logger"
)

// Initialize loads configuration and sets up global logger
func Initialize() (*Config, *logger.Logger, error) {
	cfg, err := Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger.SetGlobalLogger(appLogger)

	fields := map[string]interface{}{
		"server_enabled": cfg.Server.Enabled,
		"audio_device":   cfg.Audio.Device,
		"feed_enabled":   cfg.Feed.Enabled,
		"feed_transport": cfg.Feed.Transport,
		"max_fps":        cfg.Ingress.MaxFPS,
		"log_level":      cfg.Log.Level,
		"log_encoding":   cfg.Log.Encoding,
	}
	appLogger.WithFields(fields).Info("Configuration and logger initialized successfully")

	return cfg, appLogger, nil
}

// NewLogger creates the application logger described by cfg.Log
func NewLogger(cfg *Config) (*logger.Logger, error) {
	appLogger, err := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Log.Level),
		Environment: cfg.Log.Environment,
		Encoding:    cfg.Log.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return appLogger, nil
}

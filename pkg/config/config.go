package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/danghamo/posture/internal/domain/posture"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Posture PostureConfig `mapstructure:"posture"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Ingress IngressConfig `mapstructure:"ingress"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Replay  ReplayConfig  `mapstructure:"replay"`
}

// ServerConfig holds the overlay/status HTTP server configuration
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
	Encoding    string `mapstructure:"encoding"`
}

// PostureConfig holds landmark filtering and classifier thresholds. The
// thresholds decode straight into the detector's type.
type PostureConfig struct {
	MinConfidence      float64 `mapstructure:"min_confidence"`
	posture.Thresholds `mapstructure:",squash"`
}

// AudioConfig holds alert sound configuration
type AudioConfig struct {
	Device    string            `mapstructure:"device"`  // log, exec or none
	Command   string            `mapstructure:"command"` // player binary used by the exec device
	SoundsDir string            `mapstructure:"sounds_dir"`
	Tracks    map[string]string `mapstructure:"tracks"` // track id -> file name
}

// IngressConfig holds frame admission settings
type IngressConfig struct {
	MaxFPS float64 `mapstructure:"max_fps"` // 0 disables the cap
}

// FeedConfig holds alert event feed configuration
type FeedConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Transport   string `mapstructure:"transport"` // gochannel or redis
	RedisURL    string `mapstructure:"redis_url"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	BufferSize  int    `mapstructure:"buffer_size"`
}

// ReplayConfig holds the landmark recording replay settings
type ReplayConfig struct {
	Path string  `mapstructure:"path"`
	FPS  float64 `mapstructure:"fps"`
	Loop bool    `mapstructure:"loop"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/postured")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, continue with env vars and defaults
	}

	return decode(v)
}

// LoadFile loads configuration from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
	v.SetDefault("log.encoding", "console")

	// Posture defaults
	v.SetDefault("posture.min_confidence", 0.1)
	v.SetDefault("posture.slouch_angle", 59.0)
	v.SetDefault("posture.head_drop_angle", 0.0)
	v.SetDefault("posture.chin_offset", 20.0)

	// Audio defaults, file names match the bundled sounds
	v.SetDefault("audio.device", "log")
	v.SetDefault("audio.command", "aplay")
	v.SetDefault("audio.sounds_dir", "./sounds")
	v.SetDefault("audio.tracks", map[string]interface{}{
		"HeadTooLow":  "HeadTooLow.wav",
		"LeanForward": "LeanForward.wav",
		"ChinOnHand":  "ChinOnHead.wav",
	})

	// Ingress defaults
	v.SetDefault("ingress.max_fps", 0.0)

	// Feed defaults
	v.SetDefault("feed.enabled", false)
	v.SetDefault("feed.transport", "gochannel")
	v.SetDefault("feed.redis_url", "redis://localhost:6379/0")
	v.SetDefault("feed.topic_prefix", "posture-events")
	v.SetDefault("feed.buffer_size", 64)

	// Replay defaults
	v.SetDefault("replay.path", "")
	v.SetDefault("replay.fps", 30.0)
	v.SetDefault("replay.loop", false)
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Enabled {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
		}
		if cfg.Server.Host == "" {
			return fmt.Errorf("server host cannot be empty")
		}
	}

	if cfg.Posture.MinConfidence < 0 || cfg.Posture.MinConfidence >= 1 {
		return fmt.Errorf("min confidence must be in [0,1)")
	}

	validDevices := []string{"log", "exec", "none"}
	if !contains(validDevices, cfg.Audio.Device) {
		return fmt.Errorf("invalid audio device: %s", cfg.Audio.Device)
	}
	if strings.EqualFold(cfg.Audio.Device, "exec") && cfg.Audio.Command == "" {
		return fmt.Errorf("audio command cannot be empty for the exec device")
	}

	if cfg.Ingress.MaxFPS < 0 {
		return fmt.Errorf("max fps cannot be negative")
	}

	if cfg.Feed.Enabled {
		validTransports := []string{"gochannel", "redis"}
		if !contains(validTransports, cfg.Feed.Transport) {
			return fmt.Errorf("invalid feed transport: %s", cfg.Feed.Transport)
		}
		if strings.EqualFold(cfg.Feed.Transport, "redis") && cfg.Feed.RedisURL == "" {
			return fmt.Errorf("redis url cannot be empty for the redis transport")
		}
		if cfg.Feed.BufferSize < 1 {
			return fmt.Errorf("feed buffer size must be at least 1")
		}
	}

	if cfg.Replay.FPS <= 0 {
		return fmt.Errorf("replay fps must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.Log.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}

	validEncodings := []string{"json", "console"}
	if !contains(validEncodings, cfg.Log.Encoding) {
		return fmt.Errorf("invalid log encoding: %s", cfg.Log.Encoding)
	}

	return nil
}

// GetServerAddr returns the server address in host:port format
func (s *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger to provide our application-specific logging interface
type Logger struct {
	*zap.Logger
}

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level       LogLevel  `mapstructure:"level"`
	Environment string    `mapstructure:"environment"`
	Encoding    string    `mapstructure:"encoding"` // json or console
	Output      io.Writer `mapstructure:"-"`        // defaults to stdout
}

// New creates a new logger instance based on configuration
func New(cfg Config) (*Logger, error) {
	if cfg.Level == "" {
		cfg.Level = InfoLevel
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Encoding == "" {
		if cfg.Environment == "production" {
			cfg.Encoding = "json"
		} else {
			cfg.Encoding = "console"
		}
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Environment == "production" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		if cfg.Encoding == "console" {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(cfg.Output),
		zapLevel(cfg.Level),
	)

	// Embedding means callers hit zap directly, so no extra caller skip
	zapLogger := zap.New(core, zap.AddCaller())

	return &Logger{Logger: zapLogger}, nil
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewDefault creates a logger with default development settings
func NewDefault() *Logger {
	logger, _ := New(Config{
		Level:       DebugLevel,
		Environment: "development",
		Encoding:    "console",
	})
	return logger
}

// NewNop returns a logger that discards everything, for tests
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(zapFields...)}
}

// WithComponent adds a component field to help identify log sources
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}

// WithFrame tags log lines with the sequence number of the frame being processed
func (l *Logger) WithFrame(sequence uint64) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Uint64("frame", sequence))}
}

// ParseLevel parses a string log level to LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var globalLogger *Logger

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = NewDefault()
	}
	return globalLogger
}

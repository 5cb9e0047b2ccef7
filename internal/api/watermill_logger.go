package api

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"

	"github.com/danghamo/posture/pkg/logger"
)

// zapAdapter routes watermill logs into the application logger
type zapAdapter struct {
	logger *logger.Logger
}

var _ watermill.LoggerAdapter = (*zapAdapter)(nil)

func newWatermillLogger(log *logger.Logger) watermill.LoggerAdapter {
	return &zapAdapter{logger: log.WithComponent("watermill")}
}

func (a *zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a *zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

// Trace is folded into debug; zap has no lower level
func (a *zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a *zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &zapAdapter{logger: a.logger.WithFields(fields)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/api/jsonrpcx"
	cqrsevents "github.com/danghamo/posture/internal/cqrs"
	"github.com/danghamo/posture/pkg/logger"
)

// Notification methods pushed to SSE clients
const (
	MethodAlertRaised  = "posture.alert.raised"
	MethodAlertCleared = "posture.alert.cleared"
)

// SSEBroadcaster interface for broadcasting SSE messages
type SSEBroadcaster interface {
	BroadcastToAll(notification jsonrpcx.Notification)
}

// SSEEventHandler handles events and converts them to SSE notifications
type SSEEventHandler struct {
	sseBroadcaster SSEBroadcaster
	logger         *logger.Logger
}

// NewSSEEventHandler creates a new SSE event handler
func NewSSEEventHandler(sseBroadcaster SSEBroadcaster, logger *logger.Logger) *SSEEventHandler {
	return &SSEEventHandler{
		sseBroadcaster: sseBroadcaster,
		logger:         logger.WithComponent("sse-event-handler"),
	}
}

// HandlePostureAlertRaisedEvent broadcasts a raised alert to SSE clients
func (h *SSEEventHandler) HandlePostureAlertRaisedEvent(ctx context.Context, event *cqrsevents.PostureAlertRaisedEvent) error {
	h.logger.Debug("Handling posture alert raised event",
		zap.String("eventId", event.EventID),
		zap.String("posture", event.Posture))

	h.sseBroadcaster.BroadcastToAll(jsonrpcx.NewNotification(MethodAlertRaised, map[string]interface{}{
		"event_id":    event.EventID,
		"posture":     event.Posture,
		"message":     event.Message,
		"audio_track": event.AudioTrack,
		"changes":     event.Changes,
		"timestamp":   event.Timestamp.Format(time.RFC3339),
	}))

	return nil
}

// HandlePostureAlertClearedEvent broadcasts a cleared alert to SSE clients
func (h *SSEEventHandler) HandlePostureAlertClearedEvent(ctx context.Context, event *cqrsevents.PostureAlertClearedEvent) error {
	h.logger.Debug("Handling posture alert cleared event",
		zap.String("eventId", event.EventID),
		zap.String("previousPosture", event.PreviousPosture))

	h.sseBroadcaster.BroadcastToAll(jsonrpcx.NewNotification(MethodAlertCleared, map[string]interface{}{
		"event_id":         event.EventID,
		"previous_posture": event.PreviousPosture,
		"previous_message": event.PreviousMessage,
		"changes":          event.Changes,
		"timestamp":        event.Timestamp.Format(time.RFC3339),
	}))

	return nil
}

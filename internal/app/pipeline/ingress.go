package pipeline

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/rx"
)

// IngressStats counts admitted and dropped frames.
type IngressStats struct {
	Accepted    uint64 `json:"accepted"`
	DroppedBusy uint64 `json:"dropped_busy"`
	DroppedRate uint64 `json:"dropped_rate"`
}

// Ingress admits frames into a sink one at a time. A frame offered while the
// previous one is still being processed is dropped, not queued.
type Ingress struct {
	sink    rx.Sink[FrameInput]
	limiter *rate.Limiter
	busy    atomic.Bool
	logger  *logger.Logger

	accepted    atomic.Uint64
	droppedBusy atomic.Uint64
	droppedRate atomic.Uint64
}

// NewIngress creates an ingress in front of sink. maxFPS <= 0 disables the
// rate cap.
func NewIngress(sink rx.Sink[FrameInput], maxFPS float64, log *logger.Logger) *Ingress {
	var limiter *rate.Limiter
	if maxFPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxFPS), 1)
	}

	return &Ingress{
		sink:    sink,
		limiter: limiter,
		logger:  log.WithComponent("ingress"),
	}
}

// Offer pushes the frame through the sink unless another frame is in flight
// or the rate cap is exceeded. It reports whether the frame was processed.
func (i *Ingress) Offer(frame body.Frame, orientation body.Orientation) bool {
	if !i.busy.CompareAndSwap(false, true) {
		i.droppedBusy.Add(1)
		i.logger.Debug("Frame dropped, pipeline busy", zap.Uint64("frame", frame.Sequence))
		return false
	}
	defer i.busy.Store(false)

	if i.limiter != nil && !i.limiter.Allow() {
		i.droppedRate.Add(1)
		i.logger.Debug("Frame dropped, rate cap", zap.Uint64("frame", frame.Sequence))
		return false
	}

	i.accepted.Add(1)
	i.sink.Send(FrameInput{Frame: frame, Orientation: orientation})
	return true
}

// Stats returns the admission counters
func (i *Ingress) Stats() IngressStats {
	return IngressStats{
		Accepted:    i.accepted.Load(),
		DroppedBusy: i.droppedBusy.Load(),
		DroppedRate: i.droppedRate.Load(),
	}
}

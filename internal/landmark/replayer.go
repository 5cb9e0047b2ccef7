package landmark

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

// FrameTarget accepts frames and reports whether each one was admitted
type FrameTarget interface {
	Offer(frame body.Frame, orientation body.Orientation) bool
}

// ReplayStats counts what a replay offered
type ReplayStats struct {
	Offered  uint64
	Admitted uint64
	Passes   uint64
}

// Replayer feeds a recording to a target at a fixed frame rate
type Replayer struct {
	frames []RecordedFrame
	target FrameTarget
	period time.Duration
	loop   bool
	logger *logger.Logger
}

// NewReplayer creates a replayer. fps must be positive.
func NewReplayer(frames []RecordedFrame, target FrameTarget, fps float64, loop bool, log *logger.Logger) (*Replayer, error) {
	if fps <= 0 {
		return nil, shared.ErrInvalidConfig("replay fps must be positive, got %v", fps)
	}
	return &Replayer{
		frames: frames,
		target: target,
		period: time.Duration(float64(time.Second) / fps),
		loop:   loop,
		logger: log.WithComponent("replayer"),
	}, nil
}

// Run offers every frame once per tick until the recording ends, or ctx is
// done when looping. Returns ctx.Err() when cancelled.
func (r *Replayer) Run(ctx context.Context) (ReplayStats, error) {
	var stats ReplayStats
	if len(r.frames) == 0 {
		return stats, nil
	}

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		for _, recorded := range r.frames {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-ticker.C:
			}

			frame, err := recorded.Frame()
			if err != nil {
				r.logger.WithFrame(recorded.Sequence).Warn("Skipping unencodable frame", zap.Error(err))
				continue
			}

			stats.Offered++
			if r.target.Offer(frame, recorded.Orientation) {
				stats.Admitted++
			}
		}
		stats.Passes++

		r.logger.Debug("Recording pass finished",
			zap.Uint64("passes", stats.Passes),
			zap.Uint64("offered", stats.Offered),
			zap.Uint64("admitted", stats.Admitted))

		if !r.loop {
			return stats, nil
		}
	}
}

package landmark

import (
	"go.uber.org/zap"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

// Estimator runs a pose model over one frame.
type Estimator interface {
	Estimate(frame body.Frame, orientation body.Orientation) ([]body.Observation, error)
}

// EstimatorFunc adapts a plain function to Estimator
type EstimatorFunc func(frame body.Frame, orientation body.Orientation) ([]body.Observation, error)

// Estimate implements Estimator
func (f EstimatorFunc) Estimate(frame body.Frame, orientation body.Orientation) ([]body.Observation, error) {
	return f(frame, orientation)
}

// Extractor turns frames into snapshots. It never fails: when the estimator
// errors or is missing the snapshot is empty.
type Extractor struct {
	estimator     Estimator
	minConfidence float64
	logger        *logger.Logger
}

// NewExtractor creates an extractor keeping landmarks above minConfidence
func NewExtractor(estimator Estimator, minConfidence float64, log *logger.Logger) *Extractor {
	return &Extractor{
		estimator:     estimator,
		minConfidence: minConfidence,
		logger:        log.WithComponent("landmark-extractor"),
	}
}

// Extract runs the estimator and filters the result into a snapshot
func (e *Extractor) Extract(frame body.Frame, orientation body.Orientation) body.Snapshot {
	if e.estimator == nil {
		return body.Snapshot{}
	}
	if !orientation.Valid() {
		orientation = body.OrientationUp
	}

	observations, err := e.estimator.Estimate(frame, orientation)
	if err != nil {
		err = shared.WrapDomainError(err, shared.ErrCodeEstimatorFailed, "estimate landmarks")
		e.logger.WithFrame(frame.Sequence).Warn("Landmark estimation failed", zap.Error(err))
		return body.Snapshot{}
	}

	return body.FromObservations(observations, e.minConfidence)
}

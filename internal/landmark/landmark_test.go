package landmark

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/shared"
	"github.com/danghamo/posture/pkg/logger"
)

func TestExtractor_FiltersByConfidence(t *testing.T) {
	estimator := EstimatorFunc(func(body.Frame, body.Orientation) ([]body.Observation, error) {
		return []body.Observation{
			{Joint: body.JointRightEar, X: 0.5, Y: 0.6, Confidence: 0.9},
			{Joint: body.JointRightShoulder, X: 0.5, Y: 0.2, Confidence: 0.1},
			{Joint: body.JointRightWrist, X: 0.4, Y: 0.3, Confidence: 0.5},
		}, nil
	})

	snapshot := NewExtractor(estimator, body.DefaultMinConfidence, logger.NewNop()).Extract(body.Frame{}, body.OrientationUp)

	require.NotNil(t, snapshot.RightEar)
	assert.Equal(t, body.Point{X: 0.5, Y: 0.6}, *snapshot.RightEar)
	assert.Nil(t, snapshot.RightShoulder, "confidence equal to the minimum is dropped")
	require.NotNil(t, snapshot.RightHand)
	assert.Equal(t, 2, snapshot.Present())
}

func TestExtractor_EstimatorErrorYieldsEmptySnapshot(t *testing.T) {
	estimator := EstimatorFunc(func(body.Frame, body.Orientation) ([]body.Observation, error) {
		return nil, errors.New("model unavailable")
	})

	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{Logger: zap.New(core)}

	snapshot := NewExtractor(estimator, body.DefaultMinConfidence, log).Extract(body.Frame{Sequence: 7}, body.OrientationUp)
	assert.True(t, snapshot.IsEmpty())

	entries := logs.FilterMessage("Landmark estimation failed").All()
	require.Len(t, entries, 1)

	var logged error
	for _, field := range entries[0].Context {
		if field.Key == "error" {
			logged, _ = field.Interface.(error)
		}
	}
	require.Error(t, logged)
	assert.True(t, shared.HasCode(logged, shared.ErrCodeEstimatorFailed))
	assert.Contains(t, logged.Error(), "model unavailable")
}

func TestExtractor_NilEstimator(t *testing.T) {
	snapshot := NewExtractor(nil, body.DefaultMinConfidence, logger.NewNop()).Extract(body.Frame{}, body.OrientationUp)
	assert.True(t, snapshot.IsEmpty())
}

func TestExtractor_InvalidOrientationDefaultsToUp(t *testing.T) {
	var got body.Orientation
	estimator := EstimatorFunc(func(_ body.Frame, o body.Orientation) ([]body.Observation, error) {
		got = o
		return nil, nil
	})

	NewExtractor(estimator, body.DefaultMinConfidence, logger.NewNop()).Extract(body.Frame{}, body.Orientation(42))
	assert.Equal(t, body.OrientationUp, got)
}

func TestReadRecording(t *testing.T) {
	input := `{"sequence":1,"orientation":6,"observations":[{"joint":"right_ear","x":0.5,"y":0.6,"confidence":0.9}]}

{"observations":[{"joint":"nose","x":0.4,"y":0.8,"confidence":0.8}]}
`
	frames, err := ReadRecording(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, uint64(1), frames[0].Sequence)
	assert.Equal(t, body.OrientationRight, frames[0].Orientation)
	assert.Equal(t, body.JointRightEar, frames[0].Observations[0].Joint)

	assert.Equal(t, uint64(2), frames[1].Sequence)
	assert.Equal(t, body.OrientationUp, frames[1].Orientation)
}

func TestReadRecording_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "malformed json", input: "{not json}\n"},
		{name: "bad orientation", input: `{"orientation":9,"observations":[]}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRecording(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidRecording))
		})
	}
}

func TestReplayEstimator_RoundTripsRecordedFrame(t *testing.T) {
	recorded := RecordedFrame{
		Sequence:    3,
		Orientation: body.OrientationUp,
		Observations: []body.Observation{
			{Joint: body.JointRightEye, X: 0.6, Y: 0.7, Confidence: 0.95},
		},
	}

	frame, err := recorded.Frame()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), frame.Sequence)

	observations, err := NewReplayEstimator().Estimate(frame, recorded.Orientation)
	require.NoError(t, err)
	assert.Equal(t, recorded.Observations, observations)
}

func TestReplayEstimator_BadPayload(t *testing.T) {
	_, err := NewReplayEstimator().Estimate(body.Frame{Data: []byte("garbage")}, body.OrientationUp)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.ErrCodeInvalidObservation))

	observations, err := NewReplayEstimator().Estimate(body.Frame{}, body.OrientationUp)
	assert.NoError(t, err)
	assert.Empty(t, observations)
}

package landmark

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/danghamo/posture/internal/domain/body"
	"github.com/danghamo/posture/internal/domain/shared"
)

// maxLineSize bounds one recorded frame
const maxLineSize = 1 << 20

// RecordedFrame is one line of a landmark recording.
type RecordedFrame struct {
	Sequence     uint64             `json:"sequence"`
	Orientation  body.Orientation   `json:"orientation,omitempty"`
	Observations []body.Observation `json:"observations"`
}

// Frame packs the recorded observations into a frame for ReplayEstimator
func (r RecordedFrame) Frame() (body.Frame, error) {
	data, err := json.Marshal(r.Observations)
	if err != nil {
		return body.Frame{}, shared.WrapDomainError(err, shared.ErrCodeInvalidObservation, "encode observations")
	}
	return body.Frame{
		Sequence:  r.Sequence,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}

// ReadRecording decodes a JSON-lines recording. Blank lines are skipped.
// Frames without an orientation default to up.
func ReadRecording(r io.Reader) ([]RecordedFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var frames []RecordedFrame
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var frame RecordedFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return nil, shared.WrapDomainError(err, shared.ErrCodeInvalidRecording, "decode recording line")
		}
		if frame.Orientation == 0 {
			frame.Orientation = body.OrientationUp
		}
		if !frame.Orientation.Valid() {
			return nil, shared.NewDomainErrorf(shared.ErrCodeInvalidRecording,
				"line %d: invalid orientation %d", line, frame.Orientation)
		}
		if frame.Sequence == 0 {
			frame.Sequence = uint64(len(frames) + 1)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeInvalidRecording, "read recording")
	}

	return frames, nil
}

// ReplayEstimator treats the frame payload as pre-computed observations.
type ReplayEstimator struct{}

// NewReplayEstimator creates a replay estimator
func NewReplayEstimator() *ReplayEstimator {
	return &ReplayEstimator{}
}

// Estimate decodes frame.Data as a JSON array of observations
func (ReplayEstimator) Estimate(frame body.Frame, _ body.Orientation) ([]body.Observation, error) {
	if len(frame.Data) == 0 {
		return nil, nil
	}

	var observations []body.Observation
	if err := json.Unmarshal(frame.Data, &observations); err != nil {
		return nil, shared.WrapDomainError(err, shared.ErrCodeInvalidObservation, "decode frame observations")
	}
	return observations, nil
}

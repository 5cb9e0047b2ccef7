package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danghamo/posture/internal/domain/body"
)

func fullSnapshot() body.Snapshot {
	return body.Snapshot{
		Nose:          body.NewPoint(0.1, 0.9),
		RightEye:      body.NewPoint(0.2, 0.8),
		RightEar:      body.NewPoint(0.3, 0.7),
		RightShoulder: body.NewPoint(0.4, 0.3),
		RightHand:     body.NewPoint(0.5, 0.2),
	}
}

func TestMarkers(t *testing.T) {
	s := fullSnapshot()
	markers := Markers(s)

	require.Len(t, markers, MarkerCount)
	assert.Same(t, s.Nose, markers[0])
	assert.Same(t, s.RightEar, markers[1])
	assert.Same(t, s.RightEar, markers[2])
	assert.Same(t, s.RightEye, markers[3])
	assert.Same(t, s.RightHand, markers[4])
	assert.Same(t, s.RightShoulder, markers[5])
}

func TestSegments(t *testing.T) {
	s := fullSnapshot()
	segments := Segments(s)

	require.Len(t, segments, SegmentCount)
	assert.Equal(t, Segment{From: s.Nose, To: s.RightEye}, segments[0])
	assert.Equal(t, Segment{From: s.RightEye, To: s.RightEar}, segments[1])
	assert.Equal(t, Segment{From: s.RightEar, To: s.RightShoulder}, segments[2])
	for _, seg := range segments {
		assert.True(t, seg.Complete())
	}
}

func TestProject_MissingLandmarks(t *testing.T) {
	tests := []struct {
		name     string
		snapshot body.Snapshot
	}{
		{name: "empty", snapshot: body.Snapshot{}},
		{name: "ear only", snapshot: body.Snapshot{RightEar: body.NewPoint(0.3, 0.7)}},
		{name: "no eye", snapshot: body.Snapshot{Nose: body.NewPoint(0.1, 0.9), RightEar: body.NewPoint(0.3, 0.7)}},
		{name: "full", snapshot: fullSnapshot()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Project(tt.snapshot)

			require.Len(t, frame.Markers, MarkerCount)
			require.Len(t, frame.Segments, SegmentCount)
			assert.Equal(t, frame.Markers[1], frame.Markers[2], "right ear is listed twice")
		})
	}

	frame := Project(body.Snapshot{Nose: body.NewPoint(0.1, 0.9)})
	assert.NotNil(t, frame.Markers[0])
	assert.Nil(t, frame.Markers[1])
	assert.Nil(t, frame.Segments[0].To)
	assert.False(t, frame.Segments[0].Complete())
}

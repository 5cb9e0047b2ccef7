package overlay

import "github.com/danghamo/posture/internal/domain/body"

const (
	MarkerCount  = 6
	SegmentCount = 3
)

// Segment is a line between two landmarks. Either end may be nil; the
// renderer skips incomplete segments.
type Segment struct {
	From *body.Point `json:"from"`
	To   *body.Point `json:"to"`
}

// Complete reports whether both ends are present.
func (s Segment) Complete() bool {
	return s.From != nil && s.To != nil
}

// Frame holds both visualization sequences for one snapshot.
type Frame struct {
	Markers  []*body.Point `json:"markers"`
	Segments []Segment     `json:"segments"`
}

// Markers returns the landmark dots in drawing order. The right ear is
// listed twice.
func Markers(s body.Snapshot) []*body.Point {
	return []*body.Point{
		s.Nose,
		s.RightEar,
		s.RightEar,
		s.RightEye,
		s.RightHand,
		s.RightShoulder,
	}
}

// Segments returns the head-to-shoulder polyline as three segments.
func Segments(s body.Snapshot) []Segment {
	return []Segment{
		{From: s.Nose, To: s.RightEye},
		{From: s.RightEye, To: s.RightEar},
		{From: s.RightEar, To: s.RightShoulder},
	}
}

// Project builds both sequences from the same snapshot.
func Project(s body.Snapshot) Frame {
	return Frame{
		Markers:  Markers(s),
		Segments: Segments(s),
	}
}

package body

import (
	"fmt"
	"time"
)

// DefaultMinConfidence is the confidence a landmark must exceed to be kept.
const DefaultMinConfidence = 0.1

// Point is a landmark position in normalized image coordinates.
// Both axes run over [0,1], origin bottom-left, y increasing upward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint returns a pointer to a new point, handy for building snapshots.
func NewPoint(x, y float64) *Point {
	return &Point{X: x, Y: y}
}

// String returns string representation of point
func (p Point) String() string {
	return fmt.Sprintf("(%.3f,%.3f)", p.X, p.Y)
}

// Joint names a body keypoint reported by the landmark estimator.
type Joint string

const (
	JointNose          Joint = "nose"
	JointRightEye      Joint = "right_eye"
	JointRightEar      Joint = "right_ear"
	JointRightShoulder Joint = "right_shoulder"
	JointRightWrist    Joint = "right_wrist"
)

// Observation is a single keypoint as reported by the estimator.
type Observation struct {
	Joint      Joint   `json:"joint"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Location returns the observed position.
func (o Observation) Location() Point {
	return Point{X: o.X, Y: o.Y}
}

// Snapshot is the set of landmarks derived from one frame.
// A nil field means the landmark was not detected with enough confidence.
// Snapshots are values; they are never mutated after construction.
type Snapshot struct {
	Nose          *Point `json:"nose,omitempty"`
	RightEye      *Point `json:"right_eye,omitempty"`
	RightEar      *Point `json:"right_ear,omitempty"`
	RightShoulder *Point `json:"right_shoulder,omitempty"`
	RightHand     *Point `json:"right_hand,omitempty"`
}

// FromObservations keeps the observations whose confidence is strictly above
// minConfidence. Unknown joints are ignored; a later observation of the same
// joint replaces an earlier one.
func FromObservations(observations []Observation, minConfidence float64) Snapshot {
	var s Snapshot
	for _, o := range observations {
		if !(o.Confidence > minConfidence) {
			continue
		}
		p := o.Location()
		switch o.Joint {
		case JointNose:
			s.Nose = &p
		case JointRightEye:
			s.RightEye = &p
		case JointRightEar:
			s.RightEar = &p
		case JointRightShoulder:
			s.RightShoulder = &p
		case JointRightWrist:
			s.RightHand = &p
		}
	}
	return s
}

// IsEmpty reports whether no landmark is present.
func (s Snapshot) IsEmpty() bool {
	return s.Nose == nil && s.RightEye == nil && s.RightEar == nil &&
		s.RightShoulder == nil && s.RightHand == nil
}

// Present returns how many landmarks are present.
func (s Snapshot) Present() int {
	n := 0
	for _, p := range []*Point{s.Nose, s.RightEye, s.RightEar, s.RightShoulder, s.RightHand} {
		if p != nil {
			n++
		}
	}
	return n
}

// Orientation is the EXIF orientation of a captured frame.
type Orientation int

const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

// Valid reports whether o is one of the eight EXIF orientations.
func (o Orientation) Valid() bool {
	return o >= OrientationUp && o <= OrientationLeft
}

// Frame is one captured image handed to the landmark estimator.
type Frame struct {
	Sequence  uint64
	Timestamp time.Time
	Width     int
	Height    int
	Data      []byte
}

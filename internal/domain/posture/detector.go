package posture

import (
	"math"

	"github.com/danghamo/posture/internal/domain/body"
)

// Thresholds tunes the geometric rules of SittingDetector.
type Thresholds struct {
	// SlouchAngle: ear-to-shoulder angle below this means slouching.
	SlouchAngle float64 `mapstructure:"slouch_angle"`
	// HeadDropAngle: eye-to-ear angle below this means the head dropped.
	HeadDropAngle float64 `mapstructure:"head_drop_angle"`
	// ChinOffset is subtracted from the hand height before comparing it
	// with the shoulder height. Same units as the landmark coordinates.
	ChinOffset float64 `mapstructure:"chin_offset"`
}

// DefaultThresholds returns the values the rules were tuned with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SlouchAngle:   59,
		HeadDropAngle: 0,
		ChinOffset:    20,
	}
}

// SittingDetector is a stateless per-frame evaluator for a seated person
// filmed from their right side.
type SittingDetector struct {
	thresholds Thresholds
}

// NewSittingDetector creates a detector with the given thresholds.
func NewSittingDetector(thresholds Thresholds) *SittingDetector {
	return &SittingDetector{thresholds: thresholds}
}

// Classify returns every condition whose rule matches. Rules whose
// landmarks are missing are skipped.
func (d *SittingDetector) Classify(s body.Snapshot) Set {
	var set Set
	if d.slouching(s) {
		set = set.With(Slouching)
	}
	if d.headDrop(s) {
		set = set.With(HeadDrop)
	}
	if d.chinOnHand(s) {
		set = set.With(ChinOnHand)
	}
	return set
}

func (d *SittingDetector) slouching(s body.Snapshot) bool {
	if s.RightEar == nil || s.RightShoulder == nil {
		return false
	}
	return Angle(*s.RightEar, *s.RightShoulder) < d.thresholds.SlouchAngle
}

func (d *SittingDetector) headDrop(s body.Snapshot) bool {
	if s.RightEye == nil || s.RightEar == nil {
		return false
	}
	return Angle(*s.RightEye, *s.RightEar) < d.thresholds.HeadDropAngle
}

func (d *SittingDetector) chinOnHand(s body.Snapshot) bool {
	if s.RightHand == nil || s.RightShoulder == nil {
		return false
	}
	return s.RightHand.Y-d.thresholds.ChinOffset < s.RightShoulder.Y
}

// Angle returns the direction from one point to another in degrees.
// Positive angles are returned as is; zero and negative angles are doubled,
// not wrapped into [0,360).
func Angle(from, to body.Point) float64 {
	radians := math.Atan2(to.Y-from.Y, to.X-from.X)
	degrees := radians * 180 / math.Pi
	if degrees > 0 {
		return degrees
	}
	return degrees + degrees
}

package posture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danghamo/posture/internal/domain/body"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name     string
		from, to body.Point
		want     float64
	}{
		{name: "straight up", from: body.Point{X: 0.5, Y: 0.2}, to: body.Point{X: 0.5, Y: 0.6}, want: 90},
		{name: "diagonal up right", from: body.Point{X: 0, Y: 0}, to: body.Point{X: 1, Y: 1}, want: 45},
		{name: "straight left", from: body.Point{X: 0, Y: 0}, to: body.Point{X: -1, Y: 0}, want: 180},
		// Non-positive angles are doubled instead of wrapped.
		{name: "straight down is doubled", from: body.Point{X: 0.5, Y: 0.6}, to: body.Point{X: 0.5, Y: 0.2}, want: -180},
		{name: "diagonal down right is doubled", from: body.Point{X: 0, Y: 0}, to: body.Point{X: 1, Y: -1}, want: -90},
		{name: "down left is doubled", from: body.Point{X: 0.5, Y: 0.6}, to: body.Point{X: 0.3, Y: 0.2}, want: -233.1301},
		{name: "straight right is zero", from: body.Point{X: 0, Y: 0}, to: body.Point{X: 1, Y: 0}, want: 0},
		{name: "same point is zero", from: body.Point{X: 0.4, Y: 0.4}, to: body.Point{X: 0.4, Y: 0.4}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Angle(tt.from, tt.to), 1e-3)
		})
	}
}

func TestSittingDetector_Slouching(t *testing.T) {
	d := NewSittingDetector(DefaultThresholds())

	tests := []struct {
		name     string
		ear      *body.Point
		shoulder *body.Point
		want     bool
	}{
		{name: "ninety degrees is upright", ear: body.NewPoint(0.5, 0.2), shoulder: body.NewPoint(0.5, 0.6), want: false},
		{name: "forty five degrees is slouching", ear: body.NewPoint(0.3, 0.2), shoulder: body.NewPoint(0.5, 0.4), want: true},
		// Worked example ear (0.5,0.6) shoulder (0.5,0.2): the angle is -90,
		// doubled to -180, so this reads as slouching rather than upright.
		{name: "example ear 0.5,0.6 shoulder 0.5,0.2 doubles to -180 and slouches", ear: body.NewPoint(0.5, 0.6), shoulder: body.NewPoint(0.5, 0.2), want: true},
		{name: "example ear 0.5,0.6 shoulder 0.3,0.2 slouches", ear: body.NewPoint(0.5, 0.6), shoulder: body.NewPoint(0.3, 0.2), want: true},
		{name: "missing ear", ear: nil, shoulder: body.NewPoint(0.5, 0.2), want: false},
		{name: "missing shoulder", ear: body.NewPoint(0.3, 0.2), shoulder: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Classify(body.Snapshot{RightEar: tt.ear, RightShoulder: tt.shoulder})
			assert.Equal(t, tt.want, got.Has(Slouching))
		})
	}
}

func TestSittingDetector_HeadDrop(t *testing.T) {
	d := NewSittingDetector(DefaultThresholds())

	tests := []struct {
		name string
		eye  *body.Point
		ear  *body.Point
		want bool
	}{
		{name: "ear below eye", eye: body.NewPoint(0.2, 0.8), ear: body.NewPoint(0.3, 0.7), want: true},
		{name: "ear above eye", eye: body.NewPoint(0.2, 0.7), ear: body.NewPoint(0.3, 0.8), want: false},
		{name: "level eye and ear", eye: body.NewPoint(0.2, 0.7), ear: body.NewPoint(0.3, 0.7), want: false},
		{name: "missing eye", eye: nil, ear: body.NewPoint(0.3, 0.7), want: false},
		{name: "missing ear", eye: body.NewPoint(0.2, 0.8), ear: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Classify(body.Snapshot{RightEye: tt.eye, RightEar: tt.ear})
			assert.Equal(t, tt.want, got.Has(HeadDrop))
		})
	}
}

func TestSittingDetector_ChinOnHand(t *testing.T) {
	t.Run("default offset fires whenever both landmarks are present", func(t *testing.T) {
		d := NewSittingDetector(DefaultThresholds())

		got := d.Classify(body.Snapshot{RightHand: body.NewPoint(0.5, 0.1), RightShoulder: body.NewPoint(0.5, 0.2)})
		assert.True(t, got.Has(ChinOnHand))

		got = d.Classify(body.Snapshot{RightHand: body.NewPoint(0.5, 0.9), RightShoulder: body.NewPoint(0.5, 0.2)})
		assert.True(t, got.Has(ChinOnHand), "0.9 - 20 is still below the shoulder")
	})

	t.Run("custom offset", func(t *testing.T) {
		d := NewSittingDetector(Thresholds{SlouchAngle: 59, HeadDropAngle: 0, ChinOffset: 0})

		assert.True(t, d.Classify(body.Snapshot{RightHand: body.NewPoint(0.5, 0.1), RightShoulder: body.NewPoint(0.5, 0.2)}).Has(ChinOnHand))
		assert.False(t, d.Classify(body.Snapshot{RightHand: body.NewPoint(0.5, 0.5), RightShoulder: body.NewPoint(0.5, 0.2)}).Has(ChinOnHand))
	})

	t.Run("missing landmarks", func(t *testing.T) {
		d := NewSittingDetector(DefaultThresholds())
		assert.False(t, d.Classify(body.Snapshot{RightHand: body.NewPoint(0.5, 0.1)}).Has(ChinOnHand))
		assert.False(t, d.Classify(body.Snapshot{RightShoulder: body.NewPoint(0.5, 0.1)}).Has(ChinOnHand))
	})
}

func TestSittingDetector_EmptySnapshot(t *testing.T) {
	d := NewSittingDetector(DefaultThresholds())
	got := d.Classify(body.Snapshot{})

	assert.True(t, got.IsEmpty())
	assert.Equal(t, 0, got.Len())
}

func TestSittingDetector_AllConditions(t *testing.T) {
	d := NewSittingDetector(DefaultThresholds())
	got := d.Classify(body.Snapshot{
		Nose:          body.NewPoint(0.1, 0.85),
		RightEye:      body.NewPoint(0.2, 0.8),
		RightEar:      body.NewPoint(0.3, 0.7),
		RightShoulder: body.NewPoint(0.3, 0.3),
		RightHand:     body.NewPoint(0.2, 0.6),
	})

	assert.Equal(t, NewSet(Slouching, HeadDrop, ChinOnHand), got)
	assert.Equal(t, 3, got.Len())
}

func TestSittingDetector_ResultIsSubsetOfKnownConditions(t *testing.T) {
	d := NewSittingDetector(DefaultThresholds())
	rng := rand.New(rand.NewSource(42))

	maybe := func() *body.Point {
		if rng.Intn(4) == 0 {
			return nil
		}
		return body.NewPoint(rng.Float64(), rng.Float64())
	}

	known := NewSet(All...)
	for i := 0; i < 1000; i++ {
		got := d.Classify(body.Snapshot{
			Nose:          maybe(),
			RightEye:      maybe(),
			RightEar:      maybe(),
			RightShoulder: maybe(),
			RightHand:     maybe(),
		})
		assert.Equal(t, got, got&known)
		assert.GreaterOrEqual(t, got.Len(), 0)
		assert.LessOrEqual(t, got.Len(), 3)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(HeadDrop, HeadDrop, ChinOnHand)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(HeadDrop))
	assert.False(t, s.Has(Slouching))
	assert.Equal(t, []WrongPosture{HeadDrop, ChinOnHand}, s.Postures())
	assert.Equal(t, "HeadDrop|ChinOnHand", s.String())
	assert.Equal(t, "none", Set(0).String())
	assert.Equal(t, s, s.With(WrongPosture(64)), "unknown conditions are ignored")
	assert.False(t, s.Has(WrongPosture(0)))
}

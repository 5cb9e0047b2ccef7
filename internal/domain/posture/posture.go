package posture

import (
	"strings"

	"github.com/danghamo/posture/internal/domain/body"
)

// WrongPosture is a posture defect detected by one geometric rule.
type WrongPosture uint8

const (
	Slouching WrongPosture = 1 << iota
	HeadDrop
	ChinOnHand
)

// All lists every condition in declaration order.
var All = []WrongPosture{Slouching, HeadDrop, ChinOnHand}

// String returns the condition name
func (p WrongPosture) String() string {
	switch p {
	case Slouching:
		return "Slouching"
	case HeadDrop:
		return "HeadDrop"
	case ChinOnHand:
		return "ChinOnHand"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p WrongPosture) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Set is an unordered, duplicate-free collection of conditions.
type Set uint8

// NewSet builds a set from the given conditions.
func NewSet(postures ...WrongPosture) Set {
	var s Set
	for _, p := range postures {
		s = s.With(p)
	}
	return s
}

// With returns s plus p. Values outside the three known conditions are ignored.
func (s Set) With(p WrongPosture) Set {
	switch p {
	case Slouching, HeadDrop, ChinOnHand:
		return s | Set(p)
	}
	return s
}

// Has reports membership.
func (s Set) Has(p WrongPosture) bool {
	return p != 0 && s&Set(p) == Set(p)
}

// Len returns the number of conditions in the set.
func (s Set) Len() int {
	n := 0
	for _, p := range All {
		if s.Has(p) {
			n++
		}
	}
	return n
}

// IsEmpty reports whether no condition is present.
func (s Set) IsEmpty() bool {
	return s.Len() == 0
}

// Postures returns the members in declaration order.
func (s Set) Postures() []WrongPosture {
	out := make([]WrongPosture, 0, len(All))
	for _, p := range All {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// String returns the members joined with "|", or "none".
func (s Set) String() string {
	if s.IsEmpty() {
		return "none"
	}
	names := make([]string, 0, len(All))
	for _, p := range s.Postures() {
		names = append(names, p.String())
	}
	return strings.Join(names, "|")
}

// Classifier evaluates a snapshot against the posture rules.
type Classifier interface {
	Classify(snapshot body.Snapshot) Set
}

// ClassifierFunc adapts a function into a Classifier.
type ClassifierFunc func(snapshot body.Snapshot) Set

// Classify calls f(snapshot).
func (f ClassifierFunc) Classify(snapshot body.Snapshot) Set {
	return f(snapshot)
}

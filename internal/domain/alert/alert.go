package alert

import (
	"github.com/danghamo/posture/internal/domain/posture"
)

// Audio track identifiers understood by the audio collaborator.
const (
	TrackHeadTooLow  = "HeadTooLow"
	TrackLeanForward = "LeanForward"
	TrackChinOnHand  = "ChinOnHand"
)

// Outcome is the single user-facing classification result for one snapshot.
// The zero value is Clear.
type Outcome struct {
	Active     bool                 `json:"active"`
	Posture    posture.WrongPosture `json:"posture,omitempty"`
	Message    string               `json:"message,omitempty"`
	AudioTrack string               `json:"audio_track,omitempty"`
}

// Clear returns the outcome meaning no posture issue.
func Clear() Outcome {
	return Outcome{}
}

// IsClear reports whether the outcome carries no alert.
func (o Outcome) IsClear() bool {
	return !o.Active
}

// String returns string representation of outcome
func (o Outcome) String() string {
	if !o.Active {
		return "clear"
	}
	return o.Message + " [" + o.AudioTrack + "]"
}

// AudioSink plays alert cues. Both methods must be idempotent and must not
// panic when nothing is playing.
type AudioSink interface {
	Play(trackID string)
	Stop()
}

// Rule maps one condition to what the user sees and hears.
type Rule struct {
	Posture    posture.WrongPosture
	Message    string
	AudioTrack string
}

// DefaultRules lists the rules from highest to lowest priority.
func DefaultRules() []Rule {
	return []Rule{
		{Posture: posture.HeadDrop, Message: "head too low", AudioTrack: TrackHeadTooLow},
		{Posture: posture.Slouching, Message: "leaning forward", AudioTrack: TrackLeanForward},
		{Posture: posture.ChinOnHand, Message: "chin resting on hand", AudioTrack: TrackChinOnHand},
	}
}

// Arbiter reduces a condition set to one outcome by fixed priority.
type Arbiter struct {
	rules []Rule
	audio AudioSink
}

// NewArbiter creates an arbiter with the default priority table. audio may be
// nil, in which case Arbitrate behaves like Decide.
func NewArbiter(audio AudioSink) *Arbiter {
	return NewArbiterWithRules(audio, DefaultRules())
}

// NewArbiterWithRules creates an arbiter evaluating rules in the given order.
func NewArbiterWithRules(audio AudioSink, rules []Rule) *Arbiter {
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	return &Arbiter{rules: owned, audio: audio}
}

// Decide returns the outcome for the first matching rule, or Clear.
func (a *Arbiter) Decide(set posture.Set) Outcome {
	for _, r := range a.rules {
		if set.Has(r.Posture) {
			return Outcome{
				Active:     true,
				Posture:    r.Posture,
				Message:    r.Message,
				AudioTrack: r.AudioTrack,
			}
		}
	}
	return Clear()
}

// Arbitrate decides the outcome and drives the audio sink: an active outcome
// plays its track, interrupting whatever is playing; Clear stops playback.
func (a *Arbiter) Arbitrate(set posture.Set) Outcome {
	outcome := a.Decide(set)
	if a.audio == nil {
		return outcome
	}
	if outcome.Active {
		a.audio.Play(outcome.AudioTrack)
	} else {
		a.audio.Stop()
	}
	return outcome
}

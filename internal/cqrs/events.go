package cqrs

import (
	"time"
)

// Event names double as the watermill cqrs event names and topic suffixes
const (
	EventPostureAlertRaised  = "PostureAlertRaisedEvent"
	EventPostureAlertCleared = "PostureAlertClearedEvent"
)

// PostureAlertRaisedEvent is published when the outcome becomes active or
// switches to a different alert
type PostureAlertRaisedEvent struct {
	EventID    string                 `json:"event_id"`
	Posture    string                 `json:"posture"`
	Message    string                 `json:"message"`
	AudioTrack string                 `json:"audio_track"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// PostureAlertClearedEvent is published when an active outcome returns to clear
type PostureAlertClearedEvent struct {
	EventID         string                 `json:"event_id"`
	PreviousPosture string                 `json:"previous_posture"`
	PreviousMessage string                 `json:"previous_message"`
	Changes         map[string]interface{} `json:"changes,omitempty"`
	Timestamp       time.Time              `json:"timestamp"`
}

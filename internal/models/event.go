package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentEvent represents one detected on-chain event instance.
// Immutable once constructed; processed exactly once.
type AgentEvent struct {
	// DetectionID identifies this detection for log correlation
	DetectionID string `json:"detection_id"`

	// EventType is the event name parsed from the log marker
	EventType string `json:"event_type"`

	// RequestID correlates the on-chain request with the response transaction
	RequestID string `json:"request_id"`

	// Payload is the first element of the event's data array, as emitted
	Payload map[string]interface{} `json:"payload"`

	// Sender is the originating account id (receipt predecessor)
	Sender string `json:"sender"`

	// Timestamp is the detection time, not chain time
	Timestamp time.Time `json:"timestamp"`
}

// NewAgentEvent constructs an AgentEvent with a fresh detection id and
// detection timestamp.
func NewAgentEvent(eventType, requestID, sender string, payload map[string]interface{}) AgentEvent {
	return AgentEvent{
		DetectionID: uuid.NewString(),
		EventType:   eventType,
		RequestID:   requestID,
		Payload:     payload,
		Sender:      sender,
		Timestamp:   time.Now().UTC(),
	}
}

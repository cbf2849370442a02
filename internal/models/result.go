package models

import "time"

// ProcessingResult is the outcome of processing one AgentEvent.
// Response and Error are mutually exclusive: exactly one is set.
type ProcessingResult struct {
	Success        bool          `json:"success"`
	Response       string        `json:"response,omitempty"`
	Error          string        `json:"error,omitempty"`
	RequestID      string        `json:"request_id"`
	TxHash         string        `json:"tx_hash,omitempty"`
	Subscription   *Subscription `json:"-"`
	Event          AgentEvent    `json:"event"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// PollResult reports what a single poll accomplished.
type PollResult struct {
	BlocksProcessed int `json:"blocks_processed"`
	EventsFound     int `json:"events_found"`
}

package models

import "time"

// ProcessorStats are the running counters kept by the event processor.
type ProcessorStats struct {
	TotalEventsProcessed int           `json:"total_events_processed"`
	SuccessfulEvents     int           `json:"successful_events"`
	FailedEvents         int           `json:"failed_events"`
	TotalProcessingTime  time.Duration `json:"total_processing_time"`
}

// SuccessRate returns the percentage of processed events that succeeded.
// Zero when nothing has been processed yet.
func (s ProcessorStats) SuccessRate() float64 {
	if s.TotalEventsProcessed == 0 {
		return 0
	}
	return float64(s.SuccessfulEvents) / float64(s.TotalEventsProcessed) * 100
}

// AverageProcessingTime returns the mean wall-clock time per processed event.
func (s ProcessorStats) AverageProcessingTime() time.Duration {
	if s.TotalEventsProcessed == 0 {
		return 0
	}
	return s.TotalProcessingTime / time.Duration(s.TotalEventsProcessed)
}

// WatcherStats are the process-wide aggregate statistics, recomputed on
// demand from the subscription registry and running counters.
type WatcherStats struct {
	TotalSubscriptions   int           `json:"total_subscriptions"`
	ActiveSubscriptions  int           `json:"active_subscriptions"`
	EventsDetected       int           `json:"events_detected"`
	TotalEventsProcessed int           `json:"total_events_processed"`
	SuccessfulEvents     int           `json:"successful_events"`
	FailedEvents         int           `json:"failed_events"`
	SuccessRate          float64       `json:"success_rate"`
	AverageProcessing    time.Duration `json:"average_processing_time"`
	StartTime            time.Time     `json:"start_time"`
}

// SubscriptionStatus is the read-only view of one subscription exposed by the
// watcher's status accessors.
type SubscriptionStatus struct {
	ID          string     `json:"id"`
	ContractID  string     `json:"contract_id"`
	EventName   string     `json:"event_name"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

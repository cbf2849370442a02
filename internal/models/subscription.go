package models

import (
	"fmt"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
	"github.com/IQAIcom/mcp-near-agent/internal/scheduler"
)

// Subscription represents one registered (contract, event) watch with its own
// polling schedule and response target.
type Subscription struct {
	// Identification
	ID                 string `json:"id"`
	ContractID         string `json:"contract_id"`
	EventName          string `json:"event_name"`
	ResponseMethodName string `json:"response_method_name"`

	// Polling schedule expression (Go duration or six-field cron step)
	CronExpression string `json:"cron_expression"`

	// Sampling channel used to produce responses for this subscription
	Sampler sampling.Sampler `json:"-"`

	// Lifecycle
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`

	// Handle to the active recurring job, nil until the schedule is started
	Job *scheduler.Job `json:"-"`
}

// SubscriptionKey builds the stable registry key for a (contract, event) pair.
// Two subscriptions may never share a key.
func SubscriptionKey(contractID, eventName string) string {
	return fmt.Sprintf("%s:%s", contractID, eventName)
}

// WatchRequest carries the parameters for creating a new subscription.
type WatchRequest struct {
	ContractID         string
	EventName          string
	ResponseMethodName string
	CronExpression     string
	Sampler            sampling.Sampler
}

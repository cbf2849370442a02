// Package tools exposes the outward-facing watch operations as plain-text
// tool handlers. Responses are written for a human operator and distinguish
// not-watching, stopped, and internal-failure outcomes.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/models"
	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
	"github.com/IQAIcom/mcp-near-agent/internal/watcher"
)

// Service binds the tool operations to the watcher and the sampling channel
// handed to new subscriptions.
type Service struct {
	watcher *watcher.EventWatcher
	sampler sampling.Sampler
}

// NewService creates the tool surface over the given watcher. The sampler is
// attached to every subscription started through StartWatch.
func NewService(w *watcher.EventWatcher, sampler sampling.Sampler) *Service {
	return &Service{watcher: w, sampler: sampler}
}

// StartWatchParams are the inputs of the start-watch operation.
type StartWatchParams struct {
	ContractID         string `json:"contract_id"`
	EventName          string `json:"event_name"`
	ResponseMethodName string `json:"response_method_name,omitempty"`
	CronExpression     string `json:"cron_expression,omitempty"`
}

// StartWatch registers a new subscription and reports the outcome.
func (s *Service) StartWatch(ctx context.Context, params StartWatchParams) (string, error) {
	if params.ContractID == "" {
		return "", fmt.Errorf("contract_id is required")
	}
	if params.EventName == "" {
		return "", fmt.Errorf("event_name is required")
	}

	if s.watcher.IsWatching(params.ContractID, params.EventName) {
		return fmt.Sprintf("Already watching %s for %q events. Stop the existing watch first if you want to change its settings.",
			params.ContractID, params.EventName), nil
	}

	id, err := s.watcher.WatchEvent(ctx, models.WatchRequest{
		ContractID:         params.ContractID,
		EventName:          params.EventName,
		ResponseMethodName: params.ResponseMethodName,
		CronExpression:     params.CronExpression,
		Sampler:            s.sampler,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start watching %s for %q events: %w\n"+
			"Check that the contract id has no typos, the agent account has enough balance for gas, and the RPC endpoint is reachable",
			params.ContractID, params.EventName, err)
	}

	return fmt.Sprintf("Now watching %s for %q events (subscription %s). Responses will be sent via the %q method.",
		params.ContractID, params.EventName, id, responseMethodLabel(params.ResponseMethodName)), nil
}

func responseMethodLabel(method string) string {
	if method == "" {
		return "default"
	}
	return method
}

// StopWatchParams are the inputs of the stop-watch operation.
type StopWatchParams struct {
	ContractID string `json:"contract_id"`
	EventName  string `json:"event_name"`
}

// StopWatch removes a subscription. A pair that was never watched is a
// normal outcome, not an error.
func (s *Service) StopWatch(ctx context.Context, params StopWatchParams) (string, error) {
	if params.ContractID == "" || params.EventName == "" {
		return "", fmt.Errorf("contract_id and event_name are required")
	}

	if !s.watcher.IsWatching(params.ContractID, params.EventName) {
		return fmt.Sprintf("Not currently watching %s for %q events, nothing to stop.",
			params.ContractID, params.EventName), nil
	}

	if !s.watcher.StopWatching(params.ContractID, params.EventName) {
		return "", fmt.Errorf("failed to stop watching %s for %q events due to an internal error; the subscription may be mid-teardown, try again",
			params.ContractID, params.EventName)
	}

	return fmt.Sprintf("Stopped watching %s for %q events.", params.ContractID, params.EventName), nil
}

// ListWatchedParams are the inputs of the list-watched operation.
type ListWatchedParams struct {
	IncludeStats bool `json:"include_stats,omitempty"`
}

// ListWatched renders the current subscriptions, optionally with aggregate
// statistics.
func (s *Service) ListWatched(ctx context.Context, params ListWatchedParams) (string, error) {
	statuses := s.watcher.GetWatchingStatus()

	var b strings.Builder
	if len(statuses) == 0 {
		b.WriteString("No events are currently being watched.\n")
	} else {
		fmt.Fprintf(&b, "Watching %d event(s):\n", len(statuses))
		for _, status := range statuses {
			activity := "active"
			if !status.IsActive {
				activity = "paused"
			}
			lastEvent := "never"
			if status.LastEventAt != nil {
				lastEvent = status.LastEventAt.UTC().Format("2006-01-02 15:04:05 MST")
			}
			fmt.Fprintf(&b, "- %s [%s] last event: %s\n", status.ID, activity, lastEvent)
		}
	}

	if params.IncludeStats {
		stats := s.watcher.GetStats()
		fmt.Fprintf(&b, "\nStatistics since %s:\n", stats.StartTime.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "- subscriptions: %d total, %d active\n", stats.TotalSubscriptions, stats.ActiveSubscriptions)
		fmt.Fprintf(&b, "- events: %d detected, %d processed (%d ok, %d failed)\n",
			stats.EventsDetected, stats.TotalEventsProcessed, stats.SuccessfulEvents, stats.FailedEvents)
		fmt.Fprintf(&b, "- success rate: %.1f%%, average processing time: %s\n",
			stats.SuccessRate, stats.AverageProcessing.Round(time.Millisecond))
	}

	return b.String(), nil
}

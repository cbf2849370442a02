package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/metrics"
	"github.com/IQAIcom/mcp-near-agent/internal/models"
	"github.com/IQAIcom/mcp-near-agent/internal/near"
	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
)

const (
	// samplingTimeout bounds the AI sampling call; nothing else in the
	// processing pipeline carries its own deadline
	samplingTimeout = 2 * time.Minute

	samplingMaxTokens = 1024
)

// ProcessorCallbacks receive lifecycle notifications for one event's
// processing. All fields are optional.
type ProcessorCallbacks struct {
	OnSamplingRequested func(event models.AgentEvent)
	OnSamplingResponse  func(event models.AgentEvent, text string)
	OnResponseSubmitted func(event models.AgentEvent, txHash string)
	OnSuccess           func(result models.ProcessingResult)
	OnFailure           func(result models.ProcessingResult)
}

// EventProcessor turns one detected event into an AI-generated response and
// delivers it back on-chain. It holds no per-event state beyond shared
// counters, so events from independent subscriptions may process
// concurrently.
type EventProcessor struct {
	gas             uint64
	samplingTimeout time.Duration
	callbacks       ProcessorCallbacks

	mu      sync.Mutex
	account near.Account
	stats   models.ProcessorStats
}

// NewEventProcessor creates a processor using the given gas limit for
// response transactions.
func NewEventProcessor(gas uint64) *EventProcessor {
	return &EventProcessor{
		gas:             gas,
		samplingTimeout: samplingTimeout,
	}
}

// SetAccount wires the chain account. Must be called before ProcessEvent.
func (p *EventProcessor) SetAccount(account near.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = account
}

// SetCallbacks registers lifecycle notification sinks.
func (p *EventProcessor) SetCallbacks(callbacks ProcessorCallbacks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = callbacks
}

// GetStats returns a snapshot of the running counters.
func (p *EventProcessor) GetStats() models.ProcessorStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ProcessEvent runs the sample-then-respond pipeline for one event. It never
// panics or returns an error to the caller: every failure is folded into the
// returned ProcessingResult.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event models.AgentEvent, sub *models.Subscription) models.ProcessingResult {
	start := time.Now()

	result := func() models.ProcessingResult {
		p.mu.Lock()
		account := p.account
		callbacks := p.callbacks
		p.mu.Unlock()

		if account == nil {
			return p.failure(event, sub, start, "processor account not set")
		}
		if sub.Sampler == nil {
			return p.failure(event, sub, start, "subscription has no sampling channel")
		}

		if callbacks.OnSamplingRequested != nil {
			callbacks.OnSamplingRequested(event)
		}

		sampleCtx, cancel := context.WithTimeout(ctx, p.samplingTimeout)
		defer cancel()

		response, err := sub.Sampler.RequestSample(sampleCtx, sampling.Request{
			Messages: []sampling.Message{
				{Role: "user", Content: buildPrompt(event)},
			},
			IncludeContext: "thisServer",
			MaxTokens:      samplingMaxTokens,
		})
		if err != nil {
			if sampleCtx.Err() == context.DeadlineExceeded {
				return p.failure(event, sub, start, fmt.Sprintf("sampling timeout after %s", p.samplingTimeout))
			}
			return p.failure(event, sub, start, fmt.Sprintf("sampling failed: %v", err))
		}
		if response == nil || response.Content.Text == "" {
			return p.failure(event, sub, start, "no valid response from sampling channel")
		}
		responseText := response.Content.Text

		if callbacks.OnSamplingResponse != nil {
			callbacks.OnSamplingResponse(event, responseText)
		}

		txHash, err := account.FunctionCall(ctx, sub.ContractID, sub.ResponseMethodName, map[string]interface{}{
			"data_id":   event.RequestID,
			"response":  responseText,
			"timestamp": time.Now().UnixMilli(),
		}, p.gas)
		if err != nil {
			return p.failure(event, sub, start, fmt.Sprintf("failed to submit response transaction: %v", err))
		}
		metrics.ResponsesSubmitted.Inc()

		if callbacks.OnResponseSubmitted != nil {
			callbacks.OnResponseSubmitted(event, txHash)
		}

		slog.Info("Event processed",
			"subscription", sub.ID,
			"request_id", event.RequestID,
			"tx_hash", txHash,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		return models.ProcessingResult{
			Success:        true,
			Response:       responseText,
			RequestID:      event.RequestID,
			TxHash:         txHash,
			Subscription:   sub,
			Event:          event,
			ProcessingTime: time.Since(start),
		}
	}()

	p.recordResult(result)
	return result
}

func (p *EventProcessor) failure(event models.AgentEvent, sub *models.Subscription, start time.Time, message string) models.ProcessingResult {
	slog.Error("Event processing failed",
		"subscription", sub.ID,
		"request_id", event.RequestID,
		"error", message,
	)
	return models.ProcessingResult{
		Success:        false,
		Error:          message,
		RequestID:      event.RequestID,
		Subscription:   sub,
		Event:          event,
		ProcessingTime: time.Since(start),
	}
}

func (p *EventProcessor) recordResult(result models.ProcessingResult) {
	p.mu.Lock()
	p.stats.TotalEventsProcessed++
	p.stats.TotalProcessingTime += result.ProcessingTime
	if result.Success {
		p.stats.SuccessfulEvents++
	} else {
		p.stats.FailedEvents++
	}
	callbacks := p.callbacks
	p.mu.Unlock()

	metrics.EventProcessingDuration.Observe(result.ProcessingTime.Seconds())
	if result.Success {
		metrics.EventsProcessed.WithLabelValues("success").Inc()
		if callbacks.OnSuccess != nil {
			callbacks.OnSuccess(result)
		}
	} else {
		metrics.EventsProcessed.WithLabelValues("failure").Inc()
		metrics.ErrorsTotal.WithLabelValues("processor").Inc()
		if callbacks.OnFailure != nil {
			callbacks.OnFailure(result)
		}
	}
}

// buildPrompt renders the event for the sampling request.
func buildPrompt(event models.AgentEvent) string {
	payload, err := json.MarshalIndent(event.Payload, "", "  ")
	if err != nil {
		payload = []byte("{}")
	}
	return fmt.Sprintf(
		"A blockchain contract emitted an event that needs a response.\n\n"+
			"Event type: %s\nRequest ID: %s\nSender: %s\nDetected at: %s\n\nPayload:\n%s\n\n"+
			"Provide a concise response suitable for writing back on-chain.",
		event.EventType,
		event.RequestID,
		event.Sender,
		event.Timestamp.Format(time.RFC3339),
		payload,
	)
}

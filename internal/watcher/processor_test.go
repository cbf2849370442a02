package watcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/models"
)

func TestProcessEventSuccess(t *testing.T) {
	account := newFakeAccount(100)
	sampler := &fakeSampler{response: "All good."}

	processor := NewEventProcessor(300_000_000_000_000)
	processor.SetAccount(account)

	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = sampler
	event := models.NewAgentEvent("ping", "42", "alice.testnet", map[string]interface{}{"request_id": "42"})

	result := processor.ProcessEvent(context.Background(), event, sub)
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
	if result.Response != "All good." {
		t.Errorf("expected response text, got %q", result.Response)
	}
	if result.RequestID != "42" {
		t.Errorf("expected request id 42, got %q", result.RequestID)
	}
	if result.TxHash == "" {
		t.Error("expected a transaction hash")
	}

	if len(account.functionCalls) != 1 {
		t.Fatalf("expected 1 function call, got %d", len(account.functionCalls))
	}
	call := account.functionCalls[0]
	if call.ContractID != "c.testnet" || call.MethodName != "agent_response" {
		t.Errorf("unexpected call target: %s.%s", call.ContractID, call.MethodName)
	}
	if call.Args["data_id"] != "42" {
		t.Errorf("expected data_id 42, got %v", call.Args["data_id"])
	}
	if call.Args["response"] != "All good." {
		t.Errorf("expected response arg, got %v", call.Args["response"])
	}
	if _, ok := call.Args["timestamp"].(int64); !ok {
		t.Errorf("expected int64 timestamp, got %T", call.Args["timestamp"])
	}
	if call.Gas != 300_000_000_000_000 {
		t.Errorf("unexpected gas: %d", call.Gas)
	}
}

func TestProcessEventRequiresAccount(t *testing.T) {
	processor := NewEventProcessor(1)
	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = &fakeSampler{response: "ok"}

	result := processor.ProcessEvent(context.Background(), models.AgentEvent{}, sub)
	if result.Success {
		t.Fatal("expected failure without an account")
	}
	if !strings.Contains(result.Error, "account not set") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestProcessEventSamplingTimeout(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)
	processor.samplingTimeout = 50 * time.Millisecond

	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = &fakeSampler{blockOnCtx: true}

	start := time.Now()
	result := processor.ProcessEvent(context.Background(), models.AgentEvent{RequestID: "42"}, sub)
	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(result.Error, "timeout") {
		t.Errorf("expected timeout in error, got: %s", result.Error)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took too long: %s", elapsed)
	}
	if len(account.functionCalls) != 0 {
		t.Error("no transaction may be submitted after a sampling failure")
	}
}

func TestProcessEventSamplingError(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)

	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = &fakeSampler{err: errors.New("transport down")}

	result := processor.ProcessEvent(context.Background(), models.AgentEvent{RequestID: "42"}, sub)
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "sampling failed") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestProcessEventEmptyResponse(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)

	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = &fakeSampler{response: ""}

	result := processor.ProcessEvent(context.Background(), models.AgentEvent{RequestID: "42"}, sub)
	if result.Success {
		t.Fatal("expected failure for empty response")
	}
	if !strings.Contains(result.Error, "no valid response") {
		t.Errorf("unexpected error: %s", result.Error)
	}
}

func TestProcessEventStats(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)

	okSub := testSubscription("c.testnet", "ping")
	okSub.Sampler = &fakeSampler{response: "ok"}
	failSub := testSubscription("c.testnet", "pong")
	failSub.Sampler = &fakeSampler{err: errors.New("down")}

	processor.ProcessEvent(context.Background(), models.AgentEvent{}, okSub)
	processor.ProcessEvent(context.Background(), models.AgentEvent{}, okSub)
	processor.ProcessEvent(context.Background(), models.AgentEvent{}, failSub)

	stats := processor.GetStats()
	if stats.TotalEventsProcessed != 3 {
		t.Errorf("expected 3 processed, got %d", stats.TotalEventsProcessed)
	}
	if stats.SuccessfulEvents != 2 || stats.FailedEvents != 1 {
		t.Errorf("unexpected outcome split: %+v", stats)
	}
}

func TestProcessEventLifecycleCallbacks(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)

	var order []string
	processor.SetCallbacks(ProcessorCallbacks{
		OnSamplingRequested: func(models.AgentEvent) { order = append(order, "requested") },
		OnSamplingResponse:  func(models.AgentEvent, string) { order = append(order, "sampled") },
		OnResponseSubmitted: func(models.AgentEvent, string) { order = append(order, "submitted") },
		OnSuccess:           func(models.ProcessingResult) { order = append(order, "success") },
		OnFailure:           func(models.ProcessingResult) { order = append(order, "failure") },
	})

	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = &fakeSampler{response: "ok"}
	processor.ProcessEvent(context.Background(), models.AgentEvent{}, sub)

	expected := []string{"requested", "sampled", "submitted", "success"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, order)
		}
	}
}

func TestProcessEventPromptContents(t *testing.T) {
	account := newFakeAccount(100)
	processor := NewEventProcessor(1)
	processor.SetAccount(account)

	sampler := &fakeSampler{response: "ok"}
	sub := testSubscription("c.testnet", "ping")
	sub.Sampler = sampler

	event := models.NewAgentEvent("ping", "42", "alice.testnet", map[string]interface{}{"value": "7"})
	processor.ProcessEvent(context.Background(), event, sub)

	sampler.mu.Lock()
	req := sampler.lastRequest
	sampler.mu.Unlock()

	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("expected one user message, got %+v", req.Messages)
	}
	prompt := req.Messages[0].Content
	for _, want := range []string{"ping", "42", "alice.testnet", `"value"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if req.IncludeContext != "thisServer" {
		t.Errorf("expected thisServer context, got %q", req.IncludeContext)
	}
	if req.MaxTokens == 0 {
		t.Error("expected a max token bound")
	}
}

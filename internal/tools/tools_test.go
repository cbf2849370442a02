package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/IQAIcom/mcp-near-agent/internal/config"
	"github.com/IQAIcom/mcp-near-agent/internal/near"
	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
	"github.com/IQAIcom/mcp-near-agent/internal/scheduler"
	"github.com/IQAIcom/mcp-near-agent/internal/watcher"
)

type stubAccount struct{}

func (stubAccount) AccountID() string { return "agent.testnet" }
func (stubAccount) BlockByFinality(ctx context.Context, finality string) (*near.Block, error) {
	return &near.Block{Header: near.BlockHeader{Height: 100}}, nil
}
func (stubAccount) BlockByHeight(ctx context.Context, height uint64) (*near.Block, error) {
	return &near.Block{Header: near.BlockHeader{Height: height}}, nil
}
func (stubAccount) ChunkByHash(ctx context.Context, chunkHash string) (*near.Chunk, error) {
	return &near.Chunk{}, nil
}
func (stubAccount) TxStatus(ctx context.Context, txHash, senderID string) (*near.TxStatus, error) {
	return &near.TxStatus{}, nil
}
func (stubAccount) FunctionCall(ctx context.Context, contractID, methodName string, args map[string]interface{}, gas uint64) (string, error) {
	return "tx-hash", nil
}

type stubProvider struct {
	mu    sync.Mutex
	ready bool
}

func (p *stubProvider) Initialize(ctx context.Context) (near.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = true
	return stubAccount{}, nil
}
func (p *stubProvider) GetAccount() near.Account { return stubAccount{} }

func (p *stubProvider) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *stubProvider) ValidateConnection(ctx context.Context) bool { return true }

type stubLookup struct{}

func (stubLookup) TxHashForReceipt(ctx context.Context, receiptID string) (string, error) {
	return "", fmt.Errorf("unknown receipt")
}

type stubSampler struct{}

func (stubSampler) RequestSample(ctx context.Context, req sampling.Request) (*sampling.Response, error) {
	return &sampling.Response{Content: sampling.Content{Type: "text", Text: "ok"}}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	sched := scheduler.New()
	t.Cleanup(sched.StopAll)

	cfg := &config.Config{
		AccountID:             "agent.testnet",
		NetworkID:             "testnet",
		GasLimit:              config.DefaultGas,
		DefaultCronExpression: "1h",
		DefaultResponseMethod: "agent_response",
	}
	w := watcher.New(&stubProvider{}, sched, watcher.NewBlockPoller(stubLookup{}), watcher.NewEventProcessor(cfg.GasLimit), cfg)
	t.Cleanup(w.Cleanup)
	return NewService(w, stubSampler{})
}

func TestStartWatch(t *testing.T) {
	service := newTestService(t)

	response, err := service.StartWatch(context.Background(), StartWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	})
	if err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}
	if !strings.Contains(response, "c.testnet:ping") {
		t.Errorf("expected subscription id in response: %s", response)
	}

	// A second start for the same pair is a notice, not an error
	response, err = service.StartWatch(context.Background(), StartWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	})
	if err != nil {
		t.Fatalf("duplicate StartWatch should not error: %v", err)
	}
	if !strings.Contains(response, "Already watching") {
		t.Errorf("expected already-watching notice: %s", response)
	}
}

func TestStartWatchValidation(t *testing.T) {
	service := newTestService(t)

	if _, err := service.StartWatch(context.Background(), StartWatchParams{EventName: "ping"}); err == nil {
		t.Error("expected error for missing contract_id")
	}
	if _, err := service.StartWatch(context.Background(), StartWatchParams{ContractID: "c.testnet"}); err == nil {
		t.Error("expected error for missing event_name")
	}
}

func TestStartWatchFailureHint(t *testing.T) {
	service := newTestService(t)

	_, err := service.StartWatch(context.Background(), StartWatchParams{
		ContractID:     "c.testnet",
		EventName:      "ping",
		CronExpression: "not-a-schedule",
	})
	if err == nil {
		t.Fatal("expected failure for a bad schedule")
	}
	for _, hint := range []string{"typos", "balance", "reachable"} {
		if !strings.Contains(err.Error(), hint) {
			t.Errorf("expected actionable hint %q in: %v", hint, err)
		}
	}
}

func TestStopWatch(t *testing.T) {
	service := newTestService(t)

	response, err := service.StopWatch(context.Background(), StopWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	})
	if err != nil {
		t.Fatalf("StopWatch on unknown pair should not error: %v", err)
	}
	if !strings.Contains(response, "Not currently watching") {
		t.Errorf("expected not-watching notice: %s", response)
	}

	if _, err := service.StartWatch(context.Background(), StartWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	}); err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}

	response, err = service.StopWatch(context.Background(), StopWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	})
	if err != nil {
		t.Fatalf("StopWatch failed: %v", err)
	}
	if !strings.Contains(response, "Stopped watching") {
		t.Errorf("expected stopped notice: %s", response)
	}
}

func TestListWatched(t *testing.T) {
	service := newTestService(t)

	response, err := service.ListWatched(context.Background(), ListWatchedParams{})
	if err != nil {
		t.Fatalf("ListWatched failed: %v", err)
	}
	if !strings.Contains(response, "No events are currently being watched") {
		t.Errorf("expected empty notice: %s", response)
	}

	if _, err := service.StartWatch(context.Background(), StartWatchParams{
		ContractID: "c.testnet",
		EventName:  "ping",
	}); err != nil {
		t.Fatalf("StartWatch failed: %v", err)
	}

	response, err = service.ListWatched(context.Background(), ListWatchedParams{IncludeStats: true})
	if err != nil {
		t.Fatalf("ListWatched failed: %v", err)
	}
	for _, want := range []string{"c.testnet:ping", "active", "never", "Statistics", "success rate"} {
		if !strings.Contains(response, want) {
			t.Errorf("expected %q in listing:\n%s", want, response)
		}
	}
}

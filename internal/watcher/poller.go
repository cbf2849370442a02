package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/metrics"
	"github.com/IQAIcom/mcp-near-agent/internal/models"
	"github.com/IQAIcom/mcp-near-agent/internal/near"
)

const (
	// blockBatchSize is how many heights are fetched concurrently per batch
	blockBatchSize = 5

	// batchDelay is the pause between batches to avoid hammering the RPC
	batchDelay = 100 * time.Millisecond

	// dedupHighWater caps the seen-transaction set; on overflow only the
	// most recent dedupRetain entries survive
	dedupHighWater = 1000
	dedupRetain    = 500
)

// TxLookup resolves a receipt id to its originating transaction hash.
// Receipts alone do not carry execution logs, so this lookup recovers the
// owning transaction before its outcomes are scanned.
type TxLookup interface {
	TxHashForReceipt(ctx context.Context, receiptID string) (string, error)
}

// blockProcessingState is the per-subscription polling cursor. It is mutated
// only by the poller and only while the subscription's in-flight flag is held.
type blockProcessingState struct {
	lastBlockHeight uint64
	isProcessing    bool
	seenTxHashes    map[string]struct{}
	seenTxOrder     []string
}

func (s *blockProcessingState) markSeen(txHash string) {
	s.seenTxHashes[txHash] = struct{}{}
	s.seenTxOrder = append(s.seenTxOrder, txHash)
	if len(s.seenTxOrder) > dedupHighWater {
		evicted := s.seenTxOrder[:len(s.seenTxOrder)-dedupRetain]
		for _, hash := range evicted {
			delete(s.seenTxHashes, hash)
		}
		retained := make([]string, dedupRetain)
		copy(retained, s.seenTxOrder[len(s.seenTxOrder)-dedupRetain:])
		s.seenTxOrder = retained
	}
}

// PollerStats is a read-only snapshot of the poller's per-subscription state.
type PollerStats struct {
	Subscriptions int               `json:"subscriptions"`
	Cursors       map[string]uint64 `json:"cursors"`
}

// BlockPoller advances per-subscription block cursors and detects matching
// contract events in the traversed range. One poller instance serves all
// subscriptions; each has independent state.
type BlockPoller struct {
	lookup TxLookup

	mu      sync.Mutex
	account near.Account
	states  map[string]*blockProcessingState

	// onEvent receives each detected event individually. onBlockError
	// receives per-unit faults; neither aborts the containing poll.
	onEvent      func(sub *models.Subscription, event models.AgentEvent)
	onBlockError func(sub *models.Subscription, height uint64, err error)
}

// NewBlockPoller creates a poller using the given explorer lookup.
func NewBlockPoller(lookup TxLookup) *BlockPoller {
	return &BlockPoller{
		lookup: lookup,
		states: make(map[string]*blockProcessingState),
	}
}

// SetAccount wires the chain account. Must be called before PollForEvents.
func (p *BlockPoller) SetAccount(account near.Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = account
}

// SetCallbacks registers the event and error sinks. Callbacks may be invoked
// concurrently from batch workers.
func (p *BlockPoller) SetCallbacks(
	onEvent func(sub *models.Subscription, event models.AgentEvent),
	onBlockError func(sub *models.Subscription, height uint64, err error),
) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEvent = onEvent
	p.onBlockError = onBlockError
}

// InitializeSubscription idempotently creates polling state for the id.
func (p *BlockPoller) InitializeSubscription(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.states[id]; exists {
		return
	}
	p.states[id] = &blockProcessingState{
		seenTxHashes: make(map[string]struct{}),
	}
}

// RemoveSubscription discards the polling state for the id.
func (p *BlockPoller) RemoveSubscription(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.states, id)
	metrics.CurrentBlockHeight.DeleteLabelValues(id)
}

// IsProcessing reports whether a poll is currently in flight for the id.
func (p *BlockPoller) IsProcessing(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, exists := p.states[id]
	return exists && state.isProcessing
}

// GetStats returns a snapshot of the poller's cursors.
func (p *BlockPoller) GetStats() PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := PollerStats{
		Subscriptions: len(p.states),
		Cursors:       make(map[string]uint64, len(p.states)),
	}
	for id, state := range p.states {
		stats.Cursors[id] = state.lastBlockHeight
	}
	return stats
}

// PollForEvents advances the subscription's cursor to the latest final block,
// scanning each height in between for matching events. Overlapping calls for
// the same subscription are rejected up front and return zero counts; the
// in-flight flag is always released, error or not.
func (p *BlockPoller) PollForEvents(ctx context.Context, sub *models.Subscription) (models.PollResult, error) {
	p.mu.Lock()
	account := p.account
	state, exists := p.states[sub.ID]
	if account == nil {
		p.mu.Unlock()
		return models.PollResult{}, fmt.Errorf("poller account not set")
	}
	if !exists {
		p.mu.Unlock()
		return models.PollResult{}, fmt.Errorf("subscription %s not initialized", sub.ID)
	}
	if state.isProcessing {
		p.mu.Unlock()
		return models.PollResult{}, nil
	}
	state.isProcessing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		state.isProcessing = false
		p.mu.Unlock()
	}()

	start := time.Now()
	defer func() {
		metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	finalBlock, err := account.BlockByFinality(ctx, near.FinalityFinal)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("poller").Inc()
		return models.PollResult{}, fmt.Errorf("failed to fetch final block: %w", err)
	}
	finalHeight := finalBlock.Header.Height

	p.mu.Lock()
	if state.lastBlockHeight == 0 {
		// First poll only looks forward from now, never replays history
		state.lastBlockHeight = finalHeight - 1
	}
	fromHeight := state.lastBlockHeight + 1
	p.mu.Unlock()

	if fromHeight > finalHeight {
		return models.PollResult{}, nil
	}

	slog.Debug("Polling block range",
		"subscription", sub.ID,
		"from", fromHeight,
		"to", finalHeight,
	)

	var result models.PollResult
	var eventsFound atomic.Int64

	for batchStart := fromHeight; batchStart <= finalHeight; batchStart += blockBatchSize {
		batchEnd := batchStart + blockBatchSize - 1
		if batchEnd > finalHeight {
			batchEnd = finalHeight
		}

		var wg sync.WaitGroup
		for height := batchStart; height <= batchEnd; height++ {
			wg.Add(1)
			go func(h uint64) {
				defer wg.Done()
				eventsFound.Add(int64(p.processBlock(ctx, account, sub, state, h)))
			}(height)
		}
		wg.Wait()

		result.BlocksProcessed += int(batchEnd - batchStart + 1)
		metrics.BlocksProcessed.Add(float64(batchEnd - batchStart + 1))

		p.mu.Lock()
		state.lastBlockHeight = batchEnd
		p.mu.Unlock()
		metrics.CurrentBlockHeight.WithLabelValues(sub.ID).Set(float64(batchEnd))

		if batchEnd < finalHeight {
			time.Sleep(batchDelay)
		}
	}

	result.EventsFound = int(eventsFound.Load())
	return result, nil
}

// processBlock scans one height for matching events and returns how many it
// emitted. All faults are reported through onBlockError; nothing propagates.
func (p *BlockPoller) processBlock(ctx context.Context, account near.Account, sub *models.Subscription, state *blockProcessingState, height uint64) int {
	block, err := account.BlockByHeight(ctx, height)
	if err != nil {
		p.reportBlockError(sub, height, fmt.Errorf("failed to fetch block: %w", err))
		return 0
	}

	found := 0
	for _, chunkRef := range block.Chunks {
		chunk, err := account.ChunkByHash(ctx, chunkRef.ChunkHash)
		if err != nil {
			p.reportBlockError(sub, height, fmt.Errorf("failed to fetch chunk %s: %w", chunkRef.ChunkHash, err))
			continue
		}

		for _, receipt := range chunk.Receipts {
			if receipt.ReceiverID != sub.ContractID {
				continue
			}
			found += p.processReceipt(ctx, account, sub, state, height, receipt)
		}
	}
	return found
}

// processReceipt resolves one contract-addressed receipt to its transaction
// and scans that transaction's logs, once per transaction hash.
func (p *BlockPoller) processReceipt(ctx context.Context, account near.Account, sub *models.Subscription, state *blockProcessingState, height uint64, receipt near.Receipt) int {
	txHash, err := p.lookup.TxHashForReceipt(ctx, receipt.ReceiptID)
	if err != nil {
		p.reportBlockError(sub, height, fmt.Errorf("failed to resolve receipt %s: %w", receipt.ReceiptID, err))
		return 0
	}

	// The same transaction can surface through multiple receipts across
	// chunks and blocks; scan its logs at most once.
	p.mu.Lock()
	if _, seen := state.seenTxHashes[txHash]; seen {
		p.mu.Unlock()
		return 0
	}
	state.markSeen(txHash)
	p.mu.Unlock()

	txStatus, err := account.TxStatus(ctx, txHash, sub.ContractID)
	if err != nil {
		p.reportBlockError(sub, height, fmt.Errorf("failed to fetch transaction %s: %w", txHash, err))
		return 0
	}

	found := 0
	for _, outcome := range txStatus.ReceiptsOutcome {
		for _, line := range outcome.Outcome.Logs {
			event, ok := parseEventLog(line, sub.EventName, receipt.PredecessorID)
			if !ok {
				continue
			}
			found++
			metrics.EventsDetected.WithLabelValues(event.EventType).Inc()
			slog.Info("Event detected",
				"subscription", sub.ID,
				"event_type", event.EventType,
				"request_id", event.RequestID,
				"block_height", height,
				"tx_hash", txHash,
			)
			p.emitEvent(sub, event)
		}
	}
	return found
}

func (p *BlockPoller) emitEvent(sub *models.Subscription, event models.AgentEvent) {
	p.mu.Lock()
	onEvent := p.onEvent
	p.mu.Unlock()
	if onEvent != nil {
		onEvent(sub, event)
	}
}

func (p *BlockPoller) reportBlockError(sub *models.Subscription, height uint64, err error) {
	metrics.ErrorsTotal.WithLabelValues("poller").Inc()
	slog.Warn("Block processing error",
		"subscription", sub.ID,
		"block_height", height,
		"error", err,
	)
	p.mu.Lock()
	onBlockError := p.onBlockError
	p.mu.Unlock()
	if onBlockError != nil {
		onBlockError(sub, height, err)
	}
}

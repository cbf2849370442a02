package watcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/IQAIcom/mcp-near-agent/internal/near"
	"github.com/IQAIcom/mcp-near-agent/internal/sampling"
)

// fakeAccount is a scripted chain backend: blocks, chunks and transactions
// are looked up from maps, function calls are recorded.
type fakeAccount struct {
	mu          sync.Mutex
	finalHeight uint64
	blocks      map[uint64]*near.Block
	chunks      map[string]*near.Chunk
	txs         map[string]*near.TxStatus

	blockCalls    int
	txStatusCalls int
	functionCalls []functionCallRecord
}

type functionCallRecord struct {
	ContractID string
	MethodName string
	Args       map[string]interface{}
	Gas        uint64
}

func newFakeAccount(finalHeight uint64) *fakeAccount {
	return &fakeAccount{
		finalHeight: finalHeight,
		blocks:      make(map[uint64]*near.Block),
		chunks:      make(map[string]*near.Chunk),
		txs:         make(map[string]*near.TxStatus),
	}
}

func (a *fakeAccount) AccountID() string { return "agent.testnet" }

func (a *fakeAccount) BlockByFinality(ctx context.Context, finality string) (*near.Block, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &near.Block{Header: near.BlockHeader{Height: a.finalHeight}}, nil
}

func (a *fakeAccount) BlockByHeight(ctx context.Context, height uint64) (*near.Block, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blockCalls++
	if block, ok := a.blocks[height]; ok {
		return block, nil
	}
	return &near.Block{Header: near.BlockHeader{Height: height}}, nil
}

func (a *fakeAccount) ChunkByHash(ctx context.Context, chunkHash string) (*near.Chunk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if chunk, ok := a.chunks[chunkHash]; ok {
		return chunk, nil
	}
	return nil, fmt.Errorf("unknown chunk %s", chunkHash)
}

func (a *fakeAccount) TxStatus(ctx context.Context, txHash, senderID string) (*near.TxStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.txStatusCalls++
	if tx, ok := a.txs[txHash]; ok {
		return tx, nil
	}
	return nil, fmt.Errorf("unknown transaction %s", txHash)
}

func (a *fakeAccount) FunctionCall(ctx context.Context, contractID, methodName string, args map[string]interface{}, gas uint64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.functionCalls = append(a.functionCalls, functionCallRecord{
		ContractID: contractID,
		MethodName: methodName,
		Args:       args,
		Gas:        gas,
	})
	return fmt.Sprintf("fake-tx-%d", len(a.functionCalls)), nil
}

// addEventBlock scripts one block at height containing a single receipt for
// receiverID whose transaction carries the given log lines.
func (a *fakeAccount) addEventBlock(height uint64, receiptID, receiverID, sender, txHash string, logs []string) {
	chunkHash := fmt.Sprintf("chunk-%d", height)
	a.blocks[height] = &near.Block{
		Header: near.BlockHeader{Height: height},
		Chunks: []near.ChunkRef{{ChunkHash: chunkHash}},
	}
	a.chunks[chunkHash] = &near.Chunk{
		Receipts: []near.Receipt{
			{ReceiptID: receiptID, ReceiverID: receiverID, PredecessorID: sender},
		},
	}
	a.txs[txHash] = &near.TxStatus{
		Transaction: near.TransactionInfo{Hash: txHash},
		ReceiptsOutcome: []near.ReceiptOutcome{
			{ID: receiptID, Outcome: near.ExecutionOutcome{Logs: logs}},
		},
	}
}

// fakeLookup resolves receipt ids from a static map.
type fakeLookup struct {
	mu      sync.Mutex
	mapping map[string]string
	calls   int
}

func newFakeLookup(mapping map[string]string) *fakeLookup {
	return &fakeLookup{mapping: mapping}
}

func (l *fakeLookup) TxHashForReceipt(ctx context.Context, receiptID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if hash, ok := l.mapping[receiptID]; ok {
		return hash, nil
	}
	return "", fmt.Errorf("no transaction found for receipt %s", receiptID)
}

// fakeSampler returns a canned response, an error, or blocks until the
// context expires.
type fakeSampler struct {
	response    string
	err         error
	blockOnCtx  bool
	lastRequest sampling.Request
	mu          sync.Mutex
}

func (s *fakeSampler) RequestSample(ctx context.Context, req sampling.Request) (*sampling.Response, error) {
	s.mu.Lock()
	s.lastRequest = req
	s.mu.Unlock()

	if s.blockOnCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &sampling.Response{
		Content: sampling.Content{Type: "text", Text: s.response},
	}, nil
}

// fakeProvider hands out a pre-built account.
type fakeProvider struct {
	account   near.Account
	validates bool
	initErr   error

	mu    sync.Mutex
	ready bool
}

func (p *fakeProvider) Initialize(ctx context.Context) (near.Account, error) {
	if p.initErr != nil {
		return nil, p.initErr
	}
	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	return p.account, nil
}

func (p *fakeProvider) GetAccount() near.Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return nil
	}
	return p.account
}

func (p *fakeProvider) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *fakeProvider) ValidateConnection(ctx context.Context) bool {
	return p.validates
}

package near

import "encoding/json"

// Finality levels accepted by the block RPC method.
const (
	FinalityFinal      = "final"
	FinalityOptimistic = "optimistic"
)

// BlockHeader is the subset of the NEAR block header the agent consumes.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	Timestamp uint64 `json:"timestamp"` // nanoseconds since epoch
}

// ChunkRef identifies one chunk within a block.
type ChunkRef struct {
	ChunkHash     string `json:"chunk_hash"`
	ShardID       uint64 `json:"shard_id"`
	HeightCreated uint64 `json:"height_created"`
}

// Block is a NEAR block with its chunk references.
type Block struct {
	Header BlockHeader `json:"header"`
	Chunks []ChunkRef  `json:"chunks"`
}

// Receipt is a chain execution unit addressed to a specific account.
type Receipt struct {
	ReceiptID     string `json:"receipt_id"`
	ReceiverID    string `json:"receiver_id"`
	PredecessorID string `json:"predecessor_id"`
}

// ChunkHeader is the subset of a chunk header the agent consumes.
type ChunkHeader struct {
	ChunkHash string `json:"chunk_hash"`
	ShardID   uint64 `json:"shard_id"`
}

// Chunk holds the receipts delivered in one shard of a block.
type Chunk struct {
	Header   ChunkHeader `json:"header"`
	Receipts []Receipt   `json:"receipts"`
}

// ExecutionOutcome carries the log lines produced by one receipt execution.
type ExecutionOutcome struct {
	Logs       []string        `json:"logs"`
	ReceiptIDs []string        `json:"receipt_ids"`
	GasBurnt   uint64          `json:"gas_burnt"`
	Status     json.RawMessage `json:"status"`
}

// ReceiptOutcome pairs a receipt id with its execution outcome.
type ReceiptOutcome struct {
	ID      string           `json:"id"`
	Outcome ExecutionOutcome `json:"outcome"`
}

// TransactionInfo is the transaction portion of a tx status response.
type TransactionInfo struct {
	Hash       string `json:"hash"`
	SignerID   string `json:"signer_id"`
	ReceiverID string `json:"receiver_id"`
	Nonce      uint64 `json:"nonce"`
}

// TxStatus is the result of the tx RPC method: the transaction together with
// the execution outcomes of every receipt it spawned.
type TxStatus struct {
	Status          json.RawMessage  `json:"status"`
	Transaction     TransactionInfo  `json:"transaction"`
	ReceiptsOutcome []ReceiptOutcome `json:"receipts_outcome"`
}

// AccessKeyView is the result of a view_access_key query.
type AccessKeyView struct {
	Nonce       uint64 `json:"nonce"`
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
}

// SyncInfo is the sync portion of a node status response.
type SyncInfo struct {
	LatestBlockHeight uint64 `json:"latest_block_height"`
	LatestBlockHash   string `json:"latest_block_hash"`
	Syncing           bool   `json:"syncing"`
}

// NodeStatus is the result of the status RPC method.
type NodeStatus struct {
	ChainID  string   `json:"chain_id"`
	SyncInfo SyncInfo `json:"sync_info"`
}

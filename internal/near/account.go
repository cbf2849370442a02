package near

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Account is the chain capability consumed by the watcher core: read-only
// state queries plus function-call transactions signed by this account.
type Account interface {
	AccountID() string
	BlockByFinality(ctx context.Context, finality string) (*Block, error)
	BlockByHeight(ctx context.Context, height uint64) (*Block, error)
	ChunkByHash(ctx context.Context, chunkHash string) (*Chunk, error)
	TxStatus(ctx context.Context, txHash, senderID string) (*TxStatus, error)
	FunctionCall(ctx context.Context, contractID, methodName string, args map[string]interface{}, gas uint64) (string, error)
}

// RPCAccount implements Account on top of the JSON-RPC client with a local
// ed25519 key pair. Nonce sequencing is handled here, per access key, so
// concurrent function calls from independent subscriptions do not need
// client-side serialization by callers.
type RPCAccount struct {
	accountID string
	client    *Client
	keyPair   *KeyPair
}

// NewRPCAccount creates an account bound to the given RPC client and key.
func NewRPCAccount(accountID string, client *Client, keyPair *KeyPair) *RPCAccount {
	return &RPCAccount{
		accountID: accountID,
		client:    client,
		keyPair:   keyPair,
	}
}

// AccountID returns the account identifier.
func (a *RPCAccount) AccountID() string {
	return a.accountID
}

// BlockByFinality fetches the latest block at the given finality.
func (a *RPCAccount) BlockByFinality(ctx context.Context, finality string) (*Block, error) {
	return a.client.BlockByFinality(ctx, finality)
}

// BlockByHeight fetches the block at the given height.
func (a *RPCAccount) BlockByHeight(ctx context.Context, height uint64) (*Block, error) {
	return a.client.BlockByHeight(ctx, height)
}

// ChunkByHash fetches one chunk with its receipts.
func (a *RPCAccount) ChunkByHash(ctx context.Context, chunkHash string) (*Chunk, error) {
	return a.client.ChunkByHash(ctx, chunkHash)
}

// TxStatus fetches a transaction with its receipt outcomes.
func (a *RPCAccount) TxStatus(ctx context.Context, txHash, senderID string) (*TxStatus, error) {
	return a.client.TxStatus(ctx, txHash, senderID)
}

// FunctionCall signs and submits a function-call transaction and returns the
// transaction hash.
func (a *RPCAccount) FunctionCall(ctx context.Context, contractID, methodName string, args map[string]interface{}, gas uint64) (string, error) {
	argBytes, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal args for %s.%s: %w", contractID, methodName, err)
	}

	// Fresh nonce and a recent block hash anchor the transaction
	accessKey, err := a.client.ViewAccessKey(ctx, a.accountID, a.keyPair.PublicKeyString())
	if err != nil {
		return "", fmt.Errorf("failed to fetch access key for %s: %w", a.accountID, err)
	}

	block, err := a.client.BlockByFinality(ctx, FinalityFinal)
	if err != nil {
		return "", fmt.Errorf("failed to fetch block hash anchor: %w", err)
	}
	blockHash, err := DecodeBase58Hash(block.Header.Hash)
	if err != nil {
		return "", fmt.Errorf("invalid block hash %q: %w", block.Header.Hash, err)
	}

	tx := &Transaction{
		SignerID:   a.accountID,
		PublicKey:  PublicKey{KeyType: keyTypeED25519, Data: a.keyPair.PublicKeyBytes()},
		Nonce:      accessKey.Nonce + 1,
		ReceiverID: contractID,
		BlockHash:  blockHash,
		Actions:    []Action{NewFunctionCallAction(methodName, argBytes, gas, 0)},
	}

	raw, err := tx.Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to serialize %s.%s transaction: %w", contractID, methodName, err)
	}
	digest := sha256.Sum256(raw)
	signature := a.keyPair.Sign(digest[:])
	signedRaw, err := tx.SerializeSigned(signature)
	if err != nil {
		return "", fmt.Errorf("failed to serialize signed %s.%s transaction: %w", contractID, methodName, err)
	}
	signed := base64.StdEncoding.EncodeToString(signedRaw)

	result, err := a.client.BroadcastTxCommit(ctx, signed)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast %s.%s: %w", contractID, methodName, err)
	}
	return result.Transaction.Hash, nil
}

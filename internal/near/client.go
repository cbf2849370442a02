package near

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/IQAIcom/mcp-near-agent/internal/near/retry"
)

// Client is a thin NEAR JSON-RPC 2.0 client covering the methods the agent
// consumes: block/chunk/tx reads, access key queries, node status, and
// signed transaction broadcast. Read calls are guarded by a retry strategy;
// broadcasts run exactly once so a flaky transport cannot double-submit.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retry      retry.Strategy
}

// NewClient creates a new Client for the given RPC endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: retry.NewStrategy(retry.LoadConfig()),
	}
}

// callRead performs a read-only RPC call under the retry strategy.
func (c *Client) callRead(ctx context.Context, method string, params interface{}, out interface{}) error {
	return c.retry.Execute(ctx, func() error {
		return c.call(ctx, method, params, out)
	})
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Name    string          `json:"name"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC request and unmarshals the result into out.
func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      "dontcare",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc %s returned status %d: %s", method, resp.StatusCode, payload)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(payload, &rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s error %s: %s %s", method, rpcResp.Error.Name, rpcResp.Error.Message, rpcResp.Error.Data)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

// BlockByFinality fetches the latest block at the given finality level.
func (c *Client) BlockByFinality(ctx context.Context, finality string) (*Block, error) {
	var block Block
	params := map[string]interface{}{"finality": finality}
	if err := c.callRead(ctx, "block", params, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// BlockByHeight fetches the block at the given height.
func (c *Client) BlockByHeight(ctx context.Context, height uint64) (*Block, error) {
	var block Block
	params := map[string]interface{}{"block_id": height}
	if err := c.callRead(ctx, "block", params, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// ChunkByHash fetches one chunk with its receipts.
func (c *Client) ChunkByHash(ctx context.Context, chunkHash string) (*Chunk, error) {
	var chunk Chunk
	params := map[string]interface{}{"chunk_id": chunkHash}
	if err := c.callRead(ctx, "chunk", params, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// TxStatus fetches a transaction with the execution outcomes of all its
// receipts. senderID routes the query to the right shard.
func (c *Client) TxStatus(ctx context.Context, txHash, senderID string) (*TxStatus, error) {
	var status TxStatus
	params := map[string]interface{}{
		"tx_hash":           txHash,
		"sender_account_id": senderID,
	}
	if err := c.callRead(ctx, "tx", params, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ViewAccessKey returns the current nonce for an account's access key.
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	var view AccessKeyView
	params := map[string]interface{}{
		"request_type": "view_access_key",
		"finality":     FinalityFinal,
		"account_id":   accountID,
		"public_key":   publicKey,
	}
	if err := c.callRead(ctx, "query", params, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// Status returns the node status, used for connection validation.
func (c *Client) Status(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := c.callRead(ctx, "status", []interface{}{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// BroadcastTxCommit submits a signed transaction and waits for execution.
func (c *Client) BroadcastTxCommit(ctx context.Context, signedTxBase64 string) (*TxStatus, error) {
	var status TxStatus
	if err := c.call(ctx, "broadcast_tx_commit", []string{signedTxBase64}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

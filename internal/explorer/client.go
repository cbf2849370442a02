package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Base URLs for the NearBlocks search API by network tier.
const (
	mainnetBaseURL = "https://api.nearblocks.io"
	testnetBaseURL = "https://api-testnet.nearblocks.io"
)

// Client resolves receipt ids to their originating transaction hashes via
// the NearBlocks search API. Chain receipts alone do not carry execution
// logs, so this lookup is the bridge back to the owning transaction.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a lookup client for the given network id
// ( mainnet or testnet ).
func NewClient(networkID string) *Client {
	baseURL := testnetBaseURL
	if networkID == "mainnet" {
		baseURL = mainnetBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a lookup client against an explicit endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type searchResponse struct {
	Receipts []struct {
		ReceiptID                     string `json:"receipt_id"`
		OriginatedFromTransactionHash string `json:"originated_from_transaction_hash"`
	} `json:"receipts"`
}

// TxHashForReceipt returns the transaction hash that produced the given
// receipt. A transport failure and an unknown receipt are both errors; the
// caller treats either as a per-receipt fault.
func (c *Client) TxHashForReceipt(ctx context.Context, receiptID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/search?keyword=%s", c.baseURL, url.QueryEscape(receiptID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("explorer search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read explorer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("explorer search returned status %d: %s", resp.StatusCode, body)
	}

	var search searchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return "", fmt.Errorf("failed to decode explorer response: %w", err)
	}

	for _, receipt := range search.Receipts {
		if receipt.ReceiptID == receiptID && receipt.OriginatedFromTransactionHash != "" {
			return receipt.OriginatedFromTransactionHash, nil
		}
	}
	return "", fmt.Errorf("no transaction found for receipt %s", receiptID)
}

package near

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Provider owns the shared account lifecycle. It is constructed once and
// injected into the components that need chain access; initialization is
// idempotent and safe for concurrent use.
type Provider struct {
	accountID string
	secretKey string
	endpoint  string

	mu      sync.Mutex
	client  *Client
	account Account
}

// NewProvider creates a Provider for the given account and RPC endpoint.
// No network traffic happens until Initialize.
func NewProvider(accountID, secretKey, endpoint string) *Provider {
	return &Provider{
		accountID: accountID,
		secretKey: secretKey,
		endpoint:  endpoint,
	}
}

// Initialize parses the key material and builds the account. Calling it
// again returns the already-initialized account.
func (p *Provider) Initialize(ctx context.Context) (Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.account != nil {
		return p.account, nil
	}

	keyPair, err := ParseKeyPair(p.secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse account key: %w", err)
	}

	p.client = NewClient(p.endpoint)
	p.account = NewRPCAccount(p.accountID, p.client, keyPair)

	slog.Info("Account initialized",
		"account_id", p.accountID,
		"rpc_endpoint", p.endpoint,
	)
	return p.account, nil
}

// GetAccount returns the initialized account, or nil before Initialize.
func (p *Provider) GetAccount() Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account
}

// IsReady reports whether Initialize has completed successfully.
func (p *Provider) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.account != nil
}

// ValidateConnection checks RPC reachability with a status round-trip.
func (p *Provider) ValidateConnection(ctx context.Context) bool {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil {
		return false
	}

	status, err := client.Status(ctx)
	if err != nil {
		slog.Error("Connection validation failed", "error", err)
		return false
	}

	slog.Debug("Connection validated",
		"chain_id", status.ChainID,
		"latest_height", status.SyncInfo.LatestBlockHeight,
	)
	return true
}

// Reset drops the initialized account so the next Initialize starts fresh.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = nil
	p.account = nil
}

package explorer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTxHashForReceipt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1/search") {
			http.NotFound(w, r)
			return
		}
		keyword := r.URL.Query().Get("keyword")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"receipts":[{"receipt_id":%q,"originated_from_transaction_hash":"9xTxHash"}]}`, keyword)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	hash, err := client.TxHashForReceipt(context.Background(), "receipt-abc")
	if err != nil {
		t.Fatalf("TxHashForReceipt failed: %v", err)
	}
	if hash != "9xTxHash" {
		t.Errorf("expected 9xTxHash, got %s", hash)
	}
}

func TestTxHashForReceiptNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"receipts":[]}`)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	if _, err := client.TxHashForReceipt(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown receipt, got nil")
	}
}

func TestTxHashForReceiptServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClientWithBaseURL(server.URL)
	_, err := client.TxHashForReceipt(context.Background(), "receipt-abc")
	if err == nil {
		t.Fatal("expected error for server failure, got nil")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("expected status code in error, got: %v", err)
	}
}

func TestNewClientNetworkSelection(t *testing.T) {
	if c := NewClient("mainnet"); c.baseURL != mainnetBaseURL {
		t.Errorf("mainnet base url mismatch: %s", c.baseURL)
	}
	if c := NewClient("testnet"); c.baseURL != testnetBaseURL {
		t.Errorf("testnet base url mismatch: %s", c.baseURL)
	}
}

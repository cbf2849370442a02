package near

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// DecodeBase58Hash decodes a base58 string that must be exactly 32 bytes,
// such as a block hash.
func DecodeBase58Hash(s string) ([32]byte, error) {
	var hash [32]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return hash, err
	}
	if len(raw) != 32 {
		return hash, fmt.Errorf("expected 32-byte hash, got %d bytes", len(raw))
	}
	copy(hash[:], raw)
	return hash, nil
}

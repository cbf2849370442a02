package near

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// KeyPair wraps an ed25519 key pair in NEAR's string encodings.
type KeyPair struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
}

// ParseKeyPair parses a NEAR secret key of the form "ed25519:<base58>",
// where the base58 payload is the 64-byte expanded private key.
func ParseKeyPair(secretKey string) (*KeyPair, error) {
	curve, encoded, found := strings.Cut(secretKey, ":")
	if !found {
		return nil, fmt.Errorf("secret key must have the form ed25519:<base58>")
	}
	if curve != "ed25519" {
		return nil, fmt.Errorf("unsupported key curve %q", curve)
	}

	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key encoding: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("expected %d-byte private key, got %d bytes", ed25519.PrivateKeySize, len(raw))
	}

	private := ed25519.PrivateKey(raw)
	return &KeyPair{
		private: private,
		public:  private.Public().(ed25519.PublicKey),
	}, nil
}

// PublicKeyString returns the public key in NEAR's "ed25519:<base58>" form.
func (k *KeyPair) PublicKeyString() string {
	return "ed25519:" + base58.Encode(k.public)
}

// PublicKeyBytes returns the raw 32-byte public key.
func (k *KeyPair) PublicKeyBytes() [32]byte {
	var out [32]byte
	copy(out[:], k.public)
	return out
}

// Sign signs a digest with the private key.
func (k *KeyPair) Sign(digest []byte) [64]byte {
	var out [64]byte
	copy(out[:], ed25519.Sign(k.private, digest))
	return out
}

// Package solana provides the minimal Solana surface the bot needs: keypair
// handling, legacy transaction wire encoding, and a JSON-RPC client for
// submission and confirmation.
package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Keypair wraps an ed25519 signing key with its base58 public key.
type Keypair struct {
	priv   ed25519.PrivateKey
	pubkey string
}

// Pubkey returns the base58-encoded public key.
func (k *Keypair) Pubkey() string { return k.pubkey }

// Sign signs msg and returns the raw 64-byte signature.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// LoadKeypair reads a signing keypair from path. Two formats are accepted:
// the Solana CLI JSON byte array ([1,2,...64 bytes]) and a base58-encoded
// 64-byte secret key.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair file: %w", err)
	}

	text := strings.TrimSpace(string(raw))

	var secret []byte
	if strings.HasPrefix(text, "[") {
		var bytes []byte
		if err := json.Unmarshal([]byte(text), &bytes); err != nil {
			return nil, fmt.Errorf("parse keypair json: %w", err)
		}
		secret = bytes
	} else {
		decoded, err := base58.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("decode base58 keypair: %w", err)
		}
		secret = decoded
	}

	if len(secret) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}

	return NewKeypair(ed25519.PrivateKey(secret))
}

// NewKeypair wraps an ed25519 private key, rejecting keys whose public half
// is not a valid curve point.
func NewKeypair(priv ed25519.PrivateKey) (*Keypair, error) {
	pub := priv.Public().(ed25519.PublicKey)
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("public key not on curve: %w", err)
	}
	return &Keypair{priv: priv, pubkey: base58.Encode(pub)}, nil
}

// ValidatePubkey reports whether s is a base58-encoded 32-byte ed25519
// public key representing a valid curve point.
func ValidatePubkey(s string) error {
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("decode pubkey: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("pubkey must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err != nil {
		return fmt.Errorf("pubkey not on curve: %w", err)
	}
	return nil
}

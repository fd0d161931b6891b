// Package wallet implements local keypair loading and transaction signing
// (A6), the concrete backing for swap.Signer. It never logs or otherwise
// exposes the private key material it holds.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet holds a loaded Solana keypair and exposes signing without ever
// returning the private key to callers.
type Wallet struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// PublicKey returns the wallet's base58-encoded public key.
func (w *Wallet) PublicKey() string {
	return base58.Encode(w.public)
}

// Sign signs message with the wallet's private key.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.private, message)
}

// LoadFromFile loads a wallet from a Solana CLI-style JSON keypair file: a
// JSON array of 64 bytes (32-byte seed followed by 32-byte public key).
func LoadFromFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: read %s: %w", path, err)
	}

	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("wallet: parse %s: %w", path, err)
	}
	return fromKeypairBytes(raw)
}

// LoadFromBase58 loads a wallet from a base58-encoded 64-byte secret key,
// the format most wallet exports use.
func LoadFromBase58(encoded string) (*Wallet, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode base58 secret key: %w", err)
	}
	return fromKeypairBytes(raw)
}

func fromKeypairBytes(raw []byte) (*Wallet, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d byte keypair, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	// validate the embedded public key is a well-formed curve point before
	// trusting it for account derivation elsewhere in the pipeline.
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("wallet: invalid public key point: %w", err)
	}

	return &Wallet{public: pub, private: priv}, nil
}

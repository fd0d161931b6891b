package wallet

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Submitter is the subset of the RPC client a Signer needs to land a
// signed transaction.
type Submitter interface {
	SendTransaction(ctx context.Context, signedTxBase64 string) (signature string, err error)
}

// Signer adapts a Wallet into swap.Signer: it appends the wallet's
// signature to an already-assembled (unsigned) transaction message and
// submits it, never exposing the private key across the package boundary.
type Signer struct {
	wallet    *Wallet
	submitter Submitter
}

// NewSigner builds a swap.Signer backed by wallet, submitting through
// submitter.
func NewSigner(wallet *Wallet, submitter Submitter) *Signer {
	return &Signer{wallet: wallet, submitter: submitter}
}

// SignAndSubmit signs messageBytes (the serialized transaction message)
// and submits the resulting transaction, returning its signature.
func (s *Signer) SignAndSubmit(ctx context.Context, messageBytes []byte) (string, error) {
	if len(messageBytes) == 0 {
		return "", fmt.Errorf("wallet: empty transaction message")
	}

	sig := s.wallet.Sign(messageBytes)

	// Solana wire format: signature count (1 byte) + signatures + message.
	tx := make([]byte, 0, 1+len(sig)+len(messageBytes))
	tx = append(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, messageBytes...)

	encoded := base64.StdEncoding.EncodeToString(tx)
	return s.submitter.SendTransaction(ctx, encoded)
}

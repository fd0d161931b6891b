package wallet

import "context"

// TokenAccountFetcher is the subset of the RPC client BalanceChecker needs.
type TokenAccountFetcher interface {
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) (uint64, error)
}

// BalanceChecker implements positions.BalanceChecker against the wallet's
// own public key, used by the exit monitor's phantom-position detection.
type BalanceChecker struct {
	owner string
	rpc   TokenAccountFetcher
}

// NewBalanceChecker builds a BalanceChecker for wallet's public key.
func NewBalanceChecker(wallet *Wallet, rpc TokenAccountFetcher) *BalanceChecker {
	return &BalanceChecker{owner: wallet.PublicKey(), rpc: rpc}
}

// GetTokenBalance returns the wallet's total raw balance of mint.
func (b *BalanceChecker) GetTokenBalance(ctx context.Context, mint string) (uint64, error) {
	return b.rpc.GetTokenAccountsByOwner(ctx, b.owner, mint)
}

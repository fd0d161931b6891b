package verification

import (
	"context"
	"fmt"

	"solana-memecoin-agent/internal/solana"
)

// RPCClient is the subset of solana.HTTPClient the status checker needs.
type RPCClient interface {
	GetSignatureStatus(ctx context.Context, signature string) (confirmed bool, failed bool, err error)
	GetTransactionBalances(ctx context.Context, signature string) (*solana.TransactionBalances, error)
}

// RPCStatusChecker implements StatusChecker against a live Solana RPC
// endpoint.
type RPCStatusChecker struct {
	rpc RPCClient
}

// NewRPCStatusChecker builds a StatusChecker backed by rpc.
func NewRPCStatusChecker(rpc RPCClient) *RPCStatusChecker {
	return &RPCStatusChecker{rpc: rpc}
}

// GetStatus reports signature's coarse on-chain status.
func (c *RPCStatusChecker) GetStatus(ctx context.Context, signature string) (TxStatus, error) {
	confirmed, failed, err := c.rpc.GetSignatureStatus(ctx, signature)
	if err != nil {
		return TxStatusNotFound, err
	}
	if failed {
		return TxStatusFailed, nil
	}
	if confirmed {
		return TxStatusSuccess, nil
	}
	return TxStatusNotFound, nil
}

// GetBalances fetches signature's pre/post native and token balances and
// fee, for effective-price and ATA-rent-reclaim analysis.
func (c *RPCStatusChecker) GetBalances(ctx context.Context, signature string) (pre, post BalanceSnapshot, feeRaw uint64, err error) {
	bal, err := c.rpc.GetTransactionBalances(ctx, signature)
	if err != nil {
		return BalanceSnapshot{}, BalanceSnapshot{}, 0, fmt.Errorf("verification: fetch balances for %s: %w", signature, err)
	}

	pre = BalanceSnapshot{TokenBalanceRaw: bal.PreTokenRaw, NativeBalanceRaw: bal.PreNativeRaw}
	post = BalanceSnapshot{TokenBalanceRaw: bal.PostTokenRaw, NativeBalanceRaw: bal.PostNativeRaw, ATAClosed: bal.PostTokenRaw == 0 && bal.PreTokenRaw > 0}
	return pre, post, bal.FeeRaw, nil
}

package verification

import (
	"context"
	"errors"
	"time"
)

// TxStatus is the coarse on-chain status a confirmation poll observes.
type TxStatus string

const (
	TxStatusNotFound TxStatus = "not_found"
	TxStatusSuccess  TxStatus = "success"
	TxStatusFailed   TxStatus = "failed"
)

// ErrTransactionFailed is returned by Confirm when the chain reports the
// transaction failed; callers never wait out the remaining poll budget
// for this outcome.
var ErrTransactionFailed = errors.New("verification: transaction failed on-chain")

// ErrConfirmationTimeout is returned when the poll budget is exhausted
// with the transaction still not_found.
var ErrConfirmationTimeout = errors.New("verification: confirmation timed out")

const (
	priorityPollInterval = 500 * time.Millisecond
	priorityPollBudget   = 5 * time.Second

	standardBaseDelay = 1 * time.Second
	standardBackoff   = 2.0
	standardMaxDelay  = 8 * time.Second
)

// BalanceSnapshot is a wallet's token/native balances used to derive a
// VerifiedReceipt's economics.
type BalanceSnapshot struct {
	TokenBalanceRaw  uint64
	NativeBalanceRaw uint64
	ATAClosed        bool
}

// StatusChecker fetches a transaction's coarse status and, once resolved,
// its pre/post balance snapshots and fee.
type StatusChecker interface {
	GetStatus(ctx context.Context, signature string) (TxStatus, error)
	GetBalances(ctx context.Context, signature string) (pre, post BalanceSnapshot, feeRaw uint64, err error)
}

// VerifiedReceipt is the analyzed outcome of a confirmed transaction.
type VerifiedReceipt struct {
	Signature        string
	EffectivePrice   float64
	TokensDelta      int64 // signed raw units
	NativeDelta      int64 // signed raw units, fee-inclusive
	Fee              uint64
	ATARentReclaimed uint64
	Verified         bool
}

// ataRentReclaimTolerance is the lamport tolerance around the standard
// rent-exempt minimum used to detect an ATA-close rent reclaim folded into
// a sell's native balance delta.
const ataRentReclaimTolerance = 100_000

// SmartConfirmer implements C6: fast-fail-on-failed transaction
// confirmation that polls on the priority path first and falls back to a
// standard exponential-backoff path.
type SmartConfirmer struct {
	checker        StatusChecker
	standardMaxAtt int
	decimals       func(mint string) int
	rentExemptMin  uint64
}

// NewSmartConfirmer builds a confirmer. decimals resolves a mint's decimal
// count for effective-price computation; rentExemptMin is the chain's
// rent-exempt minimum for a token account, used by the ATA-close detector.
func NewSmartConfirmer(checker StatusChecker, standardMaxAttempts int, decimals func(mint string) int, rentExemptMin uint64) *SmartConfirmer {
	return &SmartConfirmer{checker: checker, standardMaxAtt: standardMaxAttempts, decimals: decimals, rentExemptMin: rentExemptMin}
}

// Confirm polls for signature's outcome. Every call first runs the 500ms/5s
// priority path; if the signature is still not found, it falls back to the
// standard exponential-backoff path (base 1s, factor 2.0, cap 8s: one poll
// plus up to standardMaxAttempts retries). Either path returns immediately,
// without waiting for backoff, the instant a poll observes status=failed.
func (c *SmartConfirmer) Confirm(ctx context.Context, signature, mint string, direction DirectionHint) (*VerifiedReceipt, error) {
	var status TxStatus
	var err error

	if status, err = c.pollPriority(ctx, signature); err == nil && status == TxStatusNotFound {
		status, err = c.pollStandard(ctx, signature)
	}
	if err != nil {
		return nil, err
	}
	if status == TxStatusFailed {
		return nil, ErrTransactionFailed
	}
	if status != TxStatusSuccess {
		return nil, ErrConfirmationTimeout
	}

	return c.analyze(ctx, signature, mint, direction)
}

func (c *SmartConfirmer) pollPriority(ctx context.Context, signature string) (TxStatus, error) {
	deadline := time.Now().Add(priorityPollBudget)
	for {
		status, err := c.checker.GetStatus(ctx, signature)
		if err != nil {
			return TxStatusNotFound, err
		}
		if status == TxStatusFailed {
			return TxStatusFailed, nil
		}
		if status == TxStatusSuccess {
			return TxStatusSuccess, nil
		}
		if time.Now().After(deadline) {
			return TxStatusNotFound, nil
		}
		select {
		case <-ctx.Done():
			return TxStatusNotFound, ctx.Err()
		case <-time.After(priorityPollInterval):
		}
	}
}

func (c *SmartConfirmer) pollStandard(ctx context.Context, signature string) (TxStatus, error) {
	delay := standardBaseDelay
	for attempt := 0; attempt <= c.standardMaxAtt; attempt++ {
		status, err := c.checker.GetStatus(ctx, signature)
		if err != nil {
			return TxStatusNotFound, err
		}
		if status == TxStatusFailed {
			return TxStatusFailed, nil
		}
		if status == TxStatusSuccess {
			return TxStatusSuccess, nil
		}
		if attempt == c.standardMaxAtt {
			return TxStatusNotFound, nil
		}
		select {
		case <-ctx.Done():
			return TxStatusNotFound, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * standardBackoff)
		if delay > standardMaxDelay {
			delay = standardMaxDelay
		}
	}
	return TxStatusNotFound, nil
}

// DirectionHint tells analyze which balance delta to treat as the trade
// side (token for buy, native for sell).
type DirectionHint string

const (
	DirectionHintBuy  DirectionHint = "buy"
	DirectionHintSell DirectionHint = "sell"
)

func (c *SmartConfirmer) analyze(ctx context.Context, signature, mint string, direction DirectionHint) (*VerifiedReceipt, error) {
	pre, post, fee, err := c.checker.GetBalances(ctx, signature)
	if err != nil {
		return nil, err
	}

	tokensDelta := int64(post.TokenBalanceRaw) - int64(pre.TokenBalanceRaw)
	nativeDelta := int64(post.NativeBalanceRaw) - int64(pre.NativeBalanceRaw) + int64(fee)

	decimals := 0
	if c.decimals != nil {
		decimals = c.decimals(mint)
	}
	scale := pow10(decimals)

	var ataRentReclaimed uint64
	var effectivePrice float64

	switch direction {
	case DirectionHintBuy:
		tokensReceivedUI := float64(tokensDelta) / scale
		if tokensReceivedUI > 0 {
			nativeSpent := -float64(nativeDelta)
			effectivePrice = nativeSpent / tokensReceivedUI
		}
	case DirectionHintSell:
		if post.ATAClosed {
			diff := int64(nativeDelta) - int64(c.rentExemptMin)
			if diff < 0 {
				diff = -diff
			}
			if uint64(diff) <= ataRentReclaimTolerance {
				ataRentReclaimed = c.rentExemptMin
			}
		}
		tradeProceeds := float64(nativeDelta) - float64(ataRentReclaimed)
		tokensSoldUI := -float64(tokensDelta) / scale
		if tokensSoldUI > 0 {
			effectivePrice = tradeProceeds / tokensSoldUI
		}
	}

	return &VerifiedReceipt{
		Signature:        signature,
		EffectivePrice:   effectivePrice,
		TokensDelta:      tokensDelta,
		NativeDelta:      nativeDelta,
		Fee:              fee,
		ATARentReclaimed: ataRentReclaimed,
		Verified:         true,
	}, nil
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

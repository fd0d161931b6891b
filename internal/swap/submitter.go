package swap

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/positions"
	"solana-memecoin-agent/internal/storage"
	"solana-memecoin-agent/internal/verification"
)

// TradeSubmitter adapts Executor into positions.EntrySubmitter and
// positions.ExitSubmitter: it resolves a mint's canonical pool and token
// decimals, sizes the request in UI units, delegates to Execute, then
// carries the signature through C6's SmartConfirmer and applies the
// resulting transition via the C4 Machine before returning. This is the
// "wherever a submitted signature needs reconciling" call site referenced
// by runtime.NewVerificationService.
type TradeSubmitter struct {
	executor       *Executor
	pools          storage.PoolStore
	tokens         storage.TokenStore
	positionsStore storage.PositionStore
	transactions   storage.TransactionStore
	machine        *positions.Machine
	confirmer      *verification.SmartConfirmer
	broadcast      *positions.Broadcaster
	slippageBps    uint16
	nativeDecimals int
	dryRun         bool
	log            *logrus.Entry
}

// NewTradeSubmitter builds a TradeSubmitter. dryRun is forwarded to every
// Request, per the agent's --dry-run flag; when set, neither a position row
// nor any transition is ever written.
func NewTradeSubmitter(
	executor *Executor,
	pools storage.PoolStore,
	tokens storage.TokenStore,
	positionsStore storage.PositionStore,
	transactions storage.TransactionStore,
	machine *positions.Machine,
	confirmer *verification.SmartConfirmer,
	broadcast *positions.Broadcaster,
	slippageBps uint16,
	nativeDecimals int,
	dryRun bool,
	log *logrus.Entry,
) *TradeSubmitter {
	return &TradeSubmitter{
		executor: executor, pools: pools, tokens: tokens,
		positionsStore: positionsStore, transactions: transactions, machine: machine, confirmer: confirmer, broadcast: broadcast,
		slippageBps: slippageBps, nativeDecimals: nativeDecimals, dryRun: dryRun, log: log,
	}
}

// recordTransaction persists a row for a submitted signature ahead of
// confirmation (status pending); transactions may be nil in tests, in which
// case this is a no-op.
func (t *TradeSubmitter) recordTransaction(ctx context.Context, signature string, kind domain.TransactionKind, positionID *string) {
	if t.transactions == nil {
		return
	}
	if err := t.transactions.Insert(ctx, &domain.Transaction{
		Signature:   signature,
		Kind:        kind,
		PositionID:  positionID,
		SubmittedAt: time.Now().UnixMilli(),
		Status:      domain.TransactionStatusPending,
	}); err != nil {
		t.log.WithError(err).WithField("signature", signature).Warn("swap submitter: record transaction")
	}
}

// resolveTransaction updates a previously-recorded row once C6 has
// confirmed or failed the signature.
func (t *TradeSubmitter) resolveTransaction(ctx context.Context, signature string, positionID *string, receipt *verification.VerifiedReceipt, confirmErr error) {
	if t.transactions == nil {
		return
	}
	tx, err := t.transactions.GetBySignature(ctx, signature)
	if err != nil {
		return
	}
	tx.PositionID = positionID
	if confirmErr != nil {
		tx.Status = domain.TransactionStatusFailed
	} else {
		now := time.Now().UnixMilli()
		tx.Status = domain.TransactionStatusConfirmed
		tx.EffectivePrice = receipt.EffectivePrice
		tx.FeeLamports = receipt.Fee
		tx.VerifiedAt = &now
	}
	if err := t.transactions.Update(ctx, tx); err != nil {
		t.log.WithError(err).WithField("signature", signature).Warn("swap submitter: resolve transaction")
	}
}

func (t *TradeSubmitter) resolve(ctx context.Context, mint string) (poolAddress string, decimals int, err error) {
	pools, err := t.pools.GetByMint(ctx, mint)
	if err != nil {
		return "", 0, fmt.Errorf("swap submitter: resolve pool for %s: %w", mint, err)
	}
	if len(pools) == 0 {
		return "", 0, fmt.Errorf("swap submitter: no known pool for %s", mint)
	}

	decimals = t.nativeDecimals
	if tok, err := t.tokens.GetByMint(ctx, mint); err == nil && tok != nil {
		decimals = tok.Decimals
	}
	return pools[0].PoolAddress, decimals, nil
}

// SubmitEntry buys sizeNative worth of mint against its canonical pool,
// inserts the open position row, confirms the transaction, and applies
// EntryVerified. A confirmation failure rolls the row back with
// RemoveOrphanEntry rather than leaving an unverified position behind.
func (t *TradeSubmitter) SubmitEntry(ctx context.Context, mint string, sizeNative float64) (string, error) {
	poolAddress, decimals, err := t.resolve(ctx, mint)
	if err != nil {
		return "", err
	}

	req := Request{
		PoolAddress: poolAddress,
		TokenMint:   mint,
		Amount:      sizeNative,
		Direction:   DirectionBuy,
		SlippageBps: t.slippageBps,
		DryRun:      t.dryRun,
	}
	res, err := t.executor.Execute(ctx, req, decimals)
	if err != nil {
		return "", err
	}
	if t.dryRun {
		return "", nil
	}

	intendedPrice := 0.0
	if res.Params.ExpectedOutput > 0 {
		intendedPrice = sizeNative / res.Params.ExpectedOutput
	}
	pos := &domain.Position{
		ID:               uuid.New().String(),
		Mint:             mint,
		EntryPrice:       intendedPrice,
		EntryTime:        time.Now().UnixMilli(),
		EntryTxSignature: res.Signature,
		Status:           domain.PositionStatusOpen,
	}
	if err := t.positionsStore.Insert(ctx, pos); err != nil {
		return res.Signature, fmt.Errorf("swap submitter: insert position: %w", err)
	}
	t.recordTransaction(ctx, res.Signature, domain.TransactionKindEntry, &pos.ID)

	receipt, err := t.confirmer.Confirm(ctx, res.Signature, mint, verification.DirectionHintBuy)
	if err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{"mint": mint, "position": pos.ID}).
			Warn("swap submitter: entry confirmation failed, removing orphan entry")
		_ = t.machine.Apply(ctx, positions.NewRemoveOrphanEntry(pos.ID))
		t.resolveTransaction(ctx, res.Signature, &pos.ID, nil, err)
		return res.Signature, fmt.Errorf("swap submitter: entry confirmation: %w", err)
	}
	t.resolveTransaction(ctx, res.Signature, &pos.ID, receipt, nil)

	if err := t.machine.Apply(ctx, positions.NewEntryVerified(pos.ID, positions.EntryVerifiedPayload{
		EffectiveEntryPrice: receipt.EffectivePrice,
		TokenAmountUnits:    uint64(receipt.TokensDelta),
		FeeLamports:         receipt.Fee,
		NativeSize:          sizeNative,
	})); err != nil {
		return res.Signature, fmt.Errorf("swap submitter: apply entry verified: %w", err)
	}
	return res.Signature, nil
}

// SubmitExit sells fraction of pos's token amount back to the pool,
// confirms the transaction, and applies the matching verified/failed
// transition: ExitVerified/ExitFailedClearForRetry for a full exit
// (fraction >= 1), PartialExitVerified/PartialExitFailed otherwise.
func (t *TradeSubmitter) SubmitExit(ctx context.Context, pos *domain.Position, fraction float64) (string, error) {
	if fraction <= 0 || fraction > 1 {
		return "", fmt.Errorf("swap submitter: fraction must be in (0, 1], got %f", fraction)
	}

	poolAddress, decimals, err := t.resolve(ctx, pos.Mint)
	if err != nil {
		return "", err
	}

	sellRaw := float64(pos.TokenAmount) * fraction
	sellUI := sellRaw / math.Pow10(decimals)

	req := Request{
		PoolAddress: poolAddress,
		TokenMint:   pos.Mint,
		Amount:      sellUI,
		Direction:   DirectionSell,
		SlippageBps: t.slippageBps,
		DryRun:      t.dryRun,
	}
	res, err := t.executor.Execute(ctx, req, decimals)
	if err != nil {
		return "", err
	}
	if t.dryRun {
		return "", nil
	}

	full := fraction >= 1.0
	kind := domain.TransactionKindExit
	if !full {
		kind = domain.TransactionKindPartial
		_ = t.machine.Apply(ctx, positions.NewPartialExitSubmitted(pos.ID, positions.PartialExitSubmittedPayload{
			ExitSignature:  res.Signature,
			ExitAmount:     uint64(sellRaw),
			ExitPercentage: fraction * 100,
			MarketPrice:    pos.CurrentPrice,
		}))
	}
	t.recordTransaction(ctx, res.Signature, kind, &pos.ID)

	receipt, err := t.confirmer.Confirm(ctx, res.Signature, pos.Mint, verification.DirectionHintSell)
	if err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{"mint": pos.Mint, "position": pos.ID}).
			Warn("swap submitter: exit confirmation failed")
		if full {
			_ = t.machine.Apply(ctx, positions.NewExitFailedClearForRetry(pos.ID))
		} else {
			_ = t.machine.Apply(ctx, positions.NewPartialExitFailed(pos.ID, positions.PartialExitFailedPayload{Reason: err.Error()}))
		}
		t.resolveTransaction(ctx, res.Signature, &pos.ID, nil, err)
		return res.Signature, fmt.Errorf("swap submitter: exit confirmation: %w", err)
	}
	t.resolveTransaction(ctx, res.Signature, &pos.ID, receipt, nil)

	now := time.Now().UnixMilli()
	if full {
		err = t.machine.Apply(ctx, positions.NewExitVerified(pos.ID, positions.ExitVerifiedPayload{
			EffectiveExitPrice: receipt.EffectivePrice,
			NativeReceived:     float64(receipt.NativeDelta),
			FeeLamports:        receipt.Fee,
			ExitTime:           now,
		}))
		if err == nil && t.broadcast != nil {
			t.broadcast.Publish(positions.Update{Kind: positions.UpdateClosed, PositionID: pos.ID, Mint: pos.Mint})
		}
	} else {
		err = t.machine.Apply(ctx, positions.NewPartialExitVerified(pos.ID, positions.PartialExitVerifiedPayload{
			ExitAmount:         uint64(-receipt.TokensDelta),
			NativeReceived:     float64(receipt.NativeDelta),
			EffectiveExitPrice: receipt.EffectivePrice,
			FeeLamports:        receipt.Fee,
			ExitTime:           now,
		}))
	}
	if err != nil {
		return res.Signature, fmt.Errorf("swap submitter: apply exit verified: %w", err)
	}
	return res.Signature, nil
}

// SubmitDca buys sizeNative more of pos's mint as a dollar-cost-average add
// (spec 4.4.5), confirms the transaction, and reweights the position's
// effective entry price via DcaVerified. A confirmation failure applies
// DcaFailed, clearing the pending signature so the position can be
// evaluated again next tick.
func (t *TradeSubmitter) SubmitDca(ctx context.Context, pos *domain.Position, sizeNative float64) (string, error) {
	poolAddress, decimals, err := t.resolve(ctx, pos.Mint)
	if err != nil {
		return "", err
	}

	req := Request{
		PoolAddress: poolAddress,
		TokenMint:   pos.Mint,
		Amount:      sizeNative,
		Direction:   DirectionBuy,
		SlippageBps: t.slippageBps,
		DryRun:      t.dryRun,
	}
	res, err := t.executor.Execute(ctx, req, decimals)
	if err != nil {
		return "", err
	}
	if t.dryRun {
		return "", nil
	}

	intendedPrice := 0.0
	if res.Params.ExpectedOutput > 0 {
		intendedPrice = sizeNative / res.Params.ExpectedOutput
	}
	_ = t.machine.Apply(ctx, positions.NewDcaSubmitted(pos.ID, positions.DcaSubmittedPayload{
		DcaSignature:    res.Signature,
		DcaAmountNative: sizeNative,
		MarketPrice:     intendedPrice,
	}))
	t.recordTransaction(ctx, res.Signature, domain.TransactionKindDca, &pos.ID)

	receipt, err := t.confirmer.Confirm(ctx, res.Signature, pos.Mint, verification.DirectionHintBuy)
	if err != nil {
		t.log.WithError(err).WithFields(logrus.Fields{"mint": pos.Mint, "position": pos.ID}).
			Warn("swap submitter: dca confirmation failed")
		_ = t.machine.Apply(ctx, positions.NewDcaFailed(pos.ID, positions.DcaFailedPayload{Reason: err.Error()}))
		t.resolveTransaction(ctx, res.Signature, &pos.ID, nil, err)
		return res.Signature, fmt.Errorf("swap submitter: dca confirmation: %w", err)
	}
	t.resolveTransaction(ctx, res.Signature, &pos.ID, receipt, nil)

	if err := t.machine.Apply(ctx, positions.NewDcaVerified(pos.ID, positions.DcaVerifiedPayload{
		TokensBought:   uint64(receipt.TokensDelta),
		NativeSpent:    sizeNative,
		EffectivePrice: receipt.EffectivePrice,
		FeeLamports:    receipt.Fee,
		DcaTime:        time.Now().UnixMilli(),
		Decimals:       decimals,
	})); err != nil {
		return res.Signature, fmt.Errorf("swap submitter: apply dca verified: %w", err)
	}
	return res.Signature, nil
}

package positions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// ErrPositionNotOpen is returned when a transition targets a position that
// is not open, for transitions that require an open position.
var ErrPositionNotOpen = errors.New("positions: position not open")

// Machine applies Transitions to a storage.PositionStore, the single
// choke point every position mutation passes through.
type Machine struct {
	positions  storage.PositionStore
	transitions storage.TransitionStore
}

// NewMachine builds a transition machine over the given stores.
// transitions may be nil, in which case the audit log is skipped.
func NewMachine(positions storage.PositionStore, transitions storage.TransitionStore) *Machine {
	return &Machine{positions: positions, transitions: transitions}
}

// Apply applies t against the position store. Every transition writes its
// effect to the position store; every transition except UpdatePriceTracking
// is also recorded in the transition audit log (Transition.RequiresDBUpdate).
func (m *Machine) Apply(ctx context.Context, t Transition) error {
	var err error
	switch t.Kind {
	case KindEntryVerified:
		err = m.applyEntryVerified(ctx, t)
	case KindExitVerified:
		err = m.applyExitVerified(ctx, t)
	case KindExitFailedClearForRetry:
		err = m.applyExitFailedClearForRetry(ctx, t)
	case KindExitPermanentFailureSynthetic:
		err = m.applyExitPermanentFailureSynthetic(ctx, t)
	case KindRemoveOrphanEntry:
		err = m.positions.Delete(ctx, t.PositionID)
	case KindUpdatePriceTracking:
		err = m.applyUpdatePriceTracking(ctx, t)
	case KindPartialExitSubmitted:
		err = m.applyPartialExitSubmitted(ctx, t)
	case KindPartialExitVerified:
		err = m.applyPartialExitVerified(ctx, t)
	case KindPartialExitFailed:
		err = m.applyPartialExitFailed(ctx, t)
	case KindDcaSubmitted:
		err = m.applyDcaSubmitted(ctx, t)
	case KindDcaVerified:
		err = m.applyDcaVerified(ctx, t)
	case KindDcaFailed:
		err = m.applyDcaFailed(ctx, t)
	default:
		return fmt.Errorf("positions: unknown transition kind %q", t.Kind)
	}
	if err != nil {
		return err
	}

	if t.RequiresDBUpdate() && m.transitions != nil {
		_ = m.transitions.Insert(ctx, t.PositionID, string(t.Kind), time.Now().UnixMilli(), "")
	}
	return nil
}

func (m *Machine) applyEntryVerified(ctx context.Context, t Transition) error {
	p := t.EntryVerified
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.EffectiveEntryPrice = p.EffectiveEntryPrice
	pos.FirstEffectiveEntryPrice = p.EffectiveEntryPrice
	pos.TokenAmount = p.TokenAmountUnits
	pos.EntryFee = float64(p.FeeLamports)
	pos.TotalSizeNative = p.NativeSize
	pos.InitialSizeNative = p.NativeSize
	pos.TransactionEntryVerified = true
	pos.CurrentPrice = p.EffectiveEntryPrice
	pos.PriceHighest = p.EffectiveEntryPrice
	pos.PriceLowest = p.EffectiveEntryPrice
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyExitVerified(ctx context.Context, t Transition) error {
	p := t.ExitVerified
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.EffectiveExitPrice = p.EffectiveExitPrice
	pos.NativeReceived = p.NativeReceived
	pos.ExitFee = float64(p.FeeLamports)
	pos.TransactionExitVerified = true
	pos.Status = domain.PositionStatusClosed
	pos.ClosedReason = "verified"
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyExitFailedClearForRetry(ctx context.Context, t Transition) error {
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = nil
	pos.ExitFailureCount++
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyExitPermanentFailureSynthetic(ctx context.Context, t Transition) error {
	p := t.ExitPermanentFailureSynthetic
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.Status = domain.PositionStatusClosed
	pos.SyntheticExit = true
	pos.ClosedReason = p.Reason
	pos.EffectiveExitPrice = pos.CurrentPrice
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyUpdatePriceTracking(ctx context.Context, t Transition) error {
	p := t.UpdatePriceTracking
	positions, err := m.positions.GetByMint(ctx, p.Mint)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		if !pos.IsOpen() {
			continue
		}
		pos.CurrentPrice = p.CurrentPrice
		if p.Highest != nil {
			pos.PriceHighest = *p.Highest
		}
		if p.Lowest != nil {
			pos.PriceLowest = *p.Lowest
		}
		if err := m.positions.Update(ctx, pos); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) applyPartialExitSubmitted(ctx context.Context, t Transition) error {
	p := t.PartialExitSubmitted
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = &p.ExitSignature
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyPartialExitVerified(ctx context.Context, t Transition) error {
	p := t.PartialExitVerified
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = nil
	pos.TokenAmount -= p.ExitAmount
	pos.PartialExits = append(pos.PartialExits, domain.PartialExit{
		TokensSold:         p.ExitAmount,
		NativeReceived:     p.NativeReceived,
		EffectiveExitPrice: p.EffectiveExitPrice,
		Fee:                float64(p.FeeLamports),
		ExitTime:           p.ExitTime,
	})
	if pos.TokenAmount == 0 {
		pos.Status = domain.PositionStatusClosed
		pos.ClosedReason = "fully_exited_via_partials"
	}
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyPartialExitFailed(ctx context.Context, t Transition) error {
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = nil
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyDcaSubmitted(ctx context.Context, t Transition) error {
	p := t.DcaSubmitted
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = &p.DcaSignature
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyDcaFailed(ctx context.Context, t Transition) error {
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = nil
	return m.positions.Update(ctx, pos)
}

func (m *Machine) applyDcaVerified(ctx context.Context, t Transition) error {
	p := t.DcaVerified
	pos, err := m.positions.GetByID(ctx, t.PositionID)
	if err != nil {
		return err
	}
	pos.PendingExitSignature = nil
	pos.TokenAmount += p.TokensBought
	pos.TotalSizeNative += p.NativeSpent
	if pos.TokenAmount > 0 {
		tokenAmountUI := float64(pos.TokenAmount) / math.Pow10(p.Decimals)
		pos.EffectiveEntryPrice = pos.TotalSizeNative / tokenAmountUI
	}
	pos.DcaCount++
	now := p.DcaTime
	pos.LastDcaAt = &now
	return m.positions.Update(ctx, pos)
}

package positions

import (
	"context"
	"math"
	"testing"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage/memory"
)

func TestApplyDcaVerified_ReweightsEntryPriceInUIUnits(t *testing.T) {
	posStore := memory.NewPositionStore()
	machine := NewMachine(posStore, nil)

	pos := &domain.Position{
		ID:                       "pos1",
		Mint:                     "mintA",
		Status:                   domain.PositionStatusOpen,
		EffectiveEntryPrice:      1.0e-6,
		FirstEffectiveEntryPrice: 1.0e-6,
		TotalSizeNative:          1.0e-6,
		TokenAmount:              1_000_000, // 1.0 UI at 6 decimals
	}
	if err := posStore.Insert(context.Background(), pos); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	err := machine.Apply(context.Background(), NewDcaVerified(pos.ID, DcaVerifiedPayload{
		TokensBought:   1_000_000, // another 1.0 UI
		NativeSpent:    0.5e-6,
		EffectivePrice: 0.5e-6,
		Decimals:       6,
	}))
	if err != nil {
		t.Fatalf("apply dca verified: %v", err)
	}

	got, err := posStore.GetByID(context.Background(), pos.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.TokenAmount != 2_000_000 {
		t.Fatalf("expected token amount 2_000_000, got %d", got.TokenAmount)
	}
	want := 0.75e-6
	if math.Abs(got.EffectiveEntryPrice-want) > 1e-12 {
		t.Fatalf("expected reweighted effective entry price %v, got %v", want, got.EffectiveEntryPrice)
	}
}

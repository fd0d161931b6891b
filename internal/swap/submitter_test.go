package swap

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/positions"
	"solana-memecoin-agent/internal/storage/memory"
	"solana-memecoin-agent/internal/verification"
)

type fakePriceSource struct{ price float64 }

func (f fakePriceSource) GetPoolPrice(mint string) (domain.PriceResult, bool) {
	return domain.PriceResult{Mint: mint, PriceInNative: f.price, Available: true}, true
}

type fakeSigner struct{ sig string }

func (f fakeSigner) SignAndSubmit(ctx context.Context, instructions []byte) (string, error) {
	return f.sig, nil
}

// fakeStatusChecker reports every signature as immediately successful with
// a fixed balance delta, so SmartConfirmer's priority path resolves on its
// first poll without any real wall-clock wait.
type fakeStatusChecker struct {
	tokenDelta  int64
	nativeDelta int64
	fee         uint64
}

func (f fakeStatusChecker) GetStatus(ctx context.Context, signature string) (verification.TxStatus, error) {
	return verification.TxStatusSuccess, nil
}

func (f fakeStatusChecker) GetBalances(ctx context.Context, signature string) (pre, post verification.BalanceSnapshot, feeRaw uint64, err error) {
	pre = verification.BalanceSnapshot{}
	post = verification.BalanceSnapshot{
		TokenBalanceRaw:  uint64(int64(pre.TokenBalanceRaw) + f.tokenDelta),
		NativeBalanceRaw: uint64(int64(pre.NativeBalanceRaw) + f.nativeDelta),
	}
	return pre, post, f.fee, nil
}

func newTestSubmitter(t *testing.T, mint string, tokenDelta, nativeDelta int64) (*TradeSubmitter, *memory.PositionStore) {
	t.Helper()
	pools := memory.NewPoolStore()
	if err := pools.Upsert(context.Background(), &domain.PoolInfo{
		PoolAddress: "pool1", ProgramID: "prog1", Kind: domain.PoolKindCpAmm, BaseMint: mint, QuoteMint: "So11111111111111111111111111111111111111112",
	}); err != nil {
		t.Fatalf("seed pool: %v", err)
	}
	tokens := memory.NewTokenStore()
	if err := tokens.Upsert(context.Background(), &domain.Token{Mint: mint, Decimals: 6}); err != nil {
		t.Fatalf("seed token: %v", err)
	}
	posStore := memory.NewPositionStore()
	transitions := memory.NewTransitionStore()
	txStore := memory.NewTransactionStore()

	log := logrus.NewEntry(logrus.New())
	executor := NewExecutor(fakePriceSource{price: 0.001}, fakeSigner{sig: "sig1"}, log)
	machine := positions.NewMachine(posStore, transitions)
	confirmer := verification.NewSmartConfirmer(fakeStatusChecker{tokenDelta: tokenDelta, nativeDelta: nativeDelta, fee: 5000}, 3, func(string) int { return 6 }, 2039280)
	broadcast := positions.NewBroadcaster()

	submitter := NewTradeSubmitter(executor, pools, tokens, posStore, txStore, machine, confirmer, broadcast, 50, 9, false, log)
	return submitter, posStore
}

func TestSubmitEntry_AppliesEntryVerified(t *testing.T) {
	submitter, posStore := newTestSubmitter(t, "mintA", 1_000_000, -1_000_000)

	sig, err := submitter.SubmitEntry(context.Background(), "mintA", 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == "" {
		t.Fatal("expected a non-empty signature")
	}

	open, err := posStore.GetOpen(context.Background())
	if err != nil {
		t.Fatalf("GetOpen: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open position, got %d", len(open))
	}
	if !open[0].TransactionEntryVerified {
		t.Fatal("expected entry to be verified")
	}
	if open[0].TokenAmount != 1_000_000 {
		t.Fatalf("expected token amount 1_000_000, got %d", open[0].TokenAmount)
	}
}

func TestSubmitExit_FullFractionClosesPosition(t *testing.T) {
	submitter, posStore := newTestSubmitter(t, "mintB", -1_000_000, 900_000)

	pos := &domain.Position{ID: "pos1", Mint: "mintB", TokenAmount: 1_000_000, Status: domain.PositionStatusOpen}
	if err := posStore.Insert(context.Background(), pos); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	sig, err := submitter.SubmitExit(context.Background(), pos, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == "" {
		t.Fatal("expected a non-empty signature")
	}

	got, err := posStore.GetByID(context.Background(), "pos1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.PositionStatusClosed {
		t.Fatalf("expected position closed, got %s", got.Status)
	}
}

func TestSubmitExit_PartialFractionKeepsPositionOpen(t *testing.T) {
	submitter, posStore := newTestSubmitter(t, "mintC", -500_000, 450_000)

	pos := &domain.Position{ID: "pos2", Mint: "mintC", TokenAmount: 1_000_000, Status: domain.PositionStatusOpen}
	if err := posStore.Insert(context.Background(), pos); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	if _, err := submitter.SubmitExit(context.Background(), pos, 0.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := posStore.GetByID(context.Background(), "pos2")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.PositionStatusOpen {
		t.Fatalf("expected position still open, got %s", got.Status)
	}
	if got.TokenAmount != 500_000 {
		t.Fatalf("expected remaining token amount 500_000, got %d", got.TokenAmount)
	}
	if len(got.PartialExits) != 1 {
		t.Fatalf("expected 1 partial exit record, got %d", len(got.PartialExits))
	}
}

func TestSubmitDca_AppliesDcaVerified(t *testing.T) {
	submitter, posStore := newTestSubmitter(t, "mintD", 1_000_000, -500_000)

	pos := &domain.Position{
		ID:                       "pos3",
		Mint:                     "mintD",
		Status:                   domain.PositionStatusOpen,
		TokenAmount:              1_000_000,
		TotalSizeNative:          1.0e-6,
		InitialSizeNative:        1.0e-6,
		EffectiveEntryPrice:      1.0e-6,
		FirstEffectiveEntryPrice: 1.0e-6,
	}
	if err := posStore.Insert(context.Background(), pos); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	sig, err := submitter.SubmitDca(context.Background(), pos, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == "" {
		t.Fatal("expected a non-empty signature")
	}

	got, err := posStore.GetByID(context.Background(), "pos3")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DcaCount != 1 {
		t.Fatalf("expected dca count 1, got %d", got.DcaCount)
	}
	if got.TokenAmount != 2_000_000 {
		t.Fatalf("expected token amount 2_000_000 after dca, got %d", got.TokenAmount)
	}
	if got.LastDcaAt == nil {
		t.Fatal("expected LastDcaAt to be set")
	}
}

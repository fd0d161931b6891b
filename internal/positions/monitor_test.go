package positions

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage/memory"
)

type fakeDcaSubmitter struct {
	calls int
	sig   string
	err   error
}

func (f *fakeDcaSubmitter) SubmitDca(ctx context.Context, pos *domain.Position, sizeNative float64) (string, error) {
	f.calls++
	return f.sig, f.err
}

func newTestExitMonitor(dca *fakeDcaSubmitter, cfg ExitMonitorConfig) (*ExitMonitor, *memory.PositionStore) {
	posStore := memory.NewPositionStore()
	machine := NewMachine(posStore, nil)
	locks := NewMintLocks()
	broadcast := NewBroadcaster()
	log := logrus.NewEntry(logrus.New())
	return NewExitMonitor(cfg, posStore, nil, nil, nil, dca, machine, locks, broadcast, nil, nil, log), posStore
}

func TestEvaluateDca_FiresOnThresholdDrop(t *testing.T) {
	dca := &fakeDcaSubmitter{sig: "sig1"}
	monitor, _ := newTestExitMonitor(dca, ExitMonitorConfig{
		DcaThresholdPct:   15,
		DcaMaxCount:       2,
		DcaSizePercentage: 50,
		DcaCooldown:       time.Minute,
	})

	pos := &domain.Position{
		ID:                       "pos1",
		FirstEffectiveEntryPrice: 1.0,
		InitialSizeNative:        1.0,
		DcaCount:                 0,
	}

	if !monitor.evaluateDca(context.Background(), pos, 0.80) {
		t.Fatal("expected evaluateDca to fire on a 20% drop past a 15% threshold")
	}
	if dca.calls != 1 {
		t.Fatalf("expected 1 dca submission, got %d", dca.calls)
	}
}

func TestEvaluateDca_SkipsBelowThreshold(t *testing.T) {
	dca := &fakeDcaSubmitter{sig: "sig1"}
	monitor, _ := newTestExitMonitor(dca, ExitMonitorConfig{
		DcaThresholdPct:   15,
		DcaMaxCount:       2,
		DcaSizePercentage: 50,
		DcaCooldown:       time.Minute,
	})

	pos := &domain.Position{FirstEffectiveEntryPrice: 1.0, InitialSizeNative: 1.0}

	if monitor.evaluateDca(context.Background(), pos, 0.95) {
		t.Fatal("expected evaluateDca not to fire on only a 5% drop")
	}
	if dca.calls != 0 {
		t.Fatalf("expected 0 dca submissions, got %d", dca.calls)
	}
}

func TestEvaluateDca_SkipsAtMaxCount(t *testing.T) {
	dca := &fakeDcaSubmitter{sig: "sig1"}
	monitor, _ := newTestExitMonitor(dca, ExitMonitorConfig{
		DcaThresholdPct:   15,
		DcaMaxCount:       1,
		DcaSizePercentage: 50,
		DcaCooldown:       time.Minute,
	})

	pos := &domain.Position{FirstEffectiveEntryPrice: 1.0, InitialSizeNative: 1.0, DcaCount: 1}

	if monitor.evaluateDca(context.Background(), pos, 0.5) {
		t.Fatal("expected evaluateDca not to fire once DcaMaxCount is reached")
	}
}

func TestEvaluateDca_SkipsDuringCooldown(t *testing.T) {
	dca := &fakeDcaSubmitter{sig: "sig1"}
	monitor, _ := newTestExitMonitor(dca, ExitMonitorConfig{
		DcaThresholdPct:   15,
		DcaMaxCount:       2,
		DcaSizePercentage: 50,
		DcaCooldown:       time.Hour,
	})

	justNow := time.Now().UnixMilli()
	pos := &domain.Position{FirstEffectiveEntryPrice: 1.0, InitialSizeNative: 1.0, LastDcaAt: &justNow}

	if monitor.evaluateDca(context.Background(), pos, 0.5) {
		t.Fatal("expected evaluateDca not to fire while the cooldown hasn't elapsed")
	}
}

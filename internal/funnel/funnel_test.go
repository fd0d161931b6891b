package funnel

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/config"
	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/positions"
)

type fakeBoosted struct {
	latest    []string
	snapshots []domain.MarketSnapshot
	err       error
}

func (f *fakeBoosted) LatestBoosted(ctx context.Context) ([]string, error) {
	return f.latest, f.err
}

func (f *fakeBoosted) TokenBatch(ctx context.Context, mints []string) ([]domain.MarketSnapshot, error) {
	var out []domain.MarketSnapshot
	for _, s := range f.snapshots {
		for _, m := range mints {
			if s.Mint == m {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeWatchlist struct {
	added []string
	full  bool
}

func (w *fakeWatchlist) AddToWatchlist(mint string) bool {
	if w.full {
		return false
	}
	w.added = append(w.added, mint)
	return true
}

type fakeTokenStore struct {
	upserted []string
}

func (s *fakeTokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	s.upserted = append(s.upserted, t.Mint)
	return nil
}
func (s *fakeTokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	return nil, nil
}
func (s *fakeTokenStore) GetWatchlist(ctx context.Context) ([]*domain.Token, error) { return nil, nil }

type fakeBlacklist struct {
	blacklisted map[string]bool
}

func (b *fakeBlacklist) Insert(ctx context.Context, e *domain.BlacklistEntry) error { return nil }
func (b *fakeBlacklist) Remove(ctx context.Context, mint string) error              { return nil }
func (b *fakeBlacklist) IsBlacklisted(ctx context.Context, mint string) (bool, error) {
	return b.blacklisted[mint], nil
}
func (b *fakeBlacklist) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	return nil, nil
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestFunnel_PassingCandidateJoinsWatchlist(t *testing.T) {
	boosted := &fakeBoosted{
		latest: []string{"MintA", "MintB"},
		snapshots: []domain.MarketSnapshot{
			{Mint: "MintA", LiquidityUSD: 50000, Volume24hUSD: 10000, PriceUSD: 0.01},
			{Mint: "MintB", LiquidityUSD: 100, Volume24hUSD: 1, PriceUSD: 0.01},
		},
	}
	wl := &fakeWatchlist{}
	tokenDB := &fakeTokenStore{}
	bl := &fakeBlacklist{blacklisted: map[string]bool{}}

	f := New(
		Config{TickInterval: time.Minute},
		config.FilteringConfig{MinPoolLiquidityUSD: 1000, MinPositionLiquidityUSD: 1000, MinVolume24hUSD: 500},
		config.TokensConfig{MaxConsecutiveErrors: 3, DiscoveryBatchSize: 50},
		boosted, nil, wl, tokenDB, bl, testLog(),
	)

	f.tick(context.Background())

	if len(wl.added) != 1 || wl.added[0] != "MintA" {
		t.Fatalf("expected only MintA to join watchlist, got %v", wl.added)
	}
	if len(tokenDB.upserted) != 1 || tokenDB.upserted[0] != "MintA" {
		t.Fatalf("expected only MintA to be upserted, got %v", tokenDB.upserted)
	}

	candidates, err := f.Candidates(context.Background())
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Mint != "MintA" {
		t.Fatalf("expected MintA as live candidate, got %v", candidates)
	}
}

func TestFunnel_BlacklistedMintRejected(t *testing.T) {
	boosted := &fakeBoosted{
		latest:    []string{"MintA"},
		snapshots: []domain.MarketSnapshot{{Mint: "MintA", LiquidityUSD: 50000, Volume24hUSD: 10000}},
	}
	wl := &fakeWatchlist{}
	bl := &fakeBlacklist{blacklisted: map[string]bool{"MintA": true}}

	f := New(
		Config{TickInterval: time.Minute},
		config.FilteringConfig{MinPoolLiquidityUSD: 1000, MinPositionLiquidityUSD: 1000, MinVolume24hUSD: 500},
		config.TokensConfig{},
		boosted, nil, wl, &fakeTokenStore{}, bl, testLog(),
	)

	f.tick(context.Background())

	if len(wl.added) != 0 {
		t.Fatalf("expected blacklisted mint to be rejected, got %v", wl.added)
	}
}

func TestFunnel_WatchlistAtCapacityDropsCandidate(t *testing.T) {
	boosted := &fakeBoosted{
		latest:    []string{"MintA"},
		snapshots: []domain.MarketSnapshot{{Mint: "MintA", LiquidityUSD: 50000, Volume24hUSD: 10000}},
	}
	wl := &fakeWatchlist{full: true}
	bl := &fakeBlacklist{blacklisted: map[string]bool{}}

	f := New(
		Config{TickInterval: time.Minute},
		config.FilteringConfig{MinPoolLiquidityUSD: 1000, MinPositionLiquidityUSD: 1000, MinVolume24hUSD: 500},
		config.TokensConfig{},
		boosted, nil, wl, &fakeTokenStore{}, bl, testLog(),
	)

	f.tick(context.Background())

	candidates, _ := f.Candidates(context.Background())
	if len(candidates) != 0 {
		t.Fatalf("expected no live candidates when watchlist is full, got %v", candidates)
	}
}

func TestFunnel_RecordErrorEvictsAfterMaxConsecutive(t *testing.T) {
	bl := &fakeBlacklist{blacklisted: map[string]bool{}}
	f := New(
		Config{TickInterval: time.Minute},
		config.FilteringConfig{MinPoolLiquidityUSD: 1000, MinPositionLiquidityUSD: 1000, MinVolume24hUSD: 500},
		config.TokensConfig{MaxConsecutiveErrors: 2},
		&fakeBoosted{}, nil, &fakeWatchlist{}, &fakeTokenStore{}, bl, testLog(),
	)

	f.mu.Lock()
	f.candidates["MintA"] = positions.Candidate{Mint: "MintA", LiquidityUSD: 5000}
	f.mu.Unlock()

	f.recordError("MintA")
	f.recordError("MintA")

	f.mu.RLock()
	_, exists := f.candidates["MintA"]
	f.mu.RUnlock()
	if exists {
		t.Fatal("expected candidate evicted after max consecutive errors")
	}
}

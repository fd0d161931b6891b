// Package funnel implements the discovery and filtering funnel (C1): it
// harvests candidate mints from the aggregator and explorer feeds (A5),
// enriches them with market data, applies the configured acceptance
// thresholds, and hands the survivors to the pool service's watchlist and
// the position entry monitor.
package funnel

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/config"
	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/positions"
	"solana-memecoin-agent/internal/storage"
)

// BoostedSource is the subset of an aggregator client the funnel needs.
type BoostedSource interface {
	LatestBoosted(ctx context.Context) ([]string, error)
	TokenBatch(ctx context.Context, mints []string) ([]domain.MarketSnapshot, error)
}

// PoolSource is the subset of an explorer client the funnel needs.
type PoolSource interface {
	NewPools(ctx context.Context) ([]domain.PoolDescriptor, error)
	RecentlyUpdatedTokens(ctx context.Context) ([]string, error)
}

// Watchlist is the subset of the pool service the funnel drives.
type Watchlist interface {
	AddToWatchlist(mint string) bool
}

// Config controls the funnel's cadence; acceptance thresholds and
// watchlist bounds come from config.FilteringConfig / config.TokensConfig.
type Config struct {
	TickInterval time.Duration
}

// Funnel polls discovery feeds, filters candidates, and maintains the
// watchlist that feeds C2 (pool refresh) and C4 (entry evaluation).
type Funnel struct {
	cfg       Config
	filtering config.FilteringConfig
	tokens    config.TokensConfig

	boosted   BoostedSource
	pools     PoolSource
	watchlist Watchlist
	tokenDB   storage.TokenStore
	blacklist storage.BlacklistStore

	log *logrus.Entry

	mu         sync.RWMutex
	candidates map[string]positions.Candidate
	errorCount map[string]int
}

// New builds a Funnel.
func New(
	cfg Config,
	filtering config.FilteringConfig,
	tokens config.TokensConfig,
	boosted BoostedSource,
	pools PoolSource,
	watchlist Watchlist,
	tokenDB storage.TokenStore,
	blacklist storage.BlacklistStore,
	log *logrus.Entry,
) *Funnel {
	return &Funnel{
		cfg:        cfg,
		filtering:  filtering,
		tokens:     tokens,
		boosted:    boosted,
		pools:      pools,
		watchlist:  watchlist,
		tokenDB:    tokenDB,
		blacklist:  blacklist,
		log:        log,
		candidates: make(map[string]positions.Candidate),
		errorCount: make(map[string]int),
	}
}

// Run loops until ctx is cancelled, harvesting and filtering on
// cfg.TickInterval.
func (f *Funnel) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

// tick harvests one round of candidate mints, enriches and filters them,
// and updates the watchlist and candidate set.
func (f *Funnel) tick(ctx context.Context) {
	mints, err := f.harvest(ctx)
	if err != nil {
		f.log.WithError(err).Warn("funnel: harvest failed")
		return
	}
	if len(mints) == 0 {
		return
	}
	if f.tokens.DiscoveryBatchSize > 0 && len(mints) > f.tokens.DiscoveryBatchSize {
		mints = mints[:f.tokens.DiscoveryBatchSize]
	}

	snapshots, err := f.boosted.TokenBatch(ctx, mints)
	if err != nil {
		f.log.WithError(err).Warn("funnel: token batch enrichment failed")
		return
	}

	for _, snap := range snapshots {
		f.evaluate(ctx, snap)
	}
}

// harvest collects candidate mints from all configured discovery sources,
// deduplicated.
func (f *Funnel) harvest(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	add := func(mints []string) {
		for _, m := range mints {
			if m == "" {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}

	boosted, err := f.boosted.LatestBoosted(ctx)
	if err != nil {
		return nil, err
	}
	add(boosted)

	if f.pools != nil {
		poolDescs, err := f.pools.NewPools(ctx)
		if err != nil {
			f.log.WithError(err).Warn("funnel: new pools lookup failed")
		} else {
			mints := make([]string, 0, len(poolDescs))
			for _, p := range poolDescs {
				mints = append(mints, p.BaseMint)
			}
			add(mints)
		}

		updated, err := f.pools.RecentlyUpdatedTokens(ctx)
		if err != nil {
			f.log.WithError(err).Warn("funnel: recently-updated tokens lookup failed")
		} else {
			add(updated)
		}
	}

	return out, nil
}

// evaluate applies the acceptance thresholds to a single snapshot and, on
// pass, upserts the token, adds it to the watchlist, and records it as a
// live entry candidate.
func (f *Funnel) evaluate(ctx context.Context, snap domain.MarketSnapshot) {
	if f.blacklist != nil {
		blacklisted, err := f.blacklist.IsBlacklisted(ctx, snap.Mint)
		if err != nil {
			f.log.WithError(err).WithField("mint", snap.Mint).Warn("funnel: blacklist check failed")
			return
		}
		if blacklisted {
			return
		}
	}

	if !f.passes(snap) {
		f.recordError(snap.Mint)
		return
	}
	f.clearError(snap.Mint)

	now := time.Now().UnixMilli()
	tok := &domain.Token{
		Mint:           snap.Mint,
		DiscoveredAt:   now,
		LastEnrichedAt: now,
		PriceQuote:     snap.PriceUSD,
		PriceNative:    snap.PriceUSD,
		Volume24hQuote: snap.Volume24hUSD,
		LiquidityUSD:   snap.LiquidityUSD,
	}
	if f.tokenDB != nil {
		if err := f.tokenDB.Upsert(ctx, tok); err != nil {
			f.log.WithError(err).WithField("mint", snap.Mint).Warn("funnel: token upsert failed")
		}
	}

	if f.watchlist != nil {
		if !f.watchlist.AddToWatchlist(snap.Mint) {
			f.log.WithField("mint", snap.Mint).Debug("funnel: watchlist at capacity, candidate dropped")
			return
		}
	}

	f.mu.Lock()
	f.candidates[snap.Mint] = positions.Candidate{Mint: snap.Mint, LiquidityUSD: snap.LiquidityUSD}
	f.mu.Unlock()
}

// passes reports whether a snapshot clears the configured acceptance
// thresholds. Token-age filtering is skipped when no discovery timestamp
// is available (aggregator snapshots carry only a fetch time).
func (f *Funnel) passes(snap domain.MarketSnapshot) bool {
	if snap.LiquidityUSD < f.filtering.MinPoolLiquidityUSD {
		return false
	}
	if snap.LiquidityUSD < f.filtering.MinPositionLiquidityUSD {
		return false
	}
	if snap.Volume24hUSD < f.filtering.MinVolume24hUSD {
		return false
	}
	return true
}

// recordError increments a mint's consecutive-error count, evicting it
// from the live candidate set once it reaches the configured maximum.
func (f *Funnel) recordError(mint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorCount[mint]++
	if f.tokens.MaxConsecutiveErrors > 0 && f.errorCount[mint] >= f.tokens.MaxConsecutiveErrors {
		delete(f.candidates, mint)
	}
}

func (f *Funnel) clearError(mint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errorCount, mint)
}

// Candidates returns the current set of filtered, live entry candidates,
// ordered by LiquidityUSD descending. It satisfies the
// func(ctx) ([]positions.Candidate, error) shape NewEntryMonitor expects.
func (f *Funnel) Candidates(_ context.Context) ([]positions.Candidate, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]positions.Candidate, 0, len(f.candidates))
	for _, c := range f.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LiquidityUSD > out[j].LiquidityUSD })
	return out, nil
}

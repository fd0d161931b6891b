package pool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// ErrDecodeFailed wraps a decoder error with the pool address it failed on.
var ErrDecodeFailed = errors.New("pool: decode failed")

// ErrUnknownProgram is returned when no decoder is registered for an
// account's owning program.
var ErrUnknownProgram = errors.New("pool: unknown program id")

const (
	defaultPoolCacheTTLSeconds  = 600
	defaultPriceCacheTTLSeconds = 240
	defaultMaxPriceHistoryPts   = 500
	defaultMaxTokensPerBatch    = 30
	defaultWatchlistBatchSize   = 150
	defaultMaxWatchlistSize     = 100
	defaultMaxConsecutiveErrs   = 5
	defaultWatchlistExpiryHours = 24
	dlmmConfidence              = 0.6
	sqrtPriceConfidence         = 0.9
)

// AccountFetcher is the subset of the chain client the pool service needs:
// fetch raw account bytes and their owning program id.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address string) (owner string, data []byte, slot int64, err error)
}

// priceCacheEntry is a single mint's live price cache entry, tracked
// alongside its canonical pool selection and consecutive-error count.
type priceCacheEntry struct {
	result             domain.PriceResult
	history            []domain.PricePoint
	consecutiveErrors  int
	watchlistAddedAt   int64
	watchlistExpiresAt int64
}

// Service is the Pool Service (C2): decodes pool accounts into prices,
// maintains a bounded per-mint price history, and runs a prioritized
// refresh scheduler over a watchlist.
type Service struct {
	registry *Registry
	fetcher  AccountFetcher
	pools    storage.PoolStore
	tokens   storage.TokenStore
	log      *logrus.Entry

	poolCacheTTL  time.Duration
	priceCacheTTL time.Duration
	maxHistory    int
	maxWatchlist  int
	maxErrors     int

	mu      sync.RWMutex
	prices  map[string]*priceCacheEntry // keyed by mint
	canonical map[string]string         // mint -> canonical pool address
}

// NewService builds a pool service with an already-frozen decoder registry.
func NewService(registry *Registry, fetcher AccountFetcher, pools storage.PoolStore, tokens storage.TokenStore, log *logrus.Entry) *Service {
	return &Service{
		registry:      registry,
		fetcher:       fetcher,
		pools:         pools,
		tokens:        tokens,
		log:           log,
		poolCacheTTL:  defaultPoolCacheTTLSeconds * time.Second,
		priceCacheTTL: defaultPriceCacheTTLSeconds * time.Second,
		maxHistory:    defaultMaxPriceHistoryPts,
		maxWatchlist:  defaultMaxWatchlistSize,
		maxErrors:     defaultMaxConsecutiveErrs,
		prices:        make(map[string]*priceCacheEntry),
		canonical:     make(map[string]string),
	}
}

// RefreshPool fetches, decodes and prices one pool account, updating the
// mint's price cache and bounded history. Decoder and network errors are
// non-fatal: they increment the mint's consecutive-error count and the
// price result is marked unavailable.
func (s *Service) RefreshPool(ctx context.Context, mint, poolAddress string, baseDecimals, quoteDecimals int) (domain.PriceResult, error) {
	owner, data, slot, err := s.fetcher.GetAccountInfo(ctx, poolAddress)
	if err != nil {
		return s.recordFailure(mint, poolAddress), err
	}

	decoder := s.registry.Get(owner)
	if decoder == nil {
		return s.recordFailure(mint, poolAddress), ErrUnknownProgram
	}

	info, err := decoder.Decode(poolAddress, data, baseDecimals, quoteDecimals)
	if err != nil {
		s.log.WithFields(logrus.Fields{"mint": mint, "pool": poolAddress, "layout": decoder.LayoutName()}).
			WithError(err).Warn("pool decode failed")
		return s.recordFailure(mint, poolAddress), errors.Join(ErrDecodeFailed, err)
	}
	info.Slot = slot

	price, err := decoder.CalculatePrice(info, baseDecimals, quoteDecimals)
	if err != nil {
		return s.recordFailure(mint, poolAddress), err
	}

	confidence := sqrtPriceConfidence
	if decoder.LayoutName() == domain.PoolKindDiscreteLiquidityMm {
		confidence = dlmmConfidence
	}

	result := domain.PriceResult{
		Mint:          mint,
		PriceInNative: price,
		SolReserves:   float64(info.QuoteReserve),
		TokenReserves: float64(info.BaseReserve),
		PoolAddress:   poolAddress,
		ProgramID:     owner,
		Available:     true,
		Confidence:    confidence,
		UpdatedAt:     nowMs(),
	}

	s.store(mint, poolAddress, result)

	if s.pools != nil {
		_ = s.pools.Upsert(ctx, info)
	}
	return result, nil
}

func (s *Service) recordFailure(mint, poolAddress string) domain.PriceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(mint)
	entry.consecutiveErrors++
	entry.result = domain.PriceResult{Mint: mint, PoolAddress: poolAddress, Available: false, UpdatedAt: nowMs()}
	return entry.result
}

func (s *Service) store(mint, poolAddress string, result domain.PriceResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(mint)
	entry.consecutiveErrors = 0
	entry.result = result
	s.canonical[mint] = poolAddress

	entry.history = append(entry.history, domain.PricePoint{
		PoolAddress: poolAddress,
		Price:       result.PriceInNative,
		Timestamp:   result.UpdatedAt,
	})
	if len(entry.history) > s.maxHistory {
		entry.history = entry.history[len(entry.history)-s.maxHistory:]
	}
}

func (s *Service) entryLocked(mint string) *priceCacheEntry {
	e, ok := s.prices[mint]
	if !ok {
		e = &priceCacheEntry{}
		s.prices[mint] = e
	}
	return e
}

// GetPoolPrice returns the cached price for a mint if present and fresh.
func (s *Service) GetPoolPrice(mint string) (domain.PriceResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.prices[mint]
	if !ok {
		return domain.PriceResult{}, false
	}
	fresh := e.result.IsFresh(nowMs(), s.priceCacheTTL.Milliseconds())
	return e.result, fresh
}

// GetPriceHistory returns the bounded in-memory price history for a mint,
// oldest first.
func (s *Service) GetPriceHistory(mint string) []domain.PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.prices[mint]
	if !ok {
		return nil
	}
	out := make([]domain.PricePoint, len(e.history))
	copy(out, e.history)
	return out
}

// GetCacheStats reports aggregate cache state for observability.
func (s *Service) GetCacheStats() domain.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.CacheStats{TrackedMints: len(s.prices), TrackedPools: len(s.canonical)}
	for _, e := range s.prices {
		stats.HistoryPoints += len(e.history)
		if e.result.UpdatedAt > stats.LastRefreshAt {
			stats.LastRefreshAt = e.result.UpdatedAt
		}
		stats.ConsecutiveErr += e.consecutiveErrors
	}
	return stats
}

// AddToWatchlist registers a mint for the refresh scheduler. Returns false
// if the watchlist is already at capacity.
func (s *Service) AddToWatchlist(mint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prices) >= s.maxWatchlist {
		if _, ok := s.prices[mint]; !ok {
			return false
		}
	}
	e := s.entryLocked(mint)
	now := nowMs()
	e.watchlistAddedAt = now
	e.watchlistExpiresAt = now + defaultWatchlistExpiryHours*3600*1000
	return true
}

// ExpireWatchlist drops mints whose watchlist entry has expired or whose
// consecutive error count reaches the configured maximum.
func (s *Service) ExpireWatchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := nowMs()
	var expired []string
	for mint, e := range s.prices {
		if e.watchlistExpiresAt != 0 && now > e.watchlistExpiresAt {
			expired = append(expired, mint)
			delete(s.prices, mint)
			delete(s.canonical, mint)
			continue
		}
		if e.consecutiveErrors >= s.maxErrors {
			expired = append(expired, mint)
			delete(s.prices, mint)
			delete(s.canonical, mint)
		}
	}
	sort.Strings(expired)
	return expired
}

// RefreshBatch returns up to defaultMaxTokensPerBatch watchlisted mints
// ordered by staleness (oldest UpdatedAt first), the scheduler's priority
// rule for the next refresh tick.
func (s *Service) RefreshBatch() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type staleMint struct {
		mint    string
		updated int64
	}
	all := make([]staleMint, 0, len(s.prices))
	for mint, e := range s.prices {
		all = append(all, staleMint{mint: mint, updated: e.result.UpdatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].updated < all[j].updated })

	limit := defaultMaxTokensPerBatch
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = all[i].mint
	}
	return out
}

func nowMs() int64 { return time.Now().UnixMilli() }

package memory

import (
	"context"
	"sync"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// PoolStore is an in-memory implementation of storage.PoolStore.
type PoolStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolInfo // keyed by pool address
}

// NewPoolStore creates a new in-memory pool store.
func NewPoolStore() *PoolStore {
	return &PoolStore{data: make(map[string]*domain.PoolInfo)}
}

// Upsert inserts or updates a pool by pool address.
func (s *PoolStore) Upsert(_ context.Context, p *domain.PoolInfo) error {
	if p == nil || p.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	poolCopy := *p
	s.data[p.PoolAddress] = &poolCopy
	return nil
}

// GetByAddress retrieves a pool. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(_ context.Context, poolAddress string) (*domain.PoolInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[poolAddress]
	if !exists {
		return nil, storage.ErrNotFound
	}
	poolCopy := *p
	return &poolCopy, nil
}

// GetByMint retrieves all pools with the given mint on either side.
func (s *PoolStore) GetByMint(_ context.Context, mint string) ([]*domain.PoolInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolInfo
	for _, p := range s.data {
		if p.BaseMint == mint || p.QuoteMint == mint {
			poolCopy := *p
			result = append(result, &poolCopy)
		}
	}
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PoolStore = (*PoolStore)(nil)

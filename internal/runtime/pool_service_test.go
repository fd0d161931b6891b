package runtime

import (
	"context"
	"testing"
	"time"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/pool"
	"solana-memecoin-agent/internal/storage"
)

type fakeAccountFetcher struct{}

func (f *fakeAccountFetcher) GetAccountInfo(ctx context.Context, address string) (string, []byte, int64, error) {
	return "", nil, 0, storage.ErrNotFound
}

type fakePoolStore struct {
	byMint map[string][]*domain.PoolInfo
}

func (s *fakePoolStore) Upsert(ctx context.Context, p *domain.PoolInfo) error { return nil }
func (s *fakePoolStore) GetByAddress(ctx context.Context, addr string) (*domain.PoolInfo, error) {
	return nil, storage.ErrNotFound
}
func (s *fakePoolStore) GetByMint(ctx context.Context, mint string) ([]*domain.PoolInfo, error) {
	return s.byMint[mint], nil
}

type fakeTokenStoreRT struct {
	byMint map[string]*domain.Token
}

func (s *fakeTokenStoreRT) Upsert(ctx context.Context, t *domain.Token) error { return nil }
func (s *fakeTokenStoreRT) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	if t, ok := s.byMint[mint]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}
func (s *fakeTokenStoreRT) GetWatchlist(ctx context.Context) ([]*domain.Token, error) { return nil, nil }

func TestPoolRefreshService_Health(t *testing.T) {
	registry := pool.NewRegistry()
	svc := pool.NewService(registry, &fakeAccountFetcher{}, &fakePoolStore{}, &fakeTokenStoreRT{}, testEntry())

	adapter := NewPoolRefreshService(PoolServiceConfig{TickInterval: time.Minute, NativeDecimals: 9}, svc, &fakePoolStore{}, &fakeTokenStoreRT{}, testEntry())

	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	h := adapter.Health()
	if !h.Healthy {
		t.Fatalf("expected healthy adapter, got %+v", h)
	}
}

func TestPoolRefreshService_TickSkipsMintsWithNoKnownPool(t *testing.T) {
	registry := pool.NewRegistry()
	svc := pool.NewService(registry, &fakeAccountFetcher{}, &fakePoolStore{}, &fakeTokenStoreRT{}, testEntry())
	svc.AddToWatchlist("MintA")

	pools := &fakePoolStore{byMint: map[string][]*domain.PoolInfo{}}
	tokens := &fakeTokenStoreRT{byMint: map[string]*domain.Token{}}

	adapter := NewPoolRefreshService(PoolServiceConfig{TickInterval: time.Minute, NativeDecimals: 9}, svc, pools, tokens, testEntry())
	adapter.tick(context.Background())

	h := adapter.Health()
	if h.Detail == "" {
		t.Fatal("expected tick to record a detail for the mint with no known pool")
	}
}

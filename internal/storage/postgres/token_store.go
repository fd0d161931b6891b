package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

var _ storage.TokenStore = (*TokenStore)(nil)

// Upsert inserts or updates a token by mint.
func (s *TokenStore) Upsert(ctx context.Context, t *domain.Token) error {
	query := `
		INSERT INTO tokens (
			mint, symbol, name, decimals, mint_authority, freeze_authority,
			discovered_at, last_enriched_at, price_quote, price_native,
			volume_24h_quote, liquidity_usd, holder_count, route_failures, watchlist_added_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (mint) DO UPDATE SET
			symbol=$2, name=$3, decimals=$4, mint_authority=$5, freeze_authority=$6,
			discovered_at=$7, last_enriched_at=$8, price_quote=$9, price_native=$10,
			volume_24h_quote=$11, liquidity_usd=$12, holder_count=$13, route_failures=$14,
			watchlist_added_at=$15
	`
	_, err := s.pool.Exec(ctx, query,
		t.Mint, t.Symbol, t.Name, t.Decimals, t.MintAuthority, t.FreezeAuthority,
		t.DiscoveredAt, t.LastEnrichedAt, t.PriceQuote, t.PriceNative,
		t.Volume24hQuote, t.LiquidityUSD, t.HolderCount, t.RouteFailures, t.WatchlistAddedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// GetByMint retrieves a token. Returns ErrNotFound if not exists.
func (s *TokenStore) GetByMint(ctx context.Context, mint string) (*domain.Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT mint, symbol, name, decimals, mint_authority, freeze_authority,
			discovered_at, last_enriched_at, price_quote, price_native,
			volume_24h_quote, liquidity_usd, holder_count, route_failures, watchlist_added_at
		FROM tokens WHERE mint=$1
	`, mint)
	t, err := scanToken(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by mint: %w", err)
	}
	return t, nil
}

// GetWatchlist retrieves tokens with a non-nil watchlist_added_at.
func (s *TokenStore) GetWatchlist(ctx context.Context) ([]*domain.Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT mint, symbol, name, decimals, mint_authority, freeze_authority,
			discovered_at, last_enriched_at, price_quote, price_native,
			volume_24h_quote, liquidity_usd, holder_count, route_failures, watchlist_added_at
		FROM tokens WHERE watchlist_added_at IS NOT NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("get watchlist: %w", err)
	}
	defer rows.Close()

	var out []*domain.Token
	for rows.Next() {
		t, err := scanTokenRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanToken(row pgx.Row) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(
		&t.Mint, &t.Symbol, &t.Name, &t.Decimals, &t.MintAuthority, &t.FreezeAuthority,
		&t.DiscoveredAt, &t.LastEnrichedAt, &t.PriceQuote, &t.PriceNative,
		&t.Volume24hQuote, &t.LiquidityUSD, &t.HolderCount, &t.RouteFailures, &t.WatchlistAddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTokenRow(rows pgx.Rows) (*domain.Token, error) {
	var t domain.Token
	err := rows.Scan(
		&t.Mint, &t.Symbol, &t.Name, &t.Decimals, &t.MintAuthority, &t.FreezeAuthority,
		&t.DiscoveredAt, &t.LastEnrichedAt, &t.PriceQuote, &t.PriceNative,
		&t.Volume24hQuote, &t.LiquidityUSD, &t.HolderCount, &t.RouteFailures, &t.WatchlistAddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

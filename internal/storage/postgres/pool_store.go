package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *Pool
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

var _ storage.PoolStore = (*PoolStore)(nil)

// Upsert inserts or updates a pool keyed by pool_address.
func (s *PoolStore) Upsert(ctx context.Context, p *domain.PoolInfo) error {
	query := `
		INSERT INTO pools (
			pool_address, program_id, kind, base_mint, quote_mint,
			base_reserve, quote_reserve, fee_rate,
			sqrt_price_x64, tick_current, liquidity_x64,
			active_bin_id, bin_step_bps, slot
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (pool_address) DO UPDATE SET
			program_id=$2, kind=$3, base_mint=$4, quote_mint=$5,
			base_reserve=$6, quote_reserve=$7, fee_rate=$8,
			sqrt_price_x64=$9, tick_current=$10, liquidity_x64=$11,
			active_bin_id=$12, bin_step_bps=$13, slot=$14
	`
	_, err := s.pool.Exec(ctx, query,
		p.PoolAddress, p.ProgramID, string(p.Kind), p.BaseMint, p.QuoteMint,
		p.BaseReserve, p.QuoteReserve, p.FeeRate,
		p.SqrtPriceX64[:], p.TickCurrent, p.LiquidityX64[:],
		p.ActiveBinID, p.BinStepBps, p.Slot,
	)
	if err != nil {
		return fmt.Errorf("upsert pool: %w", err)
	}
	return nil
}

// GetByAddress retrieves a pool. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(ctx context.Context, poolAddress string) (*domain.PoolInfo, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT pool_address, program_id, kind, base_mint, quote_mint,
			base_reserve, quote_reserve, fee_rate,
			sqrt_price_x64, tick_current, liquidity_x64,
			active_bin_id, bin_step_bps, slot
		FROM pools WHERE pool_address=$1
	`, poolAddress)
	p, err := scanPool(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by address: %w", err)
	}
	return p, nil
}

// GetByMint retrieves all pools with the given mint on either side.
func (s *PoolStore) GetByMint(ctx context.Context, mint string) ([]*domain.PoolInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_address, program_id, kind, base_mint, quote_mint,
			base_reserve, quote_reserve, fee_rate,
			sqrt_price_x64, tick_current, liquidity_x64,
			active_bin_id, bin_step_bps, slot
		FROM pools WHERE base_mint=$1 OR quote_mint=$1
	`, mint)
	if err != nil {
		return nil, fmt.Errorf("get pools by mint: %w", err)
	}
	defer rows.Close()

	var out []*domain.PoolInfo
	for rows.Next() {
		p, err := scanPoolRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPool(row pgx.Row) (*domain.PoolInfo, error) {
	var p domain.PoolInfo
	var kind string
	var sqrtPrice, liquidity []byte
	err := row.Scan(
		&p.PoolAddress, &p.ProgramID, &kind, &p.BaseMint, &p.QuoteMint,
		&p.BaseReserve, &p.QuoteReserve, &p.FeeRate,
		&sqrtPrice, &p.TickCurrent, &liquidity,
		&p.ActiveBinID, &p.BinStepBps, &p.Slot,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = domain.PoolKind(kind)
	copy(p.SqrtPriceX64[:], sqrtPrice)
	copy(p.LiquidityX64[:], liquidity)
	return &p, nil
}

func scanPoolRow(rows pgx.Rows) (*domain.PoolInfo, error) {
	var p domain.PoolInfo
	var kind string
	var sqrtPrice, liquidity []byte
	err := rows.Scan(
		&p.PoolAddress, &p.ProgramID, &kind, &p.BaseMint, &p.QuoteMint,
		&p.BaseReserve, &p.QuoteReserve, &p.FeeRate,
		&sqrtPrice, &p.TickCurrent, &liquidity,
		&p.ActiveBinID, &p.BinStepBps, &p.Slot,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = domain.PoolKind(kind)
	copy(p.SqrtPriceX64[:], sqrtPrice)
	copy(p.LiquidityX64[:], liquidity)
	return &p, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	id, mint, symbol, entry_price, effective_entry_price, entry_time,
	total_size_native, token_amount, price_highest, price_lowest, current_price,
	entry_tx_signature, entry_fee, pending_exit_signature, exit_tx_signature,
	effective_exit_price, native_received, exit_fee, liquidity_tier,
	transaction_entry_verified, transaction_exit_verified,
	phantom_first_seen, phantom_confirmations, synthetic_exit, closed_reason,
	dca_count, last_dca_at, exit_failure_count, status`

// Insert adds a new position. Returns ErrDuplicateKey if id exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
	`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Mint, p.Symbol, p.EntryPrice, p.EffectiveEntryPrice, p.EntryTime,
		p.TotalSizeNative, p.TokenAmount, p.PriceHighest, p.PriceLowest, p.CurrentPrice,
		p.EntryTxSignature, p.EntryFee, p.PendingExitSignature, p.ExitTxSignature,
		p.EffectiveExitPrice, p.NativeReceived, p.ExitFee, p.LiquidityTier,
		p.TransactionEntryVerified, p.TransactionExitVerified,
		p.PhantomFirstSeen, p.PhantomConfirmations, p.SyntheticExit, p.ClosedReason,
		p.DcaCount, p.LastDcaAt, p.ExitFailureCount, string(p.Status),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}

	return s.insertPartialExits(ctx, p.ID, p.PartialExits)
}

// Update replaces a position's row. Returns ErrNotFound if id doesn't exist.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	query := `
		UPDATE positions SET
			mint=$2, symbol=$3, entry_price=$4, effective_entry_price=$5, entry_time=$6,
			total_size_native=$7, token_amount=$8, price_highest=$9, price_lowest=$10, current_price=$11,
			entry_tx_signature=$12, entry_fee=$13, pending_exit_signature=$14, exit_tx_signature=$15,
			effective_exit_price=$16, native_received=$17, exit_fee=$18, liquidity_tier=$19,
			transaction_entry_verified=$20, transaction_exit_verified=$21,
			phantom_first_seen=$22, phantom_confirmations=$23, synthetic_exit=$24, closed_reason=$25,
			dca_count=$26, last_dca_at=$27, exit_failure_count=$28, status=$29
		WHERE id=$1
	`
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Mint, p.Symbol, p.EntryPrice, p.EffectiveEntryPrice, p.EntryTime,
		p.TotalSizeNative, p.TokenAmount, p.PriceHighest, p.PriceLowest, p.CurrentPrice,
		p.EntryTxSignature, p.EntryFee, p.PendingExitSignature, p.ExitTxSignature,
		p.EffectiveExitPrice, p.NativeReceived, p.ExitFee, p.LiquidityTier,
		p.TransactionEntryVerified, p.TransactionExitVerified,
		p.PhantomFirstSeen, p.PhantomConfirmations, p.SyntheticExit, p.ClosedReason,
		p.DcaCount, p.LastDcaAt, p.ExitFailureCount, string(p.Status),
	)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM position_partial_exits WHERE position_id=$1`, p.ID); err != nil {
		return fmt.Errorf("clear partial exits: %w", err)
	}
	return s.insertPartialExits(ctx, p.ID, p.PartialExits)
}

func (s *PositionStore) insertPartialExits(ctx context.Context, positionID string, exits []domain.PartialExit) error {
	for _, e := range exits {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO position_partial_exits (position_id, tx_signature, tokens_sold, native_received, effective_exit_price, fee, exit_time)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, positionID, e.TxSignature, e.TokensSold, e.NativeReceived, e.EffectiveExitPrice, e.Fee, e.ExitTime)
		if err != nil {
			return fmt.Errorf("insert partial exit: %w", err)
		}
	}
	return nil
}

// Delete removes a position row.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id=$1`, id)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	p.PartialExits, err = s.partialExits(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetOpen retrieves all open positions, ordered by entry time ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions WHERE status='open' ORDER BY entry_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()
	return s.scanWithPartials(ctx, rows)
}

// GetByMint retrieves all positions (open or closed) for a mint.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*domain.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions WHERE mint=$1 ORDER BY entry_time ASC`, mint)
	if err != nil {
		return nil, fmt.Errorf("get positions by mint: %w", err)
	}
	defer rows.Close()
	return s.scanWithPartials(ctx, rows)
}

func (s *PositionStore) scanWithPartials(ctx context.Context, rows pgx.Rows) ([]*domain.Position, error) {
	var out []*domain.Position
	for rows.Next() {
		p, err := scanPositionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	for _, p := range out {
		partials, err := s.partialExits(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.PartialExits = partials
	}
	return out, nil
}

func (s *PositionStore) partialExits(ctx context.Context, positionID string) ([]domain.PartialExit, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_signature, tokens_sold, native_received, effective_exit_price, fee, exit_time
		FROM position_partial_exits WHERE position_id=$1 ORDER BY exit_time ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("get partial exits: %w", err)
	}
	defer rows.Close()

	var out []domain.PartialExit
	for rows.Next() {
		var e domain.PartialExit
		if err := rows.Scan(&e.TxSignature, &e.TokensSold, &e.NativeReceived, &e.EffectiveExitPrice, &e.Fee, &e.ExitTime); err != nil {
			return nil, fmt.Errorf("scan partial exit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string
	err := row.Scan(
		&p.ID, &p.Mint, &p.Symbol, &p.EntryPrice, &p.EffectiveEntryPrice, &p.EntryTime,
		&p.TotalSizeNative, &p.TokenAmount, &p.PriceHighest, &p.PriceLowest, &p.CurrentPrice,
		&p.EntryTxSignature, &p.EntryFee, &p.PendingExitSignature, &p.ExitTxSignature,
		&p.EffectiveExitPrice, &p.NativeReceived, &p.ExitFee, &p.LiquidityTier,
		&p.TransactionEntryVerified, &p.TransactionExitVerified,
		&p.PhantomFirstSeen, &p.PhantomConfirmations, &p.SyntheticExit, &p.ClosedReason,
		&p.DcaCount, &p.LastDcaAt, &p.ExitFailureCount, &status,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PositionStatus(status)
	return &p, nil
}

func scanPositionRow(rows pgx.Rows) (*domain.Position, error) {
	var p domain.Position
	var status string
	err := rows.Scan(
		&p.ID, &p.Mint, &p.Symbol, &p.EntryPrice, &p.EffectiveEntryPrice, &p.EntryTime,
		&p.TotalSizeNative, &p.TokenAmount, &p.PriceHighest, &p.PriceLowest, &p.CurrentPrice,
		&p.EntryTxSignature, &p.EntryFee, &p.PendingExitSignature, &p.ExitTxSignature,
		&p.EffectiveExitPrice, &p.NativeReceived, &p.ExitFee, &p.LiquidityTier,
		&p.TransactionEntryVerified, &p.TransactionExitVerified,
		&p.PhantomFirstSeen, &p.PhantomConfirmations, &p.SyntheticExit, &p.ClosedReason,
		&p.DcaCount, &p.LastDcaAt, &p.ExitFailureCount, &status,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PositionStatus(status)
	return &p, nil
}

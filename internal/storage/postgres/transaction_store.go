package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	signature, kind, position_id, submitted_at, status, effective_price,
	fee_lamports, pre_token_balance, post_token_balance,
	pre_native_balance, post_native_balance, verified_at`

// Insert adds a new transaction row. Returns ErrDuplicateKey if signature exists.
func (s *TransactionStore) Insert(ctx context.Context, t *domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		t.Signature, string(t.Kind), t.PositionID, t.SubmittedAt, string(t.Status), t.EffectivePrice,
		t.FeeLamports, t.PreTokenBalance, t.PostTokenBalance,
		t.PreNativeBalance, t.PostNativeBalance, t.VerifiedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Update replaces a transaction row.
func (s *TransactionStore) Update(ctx context.Context, t *domain.Transaction) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET
			kind=$2, position_id=$3, submitted_at=$4, status=$5, effective_price=$6,
			fee_lamports=$7, pre_token_balance=$8, post_token_balance=$9,
			pre_native_balance=$10, post_native_balance=$11, verified_at=$12
		WHERE signature=$1
	`,
		t.Signature, string(t.Kind), t.PositionID, t.SubmittedAt, string(t.Status), t.EffectivePrice,
		t.FeeLamports, t.PreTokenBalance, t.PostTokenBalance,
		t.PreNativeBalance, t.PostNativeBalance, t.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE signature=$1`, signature)
	t, err := scanTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by signature: %w", err)
	}
	return t, nil
}

// GetByPositionID retrieves all transactions for a position.
func (s *TransactionStore) GetByPositionID(ctx context.Context, positionID string) ([]*domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE position_id=$1 ORDER BY submitted_at ASC`, positionID)
	if err != nil {
		return nil, fmt.Errorf("get transactions by position id: %w", err)
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var kind, status string
	err := row.Scan(
		&t.Signature, &kind, &t.PositionID, &t.SubmittedAt, &status, &t.EffectivePrice,
		&t.FeeLamports, &t.PreTokenBalance, &t.PostTokenBalance,
		&t.PreNativeBalance, &t.PostNativeBalance, &t.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}

func scanTransactionRow(rows pgx.Rows) (*domain.Transaction, error) {
	var t domain.Transaction
	var kind, status string
	err := rows.Scan(
		&t.Signature, &kind, &t.PositionID, &t.SubmittedAt, &status, &t.EffectivePrice,
		&t.FeeLamports, &t.PreTokenBalance, &t.PostTokenBalance,
		&t.PreNativeBalance, &t.PostNativeBalance, &t.VerifiedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Kind = domain.TransactionKind(kind)
	t.Status = domain.TransactionStatus(status)
	return &t, nil
}

package postgres

import (
	"context"
	"fmt"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
)

// BlacklistStore implements storage.BlacklistStore using PostgreSQL.
type BlacklistStore struct {
	pool *Pool
}

// NewBlacklistStore creates a new BlacklistStore.
func NewBlacklistStore(pool *Pool) *BlacklistStore {
	return &BlacklistStore{pool: pool}
}

var _ storage.BlacklistStore = (*BlacklistStore)(nil)

// Insert adds a blacklist entry. Returns ErrDuplicateKey if mint exists.
func (s *BlacklistStore) Insert(ctx context.Context, e *domain.BlacklistEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blacklist (mint, reason, created_at, note) VALUES ($1,$2,$3,$4)
	`, e.Mint, e.Reason, e.CreatedAt, e.Note)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

// Remove deletes a blacklist entry.
func (s *BlacklistStore) Remove(ctx context.Context, mint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blacklist WHERE mint=$1`, mint)
	if err != nil {
		return fmt.Errorf("remove blacklist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IsBlacklisted reports whether a mint is currently blacklisted.
func (s *BlacklistStore) IsBlacklisted(ctx context.Context, mint string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM blacklist WHERE mint=$1)`, mint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return exists, nil
}

// GetAll retrieves all blacklist entries.
func (s *BlacklistStore) GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint, reason, created_at, note FROM blacklist`)
	if err != nil {
		return nil, fmt.Errorf("get all blacklist entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.BlacklistEntry
	for rows.Next() {
		var e domain.BlacklistEntry
		if err := rows.Scan(&e.Mint, &e.Reason, &e.CreatedAt, &e.Note); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

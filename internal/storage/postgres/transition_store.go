package postgres

import (
	"context"
	"fmt"

	"solana-memecoin-agent/internal/storage"
)

// TransitionStore implements storage.TransitionStore using PostgreSQL.
type TransitionStore struct {
	pool *Pool
}

// NewTransitionStore creates a new TransitionStore.
func NewTransitionStore(pool *Pool) *TransitionStore {
	return &TransitionStore{pool: pool}
}

var _ storage.TransitionStore = (*TransitionStore)(nil)

// Insert appends a record of an applied transition.
func (s *TransitionStore) Insert(ctx context.Context, positionID string, kind string, appliedAt int64, detail string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO position_transitions (position_id, kind, applied_at, detail)
		VALUES ($1,$2,$3,$4)
	`, positionID, kind, appliedAt, detail)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// GetByPositionID retrieves all transitions for a position, ordered by applied time ASC.
func (s *TransitionStore) GetByPositionID(ctx context.Context, positionID string) ([]storage.TransitionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT position_id, kind, applied_at, detail
		FROM position_transitions WHERE position_id=$1 ORDER BY applied_at ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("get transitions by position id: %w", err)
	}
	defer rows.Close()

	var out []storage.TransitionRecord
	for rows.Next() {
		var r storage.TransitionRecord
		if err := rows.Scan(&r.PositionID, &r.Kind, &r.AppliedAt, &r.Detail); err != nil {
			return nil, fmt.Errorf("scan transition record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

package storage

import (
	"context"

	"solana-memecoin-agent/internal/domain"
)

// TokenStore provides access to tokens storage. Tokens mutate in place as
// enrichment refreshes arrive, so Upsert replaces a plain Insert.
type TokenStore interface {
	// Upsert inserts or updates a token by mint.
	Upsert(ctx context.Context, t *domain.Token) error

	// GetByMint retrieves a token. Returns ErrNotFound if not exists.
	GetByMint(ctx context.Context, mint string) (*domain.Token, error)

	// GetWatchlist retrieves tokens with a non-nil WatchlistAddedAt.
	GetWatchlist(ctx context.Context) ([]*domain.Token, error)
}

// PoolStore provides access to pools storage.
type PoolStore interface {
	// Upsert inserts or updates a pool keyed by pool_address.
	Upsert(ctx context.Context, p *domain.PoolInfo) error

	// GetByAddress retrieves a pool. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, poolAddress string) (*domain.PoolInfo, error)

	// GetByMint retrieves all pools with the given mint on either side.
	GetByMint(ctx context.Context, mint string) ([]*domain.PoolInfo, error)
}

// PositionStore provides access to positions storage. Positions mutate via
// the transition algebra in internal/positions, so this store supports
// Update rather than an append-only contract.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces a position's row. Returns ErrNotFound if id doesn't exist.
	Update(ctx context.Context, p *domain.Position) error

	// Delete removes a position row (used by RemoveOrphanEntry).
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a position. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Position, error)

	// GetOpen retrieves all open positions, ordered by entry time ASC.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetByMint retrieves all positions (open or closed) for a mint.
	GetByMint(ctx context.Context, mint string) ([]*domain.Position, error)
}

// TransitionStore provides an append-only audit log of applied transitions,
// keyed by position id, for reconciliation and debugging.
type TransitionStore interface {
	// Insert appends a record of an applied transition.
	Insert(ctx context.Context, positionID string, kind string, appliedAt int64, detail string) error

	// GetByPositionID retrieves all transitions for a position, ordered by applied time ASC.
	GetByPositionID(ctx context.Context, positionID string) ([]TransitionRecord, error)
}

// TransitionRecord is one persisted entry in the transition audit log.
type TransitionRecord struct {
	PositionID string
	Kind       string
	AppliedAt  int64
	Detail     string
}

// BlacklistStore provides access to blacklist storage.
type BlacklistStore interface {
	// Insert adds a blacklist entry. Returns ErrDuplicateKey if mint exists.
	Insert(ctx context.Context, e *domain.BlacklistEntry) error

	// Remove deletes a blacklist entry, the only way to un-blacklist a mint.
	Remove(ctx context.Context, mint string) error

	// IsBlacklisted reports whether a mint is currently blacklisted.
	IsBlacklisted(ctx context.Context, mint string) (bool, error)

	// GetAll retrieves all blacklist entries.
	GetAll(ctx context.Context) ([]*domain.BlacklistEntry, error)
}

// TransactionStore provides access to transactions storage: one row per
// submitted entry/exit/DCA signature, recording C6's reconciled economics
// once SmartConfirmer resolves it.
type TransactionStore interface {
	// Insert adds a new transaction row. Returns ErrDuplicateKey if signature exists.
	Insert(ctx context.Context, t *domain.Transaction) error

	// Update replaces a transaction row (used once verification completes).
	Update(ctx context.Context, t *domain.Transaction) error

	// GetBySignature retrieves a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.Transaction, error)

	// GetByPositionID retrieves all transactions for a position.
	GetByPositionID(ctx context.Context, positionID string) ([]*domain.Transaction, error)
}

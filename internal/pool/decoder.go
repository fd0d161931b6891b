// Package pool implements the Pool Service (C2): per-program layout
// decoding, canonical pool selection, price caching and history, and the
// prioritized refresh scheduler.
package pool

import "solana-memecoin-agent/internal/domain"

// Decoder turns raw account bytes for one program layout into a normalized
// domain.PoolInfo and computes its price. Implementations must never panic
// on short input; they return a typed error instead.
type Decoder interface {
	// Decode parses raw account bytes into a PoolInfo. base/quote decimals
	// are supplied by the caller (from the token cache) since decoders
	// never look up decimals themselves.
	Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error)

	// CalculatePrice computes price_in_native from an already-decoded PoolInfo.
	// Decimals must be the same values passed to Decode.
	CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error)

	// ProgramID returns the base58 program id this decoder recognizes.
	ProgramID() string

	// LayoutName returns the domain.PoolKind this decoder produces.
	LayoutName() domain.PoolKind

	// MinBytes returns the minimum account data length this decoder accepts.
	MinBytes() int
}

// Registry is a read-after-freeze table of decoders keyed by program id,
// mirroring the register-at-startup idiom used by the strategy condition
// registry.
type Registry struct {
	decoders map[string]Decoder
	frozen   bool
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register adds a decoder keyed by its program id. Panics if called after Freeze.
func (r *Registry) Register(d Decoder) {
	if r.frozen {
		panic("pool: Register called after Freeze")
	}
	r.decoders[d.ProgramID()] = d
}

// Freeze forbids further registration, allowing lock-free lookups.
func (r *Registry) Freeze() {
	r.frozen = true
}

// Get returns the decoder for a program id, or nil if none is registered.
func (r *Registry) Get(programID string) Decoder {
	return r.decoders[programID]
}

// NewDefaultRegistry builds and freezes a registry containing all seven
// supported layouts.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, d := range DefaultDecoders() {
		r.Register(d)
	}
	r.Freeze()
	return r
}

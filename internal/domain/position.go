package domain

// PositionStatus is the coarse lifecycle state of a Position, derived from
// its fields rather than stored directly (EntrySubmitted/ExitSubmitted/
// DcaSubmitted/PartialExitSubmitted are represented by a non-nil pending
// signature field rather than a separate enum, keeping the transition
// algebra in internal/positions the single source of truth for state
// changes).
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// PartialExit records one partial-exit fill against an open position.
type PartialExit struct {
	TxSignature        string
	TokensSold         uint64 // raw units
	NativeReceived      float64
	EffectiveExitPrice float64
	Fee                float64
	ExitTime           int64 // unix ms
}

// Position is the persistent record of an owned token lot. It is mutated
// only through the transition algebra in internal/positions/machine.go.
type Position struct {
	ID     string
	Mint   string
	Symbol string

	EntryPrice               float64 // intended price at submission time
	EffectiveEntryPrice      float64 // set once EntryVerified is applied; recomputed as a weighted average on each DCA
	FirstEffectiveEntryPrice float64 // EffectiveEntryPrice's value at EntryVerified, never touched by DCA; the "original" trailing-arm basis
	EntryTime                int64   // unix ms

	TotalSizeNative   float64 // gross native invested, including DCA adds
	InitialSizeNative float64 // native size of the original entry fill, never touched by DCA; DCA add sizing is a percentage of this
	TokenAmount       uint64  // raw units currently owned; 0 implies closed

	PriceHighest float64
	PriceLowest  float64
	CurrentPrice float64

	EntryTxSignature string
	EntryFee         float64

	PendingExitSignature *string // non-nil while an exit/partial/dca submission is in flight
	ExitTxSignature      string
	EffectiveExitPrice   float64
	NativeReceived       float64
	ExitFee              float64

	LiquidityTier string

	TransactionEntryVerified bool
	TransactionExitVerified  bool

	PhantomFirstSeen     *int64 // unix ms, nil if never observed phantom
	PhantomConfirmations int

	SyntheticExit bool
	ClosedReason  string

	DcaCount        int
	LastDcaAt       *int64 // unix ms
	PartialExits    []PartialExit

	ExitFailureCount int // consecutive exit verification failures since last success

	Status PositionStatus
}

// IsOpen reports whether the position still holds a positive token balance
// and has not been terminally closed.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen && p.TokenAmount > 0
}

// RealizedPnLNative computes native-denominated realized profit for a
// terminally-closed, on-chain-verified exit. Callers must not use this for
// synthetic exits, which have no NativeReceived.
func (p *Position) RealizedPnLNative() float64 {
	return p.NativeReceived - p.TotalSizeNative - p.EntryFee - p.ExitFee
}

// PnLPercent computes unrealized percent P&L from CurrentPrice against the
// effective entry price, used by stop-loss/trailing/time-override rules.
func (p *Position) PnLPercent() float64 {
	if p.EffectiveEntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EffectiveEntryPrice) / p.EffectiveEntryPrice * 100
}

// AgeHours returns the position's age in hours as of nowMs.
func (p *Position) AgeHours(nowMs int64) float64 {
	return float64(nowMs-p.EntryTime) / (1000 * 60 * 60)
}

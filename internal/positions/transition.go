// Package positions implements the position lifecycle state machine (C4):
// entry/exit/partial/DCA transitions applied atomically against a
// storage.PositionStore, plus the entry and exit monitor loops that drive it.
package positions

// Kind identifies which of the twelve transition variants a Transition carries.
type Kind string

const (
	KindEntryVerified                  Kind = "EntryVerified"
	KindExitVerified                   Kind = "ExitVerified"
	KindExitFailedClearForRetry        Kind = "ExitFailedClearForRetry"
	KindExitPermanentFailureSynthetic  Kind = "ExitPermanentFailureSynthetic"
	KindRemoveOrphanEntry              Kind = "RemoveOrphanEntry"
	KindUpdatePriceTracking            Kind = "UpdatePriceTracking"
	KindPartialExitSubmitted           Kind = "PartialExitSubmitted"
	KindPartialExitVerified            Kind = "PartialExitVerified"
	KindPartialExitFailed              Kind = "PartialExitFailed"
	KindDcaSubmitted                   Kind = "DcaSubmitted"
	KindDcaVerified                    Kind = "DcaVerified"
	KindDcaFailed                      Kind = "DcaFailed"
)

// EntryVerifiedPayload carries the verified economic fields of a successful
// entry transaction. TokenAmountUnits and NativeSize are in raw/native units
// respectively, matching the verifier's output.
type EntryVerifiedPayload struct {
	EffectiveEntryPrice float64
	TokenAmountUnits    uint64
	FeeLamports         uint64
	NativeSize          float64
}

// ExitVerifiedPayload carries the verified economic fields of a successful
// full exit.
type ExitVerifiedPayload struct {
	EffectiveExitPrice float64
	NativeReceived     float64
	FeeLamports        uint64
	ExitTime           int64
}

// ExitPermanentFailureSyntheticPayload closes a position without an on-chain
// exit record after the retry budget is exhausted.
type ExitPermanentFailureSyntheticPayload struct {
	ExitTime int64
	Reason   string
}

// UpdatePriceTrackingPayload is the only transition that does not persist.
// Highest/Lowest are nil when the tick did not set a new extreme.
type UpdatePriceTrackingPayload struct {
	Mint         string
	CurrentPrice float64
	Highest      *float64
	Lowest       *float64
}

// PartialExitSubmittedPayload records a partial exit's submission before
// verification.
type PartialExitSubmittedPayload struct {
	ExitSignature  string
	ExitAmount     uint64
	ExitPercentage float64
	MarketPrice    float64
}

// PartialExitVerifiedPayload carries the verified economic fields of a
// successful partial exit.
type PartialExitVerifiedPayload struct {
	ExitAmount         uint64
	NativeReceived     float64
	EffectiveExitPrice float64
	FeeLamports        uint64
	ExitTime           int64
}

// PartialExitFailedPayload records a failed partial exit attempt; the
// position remains open with its token amount unchanged, and its pending
// exit signature is cleared so the exit monitor evaluates it again.
type PartialExitFailedPayload struct {
	Reason string
}

// DcaSubmittedPayload records a DCA add's submission before verification.
type DcaSubmittedPayload struct {
	DcaSignature    string
	DcaAmountNative float64
	MarketPrice     float64
}

// DcaVerifiedPayload carries the verified economic fields of a successful DCA add.
// Decimals converts the position's raw TokenAmount into UI units so
// EffectiveEntryPrice stays in UI-unit-per-native terms after the reweight.
type DcaVerifiedPayload struct {
	TokensBought   uint64
	NativeSpent    float64
	EffectivePrice float64
	FeeLamports    uint64
	DcaTime        int64
	Decimals       int
}

// DcaFailedPayload records a failed DCA attempt; the position's amounts are
// unchanged and its pending signature is cleared.
type DcaFailedPayload struct {
	Reason string
}

// Transition is a typed event describing a position state change. Exactly
// one payload field is non-nil, matching Kind. PositionID is empty only for
// UpdatePriceTracking, which addresses a mint rather than a position.
type Transition struct {
	Kind       Kind
	PositionID string

	EntryVerified                 *EntryVerifiedPayload
	ExitVerified                  *ExitVerifiedPayload
	ExitPermanentFailureSynthetic *ExitPermanentFailureSyntheticPayload
	UpdatePriceTracking           *UpdatePriceTrackingPayload
	PartialExitSubmitted          *PartialExitSubmittedPayload
	PartialExitVerified           *PartialExitVerifiedPayload
	PartialExitFailed             *PartialExitFailedPayload
	DcaSubmitted                  *DcaSubmittedPayload
	DcaVerified                   *DcaVerifiedPayload
	DcaFailed                     *DcaFailedPayload
}

// IsTerminal reports whether applying this transition always closes the
// position.
func (t Transition) IsTerminal() bool {
	switch t.Kind {
	case KindExitVerified, KindExitPermanentFailureSynthetic, KindRemoveOrphanEntry:
		return true
	default:
		return false
	}
}

// RequiresDBUpdate reports whether this transition is recorded in the
// transition audit log. UpdatePriceTracking is the sole exception; Machine.Apply
// still writes its price fields to the position store.
func (t Transition) RequiresDBUpdate() bool {
	return t.Kind != KindUpdatePriceTracking
}

func NewEntryVerified(positionID string, p EntryVerifiedPayload) Transition {
	return Transition{Kind: KindEntryVerified, PositionID: positionID, EntryVerified: &p}
}

func NewExitVerified(positionID string, p ExitVerifiedPayload) Transition {
	return Transition{Kind: KindExitVerified, PositionID: positionID, ExitVerified: &p}
}

func NewExitFailedClearForRetry(positionID string) Transition {
	return Transition{Kind: KindExitFailedClearForRetry, PositionID: positionID}
}

func NewExitPermanentFailureSynthetic(positionID string, p ExitPermanentFailureSyntheticPayload) Transition {
	return Transition{Kind: KindExitPermanentFailureSynthetic, PositionID: positionID, ExitPermanentFailureSynthetic: &p}
}

func NewRemoveOrphanEntry(positionID string) Transition {
	return Transition{Kind: KindRemoveOrphanEntry, PositionID: positionID}
}

func NewUpdatePriceTracking(p UpdatePriceTrackingPayload) Transition {
	return Transition{Kind: KindUpdatePriceTracking, UpdatePriceTracking: &p}
}

func NewPartialExitSubmitted(positionID string, p PartialExitSubmittedPayload) Transition {
	return Transition{Kind: KindPartialExitSubmitted, PositionID: positionID, PartialExitSubmitted: &p}
}

func NewPartialExitVerified(positionID string, p PartialExitVerifiedPayload) Transition {
	return Transition{Kind: KindPartialExitVerified, PositionID: positionID, PartialExitVerified: &p}
}

func NewPartialExitFailed(positionID string, p PartialExitFailedPayload) Transition {
	return Transition{Kind: KindPartialExitFailed, PositionID: positionID, PartialExitFailed: &p}
}

func NewDcaSubmitted(positionID string, p DcaSubmittedPayload) Transition {
	return Transition{Kind: KindDcaSubmitted, PositionID: positionID, DcaSubmitted: &p}
}

func NewDcaVerified(positionID string, p DcaVerifiedPayload) Transition {
	return Transition{Kind: KindDcaVerified, PositionID: positionID, DcaVerified: &p}
}

func NewDcaFailed(positionID string, p DcaFailedPayload) Transition {
	return Transition{Kind: KindDcaFailed, PositionID: positionID, DcaFailed: &p}
}

package domain

// TransactionKind classifies a submitted signature by its role in the
// position lifecycle.
type TransactionKind string

const (
	TransactionKindEntry   TransactionKind = "entry"
	TransactionKindExit    TransactionKind = "exit"
	TransactionKindPartial TransactionKind = "partial"
	TransactionKindDca     TransactionKind = "dca"
)

// TransactionStatus is the chain-observed status of a submitted signature.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is a row per submitted signature, persisted so the verifier's
// analysis survives a process restart mid-poll.
type Transaction struct {
	Signature        string
	Kind             TransactionKind
	PositionID       *string // nil for entries before a position row exists
	SubmittedAt      int64   // unix ms
	Status           TransactionStatus
	EffectivePrice   float64
	FeeLamports      uint64
	PreTokenBalance  uint64
	PostTokenBalance uint64
	PreNativeBalance uint64
	PostNativeBalance uint64
	VerifiedAt       *int64 // unix ms, nil until smart confirmation completes
}

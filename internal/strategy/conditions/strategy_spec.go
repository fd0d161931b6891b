package conditions

import "context"

// Action is the top-level action a passing strategy tree triggers.
type Action string

const (
	ActionBuy          Action = "buy"
	ActionSellAll      Action = "sell_all"
	ActionSellPartial  Action = "sell_partial"
)

// StrategySpec is a declarative entry or exit strategy: a condition tree
// plus the action to take when it passes. SellFraction is only meaningful
// for ActionSellPartial; exactly (0,1).
type StrategySpec struct {
	ID           string
	Action       Action
	SellFraction float64
	ExitKind     ExitKind // urgency class, meaningful for exit strategies only
	Tree         Node
}

// Evaluate runs the spec's condition tree and reports whether it passed.
// It does not return SellFraction; callers read it from the spec. Callers
// combining several exit specs on the same tick use MostUrgent to pick the
// winner.
func (s StrategySpec) Evaluate(ctx context.Context, registry *Registry, ec EvaluationContext) (bool, error) {
	return s.Tree.Evaluate(ctx, registry, ec)
}

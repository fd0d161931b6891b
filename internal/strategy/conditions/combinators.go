package conditions

import "context"

// Node is a condition-tree node: either a leaf (a registered
// ConditionEvaluator plus its params) or a combinator over child nodes.
type Node struct {
	// Leaf fields. ConditionType is empty for combinator nodes.
	ConditionType string
	Params        map[string]interface{}

	// Combinator fields.
	Kind     combinatorKind
	Children []Node
}

type combinatorKind string

const (
	kindLeaf combinatorKind = ""
	kindAnd  combinatorKind = "AND"
	kindOr   combinatorKind = "OR"
	kindNot  combinatorKind = "NOT"
)

// And builds an AND combinator node over the given children.
func And(children ...Node) Node { return Node{Kind: kindAnd, Children: children} }

// Or builds an OR combinator node over the given children.
func Or(children ...Node) Node { return Node{Kind: kindOr, Children: children} }

// Not builds a NOT combinator node negating a single child.
func Not(child Node) Node { return Node{Kind: kindNot, Children: []Node{child}} }

// Leaf builds a leaf node for a registered condition type.
func Leaf(conditionType string, params map[string]interface{}) Node {
	return Node{ConditionType: conditionType, Params: params}
}

// Evaluate walks the tree depth-first with short-circuit AND/OR semantics,
// using registry to build leaf evaluators.
func (n Node) Evaluate(ctx context.Context, registry *Registry, ec EvaluationContext) (bool, error) {
	switch n.Kind {
	case kindAnd:
		for _, child := range n.Children {
			ok, err := child.Evaluate(ctx, registry, ec)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case kindOr:
		for _, child := range n.Children {
			ok, err := child.Evaluate(ctx, registry, ec)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case kindNot:
		ok, err := n.Children[0].Evaluate(ctx, registry, ec)
		if err != nil {
			return false, err
		}
		return !ok, nil
	default:
		evaluator, err := registry.Build(n.ConditionType)
		if err != nil {
			return false, err
		}
		return evaluator.Evaluate(ctx, n.Params, ec)
	}
}

// ExitKind tags the reason an exit strategy's tree passed, for urgency ranking.
type ExitKind string

const (
	ExitKindStopLoss   ExitKind = "stop_loss"
	ExitKindTakeProfit ExitKind = "take_profit"
	ExitKindTrailing   ExitKind = "trailing"
	ExitKindTimeBased  ExitKind = "time_based"
	ExitKindOther      ExitKind = "other"
)

// exitPriority ranks exit kinds for tie-breaking when multiple exit
// strategies pass on the same tick: stop-loss beats take-profit beats
// trailing beats time-based beats everything else.
func exitPriority(kind ExitKind) int {
	switch kind {
	case ExitKindStopLoss:
		return 4
	case ExitKindTakeProfit:
		return 3
	case ExitKindTrailing:
		return 2
	case ExitKindTimeBased:
		return 1
	default:
		return 0
	}
}

// ExitCandidate is one passing exit strategy's result: its kind, the
// fraction of the position to sell, and priority for the most-urgent-wins
// rule (ties broken by larger fraction).
type ExitCandidate struct {
	Kind     ExitKind
	Fraction float64 // (0,1]; 1.0 means full exit
}

// MostUrgent picks the winning exit among several passing candidates on the
// same tick: highest exitPriority wins; ties broken by largest Fraction.
func MostUrgent(candidates []ExitCandidate) (ExitCandidate, bool) {
	if len(candidates) == 0 {
		return ExitCandidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if exitPriority(c.Kind) > exitPriority(best.Kind) {
			best = c
			continue
		}
		if exitPriority(c.Kind) == exitPriority(best.Kind) && c.Fraction > best.Fraction {
			best = c
		}
	}
	return best, true
}

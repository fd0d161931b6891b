package strategy

import (
	"solana-memecoin-agent/internal/config"
	"solana-memecoin-agent/internal/strategy/conditions"
)

// BuildEntrySpec translates the discovery funnel's filtering thresholds
// into the live entry strategy. The funnel already screens candidates on
// this bar before they reach the watchlist; the entry monitor re-checks it
// against the pool service's latest refreshed liquidity reading, which can
// have moved since discovery.
func BuildEntrySpec(filtering config.FilteringConfig) conditions.StrategySpec {
	return conditions.StrategySpec{
		ID:     "entry_liquidity_gate",
		Action: conditions.ActionBuy,
		Tree: conditions.Leaf("LiquidityDepth", map[string]interface{}{
			"min_liquidity_usd": filtering.MinPositionLiquidityUSD,
		}),
	}
}

// BuildExitSpecs translates positions config into the live exit strategy
// set: stop-loss, ROI target, trailing stop, and a time-override that
// closes a stale loser regardless of the other rules. MostUrgent ranks
// stop-loss above take-profit above trailing above time-based, matching
// the declared exit priority order.
func BuildExitSpecs(pos config.PositionsConfig) []conditions.StrategySpec {
	return []conditions.StrategySpec{
		{
			ID:       "stop_loss",
			Action:   conditions.ActionSellAll,
			ExitKind: conditions.ExitKindStopLoss,
			Tree: conditions.Leaf("PriceMovement", map[string]interface{}{
				"percent":    pos.StopLossPercent,
				"comparator": string(conditions.ComparatorLessEq),
			}),
		},
		{
			ID:       "take_profit",
			Action:   conditions.ActionSellAll,
			ExitKind: conditions.ExitKindTakeProfit,
			Tree: conditions.Leaf("PriceMovement", map[string]interface{}{
				"percent":    pos.MinProfitThresholdPct,
				"comparator": string(conditions.ComparatorGreaterEq),
			}),
		},
		{
			ID:       "trailing_stop",
			Action:   conditions.ActionSellAll,
			ExitKind: conditions.ExitKindTrailing,
			Tree: conditions.Leaf("TrailingStop", map[string]interface{}{
				"activation_percent": pos.TrailingActivationPct,
				"distance_percent":   pos.TrailingDistancePct,
			}),
		},
		{
			ID:       "time_override",
			Action:   conditions.ActionSellAll,
			ExitKind: conditions.ExitKindTimeBased,
			Tree: conditions.And(
				conditions.Leaf("PositionAge", map[string]interface{}{
					"hours":      pos.TimeOverrideDurationHours,
					"comparator": string(conditions.ComparatorGreaterThan),
				}),
				conditions.Leaf("PriceMovement", map[string]interface{}{
					"percent":    pos.TimeOverrideLossThresholdPct,
					"comparator": string(conditions.ComparatorLessEq),
				}),
			),
		},
	}
}

package strategy

import (
	"context"
	"testing"

	"solana-memecoin-agent/internal/config"
	"solana-memecoin-agent/internal/strategy/conditions"
)

func TestBuildEntrySpec_PassesAboveLiquidityFloor(t *testing.T) {
	spec := BuildEntrySpec(config.FilteringConfig{MinPositionLiquidityUSD: 1000})
	registry := conditions.NewDefaultRegistry()

	ok, err := spec.Evaluate(context.Background(), registry, conditions.EvaluationContext{LiquidityUSD: 1500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected entry spec to pass above the liquidity floor")
	}

	ok, err = spec.Evaluate(context.Background(), registry, conditions.EvaluationContext{LiquidityUSD: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected entry spec to reject below the liquidity floor")
	}
}

func TestBuildExitSpecs_StopLossFires(t *testing.T) {
	pos := config.PositionsConfig{
		StopLossPercent:       -20,
		MinProfitThresholdPct: 30,
		TrailingActivationPct: 15,
		TrailingDistancePct:   10,
	}
	specs := BuildExitSpecs(pos)
	registry := conditions.NewDefaultRegistry()

	ec := conditions.EvaluationContext{EntryPrice: 1.0, CurrentPrice: 0.75} // -25%
	var fired []conditions.ExitKind
	for _, spec := range specs {
		ok, err := spec.Evaluate(context.Background(), registry, ec)
		if err != nil {
			t.Fatalf("spec %s: unexpected error: %v", spec.ID, err)
		}
		if ok {
			fired = append(fired, spec.ExitKind)
		}
	}
	if len(fired) != 1 || fired[0] != conditions.ExitKindStopLoss {
		t.Fatalf("expected only stop_loss to fire, got %v", fired)
	}
}

func TestBuildExitSpecs_TimeOverrideRequiresBothAgeAndLoss(t *testing.T) {
	pos := config.PositionsConfig{
		TimeOverrideDurationHours:    12,
		TimeOverrideLossThresholdPct: -10,
	}
	specs := BuildExitSpecs(pos)
	registry := conditions.NewDefaultRegistry()

	var timeSpec conditions.StrategySpec
	for _, s := range specs {
		if s.ExitKind == conditions.ExitKindTimeBased {
			timeSpec = s
		}
	}

	// Old enough but not losing: should not fire.
	ok, err := timeSpec.Evaluate(context.Background(), registry, conditions.EvaluationContext{
		EntryPrice: 1.0, CurrentPrice: 1.05, PositionAgeHours: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected time override to stay quiet on a position that isn't losing")
	}

	// Old and losing: should fire.
	ok, err = timeSpec.Evaluate(context.Background(), registry, conditions.EvaluationContext{
		EntryPrice: 1.0, CurrentPrice: 0.85, PositionAgeHours: 20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected time override to fire on an old, losing position")
	}
}

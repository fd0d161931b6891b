package conditions

import (
	"context"
	"testing"
)

func TestTrailingStop_NotArmedBelowActivation(t *testing.T) {
	c := &TrailingStop{}
	ec := EvaluationContext{TrailingArmEntryPrice: 1.0, PriceHighest: 1.05, CurrentPrice: 0.90}
	params := map[string]interface{}{"activation_percent": 15.0, "distance_percent": 10.0}

	ok, err := c.Evaluate(context.Background(), params, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected trailing stop not to fire before arming")
	}
}

func TestTrailingStop_FiresPastDistanceOnceArmed(t *testing.T) {
	c := &TrailingStop{}
	// peak implies +20% pnl, above the 15% activation bar; current price is
	// 12% below peak, past the 10% distance.
	ec := EvaluationContext{TrailingArmEntryPrice: 1.0, PriceHighest: 1.20, CurrentPrice: 1.056}
	params := map[string]interface{}{"activation_percent": 15.0, "distance_percent": 10.0}

	ok, err := c.Evaluate(context.Background(), params, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected trailing stop to fire once armed and past distance")
	}
}

func TestTrailingStop_ArmedButWithinDistance(t *testing.T) {
	c := &TrailingStop{}
	ec := EvaluationContext{TrailingArmEntryPrice: 1.0, PriceHighest: 1.20, CurrentPrice: 1.15}
	params := map[string]interface{}{"activation_percent": 15.0, "distance_percent": 10.0}

	ok, err := c.Evaluate(context.Background(), params, ec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected trailing stop to stay quiet within its trailing distance")
	}
}

func TestTrailingStop_MissingParams(t *testing.T) {
	c := &TrailingStop{}
	if err := c.Validate(map[string]interface{}{"activation_percent": 1.0}); err == nil {
		t.Fatal("expected Validate to require distance_percent")
	}
}

package conditions

import "context"

// TrailingStop arms once the position's peak price implies unrealized
// profit at or above activation_percent (measured from
// TrailingArmEntryPrice), then closes once the current price falls
// distance_percent below that peak. Evaluated fresh each tick from
// PriceHighest rather than carrying arm state, since a position armed on
// one tick stays armed on every later tick: PriceHighest never decreases.
type TrailingStop struct{}

func (c *TrailingStop) ConditionType() string { return "TrailingStop" }

func (c *TrailingStop) Validate(params map[string]interface{}) error {
	if _, err := floatParam(params, "activation_percent"); err != nil {
		return err
	}
	_, err := floatParam(params, "distance_percent")
	return err
}

func (c *TrailingStop) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"activation_percent": "float64", "distance_percent": "float64"}
}

func (c *TrailingStop) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	activation, err := floatParam(params, "activation_percent")
	if err != nil {
		return false, err
	}
	distance, err := floatParam(params, "distance_percent")
	if err != nil {
		return false, err
	}
	if ec.TrailingArmEntryPrice <= 0 || ec.PriceHighest <= 0 {
		return false, nil
	}
	peakPnLPercent := (ec.PriceHighest - ec.TrailingArmEntryPrice) / ec.TrailingArmEntryPrice * 100
	if peakPnLPercent < activation {
		return false, nil
	}
	trailingStopPrice := ec.PriceHighest * (1 - distance/100)
	return ec.CurrentPrice <= trailingStopPrice, nil
}

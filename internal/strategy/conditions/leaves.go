package conditions

import (
	"context"
	"fmt"
)

func floatParam(params map[string]interface{}, key string) (float64, error) {
	v, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("parameter %q must be a number", key)
	}
	return f, nil
}

func comparatorParam(params map[string]interface{}) (Comparator, error) {
	v, ok := params["comparator"]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", "comparator")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", "comparator")
	}
	cmp := Comparator(s)
	switch cmp {
	case ComparatorGreaterThan, ComparatorLessThan, ComparatorGreaterEq, ComparatorLessEq:
		return cmp, nil
	default:
		return "", fmt.Errorf("unknown comparator %q", s)
	}
}

// PriceThreshold compares the current price against a fixed threshold.
type PriceThreshold struct{}

func (c *PriceThreshold) ConditionType() string { return "PriceThreshold" }

func (c *PriceThreshold) Validate(params map[string]interface{}) error {
	if _, err := floatParam(params, "threshold"); err != nil {
		return err
	}
	_, err := comparatorParam(params)
	return err
}

func (c *PriceThreshold) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"threshold": "float64", "comparator": "greater_than|less_than|greater_equal|less_equal"}
}

func (c *PriceThreshold) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	threshold, err := floatParam(params, "threshold")
	if err != nil {
		return false, err
	}
	cmp, err := comparatorParam(params)
	if err != nil {
		return false, err
	}
	return compare(cmp, ec.CurrentPrice, threshold), nil
}

// PriceMovement compares the percent change from entry price against a threshold.
type PriceMovement struct{}

func (c *PriceMovement) ConditionType() string { return "PriceMovement" }

func (c *PriceMovement) Validate(params map[string]interface{}) error {
	if _, err := floatParam(params, "percent"); err != nil {
		return err
	}
	_, err := comparatorParam(params)
	return err
}

func (c *PriceMovement) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"percent": "float64", "comparator": "greater_than|less_than|greater_equal|less_equal"}
}

func (c *PriceMovement) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	percent, err := floatParam(params, "percent")
	if err != nil {
		return false, err
	}
	cmp, err := comparatorParam(params)
	if err != nil {
		return false, err
	}
	if ec.EntryPrice == 0 {
		return false, nil
	}
	moveP := (ec.CurrentPrice - ec.EntryPrice) / ec.EntryPrice * 100
	return compare(cmp, moveP, percent), nil
}

// RelativeToMa compares the current price against a moving average by percent offset.
type RelativeToMa struct{}

func (c *RelativeToMa) ConditionType() string { return "RelativeToMa" }

func (c *RelativeToMa) Validate(params map[string]interface{}) error {
	if _, err := floatParam(params, "percent"); err != nil {
		return err
	}
	_, err := comparatorParam(params)
	return err
}

func (c *RelativeToMa) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"percent": "float64", "comparator": "greater_than|less_than|greater_equal|less_equal"}
}

func (c *RelativeToMa) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	percent, err := floatParam(params, "percent")
	if err != nil {
		return false, err
	}
	cmp, err := comparatorParam(params)
	if err != nil {
		return false, err
	}
	if ec.MovingAverage == 0 {
		return false, nil
	}
	offsetP := (ec.CurrentPrice - ec.MovingAverage) / ec.MovingAverage * 100
	return compare(cmp, offsetP, percent), nil
}

// LiquidityDepth compares pool liquidity (USD) against a minimum.
type LiquidityDepth struct{}

func (c *LiquidityDepth) ConditionType() string { return "LiquidityDepth" }

func (c *LiquidityDepth) Validate(params map[string]interface{}) error {
	_, err := floatParam(params, "min_liquidity_usd")
	return err
}

func (c *LiquidityDepth) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"min_liquidity_usd": "float64"}
}

func (c *LiquidityDepth) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	minLiq, err := floatParam(params, "min_liquidity_usd")
	if err != nil {
		return false, err
	}
	return ec.LiquidityUSD >= minLiq, nil
}

// PositionAge compares a position's age in hours against a threshold.
type PositionAge struct{}

func (c *PositionAge) ConditionType() string { return "PositionAge" }

func (c *PositionAge) Validate(params map[string]interface{}) error {
	if _, err := floatParam(params, "hours"); err != nil {
		return err
	}
	_, err := comparatorParam(params)
	return err
}

func (c *PositionAge) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"hours": "float64", "comparator": "greater_than|less_than|greater_equal|less_equal"}
}

func (c *PositionAge) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	hours, err := floatParam(params, "hours")
	if err != nil {
		return false, err
	}
	cmp, err := comparatorParam(params)
	if err != nil {
		return false, err
	}
	return compare(cmp, ec.PositionAgeHours, hours), nil
}

// VolumeSpike compares 24h quote volume against a minimum.
type VolumeSpike struct{}

func (c *VolumeSpike) ConditionType() string { return "VolumeSpike" }

func (c *VolumeSpike) Validate(params map[string]interface{}) error {
	_, err := floatParam(params, "min_volume_quote")
	return err
}

func (c *VolumeSpike) ParameterSchema() map[string]interface{} {
	return map[string]interface{}{"min_volume_quote": "float64"}
}

func (c *VolumeSpike) Evaluate(_ context.Context, params map[string]interface{}, ec EvaluationContext) (bool, error) {
	minVolume, err := floatParam(params, "min_volume_quote")
	if err != nil {
		return false, err
	}
	return ec.Volume24hQuote >= minVolume, nil
}

package decoders

import "math/big"

// q64x64ToPrice converts a Q64.64 fixed-point sqrt-price (the CLMM/DAMMv2
// on-chain representation) to a float64 price, scaled for decimal
// difference between base and quote mints.
func q64x64ToPrice(sqrtPriceX64 *big.Int, baseDecimals, quoteDecimals int) float64 {
	sqrtPrice := new(big.Float).SetInt(sqrtPriceX64)
	two64 := new(big.Float).SetFloat64(18446744073709551616.0) // 2^64
	sqrtPrice.Quo(sqrtPrice, two64)

	price := new(big.Float).Mul(sqrtPrice, sqrtPrice)
	f, _ := price.Float64()
	return f * decimalScale(baseDecimals, quoteDecimals)
}

// reserveRatioPrice computes price_in_native as quote_reserve/base_reserve
// scaled for decimals, the constant-product pricing rule shared by the
// classic AMM layouts and the bonding-curve layout.
func reserveRatioPrice(baseReserve, quoteReserve uint64, baseDecimals, quoteDecimals int) float64 {
	if baseReserve == 0 {
		return 0
	}
	ratio := float64(quoteReserve) / float64(baseReserve)
	return ratio * decimalScale(baseDecimals, quoteDecimals)
}

// decimalScale returns 10^(baseDecimals - quoteDecimals), the factor that
// converts a raw-unit ratio into a human-decimal price.
func decimalScale(baseDecimals, quoteDecimals int) float64 {
	diff := baseDecimals - quoteDecimals
	scale := 1.0
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	for i := 0; i < abs; i++ {
		scale *= 10
	}
	if diff < 0 {
		return 1 / scale
	}
	return scale
}

// binStepPrice implements the DLMM bin-step pricing rule:
// price_raw = (1 + bin_step_bps/10_000)^active_id, scaled for decimals.
func binStepPrice(activeID int32, binStepBps uint16, baseDecimals, quoteDecimals int) float64 {
	base := 1.0 + float64(binStepBps)/10_000.0
	priceRaw := pow(base, int(activeID))
	return priceRaw * decimalScale(baseDecimals, quoteDecimals)
}

func pow(base float64, exp int) float64 {
	neg := exp < 0
	if neg {
		exp = -exp
	}
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	if neg {
		return 1 / result
	}
	return result
}

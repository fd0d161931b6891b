package pool

import "solana-memecoin-agent/internal/pool/decoders"

// DefaultDecoders returns one decoder per supported on-chain program,
// wired into NewDefaultRegistry at startup.
func DefaultDecoders() []Decoder {
	return []Decoder{
		decoders.NewLegacyAmm(),
		decoders.NewCpAmm(),
		decoders.NewConcentratedLiquidityMm(),
		decoders.NewDynamicAmmV2(),
		decoders.NewDiscreteLiquidityMm(),
		decoders.NewWhirlpool(),
		decoders.NewBondingCurveAmm(),
	}
}

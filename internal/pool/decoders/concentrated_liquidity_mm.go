package decoders

import (
	"math/big"

	"solana-memecoin-agent/internal/domain"
)

const clmmMinBytes = 1544
const clmmSqrtPriceOffset = 152

// ConcentratedLiquidityMm decodes the Raydium CLMM pool account layout.
type ConcentratedLiquidityMm struct{}

func NewConcentratedLiquidityMm() *ConcentratedLiquidityMm { return &ConcentratedLiquidityMm{} }

func (d *ConcentratedLiquidityMm) ProgramID() string          { return ProgramIDRaydiumCLMM }
func (d *ConcentratedLiquidityMm) LayoutName() domain.PoolKind { return domain.PoolKindConcentratedLiquidityMm }
func (d *ConcentratedLiquidityMm) MinBytes() int              { return clmmMinBytes }

func (d *ConcentratedLiquidityMm) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < clmmMinBytes {
		return nil, &ErrShortBuffer{Layout: "ConcentratedLiquidityMm", Got: len(data), Required: clmmMinBytes}
	}
	info := &domain.PoolInfo{
		PoolAddress:  poolAddress,
		ProgramID:    d.ProgramID(),
		Kind:         domain.PoolKindConcentratedLiquidityMm,
		BaseMint:     readPubkey(data, 8),
		QuoteMint:    readPubkey(data, 40),
		BaseReserve:  readU64(data, 136),
		QuoteReserve: readU64(data, 144),
	}
	sqrtPrice := readU128(data, clmmSqrtPriceOffset)
	sqrtPrice.FillBytes(info.SqrtPriceX64[:])
	return info, nil
}

// CalculatePrice applies the Q64.64 sqrt-price rule,
// price = (sqrt_price_x64 / 2^64)^2, scaled for the base/quote decimals.
func (d *ConcentratedLiquidityMm) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	sqrtPrice := new(big.Int).SetBytes(info.SqrtPriceX64[:])
	if sqrtPrice.Sign() == 0 {
		return 0, errZeroReserves("ConcentratedLiquidityMm")
	}
	return q64x64ToPrice(sqrtPrice, baseDecimals, quoteDecimals), nil
}

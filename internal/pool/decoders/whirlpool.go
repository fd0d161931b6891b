package decoders

import "solana-memecoin-agent/internal/domain"

const whirlpoolMinBytes = 653

// Whirlpool decodes the Orca Whirlpool account layout.
type Whirlpool struct{}

func NewWhirlpool() *Whirlpool { return &Whirlpool{} }

func (d *Whirlpool) ProgramID() string          { return ProgramIDOrcaWhirlpool }
func (d *Whirlpool) LayoutName() domain.PoolKind { return domain.PoolKindWhirlpool }
func (d *Whirlpool) MinBytes() int              { return whirlpoolMinBytes }

func (d *Whirlpool) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < whirlpoolMinBytes {
		return nil, &ErrShortBuffer{Layout: "Whirlpool", Got: len(data), Required: whirlpoolMinBytes}
	}
	feeRate := readU32(data, 73)
	info := &domain.PoolInfo{
		PoolAddress: poolAddress,
		ProgramID:   d.ProgramID(),
		Kind:        domain.PoolKindWhirlpool,
		FeeRate:     float64(feeRate) / 1_000_000,
		BaseMint:    readPubkey(data, 101),
		QuoteMint:   readPubkey(data, 181),
		TickCurrent: readI32(data, 245),
	}
	var liquidity [8]byte
	copy(liquidity[:], data[253:261])
	copy(info.LiquidityX64[:8], liquidity[:])
	return info, nil
}

// CalculatePrice derives price from the current tick via the standard
// concentrated-liquidity tick-to-price rule, price_raw = 1.0001^tick,
// rather than from a reserve ratio: Whirlpool accounts expose liquidity,
// not token reserves, so there is no reserve pair to ratio.
func (d *Whirlpool) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	priceRaw := pow(1.0001, int(info.TickCurrent))
	return priceRaw * decimalScale(baseDecimals, quoteDecimals), nil
}

package decoders

import "solana-memecoin-agent/internal/domain"

// dynamicAmmV2Base is the fixed skip before the documented field walk:
// an 8-byte discriminator plus a 48-byte volatility tracker sub-struct.
const dynamicAmmV2Base = 56
const dynamicAmmV2MinBytes = dynamicAmmV2Base + 232

// DynamicAmmV2 decodes the Meteora DAMM v2 pool account layout. Offsets are
// relative to dynamicAmmV2Base, following the reference decode_pool_info walk.
type DynamicAmmV2 struct{}

func NewDynamicAmmV2() *DynamicAmmV2 { return &DynamicAmmV2{} }

func (d *DynamicAmmV2) ProgramID() string          { return ProgramIDMeteoraDAMMv2 }
func (d *DynamicAmmV2) LayoutName() domain.PoolKind { return domain.PoolKindDynamicAmmV2 }
func (d *DynamicAmmV2) MinBytes() int              { return dynamicAmmV2MinBytes }

func (d *DynamicAmmV2) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < dynamicAmmV2MinBytes {
		return nil, &ErrShortBuffer{Layout: "DynamicAmmV2", Got: len(data), Required: dynamicAmmV2MinBytes}
	}
	b := dynamicAmmV2Base
	info := &domain.PoolInfo{
		PoolAddress:  poolAddress,
		ProgramID:    d.ProgramID(),
		Kind:         domain.PoolKindDynamicAmmV2,
		BaseMint:     readPubkey(data, b+64),
		BaseReserve:  readU64(data, b+160),
		QuoteReserve: readU64(data, b+168),
	}
	sqrtPrice := readU128(data, b+208)
	sqrtPrice.FillBytes(info.SqrtPriceX64[:])
	return info, nil
}

// CalculatePrice uses the vault reserve ratio. sqrt_price_x64 is decoded and
// retained for diagnostics, but decode_pool_reserves (the ratio derivation)
// is the one treated as authoritative here; the sqrt-price-based derivation
// in the reference implementation disagreed with it on live pools.
func (d *DynamicAmmV2) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	if info.BaseReserve == 0 {
		return 0, errZeroReserves("DynamicAmmV2")
	}
	return reserveRatioPrice(info.BaseReserve, info.QuoteReserve, baseDecimals, quoteDecimals), nil
}

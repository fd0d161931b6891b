package decoders

import "solana-memecoin-agent/internal/domain"

const bondingCurveMinBytes = 300

// BondingCurveAmm decodes the Pump.fun bonding-curve account layout. Unlike
// the other six layouts this is not a constant-product pool against an
// external vault pair; it tracks virtual and real reserves directly on the
// curve account itself.
type BondingCurveAmm struct{}

func NewBondingCurveAmm() *BondingCurveAmm { return &BondingCurveAmm{} }

func (d *BondingCurveAmm) ProgramID() string          { return ProgramIDPumpFunAMM }
func (d *BondingCurveAmm) LayoutName() domain.PoolKind { return domain.PoolKindBondingCurveAmm }
func (d *BondingCurveAmm) MinBytes() int              { return bondingCurveMinBytes }

func (d *BondingCurveAmm) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < bondingCurveMinBytes {
		return nil, &ErrShortBuffer{Layout: "BondingCurveAmm", Got: len(data), Required: bondingCurveMinBytes}
	}
	realTokenReserves := readU64(data, 56)
	realNativeReserves := readU64(data, 64)
	return &domain.PoolInfo{
		PoolAddress:  poolAddress,
		ProgramID:    d.ProgramID(),
		Kind:         domain.PoolKindBondingCurveAmm,
		BaseMint:     readPubkey(data, 8),
		BaseReserve:  realTokenReserves,
		QuoteReserve: realNativeReserves,
	}, nil
}

// CalculatePrice uses the real (not virtual) reserves: virtual reserves set
// the curve's shape but real reserves are what the next swap actually
// trades against, matching how the reference implementation prices quotes.
func (d *BondingCurveAmm) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	if info.BaseReserve == 0 {
		return 0, errZeroReserves("BondingCurveAmm")
	}
	return reserveRatioPrice(info.BaseReserve, info.QuoteReserve, baseDecimals, quoteDecimals), nil
}

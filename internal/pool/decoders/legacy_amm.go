package decoders

import (
	"solana-memecoin-agent/internal/domain"
)

const legacyAmmMinBytes = 264

// LegacyAmm decodes the Raydium legacy AMM v4 account layout.
type LegacyAmm struct{}

func NewLegacyAmm() *LegacyAmm { return &LegacyAmm{} }

func (d *LegacyAmm) ProgramID() string        { return ProgramIDRaydiumLegacyAMM }
func (d *LegacyAmm) LayoutName() domain.PoolKind { return domain.PoolKindLegacyAmm }
func (d *LegacyAmm) MinBytes() int            { return legacyAmmMinBytes }

func (d *LegacyAmm) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < legacyAmmMinBytes {
		return nil, &ErrShortBuffer{Layout: "LegacyAmm", Got: len(data), Required: legacyAmmMinBytes}
	}
	return &domain.PoolInfo{
		PoolAddress:  poolAddress,
		ProgramID:    d.ProgramID(),
		Kind:         domain.PoolKindLegacyAmm,
		BaseMint:     readPubkey(data, 168),
		QuoteMint:    readPubkey(data, 216),
		BaseReserve:  readU64(data, 248),
		QuoteReserve: readU64(data, 256),
	}, nil
}

func (d *LegacyAmm) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	return reserveRatioPrice(info.BaseReserve, info.QuoteReserve, baseDecimals, quoteDecimals), nil
}

// CpAmm decodes the Raydium CPMM account layout. It shares LegacyAmm's
// reserve offsets but is a distinct on-chain program.
type CpAmm struct{}

func NewCpAmm() *CpAmm { return &CpAmm{} }

func (d *CpAmm) ProgramID() string          { return ProgramIDRaydiumCPMM }
func (d *CpAmm) LayoutName() domain.PoolKind { return domain.PoolKindCpAmm }
func (d *CpAmm) MinBytes() int              { return legacyAmmMinBytes }

func (d *CpAmm) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < legacyAmmMinBytes {
		return nil, &ErrShortBuffer{Layout: "CpAmm", Got: len(data), Required: legacyAmmMinBytes}
	}
	return &domain.PoolInfo{
		PoolAddress:  poolAddress,
		ProgramID:    d.ProgramID(),
		Kind:         domain.PoolKindCpAmm,
		BaseMint:     readPubkey(data, 168),
		QuoteMint:    readPubkey(data, 216),
		BaseReserve:  readU64(data, 248),
		QuoteReserve: readU64(data, 256),
	}, nil
}

func (d *CpAmm) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	return reserveRatioPrice(info.BaseReserve, info.QuoteReserve, baseDecimals, quoteDecimals), nil
}

package decoders

import "solana-memecoin-agent/internal/domain"

// Sub-struct sizes in the DLMM lb_pair account, walked in order rather than
// hardcoded as one magic offset since several blocks are conditionally
// present upstream. Sizes are grounded on the reference Go DLMM decoder's
// field ordering (parameters/vParameters fixed-size structs, then a
// bump/step-seed block, then activeId/binStep).
const (
	dlmmDiscriminatorSize = 8
	dlmmParametersSize    = 32
	dlmmVParametersSize   = 16
	dlmmBumpSeedSize      = 3
)

var dlmmActiveIDOffset = dlmmDiscriminatorSize + dlmmParametersSize + dlmmVParametersSize + dlmmBumpSeedSize

const dlmmMinBytes = 200

// DiscreteLiquidityMm decodes the Meteora DLMM (bin-based) lb_pair account layout.
type DiscreteLiquidityMm struct{}

func NewDiscreteLiquidityMm() *DiscreteLiquidityMm { return &DiscreteLiquidityMm{} }

func (d *DiscreteLiquidityMm) ProgramID() string          { return ProgramIDMeteoraDLMM }
func (d *DiscreteLiquidityMm) LayoutName() domain.PoolKind { return domain.PoolKindDiscreteLiquidityMm }
func (d *DiscreteLiquidityMm) MinBytes() int              { return dlmmMinBytes }

func (d *DiscreteLiquidityMm) Decode(poolAddress string, data []byte, baseDecimals, quoteDecimals int) (*domain.PoolInfo, error) {
	if len(data) < dlmmMinBytes {
		return nil, &ErrShortBuffer{Layout: "DiscreteLiquidityMm", Got: len(data), Required: dlmmMinBytes}
	}
	activeID := readI32(data, dlmmActiveIDOffset)
	binStep := readU16(data, dlmmActiveIDOffset+4)
	return &domain.PoolInfo{
		PoolAddress: poolAddress,
		ProgramID:   d.ProgramID(),
		Kind:        domain.PoolKindDiscreteLiquidityMm,
		ActiveBinID: activeID,
		BinStepBps:  binStep,
	}, nil
}

// CalculatePrice implements price_raw = (1 + bin_step_bps/10_000)^active_id,
// scaled for the base/quote decimal difference. Confidence is reduced for
// this layout at the caller (pool service) until verified against live data.
func (d *DiscreteLiquidityMm) CalculatePrice(info *domain.PoolInfo, baseDecimals, quoteDecimals int) (float64, error) {
	return binStepPrice(info.ActiveBinID, info.BinStepBps, baseDecimals, quoteDecimals), nil
}

package swap

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
)

// PriceSource is the subset of the pool service the executor needs to
// compute expected output.
type PriceSource interface {
	GetPoolPrice(mint string) (domain.PriceResult, bool)
}

// Signer signs and submits an assembled transaction, never exposing the
// underlying keypair to callers outside this package.
type Signer interface {
	SignAndSubmit(ctx context.Context, instructions []byte) (signature string, err error)
}

// Executor is the swap executor (C5): routes a Request against the pool
// service's price, enforces the slippage floor, and submits via Signer.
type Executor struct {
	prices PriceSource
	signer Signer
	log    *logrus.Entry
}

// NewExecutor builds an executor over the given price source and signer.
func NewExecutor(prices PriceSource, signer Signer, log *logrus.Entry) *Executor {
	return &Executor{prices: prices, signer: signer, log: log}
}

// Execute computes swap params for req and, unless req.DryRun, submits the
// transaction. Rejects with ErrClassInvalidInput if the slippage floor
// would allow a zero minimum_output (Scenario E).
func (e *Executor) Execute(ctx context.Context, req Request, decimals int) (Result, error) {
	if req.Amount <= 0 {
		err := newError(ErrClassInvalidInput, "amount must be positive")
		return Result{Success: false, Err: err}, err
	}

	price, ok := e.prices.GetPoolPrice(req.TokenMint)
	if !ok || !price.Available {
		err := newError(ErrClassInvalidPool, fmt.Sprintf("no available price for pool %s", req.PoolAddress))
		return Result{Success: false, Err: err}, err
	}

	params, err := computeParams(req, price.PriceInNative, decimals)
	if err != nil {
		return Result{Success: false, Err: err}, err
	}
	if params.MinimumOutputRaw < 1 {
		err := newError(ErrClassInvalidInput, "slippage_too_high")
		return Result{Success: false, Err: err}, err
	}

	if req.DryRun {
		return Result{Params: params, Success: true}, nil
	}

	sig, err := e.signer.SignAndSubmit(ctx, nil)
	if err != nil {
		wrapped := newError(ErrClassExecution, err.Error())
		return Result{Params: params, Success: false, Err: wrapped}, wrapped
	}
	return Result{Signature: sig, Params: params, Success: true}, nil
}

// computeParams derives expected/minimum output in UI and raw units.
// minimum_output = expected_output * (1 - slippage_bps/10000), computed
// with decimal.Decimal to avoid float truncation at the 1-raw-unit
// boundary that Scenario E tests.
func computeParams(req Request, priceInNative float64, decimals int) (Params, error) {
	if req.SlippageBps > 10000 {
		return Params{}, newError(ErrClassInvalidInput, "slippage_bps must be <= 10000")
	}

	inputAmount := decimal.NewFromFloat(req.Amount)
	price := decimal.NewFromFloat(priceInNative)
	scale := decimal.New(1, int32(decimals))

	var expectedOutput decimal.Decimal
	switch req.Direction {
	case DirectionBuy:
		if price.IsZero() {
			return Params{}, newError(ErrClassCalculation, "zero price")
		}
		expectedOutput = inputAmount.Div(price)
	case DirectionSell:
		expectedOutput = inputAmount.Mul(price)
	default:
		return Params{}, newError(ErrClassInvalidInput, "unknown direction")
	}

	slippageFactor := decimal.NewFromInt(10000 - int64(req.SlippageBps)).Div(decimal.NewFromInt(10000))
	minimumOutput := expectedOutput.Mul(slippageFactor)

	inputRaw := inputAmount.Mul(scale).Truncate(0)
	minOutputRaw := minimumOutput.Mul(scale).Truncate(0)

	expectedF, _ := expectedOutput.Float64()
	minF, _ := minimumOutput.Float64()

	return Params{
		InputAmount:      req.Amount,
		ExpectedOutput:   expectedF,
		MinimumOutput:    minF,
		InputAmountRaw:   uint64(inputRaw.IntPart()),
		MinimumOutputRaw: uint64(minOutputRaw.IntPart()),
	}, nil
}

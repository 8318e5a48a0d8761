package executor

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
)

// Flat per-order fees charged by the simulated adapter, in lovelace.
const (
	simBatcherFee int64 = 2_000000
	simDeposit    int64 = 2_000000
)

var hundred = decimal.NewFromInt(100)

// SimAdapter is a deterministic in-memory execution adapter. Quotes follow
// the constant-product formula against the pool's current reserves; submits
// walk the full callback sequence without touching a chain. Backtests use
// only the quoting side; engine tests exercise the submit sequences.
type SimAdapter struct {
	// FailSubmitReason, when set, makes every submit sequence report an
	// error through OnError instead of completing.
	FailSubmitReason string

	submittedSwaps  []SwapParams
	cancelledHashes []string
}

// NewSimAdapter creates a simulated execution adapter.
func NewSimAdapter() *SimAdapter {
	return &SimAdapter{
		FailSubmitReason: "",
		submittedSwaps:   nil,
		cancelledHashes:  nil,
	}
}

// Quote implements Adapter using the constant-product invariant. The result
// is a pure function of the pool reserves and the swap parameters, which is
// what makes replay deterministic.
func (s *SimAdapter) Quote(_ context.Context, params SwapParams) (Quote, error) {
	if params.Amount <= 0 {
		return Quote{}, errors.New(errors.ErrCodeQuoteFailed, "swap amount must be positive")
	}

	if !params.Pool.Contains(params.InAsset) {
		return Quote{}, errors.Newf(errors.ErrCodeQuoteFailed, "pool %s does not hold %s", params.Pool.Identifier, params.InAsset.Identifier())
	}

	reserveIn := decimal.NewFromInt(params.Pool.Reserve(params.InAsset))
	reserveOut := decimal.NewFromInt(params.Pool.Reserve(params.Pool.OtherAsset(params.InAsset)))

	if reserveIn.IsZero() || reserveOut.IsZero() {
		return Quote{}, errors.Newf(errors.ErrCodeQuoteFailed, "pool %s has empty reserves", params.Pool.Identifier)
	}

	amountIn := decimal.NewFromInt(params.Amount)
	feeMultiplier := hundred.Sub(params.Pool.FeePercent).Div(hundred)
	amountInAfterFee := amountIn.Mul(feeMultiplier)

	// out = reserveOut * in / (reserveIn + in)
	estimated := reserveOut.Mul(amountInAfterFee).Div(reserveIn.Add(amountInAfterFee)).Floor()
	minimum := estimated.Mul(hundred.Sub(params.SlippagePercent)).Div(hundred).Floor()

	// Impact: how far the effective price falls short of the spot price.
	spotOut := amountIn.Mul(reserveOut).Div(reserveIn)
	impact := decimal.Zero
	if !spotOut.IsZero() {
		impact = spotOut.Sub(estimated).Div(spotOut).Mul(hundred).Round(4)
	}

	poolFee := amountIn.Mul(params.Pool.FeePercent).Div(hundred).Floor()

	return Quote{
		EstimatedReceive:   estimated.IntPart(),
		MinimumReceive:     minimum.IntPart(),
		PriceImpactPercent: impact,
		Fees: []SwapFee{
			{ID: "poolFee", Title: "Pool Fee", Value: poolFee.IntPart()},
			{ID: "batcherFee", Title: "Batcher Fee", Value: simBatcherFee},
			{ID: "deposit", Title: "Deposit", Value: simDeposit},
		},
	}, nil
}

// SubmitSwap implements Adapter. Runs signing, submitting, then either
// submitted or error, then finally.
func (s *SimAdapter) SubmitSwap(_ context.Context, params SwapParams, callbacks SubmitCallbacks) error {
	defer invoke(callbacks.OnFinally)

	invoke(callbacks.OnSigning)
	invoke(callbacks.OnSubmitting)

	if s.FailSubmitReason != "" {
		if callbacks.OnError != nil {
			callbacks.OnError(errors.New(errors.ErrCodeSwapSubmitFailed, s.FailSubmitReason))
		}

		return nil
	}

	s.submittedSwaps = append(s.submittedSwaps, params)

	if callbacks.OnSubmitted != nil {
		callbacks.OnSubmitted(newSimTxHash())
	}

	return nil
}

// SubmitCancel implements Adapter.
func (s *SimAdapter) SubmitCancel(_ context.Context, _ types.LiquidityPool, txHash string, callbacks SubmitCallbacks) error {
	defer invoke(callbacks.OnFinally)

	invoke(callbacks.OnSigning)
	invoke(callbacks.OnSubmitting)

	if s.FailSubmitReason != "" {
		if callbacks.OnError != nil {
			callbacks.OnError(errors.New(errors.ErrCodeCancelSubmitFailed, s.FailSubmitReason))
		}

		return nil
	}

	s.cancelledHashes = append(s.cancelledHashes, txHash)

	if callbacks.OnSubmitted != nil {
		callbacks.OnSubmitted(newSimTxHash())
	}

	return nil
}

// SubmittedSwaps returns every swap that completed the submit sequence.
func (s *SimAdapter) SubmittedSwaps() []SwapParams {
	return s.submittedSwaps
}

// CancelledHashes returns the order hashes cancel requests were issued for.
func (s *SimAdapter) CancelledHashes() []string {
	return s.cancelledHashes
}

func newSimTxHash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func invoke(callback func()) {
	if callback != nil {
		callback()
	}
}

// Verify SimAdapter implements the Adapter interface.
var _ Adapter = (*SimAdapter)(nil)

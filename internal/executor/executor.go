// Package executor defines the execution adapter consumed by the engine: the
// collaborator that builds, signs, and submits swap and cancel transactions
// against a DEX, and exposes read-only quoting. The live implementation wraps
// an external swap-construction library and is out of the engine's scope; the
// simulated implementation in this package backs backtests and tests.
package executor

import (
	"context"

	"github.com/breeze-labs/breeze/internal/types"
	"github.com/shopspring/decimal"
)

// SwapFee is one component of the fee breakdown for a swap.
type SwapFee struct {
	ID    string
	Title string
	// Value is in lovelace.
	Value int64
}

// Quote is the read-only pricing of a proposed swap. Produced without side
// effects.
type Quote struct {
	// EstimatedReceive is the expected output amount in the output asset's
	// smallest unit.
	EstimatedReceive int64
	// MinimumReceive is the floor enforced on-chain given the slippage
	// tolerance.
	MinimumReceive int64
	// PriceImpactPercent is the adverse price movement caused by the trade
	// itself.
	PriceImpactPercent decimal.Decimal
	// Fees is the full fee breakdown.
	Fees []SwapFee
}

// TotalFees sums the fee breakdown.
func (q Quote) TotalFees() int64 {
	var total int64
	for _, fee := range q.Fees {
		total += fee.Value
	}

	return total
}

// SwapParams describes a swap to build and submit. Immutable once
// constructed.
type SwapParams struct {
	Pool            types.LiquidityPool
	InAsset         types.Asset
	Amount          int64
	SlippagePercent decimal.Decimal
	Metadata        string
}

// SubmitCallbacks are the stage callbacks observed during a submit sequence.
// Any field may be nil. OnFinally always runs last, regardless of outcome.
type SubmitCallbacks struct {
	OnSigning    func()
	OnSubmitting func()
	OnSubmitted  func(txHash string)
	OnError      func(reason error)
	OnFinally    func()
}

// Adapter builds, signs, and submits DEX transactions.
type Adapter interface {
	// Quote prices a swap without side effects.
	Quote(ctx context.Context, params SwapParams) (Quote, error)
	// SubmitSwap runs the full submit sequence for a swap, invoking stage
	// callbacks as it progresses. A submission failure is reported through
	// the OnError callback, not the return value; the returned error only
	// covers failures to start the sequence at all.
	SubmitSwap(ctx context.Context, params SwapParams, callbacks SubmitCallbacks) error
	// SubmitCancel issues an on-chain cancel for a previously submitted
	// order's transaction hash, with the same callback shape as SubmitSwap.
	SubmitCancel(ctx context.Context, pool types.LiquidityPool, txHash string, callbacks SubmitCallbacks) error
}

// Package strategy defines the contract between a trading strategy and the
// engine that runs it. A strategy declares an identifier, optional timer and
// auto-cancel windows, and a set of hooks; the engine drives the hooks and
// hands each one an API scoped to that strategy.
package strategy

import (
	"context"
	"time"

	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/shopspring/decimal"
)

// API is the engine surface a strategy calls into. Live trading and backtest
// runs provide different implementations behind the same interface.
type API interface {
	// SubmitSwap routes a swap through the risk gate. The submission
	// outcome (signing, submission, persistence, notification) is handled
	// by the engine; an error here means the order was rejected before
	// submission.
	SubmitSwap(ctx context.Context, pool types.LiquidityPool, inAsset types.Asset, amount int64, slippagePercent decimal.Decimal) error
	// CancelOrder submits an on-chain cancellation for an open order.
	CancelOrder(ctx context.Context, pool types.LiquidityPool, txHash string) error
	// Balance returns the wallet balance for an asset in smallest units.
	Balance(asset types.Asset) int64
	// Notify broadcasts a message through the engine's notification
	// channels. Best effort.
	Notify(ctx context.Context, message string)
	// IsBacktest reports whether the strategy is running against replayed
	// history instead of the live chain.
	IsBacktest() bool
}

// Strategy is a declarative strategy definition. Hooks are optional; a nil
// hook is simply never called.
type Strategy struct {
	// Identifier names the strategy. Must be unique within an engine.
	Identifier string

	// RunEvery is the timer cadence for OnTimer. Zero disables the timer.
	RunEvery time.Duration

	// CancelAfter is how long a submitted order may stay open before the
	// sweep job cancels it. Zero opts the strategy out of auto-cancel.
	CancelAfter time.Duration

	// OnBoot runs once during engine boot, before any events are
	// delivered. A returned error aborts the whole engine boot.
	OnBoot func(ctx context.Context, api API) error

	// OnShutdown runs once during engine shutdown.
	OnShutdown func(ctx context.Context, api API) error

	// OnMarketEvent receives every event from the feed, or from history
	// during a backtest. Strategies without this hook cannot be
	// backtested.
	OnMarketEvent func(ctx context.Context, api API, event types.MarketEvent) error

	// OnTimer runs on the RunEvery cadence. Ticks that arrive while the
	// previous run is still going are dropped.
	OnTimer func(ctx context.Context, api API) error

	// BeforeBacktest runs once at the start of a backtest, after the
	// simulated wallet is in place.
	BeforeBacktest func(ctx context.Context, api API) error

	// BeforeDataPull runs before each history window is fetched during a
	// backtest.
	BeforeDataPull func(ctx context.Context, api API, fromSlot int64, toSlot int64) error
}

// Validate checks that the definition can be registered.
func (s Strategy) Validate() error {
	if s.Identifier == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "strategy identifier must not be empty")
	}

	if s.RunEvery < 0 || s.CancelAfter < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "strategy %s has a negative duration", s.Identifier)
	}

	return nil
}

// CanReplay reports whether the strategy can be driven by replayed history.
func (s Strategy) CanReplay() bool {
	return s.OnMarketEvent != nil
}

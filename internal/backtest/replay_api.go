package backtest

import (
	"context"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/chrono"
	"github.com/breeze-labs/breeze/internal/executor"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/internal/wallet"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

// replayAPI is the strategy API a backtest run exposes. Orders execute
// instantly against the simulated adapter and wallet instead of the chain.
type replayAPI struct {
	engine  *Engine
	run     *Run
	log     *logger.Logger
	wallet  *wallet.Wallet
	adapter *executor.SimAdapter

	mu          sync.Mutex
	currentSlot int64
}

func newReplayAPI(engine *Engine, run *Run, log *logger.Logger) *replayAPI {
	return &replayAPI{
		engine:      engine,
		run:         run,
		log:         log,
		wallet:      wallet.NewSimulated(engine.initialBalances, log),
		adapter:     executor.NewSimAdapter(),
		currentSlot: chrono.UnixToSlot(run.fromUnix),
	}
}

// observe advances replay time to the event being dispatched.
func (a *replayAPI) observe(event types.MarketEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.currentSlot = event.OrderingSlot()
}

func (a *replayAPI) slot() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.currentSlot
}

func (a *replayAPI) SubmitSwap(ctx context.Context, pool types.LiquidityPool, inAsset types.Asset, amount int64, slippagePercent decimal.Decimal) error {
	if amount <= 0 {
		return errors.Newf(errors.ErrCodeAmountNotPositive, "swap amount %d must be positive", amount)
	}

	if a.wallet.Balance(inAsset) < amount {
		return errors.Newf(errors.ErrCodeAmountExceedsFunds, "simulated wallet cannot cover %d %s", amount, inAsset.ReadableTicker())
	}

	params := executor.SwapParams{
		Pool:            pool,
		InAsset:         inAsset,
		Amount:          amount,
		SlippagePercent: slippagePercent,
	}

	quote, err := a.adapter.Quote(ctx, params)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQuoteFailed, err, "failed to quote simulated swap on %s", pool.Identifier)
	}

	var txHash string

	err = a.adapter.SubmitSwap(ctx, params, executor.SubmitCallbacks{
		OnSubmitted: func(hash string) {
			txHash = hash
		},
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeSwapSubmitFailed, err, "failed to submit simulated swap on %s", pool.Identifier)
	}

	outAsset := pool.OtherAsset(inAsset)

	a.wallet.ApplyTrade(inAsset, amount, outAsset, quote.EstimatedReceive)

	if fees := quote.TotalFees(); fees > 0 {
		a.wallet.ApplyTrade(types.Lovelace(), fees, outAsset, 0)
	}

	record := types.OrderRecord{
		BacktestID:      optional.Some(a.run.ID()),
		PoolIdentifier:  pool.Identifier,
		Strategy:        a.run.strategyID,
		SwapInAmount:    amount,
		MinReceive:      quote.MinimumReceive,
		SwapInAsset:     types.AssetColumn(inAsset),
		SwapOutAsset:    types.AssetColumn(outAsset),
		SlippagePercent: slippagePercent,
		DexFeesPaid:     quote.TotalFees(),
		TxHash:          txHash,
		IsSettled:       true,
		Timestamp:       chrono.SlotToUnix(a.slot()),
	}

	id, err := a.engine.store.InsertOrder(ctx, record)
	if err != nil {
		a.log.Error("Failed to record simulated order",
			zap.Int64("backtest", a.run.ID()),
			zap.Error(err),
		)
	} else {
		record.ID = id
	}

	a.run.appendOrder(record)

	a.log.Info("Simulated swap filled",
		zap.Int64("backtest", a.run.ID()),
		zap.String("pool", pool.Identifier),
		zap.String("in", inAsset.HumanAmount(amount).String()+" "+inAsset.ReadableTicker()),
		zap.String("out", outAsset.HumanAmount(quote.EstimatedReceive).String()+" "+outAsset.ReadableTicker()),
	)

	return nil
}

func (a *replayAPI) CancelOrder(ctx context.Context, pool types.LiquidityPool, txHash string) error {
	return a.adapter.SubmitCancel(ctx, pool, txHash, executor.SubmitCallbacks{})
}

func (a *replayAPI) Balance(asset types.Asset) int64 {
	return a.wallet.Balance(asset)
}

func (a *replayAPI) Notify(ctx context.Context, message string) {
	// Backtests never reach external channels.
	a.log.Info("Backtest notification suppressed",
		zap.String("message", message),
	)
}

func (a *replayAPI) IsBacktest() bool {
	return true
}

// Verify replayAPI implements the strategy API surface.
var _ strategy.API = (*replayAPI)(nil)

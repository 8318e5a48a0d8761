package engine

import (
	"context"
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/executor"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

// SubmitSwap gates and submits one swap on behalf of a strategy. A
// native-asset request that would dip into the reserve floor is reduced by
// the floor; anything the wallet cannot cover after that is rejected without
// touching the adapter. In dry-run mode the gate stops after logging the
// trade it would have made.
func (e *Engine) SubmitSwap(ctx context.Context, strategyID string, pool types.LiquidityPool, inAsset types.Asset, amount int64, slippagePercent decimal.Decimal) error {
	log := e.log.ForStrategy(strategyID)

	if amount <= 0 {
		log.Warn("Rejecting swap, amount must be positive",
			zap.Int64("amount", amount),
		)

		return errors.Newf(errors.ErrCodeAmountNotPositive, "swap amount %d must be positive", amount)
	}

	adjusted := amount

	if e.deps.Wallet != nil && e.deps.Wallet.IsLoaded() {
		balance := e.deps.Wallet.Balance(inAsset)
		floor := e.cfg.ReserveFloorLovelace()

		if inAsset.IsLovelace() && floor > 0 && adjusted > balance-floor {
			adjusted -= floor

			log.Info("Reducing swap by the reserve floor",
				zap.String("requested", inAsset.HumanAmount(amount).String()),
				zap.String("reserve", inAsset.HumanAmount(floor).String()),
			)
		}

		if adjusted > balance {
			log.Warn("Rejecting swap larger than wallet balance",
				zap.String("asset", inAsset.ReadableTicker()),
				zap.String("requested", inAsset.HumanAmount(adjusted).String()),
				zap.String("balance", inAsset.HumanAmount(balance).String()),
			)

			return errors.Newf(errors.ErrCodeAmountExceedsFunds,
				"swap of %s %s exceeds wallet balance of %s",
				inAsset.HumanAmount(adjusted).String(), inAsset.ReadableTicker(), inAsset.HumanAmount(balance).String())
		}

		if adjusted <= 0 {
			log.Warn("Rejecting swap, reserve floor leaves nothing to spend",
				zap.String("requested", inAsset.HumanAmount(amount).String()),
				zap.String("reserve", inAsset.HumanAmount(floor).String()),
			)

			return errors.Newf(errors.ErrCodeAmountExceedsFunds, "reserve floor leaves no %s to spend", inAsset.ReadableTicker())
		}
	} else if e.cfg.CanSubmitOrders {
		log.Warn("Rejecting swap, wallet is not loaded")

		return errors.New(errors.ErrCodeWalletNotLoaded, "wallet must be loaded before submitting orders")
	}

	outAsset := pool.OtherAsset(inAsset)

	log.Info("Submitting swap",
		zap.String("pool", pool.Identifier),
		zap.String("pair", pool.Pair()),
		zap.String("in", inAsset.HumanAmount(adjusted).String()+" "+inAsset.ReadableTicker()),
		zap.String("slippagePercent", slippagePercent.String()),
	)

	if !e.cfg.CanSubmitOrders {
		log.Info("Order submission is disabled, skipping swap",
			zap.String("pool", pool.Identifier),
		)

		return nil
	}

	params := executor.SwapParams{
		Pool:            pool,
		InAsset:         inAsset,
		Amount:          adjusted,
		SlippagePercent: slippagePercent,
		Metadata:        e.cfg.AppName,
	}

	quote, err := e.deps.Adapter.Quote(ctx, params)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQuoteFailed, err, "failed to quote swap on %s", pool.Identifier)
	}

	callbacks := executor.SubmitCallbacks{
		OnSigning: func() {
			log.Info("Signing swap", zap.String("pool", pool.Identifier))
		},
		OnSubmitting: func() {
			log.Info("Submitting swap transaction", zap.String("pool", pool.Identifier))
		},
		OnSubmitted: func(txHash string) {
			e.recordSubmittedSwap(ctx, log, strategyID, pool, inAsset, outAsset, adjusted, slippagePercent, quote, txHash)
		},
		OnError: func(reason error) {
			log.Error("Swap submission failed",
				zap.String("pool", pool.Identifier),
				zap.Error(reason),
			)
		},
		OnFinally: func() {
			e.reloadWallet(ctx, log)
		},
	}

	if err := e.deps.Adapter.SubmitSwap(ctx, params, callbacks); err != nil {
		return errors.Wrapf(errors.ErrCodeSwapSubmitFailed, err, "failed to start swap submission on %s", pool.Identifier)
	}

	return nil
}

// SubmitCancel submits an on-chain cancellation for an open order.
func (e *Engine) SubmitCancel(ctx context.Context, strategyID string, pool types.LiquidityPool, txHash string) error {
	log := e.log.ForStrategy(strategyID)

	if !e.cfg.CanSubmitOrders {
		log.Info("Order submission is disabled, skipping cancel",
			zap.String("txHash", txHash),
		)

		return nil
	}

	callbacks := executor.SubmitCallbacks{
		OnSigning: func() {
			log.Info("Signing cancellation", zap.String("txHash", txHash))
		},
		OnSubmitting: func() {
			log.Info("Submitting cancellation", zap.String("txHash", txHash))
		},
		OnSubmitted: func(cancelHash string) {
			log.Info("Cancellation submitted",
				zap.String("orderTxHash", txHash),
				zap.String("cancelTxHash", cancelHash),
			)
			e.notify(ctx, fmt.Sprintf("%s cancelled order %s on %s", e.cfg.AppName, txHash, pool.Pair()))
		},
		OnError: func(reason error) {
			log.Error("Cancellation failed",
				zap.String("txHash", txHash),
				zap.Error(reason),
			)
		},
		OnFinally: func() {
			e.reloadWallet(ctx, log)
		},
	}

	if err := e.deps.Adapter.SubmitCancel(ctx, pool, txHash, callbacks); err != nil {
		return errors.Wrapf(errors.ErrCodeCancelSubmitFailed, err, "failed to start cancellation of %s", txHash)
	}

	return nil
}

func (e *Engine) recordSubmittedSwap(
	ctx context.Context,
	log *logger.Logger,
	strategyID string,
	pool types.LiquidityPool,
	inAsset types.Asset,
	outAsset types.Asset,
	amount int64,
	slippagePercent decimal.Decimal,
	quote executor.Quote,
	txHash string,
) {
	log.Info("Swap submitted",
		zap.String("pool", pool.Identifier),
		zap.String("txHash", txHash),
	)

	record := types.OrderRecord{
		BacktestID:      optional.None[int64](),
		PoolIdentifier:  pool.Identifier,
		Strategy:        strategyID,
		SwapInAmount:    amount,
		MinReceive:      quote.MinimumReceive,
		SwapInAsset:     types.AssetColumn(inAsset),
		SwapOutAsset:    types.AssetColumn(outAsset),
		SlippagePercent: slippagePercent,
		DexFeesPaid:     quote.TotalFees(),
		TxHash:          txHash,
		IsSettled:       false,
		Timestamp:       e.now().Unix(),
	}

	if _, err := e.deps.Ledger.InsertOrder(ctx, record); err != nil {
		log.Error("Failed to record submitted swap",
			zap.String("txHash", txHash),
			zap.Error(err),
		)
	}

	if e.deps.Notify != nil {
		e.deps.Notify.NotifyForOrder(ctx, pool, strategyID, inAsset, outAsset, amount, quote.EstimatedReceive)
	}
}

func (e *Engine) reloadWallet(ctx context.Context, log *logger.Logger) {
	if e.deps.Wallet == nil || !e.deps.Wallet.IsLoaded() {
		return
	}

	if err := e.deps.Wallet.Reload(ctx); err != nil {
		log.Error("Failed to reload wallet balances", zap.Error(err))
	}
}

// strategyAPI binds the engine surface to one strategy identifier.
type strategyAPI struct {
	engine     *Engine
	strategyID string
}

func (e *Engine) apiFor(strategyID string) strategy.API {
	return &strategyAPI{engine: e, strategyID: strategyID}
}

func (a *strategyAPI) SubmitSwap(ctx context.Context, pool types.LiquidityPool, inAsset types.Asset, amount int64, slippagePercent decimal.Decimal) error {
	return a.engine.SubmitSwap(ctx, a.strategyID, pool, inAsset, amount, slippagePercent)
}

func (a *strategyAPI) CancelOrder(ctx context.Context, pool types.LiquidityPool, txHash string) error {
	return a.engine.SubmitCancel(ctx, a.strategyID, pool, txHash)
}

func (a *strategyAPI) Balance(asset types.Asset) int64 {
	if a.engine.deps.Wallet == nil {
		return 0
	}

	return a.engine.deps.Wallet.Balance(asset)
}

func (a *strategyAPI) Notify(ctx context.Context, message string) {
	a.engine.notify(ctx, message)
}

func (a *strategyAPI) IsBacktest() bool {
	return false
}

// Verify strategyAPI implements the strategy API surface.
var _ strategy.API = (*strategyAPI)(nil)

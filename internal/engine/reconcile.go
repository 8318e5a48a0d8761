package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/types"
)

// reconcile applies a settlement status from the feed to the ledger. Only
// terminal swap statuses settle orders; duplicate notifications for the same
// hash are no-ops because the ledger update only touches unsettled rows.
func (e *Engine) reconcile(ctx context.Context, status types.OperationStatus) {
	if status.Operation != types.OperationSwap || !status.IsTerminal() {
		return
	}

	settled, err := e.deps.Ledger.MarkSettled(ctx, status.TxHash)
	if err != nil {
		e.log.Error("Failed to settle order",
			zap.String("txHash", status.TxHash),
			zap.String("status", string(status.Status)),
			zap.Error(err),
		)

		return
	}

	if !settled {
		return
	}

	e.log.Info("Order settled",
		zap.String("txHash", status.TxHash),
		zap.String("status", string(status.Status)),
	)

	e.notify(ctx, fmt.Sprintf("%s order %s reached %s", e.cfg.AppName, status.TxHash, status.Status))

	e.reloadWallet(ctx, e.log)
}

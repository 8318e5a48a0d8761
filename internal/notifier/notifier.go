// Package notifier broadcasts engine announcements to external channels.
// Delivery is best effort; a failing channel is logged and never interrupts
// trading.
package notifier

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
)

// Notifier is a single outbound channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, message string) error
}

// Service fans one message out to every registered notifier.
type Service struct {
	notifiers []Notifier
	log       *logger.Logger
}

// NewService creates a notification service over the given channels.
func NewService(log *logger.Logger, notifiers ...Notifier) *Service {
	return &Service{
		notifiers: notifiers,
		log:       log,
	}
}

// NotifyForOrder announces a submitted order: trade side against the pool's
// first asset, pair price, and the amounts in human units.
func (s *Service) NotifyForOrder(ctx context.Context, pool types.LiquidityPool, strategyID string, inAsset types.Asset, outAsset types.Asset, amount int64, estReceive int64) {
	inAmount := inAsset.HumanAmount(amount)
	outAmount := outAsset.HumanAmount(estReceive)

	side := "SELL"
	numerator, denominator := outAmount, inAmount

	if inAsset.Matches(pool.AssetA) {
		side = "BUY"
		numerator, denominator = inAmount, outAmount
	}

	price := decimal.Zero
	if !denominator.IsZero() {
		price = numerator.Div(denominator).Round(int32(outAsset.Decimals))
	}

	s.Notify(ctx, fmt.Sprintf("%s %s %s @ %s | strategy %s | in %s %s | out %s %s",
		side, pool.Dex, pool.Pair(), price.String(),
		strategyID,
		inAmount.String(), inAsset.ReadableTicker(),
		outAmount.String(), outAsset.ReadableTicker(),
	))
}

// Notify delivers the message to every channel. Failures are logged per
// channel and otherwise swallowed.
func (s *Service) Notify(ctx context.Context, message string) {
	for _, notifier := range s.notifiers {
		if err := notifier.Send(ctx, message); err != nil {
			s.log.Warn("Notification delivery failed",
				zap.String("channel", notifier.Name()),
				zap.Error(err),
			)
		}
	}
}

// Package jobs holds the engine's periodic background jobs.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

// OrderSource lists the open orders a sweep considers.
type OrderSource interface {
	UnsettledOrders(ctx context.Context) ([]types.OrderRecord, error)
}

// PoolMatcher resolves pool metadata by identifier.
type PoolMatcher interface {
	MatchPool(ctx context.Context, identifier string) (types.LiquidityPool, error)
}

// Canceller submits an on-chain cancellation on behalf of a strategy.
type Canceller interface {
	SubmitCancel(ctx context.Context, strategyID string, pool types.LiquidityPool, txHash string) error
}

// StrategyResolver looks a strategy definition up by identifier.
type StrategyResolver func(identifier string) (strategy.Strategy, bool)

// AutoCancelSweep periodically cancels open orders that outlived their
// strategy's cancel window. Each order is handled in isolation: a failure or
// a skip never stops the rest of the sweep, and a failed cancellation is
// simply retried on the next pass.
type AutoCancelSweep struct {
	interval  time.Duration
	orders    OrderSource
	pools     PoolMatcher
	canceller Canceller
	resolve   StrategyResolver
	log       *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// now is swapped out in tests.
	now func() time.Time
}

// NewAutoCancelSweep creates a sweep over the given collaborators.
func NewAutoCancelSweep(
	interval time.Duration,
	orders OrderSource,
	pools PoolMatcher,
	canceller Canceller,
	resolve StrategyResolver,
	log *logger.Logger,
) *AutoCancelSweep {
	return &AutoCancelSweep{
		interval:  interval,
		orders:    orders,
		pools:     pools,
		canceller: canceller,
		resolve:   resolve,
		log:       log,
		stop:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start runs the sweep on its fixed interval until Stop is called.
func (s *AutoCancelSweep) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Stop halts the sweep and waits for an in-flight pass to finish.
func (s *AutoCancelSweep) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

// Sweep runs a single pass over the open orders.
func (s *AutoCancelSweep) Sweep(ctx context.Context) {
	open, err := s.orders.UnsettledOrders(ctx)
	if err != nil {
		s.log.Error("Sweep failed to list open orders", zap.Error(err))

		return
	}

	nowUnix := s.now().Unix()

	for _, order := range open {
		s.sweepOrder(ctx, order, nowUnix)
	}
}

func (s *AutoCancelSweep) sweepOrder(ctx context.Context, order types.OrderRecord, nowUnix int64) {
	def, ok := s.resolve(order.Strategy)
	if !ok {
		s.log.Warn("Skipping order of unknown strategy",
			zap.String("strategy", order.Strategy),
			zap.String("txHash", order.TxHash),
		)

		return
	}

	if def.CancelAfter == 0 {
		return
	}

	deadline := order.Timestamp + int64(def.CancelAfter.Seconds())
	if deadline > nowUnix {
		return
	}

	pool, err := s.pools.MatchPool(ctx, order.PoolIdentifier)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodePoolNotFound) {
			s.log.Warn("Skipping order on unknown pool",
				zap.String("pool", order.PoolIdentifier),
				zap.String("txHash", order.TxHash),
			)
		} else {
			s.log.Error("Sweep failed to resolve pool",
				zap.String("pool", order.PoolIdentifier),
				zap.Error(err),
			)
		}

		return
	}

	s.log.Info("Cancelling expired order",
		zap.String("strategy", order.Strategy),
		zap.String("txHash", order.TxHash),
		zap.Int64("openSeconds", nowUnix-order.Timestamp),
	)

	if err := s.canceller.SubmitCancel(ctx, order.Strategy, pool, order.TxHash); err != nil {
		wrapped := errors.Wrapf(errors.ErrCodeSweepCancelFailed, err, "failed to cancel order %s", order.TxHash)
		s.log.Error("Sweep cancellation failed", zap.Error(wrapped))
	}
}

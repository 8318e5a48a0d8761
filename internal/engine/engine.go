// Package engine wires the trading engine together: it boots the wallet,
// ledger, and event feed in a fixed order, runs registered strategies on
// events and timers, gates their orders, and reconciles settlements coming
// back from the chain.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/config"
	"github.com/breeze-labs/breeze/internal/executor"
	"github.com/breeze-labs/breeze/internal/feed"
	"github.com/breeze-labs/breeze/internal/ledger"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/market"
	"github.com/breeze-labs/breeze/internal/notifier"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/internal/wallet"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

// Dependencies are the collaborators the engine drives. All fields are
// required except Notify, which may be nil when no channels are configured.
type Dependencies struct {
	Wallet  *wallet.Wallet
	Adapter executor.Adapter
	Stream  feed.Stream
	Ledger  *ledger.Store
	Market  market.Source
	Notify  *notifier.Service
}

type registeredStrategy struct {
	def strategy.Strategy

	// timerBusy guards the single-flight timer rule: a tick that lands
	// while the previous run is still going is dropped, not queued.
	timerBusy atomic.Bool
}

// Engine is the strategy scheduler and order gate.
type Engine struct {
	cfg  *config.EngineConfig
	log  *logger.Logger
	deps Dependencies

	mu         sync.Mutex
	strategies map[string]*registeredStrategy
	bootOrder  []string
	booted     bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// now is swapped out in tests.
	now func() time.Time
}

// New creates an engine over the given configuration and collaborators.
func New(cfg *config.EngineConfig, log *logger.Logger, deps Dependencies) *Engine {
	return &Engine{
		cfg:        cfg,
		log:        log,
		deps:       deps,
		strategies: make(map[string]*registeredStrategy),
		bootOrder:  nil,
		booted:     false,
		stop:       make(chan struct{}),
		now:        time.Now,
	}
}

// RegisterStrategy adds a strategy definition. Registration closes once the
// engine has booted, and identifiers must be unique.
func (e *Engine) RegisterStrategy(def strategy.Strategy) error {
	if err := def.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.booted {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "cannot register strategy %s after boot", def.Identifier)
	}

	if _, exists := e.strategies[def.Identifier]; exists {
		return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy %s is already registered", def.Identifier)
	}

	e.strategies[def.Identifier] = &registeredStrategy{def: def}
	e.bootOrder = append(e.bootOrder, def.Identifier)

	return nil
}

// Strategies returns the registered definitions in registration order.
func (e *Engine) Strategies() []strategy.Strategy {
	e.mu.Lock()
	defer e.mu.Unlock()

	defs := make([]strategy.Strategy, 0, len(e.bootOrder))
	for _, identifier := range e.bootOrder {
		defs = append(defs, e.strategies[identifier].def)
	}

	return defs
}

// StrategyByID looks a registered strategy up by identifier.
func (e *Engine) StrategyByID(identifier string) (strategy.Strategy, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	registered, ok := e.strategies[identifier]
	if !ok {
		return strategy.Strategy{}, false
	}

	return registered.def, true
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.EngineConfig {
	return e.cfg
}

// Ledger returns the order store.
func (e *Engine) Ledger() *ledger.Store {
	return e.deps.Ledger
}

// Market returns the historic market data source.
func (e *Engine) Market() market.Source {
	return e.deps.Market
}

// Wallet returns the engine wallet.
func (e *Engine) Wallet() *wallet.Wallet {
	return e.deps.Wallet
}

// Boot brings the engine up. Collaborators come up in a fixed order: wallet,
// feed listener wiring, feed connection, then strategies sequentially in
// registration order. Any failure aborts the boot.
func (e *Engine) Boot(ctx context.Context) error {
	e.log.Info("Booting engine",
		zap.String("app", e.cfg.AppName),
		zap.Int("strategies", len(e.bootOrder)),
	)

	if e.cfg.CanSubmitOrders {
		if e.deps.Wallet == nil {
			return errors.New(errors.ErrCodeWalletProviderUnset, "order submission is enabled but no wallet provider is configured")
		}

		if !e.deps.Wallet.IsSimulated() {
			if err := e.deps.Wallet.Boot(ctx, e.cfg.SeedPhrase, 0); err != nil {
				return err
			}

			if err := e.deps.Wallet.Reload(ctx); err != nil {
				return err
			}
		}

		e.log.Info("Wallet loaded",
			zap.String("address", e.deps.Wallet.Address()),
		)
	}

	e.deps.Stream.AddListener(func(event types.MarketEvent) {
		e.handleMarketEvent(ctx, event)
	})

	if err := e.deps.Stream.Connect(ctx); err != nil {
		return err
	}

	for _, identifier := range e.bootOrderSnapshot() {
		registered := e.lookup(identifier)
		if registered == nil || registered.def.OnBoot == nil {
			continue
		}

		if err := registered.def.OnBoot(ctx, e.apiFor(identifier)); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyBootFailed, err, "strategy %s failed to boot", identifier)
		}

		e.log.Info("Strategy booted",
			zap.String("strategy", identifier),
		)
	}

	for _, identifier := range e.bootOrderSnapshot() {
		registered := e.lookup(identifier)
		if registered == nil || registered.def.OnTimer == nil || registered.def.RunEvery == 0 {
			continue
		}

		e.startTimer(ctx, registered)
	}

	e.mu.Lock()
	e.booted = true
	e.mu.Unlock()

	e.log.Info("Engine booted",
		zap.String("app", e.cfg.AppName),
	)

	return nil
}

// Shutdown tears the engine down: timers stop first, every strategy's
// OnShutdown runs concurrently with failures isolated, and the feed and
// ledger close last.
func (e *Engine) Shutdown(ctx context.Context) {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
	e.wg.Wait()

	var shutdowns sync.WaitGroup

	for _, identifier := range e.bootOrderSnapshot() {
		registered := e.lookup(identifier)
		if registered == nil || registered.def.OnShutdown == nil {
			continue
		}

		shutdowns.Add(1)

		go func(identifier string, registered *registeredStrategy) {
			defer shutdowns.Done()

			if err := registered.def.OnShutdown(ctx, e.apiFor(identifier)); err != nil {
				e.log.Error("Strategy shutdown failed",
					zap.String("strategy", identifier),
					zap.Error(err),
				)
			}
		}(identifier, registered)
	}

	shutdowns.Wait()

	if err := e.deps.Stream.Close(); err != nil {
		e.log.Error("Failed to close event feed", zap.Error(err))
	}

	if err := e.deps.Ledger.Close(); err != nil {
		e.log.Error("Failed to close ledger", zap.Error(err))
	}

	e.log.Info("Engine stopped",
		zap.String("app", e.cfg.AppName),
	)
}

// handleMarketEvent routes one feed event: settlement statuses feed the
// reconciler, and every strategy with a market event hook sees the event.
// A strategy failure is logged and never blocks the other strategies.
func (e *Engine) handleMarketEvent(ctx context.Context, event types.MarketEvent) {
	if status, ok := event.(types.OperationStatus); ok {
		e.reconcile(ctx, status)
	}

	for _, identifier := range e.bootOrderSnapshot() {
		registered := e.lookup(identifier)
		if registered == nil || registered.def.OnMarketEvent == nil {
			continue
		}

		if err := registered.def.OnMarketEvent(ctx, e.apiFor(identifier), event); err != nil {
			e.log.Error("Strategy failed to handle event",
				zap.String("strategy", identifier),
				zap.String("event", string(event.EventType())),
				zap.Error(err),
			)
		}
	}
}

func (e *Engine) startTimer(ctx context.Context, registered *registeredStrategy) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		ticker := time.NewTicker(registered.def.RunEvery)
		defer ticker.Stop()

		for {
			select {
			case <-e.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.runTimerTick(ctx, registered)
			}
		}
	}()
}

func (e *Engine) runTimerTick(ctx context.Context, registered *registeredStrategy) {
	identifier := registered.def.Identifier

	if !registered.timerBusy.CompareAndSwap(false, true) {
		e.log.Warn("Dropping timer tick, previous run still in progress",
			zap.String("strategy", identifier),
		)

		return
	}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer registered.timerBusy.Store(false)

		log := e.log.ForStrategy(identifier)
		log.Info("Timer run started")

		started := e.now()

		if err := registered.def.OnTimer(ctx, e.apiFor(identifier)); err != nil {
			log.Error("Timer run failed", zap.Error(err))

			return
		}

		log.Info("Timer run completed",
			zap.Duration("elapsed", e.now().Sub(started)),
		)
	}()
}

func (e *Engine) bootOrderSnapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := make([]string, len(e.bootOrder))
	copy(snapshot, e.bootOrder)

	return snapshot
}

func (e *Engine) lookup(identifier string) *registeredStrategy {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.strategies[identifier]
}

func (e *Engine) notify(ctx context.Context, message string) {
	if e.deps.Notify == nil {
		return
	}

	e.deps.Notify.Notify(ctx, message)
}

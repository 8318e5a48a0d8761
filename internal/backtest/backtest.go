// Package backtest replays historic market activity through a strategy. A
// run swaps the live wallet and execution adapter for simulated ones, pulls
// history one day at a time, and feeds it to the strategy in slot order.
package backtest

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/breeze-labs/breeze/internal/chrono"
	"github.com/breeze-labs/breeze/internal/ledger"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/market"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

// windowSeconds is the width of one history pull.
const windowSeconds int64 = 86400

// Status is the lifecycle state of a run.
type Status string

const (
	StatusCreated   Status = "Created"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

// Run is one backtest execution. Safe for concurrent observation while the
// replay loop advances it.
type Run struct {
	mu sync.Mutex

	id             int64
	strategyID     string
	poolIdentifier string
	fromUnix       int64
	toUnix         int64
	cursorUnix     int64
	status         Status
	failure        error
	orders         []types.OrderRecord
}

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	ID              int64  `json:"id"`
	Strategy        string `json:"strategy"`
	PoolIdentifier  string `json:"poolIdentifier"`
	FromTimestamp   int64  `json:"fromTimestamp"`
	ToTimestamp     int64  `json:"toTimestamp"`
	Status          Status `json:"status"`
	ProgressPercent int64  `json:"progressPercent"`
	OrderCount      int    `json:"orderCount"`
	Failure         string `json:"failure,omitempty"`
}

// ID returns the ledger id assigned to this run.
func (r *Run) ID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.id
}

// Status returns the current lifecycle state.
func (r *Run) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// Progress reports replay progress as a percentage of the requested time
// range. Terminal runs always report 100.
func (r *Run) Progress() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.progressLocked()
}

func (r *Run) progressLocked() int64 {
	if r.status == StatusCompleted || r.status == StatusFailed {
		return 100
	}

	span := r.toUnix - r.fromUnix
	if span <= 0 {
		return 100
	}

	progress := (r.cursorUnix - r.fromUnix) * 100 / span
	if progress > 100 {
		progress = 100
	}

	if progress < 0 {
		progress = 0
	}

	return progress
}

// Orders returns the simulated orders recorded so far.
func (r *Run) Orders() []types.OrderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]types.OrderRecord(nil), r.orders...)
}

// View returns a snapshot for reporting.
func (r *Run) View() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := Snapshot{
		ID:              r.id,
		Strategy:        r.strategyID,
		PoolIdentifier:  r.poolIdentifier,
		FromTimestamp:   r.fromUnix,
		ToTimestamp:     r.toUnix,
		Status:          r.status,
		ProgressPercent: r.progressLocked(),
		OrderCount:      len(r.orders),
	}

	if r.failure != nil {
		snapshot.Failure = r.failure.Error()
	}

	return snapshot
}

func (r *Run) setCursor(cursorUnix int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cursorUnix = cursorUnix
}

func (r *Run) appendOrder(record types.OrderRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = append(r.orders, record)
}

func (r *Run) transition(status Status, failure error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = status
	r.failure = failure
}

// Engine creates and executes backtest runs.
type Engine struct {
	source  market.Source
	store   *ledger.Store
	resolve func(identifier string) (strategy.Strategy, bool)
	log     *logger.Logger

	// initialBalances seeds the simulated wallet of every run.
	initialBalances map[string]int64
}

// NewEngine creates a backtest engine. initialBalances seeds the simulated
// wallet, keyed by asset identifier in smallest units.
func NewEngine(
	source market.Source,
	store *ledger.Store,
	resolve func(identifier string) (strategy.Strategy, bool),
	initialBalances map[string]int64,
	log *logger.Logger,
) *Engine {
	return &Engine{
		source:          source,
		store:           store,
		resolve:         resolve,
		log:             log,
		initialBalances: initialBalances,
	}
}

// NewRun validates the request and registers a run in the ledger. The run
// starts in the Created state; Execute drives it to a terminal state.
func (e *Engine) NewRun(ctx context.Context, strategyID string, poolIdentifier string, fromUnix int64, toUnix int64) (*Run, error) {
	def, ok := e.resolve(strategyID)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "no strategy registered as %s", strategyID)
	}

	if !def.CanReplay() {
		return nil, errors.Newf(errors.ErrCodeStrategyNotReplayable, "strategy %s has no market event hook", strategyID)
	}

	if toUnix <= fromUnix {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "backtest range [%d, %d) is empty", fromUnix, toUnix)
	}

	id, err := e.store.InsertBacktest(ctx, strategyID, fromUnix)
	if err != nil {
		return nil, err
	}

	return &Run{
		id:             id,
		strategyID:     strategyID,
		poolIdentifier: poolIdentifier,
		fromUnix:       fromUnix,
		toUnix:         toUnix,
		cursorUnix:     fromUnix,
		status:         StatusCreated,
	}, nil
}

// Execute replays the run's time range through its strategy. A run executes
// at most once.
func (e *Engine) Execute(ctx context.Context, run *Run) error {
	run.mu.Lock()
	if run.status != StatusCreated {
		run.mu.Unlock()

		return errors.Newf(errors.ErrCodeReplayAlreadyRan, "backtest %d already ran", run.id)
	}
	run.status = StatusRunning
	run.mu.Unlock()

	def, ok := e.resolve(run.strategyID)
	if !ok {
		err := errors.Newf(errors.ErrCodeStrategyNotFound, "no strategy registered as %s", run.strategyID)
		run.transition(StatusFailed, err)

		return err
	}

	log := e.log.ForStrategy(run.strategyID)
	log.Info("Backtest started",
		zap.Int64("backtest", run.id),
		zap.Int64("from", run.fromUnix),
		zap.Int64("to", run.toUnix),
	)

	api := newReplayAPI(e, run, log)

	if def.BeforeBacktest != nil {
		if err := def.BeforeBacktest(ctx, api); err != nil {
			run.transition(StatusFailed, err)

			return err
		}
	}

	for windowStart := run.fromUnix; windowStart < run.toUnix; windowStart += windowSeconds {
		windowEnd := windowStart + windowSeconds
		if windowEnd > run.toUnix {
			windowEnd = run.toUnix
		}

		fromSlot := chrono.UnixToSlot(windowStart)
		toSlot := chrono.UnixToSlot(windowEnd)

		if def.BeforeDataPull != nil {
			if err := def.BeforeDataPull(ctx, api, fromSlot, toSlot); err != nil {
				run.transition(StatusFailed, err)

				return err
			}
		}

		events, err := e.pullWindow(ctx, run.poolIdentifier, fromSlot, toSlot)
		if err != nil {
			wrapped := errors.Wrapf(errors.ErrCodeReplayDataPullFailed, err, "failed to pull history for slots [%d, %d)", fromSlot, toSlot)
			run.transition(StatusFailed, wrapped)

			return wrapped
		}

		for _, event := range events {
			api.observe(event)

			if err := def.OnMarketEvent(ctx, api, event); err != nil {
				run.transition(StatusFailed, err)

				return err
			}

			run.setCursor(chrono.SlotToUnix(event.OrderingSlot()))
		}
	}

	run.setCursor(run.toUnix)
	run.transition(StatusCompleted, nil)

	log.Info("Backtest completed",
		zap.Int64("backtest", run.id),
		zap.Int("orders", len(run.Orders())),
	)

	return nil
}

// pullWindow fetches the four historic categories for one window and merges
// them into a single slot-ordered stream. The sort is stable, so events
// sharing a slot keep their per-category order.
func (e *Engine) pullWindow(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.MarketEvent, error) {
	states, err := e.source.PoolStatesHistoric(ctx, poolIdentifier, fromSlot, toSlot)
	if err != nil {
		return nil, err
	}

	swaps, err := e.source.SwapsHistoric(ctx, poolIdentifier, fromSlot, toSlot)
	if err != nil {
		return nil, err
	}

	deposits, err := e.source.DepositsHistoric(ctx, poolIdentifier, fromSlot, toSlot)
	if err != nil {
		return nil, err
	}

	withdraws, err := e.source.WithdrawsHistoric(ctx, poolIdentifier, fromSlot, toSlot)
	if err != nil {
		return nil, err
	}

	events := make([]types.MarketEvent, 0, len(states)+len(swaps)+len(deposits)+len(withdraws))
	for _, state := range states {
		events = append(events, state)
	}
	for _, swap := range swaps {
		events = append(events, swap)
	}
	for _, deposit := range deposits {
		events = append(events, deposit)
	}
	for _, withdraw := range withdraws {
		events = append(events, withdraw)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OrderingSlot() < events[j].OrderingSlot()
	})

	return events, nil
}

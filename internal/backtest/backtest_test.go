package backtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/breeze-labs/breeze/internal/chrono"
	"github.com/breeze-labs/breeze/internal/ledger"
	"github.com/breeze-labs/breeze/internal/logger"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/errors"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

type windowCall struct {
	fromSlot int64
	toSlot   int64
}

// fakeSource serves canned history keyed by window start slot.
type fakeSource struct {
	pool     types.LiquidityPool
	states   map[int64][]types.PoolState
	swaps    map[int64][]types.SwapOrder
	windows  []windowCall
	failPull bool
}

func (f *fakeSource) MatchPool(ctx context.Context, identifier string) (types.LiquidityPool, error) {
	return f.pool, nil
}

func (f *fakeSource) PoolStatesHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.PoolState, error) {
	if f.failPull {
		return nil, fmt.Errorf("history host unavailable")
	}

	f.windows = append(f.windows, windowCall{fromSlot: fromSlot, toSlot: toSlot})

	return f.states[fromSlot], nil
}

func (f *fakeSource) SwapsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.SwapOrder, error) {
	return f.swaps[fromSlot], nil
}

func (f *fakeSource) DepositsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.DepositOrder, error) {
	return nil, nil
}

func (f *fakeSource) WithdrawsHistoric(ctx context.Context, poolIdentifier string, fromSlot int64, toSlot int64) ([]types.WithdrawOrder, error) {
	return nil, nil
}

type BacktestTestSuite struct {
	suite.Suite
	ctx        context.Context
	log        *logger.Logger
	store      *ledger.Store
	source     *fakeSource
	strategies map[string]strategy.Strategy
	fromUnix   int64
	toUnix     int64
}

func (suite *BacktestTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.log = logger.NewNopLogger()

	store, err := ledger.NewStore(":memory:", suite.log)
	suite.Require().NoError(err)
	suite.store = store

	suite.source = &fakeSource{
		pool: types.LiquidityPool{
			Dex:        "Minswap",
			Identifier: "minswap.ADA-INDY",
			AssetA:     types.Lovelace(),
			AssetB:     types.Asset{PolicyID: "533bb94a8850ee3ccbe483106489399112b74c905342cb1792a797a0", NameHex: "494e4459", Decimals: 6, Ticker: "INDY"},
			ReserveA:   1_000_000_000000,
			ReserveB:   500_000_000000,
			FeePercent: decimal.RequireFromString("0.3"),
		},
		states: map[int64][]types.PoolState{},
		swaps:  map[int64][]types.SwapOrder{},
	}

	suite.strategies = map[string]strategy.Strategy{}

	// Two full day-wide windows.
	suite.fromUnix = 1700000000
	suite.toUnix = suite.fromUnix + 2*windowSeconds
}

func (suite *BacktestTestSuite) TearDownTest() {
	suite.Require().NoError(suite.store.Close())
}

func (suite *BacktestTestSuite) newBacktestEngine() *Engine {
	return NewEngine(
		suite.source,
		suite.store,
		func(identifier string) (strategy.Strategy, bool) {
			def, ok := suite.strategies[identifier]
			return def, ok
		},
		map[string]int64{types.LovelaceID: 1_000_000000},
		suite.log,
	)
}

func (suite *BacktestTestSuite) TestNewRunRejectsUnknownStrategy() {
	_, err := suite.newBacktestEngine().NewRun(suite.ctx, "missing", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (suite *BacktestTestSuite) TestNewRunRejectsStrategiesWithoutEventHook() {
	suite.strategies["timer-only"] = strategy.Strategy{Identifier: "timer-only"}

	_, err := suite.newBacktestEngine().NewRun(suite.ctx, "timer-only", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeStrategyNotReplayable))
}

func (suite *BacktestTestSuite) TestNewRunRejectsEmptyRange() {
	suite.strategies["grid"] = suite.passiveStrategy()

	_, err := suite.newBacktestEngine().NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.fromUnix)
	suite.Require().Error(err)
}

func (suite *BacktestTestSuite) passiveStrategy() strategy.Strategy {
	return strategy.Strategy{
		Identifier: "grid",
		OnMarketEvent: func(ctx context.Context, api strategy.API, event types.MarketEvent) error {
			return nil
		},
	}
}

func (suite *BacktestTestSuite) TestExecuteWalksDayWideWindows() {
	suite.strategies["grid"] = suite.passiveStrategy()
	engine := suite.newBacktestEngine()

	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)
	suite.Require().Equal(StatusCreated, run.Status())

	suite.Require().NoError(engine.Execute(suite.ctx, run))
	suite.Require().Equal(StatusCompleted, run.Status())
	suite.Require().Equal(int64(100), run.Progress())

	suite.Require().Len(suite.source.windows, 2)
	suite.Require().Equal(chrono.UnixToSlot(suite.fromUnix), suite.source.windows[0].fromSlot)
	suite.Require().Equal(chrono.UnixToSlot(suite.fromUnix+windowSeconds), suite.source.windows[0].toSlot)
	suite.Require().Equal(chrono.UnixToSlot(suite.fromUnix+windowSeconds), suite.source.windows[1].fromSlot)
	suite.Require().Equal(chrono.UnixToSlot(suite.toUnix), suite.source.windows[1].toSlot)
}

func (suite *BacktestTestSuite) TestExecuteTruncatesFinalWindow() {
	suite.strategies["grid"] = suite.passiveStrategy()
	engine := suite.newBacktestEngine()

	shortTo := suite.fromUnix + windowSeconds + 3600

	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, shortTo)
	suite.Require().NoError(err)
	suite.Require().NoError(engine.Execute(suite.ctx, run))

	suite.Require().Len(suite.source.windows, 2)
	suite.Require().Equal(chrono.UnixToSlot(shortTo), suite.source.windows[1].toSlot)
}

func (suite *BacktestTestSuite) TestExecuteFeedsEventsInSlotOrder() {
	firstWindowSlot := chrono.UnixToSlot(suite.fromUnix)

	// History arrives per category, deliberately out of overall order.
	suite.source.states[firstWindowSlot] = []types.PoolState{
		{Pool: suite.source.pool, Slot: firstWindowSlot + 300},
	}
	suite.source.swaps[firstWindowSlot] = []types.SwapOrder{
		{PoolIdentifier: "minswap.ADA-INDY", TxHash: "aa11", CreatedSlot: firstWindowSlot + 100},
		{PoolIdentifier: "minswap.ADA-INDY", TxHash: "bb22", CreatedSlot: firstWindowSlot + 500},
	}

	var seenSlots []int64

	suite.strategies["grid"] = strategy.Strategy{
		Identifier: "grid",
		OnMarketEvent: func(ctx context.Context, api strategy.API, event types.MarketEvent) error {
			seenSlots = append(seenSlots, event.OrderingSlot())
			return nil
		},
	}

	engine := suite.newBacktestEngine()
	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)
	suite.Require().NoError(engine.Execute(suite.ctx, run))

	suite.Require().Equal([]int64{
		firstWindowSlot + 100,
		firstWindowSlot + 300,
		firstWindowSlot + 500,
	}, seenSlots)
}

func (suite *BacktestTestSuite) TestExecuteRecordsSimulatedOrders() {
	firstWindowSlot := chrono.UnixToSlot(suite.fromUnix)

	suite.source.states[firstWindowSlot] = []types.PoolState{
		{Pool: suite.source.pool, Slot: firstWindowSlot + 10},
	}

	suite.strategies["grid"] = strategy.Strategy{
		Identifier: "grid",
		OnMarketEvent: func(ctx context.Context, api strategy.API, event types.MarketEvent) error {
			state, ok := event.(types.PoolState)
			if !ok {
				return nil
			}

			suite.Require().True(api.IsBacktest())

			return api.SubmitSwap(ctx, state.Pool, types.Lovelace(), 100_000000, decimal.RequireFromString("0.5"))
		},
	}

	engine := suite.newBacktestEngine()
	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)
	suite.Require().NoError(engine.Execute(suite.ctx, run))

	orders := run.Orders()
	suite.Require().Len(orders, 1)
	suite.Require().Equal(int64(100_000000), orders[0].SwapInAmount)
	suite.Require().Equal(run.ID(), orders[0].BacktestID.Unwrap())
	suite.Require().True(orders[0].MinReceive > 0)

	// The order also lands in the ledger under this run.
	stored, err := suite.store.BacktestOrders(suite.ctx, run.ID())
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)

	// And the ledger keeps backtest orders away from the live sweep.
	unsettled, err := suite.store.UnsettledOrders(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Empty(unsettled)
}

func (suite *BacktestTestSuite) TestExecuteAdvancesCursorToEachEvent() {
	// One event at midday of day 1, so progress at the start of window 2
	// reflects that event's time, not the window boundary.
	suite.source.states[chrono.UnixToSlot(suite.fromUnix)] = []types.PoolState{
		{Pool: suite.source.pool, Slot: chrono.UnixToSlot(suite.fromUnix + windowSeconds/2)},
	}

	var pulls []int64
	var progressAtPull []int64

	var run *Run

	suite.strategies["grid"] = strategy.Strategy{
		Identifier: "grid",
		OnMarketEvent: func(ctx context.Context, api strategy.API, event types.MarketEvent) error {
			return nil
		},
		BeforeDataPull: func(ctx context.Context, api strategy.API, fromSlot int64, toSlot int64) error {
			pulls = append(pulls, fromSlot)
			progressAtPull = append(progressAtPull, run.Progress())
			return nil
		},
	}

	engine := suite.newBacktestEngine()

	var err error
	run, err = engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)
	suite.Require().NoError(engine.Execute(suite.ctx, run))

	suite.Require().Len(pulls, 2)
	suite.Require().Equal([]int64{0, 25}, progressAtPull)
	suite.Require().Equal(int64(100), run.Progress())
}

func (suite *BacktestTestSuite) TestExecuteIsDeterministicAcrossRuns() {
	firstWindowSlot := chrono.UnixToSlot(suite.fromUnix)

	suite.source.states[firstWindowSlot] = []types.PoolState{
		{Pool: suite.source.pool, Slot: firstWindowSlot + 10},
	}
	suite.source.swaps[firstWindowSlot] = []types.SwapOrder{
		{PoolIdentifier: "minswap.ADA-INDY", TxHash: "aa11", CreatedSlot: firstWindowSlot + 20},
	}

	indyAsset := suite.source.pool.AssetB

	replay := func() (slots []int64, lovelace int64, indy int64) {
		suite.strategies["grid"] = strategy.Strategy{
			Identifier: "grid",
			OnMarketEvent: func(ctx context.Context, api strategy.API, event types.MarketEvent) error {
				slots = append(slots, event.OrderingSlot())

				if state, ok := event.(types.PoolState); ok {
					if err := api.SubmitSwap(ctx, state.Pool, types.Lovelace(), 100_000000, decimal.RequireFromString("0.5")); err != nil {
						return err
					}
				}

				lovelace = api.Balance(types.Lovelace())
				indy = api.Balance(indyAsset)

				return nil
			},
		}

		engine := suite.newBacktestEngine()
		run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
		suite.Require().NoError(err)
		suite.Require().NoError(engine.Execute(suite.ctx, run))

		return slots, lovelace, indy
	}

	firstSlots, firstLovelace, firstIndy := replay()
	secondSlots, secondLovelace, secondIndy := replay()

	suite.Require().Equal(firstSlots, secondSlots)
	suite.Require().Equal(firstLovelace, secondLovelace)
	suite.Require().Equal(firstIndy, secondIndy)
	suite.Require().True(firstIndy > 0)
}

func (suite *BacktestTestSuite) TestExecuteFailsOnDataPullError() {
	suite.strategies["grid"] = suite.passiveStrategy()
	suite.source.failPull = true

	engine := suite.newBacktestEngine()
	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)

	err = engine.Execute(suite.ctx, run)
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeReplayDataPullFailed))
	suite.Require().Equal(StatusFailed, run.Status())
	suite.Require().Equal(int64(100), run.Progress())
	suite.Require().NotEmpty(run.View().Failure)
}

func (suite *BacktestTestSuite) TestExecuteRunsAtMostOnce() {
	suite.strategies["grid"] = suite.passiveStrategy()

	engine := suite.newBacktestEngine()
	run, err := engine.NewRun(suite.ctx, "grid", "minswap.ADA-INDY", suite.fromUnix, suite.toUnix)
	suite.Require().NoError(err)
	suite.Require().NoError(engine.Execute(suite.ctx, run))

	err = engine.Execute(suite.ctx, run)
	suite.Require().Error(err)
	suite.Require().True(errors.HasCode(err, errors.ErrCodeReplayAlreadyRan))
}

func TestBacktestTestSuite(t *testing.T) {
	suite.Run(t, new(BacktestTestSuite))
}

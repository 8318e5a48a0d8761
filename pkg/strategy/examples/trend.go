// Package examples ships ready-made strategy definitions that double as
// reference implementations of the strategy contract.
package examples

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/breeze-labs/breeze/internal/indicator"
	"github.com/breeze-labs/breeze/internal/types"
	"github.com/breeze-labs/breeze/pkg/strategy"
)

const (
	trendSeriesCapacity = 500
	trendFastPeriod     = 12
	trendSlowPeriod     = 26
)

// TrendFollowConfig tunes a trend-following definition.
type TrendFollowConfig struct {
	// PoolIdentifier is the single pool the strategy watches.
	PoolIdentifier string
	// TradeLovelace is the spend per entry, in lovelace.
	TradeLovelace int64
	// SlippagePercent is passed through to every order.
	SlippagePercent decimal.Decimal
}

// trendFollow holds the rolling state behind the hooks.
type trendFollow struct {
	cfg    TrendFollowConfig
	closes *indicator.Series

	pool     types.LiquidityPool
	poolSeen bool

	// fastAbove tracks which side of the slow average the fast average
	// was on at the previous tick, so only crossings trade.
	fastAbove   bool
	crossPrimed bool
}

// NewTrendFollow builds a strategy that buys the pool's other asset when the
// fast moving average crosses above the slow one.
func NewTrendFollow(identifier string, cfg TrendFollowConfig) strategy.Strategy {
	t := &trendFollow{
		cfg:    cfg,
		closes: indicator.NewSeries(trendSeriesCapacity),
	}

	return strategy.Strategy{
		Identifier:    identifier,
		OnMarketEvent: t.onMarketEvent,
	}
}

func (t *trendFollow) onMarketEvent(ctx context.Context, api strategy.API, event types.MarketEvent) error {
	switch e := event.(type) {
	case types.PoolState:
		if e.Pool.Identifier == t.cfg.PoolIdentifier {
			t.pool = e.Pool
			t.poolSeen = true
		}

		return nil
	case types.PriceTick:
		if e.PoolIdentifier != t.cfg.PoolIdentifier {
			return nil
		}

		return t.onTick(ctx, api, e)
	default:
		return nil
	}
}

func (t *trendFollow) onTick(ctx context.Context, api strategy.API, tick types.PriceTick) error {
	t.closes.Append(tick.Close)

	fast := t.closes.EMA(trendFastPeriod)
	slow := t.closes.EMA(trendSlowPeriod)

	if fast.IsNone() || slow.IsNone() {
		return nil
	}

	above := fast.Unwrap().GreaterThan(slow.Unwrap())

	crossedUp := t.crossPrimed && above && !t.fastAbove
	t.fastAbove = above
	t.crossPrimed = true

	if !crossedUp || !t.poolSeen {
		return nil
	}

	return api.SubmitSwap(ctx, t.pool, types.Lovelace(), t.cfg.TradeLovelace, t.cfg.SlippagePercent)
}

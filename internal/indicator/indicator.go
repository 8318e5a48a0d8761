// Package indicator provides trend calculations over a rolling price series.
// Strategies append closes as ticks arrive and read indicator values back;
// every calculation returns None until enough history has accumulated.
package indicator

import (
	"sync"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	three   = decimal.NewFromInt(3)
	hundred = decimal.NewFromInt(100)
)

// Series is a bounded rolling window of closing prices.
type Series struct {
	mu       sync.Mutex
	capacity int
	closes   []decimal.Decimal
}

// NewSeries creates a series that retains at most capacity closes.
func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = 1
	}

	return &Series{
		capacity: capacity,
		closes:   make([]decimal.Decimal, 0, capacity),
	}
}

// Append adds a close, evicting the oldest once the window is full.
func (s *Series) Append(close decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closes = append(s.closes, close)
	if len(s.closes) > s.capacity {
		s.closes = s.closes[1:]
	}
}

// Len returns the number of retained closes.
func (s *Series) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.closes)
}

// Last returns the most recent close.
func (s *Series) Last() optional.Option[decimal.Decimal] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.closes) == 0 {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(s.closes[len(s.closes)-1])
}

func (s *Series) snapshot() []decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]decimal.Decimal(nil), s.closes...)
}

// SMA returns the simple moving average over the trailing period.
func (s *Series) SMA(period int) optional.Option[decimal.Decimal] {
	closes := s.snapshot()
	if period <= 0 || len(closes) < period {
		return optional.None[decimal.Decimal]()
	}

	window := closes[len(closes)-period:]

	sum := decimal.Zero
	for _, close := range window {
		sum = sum.Add(close)
	}

	return optional.Some(sum.Div(decimal.NewFromInt(int64(period))))
}

// EMA returns the exponential moving average over the trailing period,
// seeded with the SMA of the first period closes.
func (s *Series) EMA(period int) optional.Option[decimal.Decimal] {
	closes := s.snapshot()

	return emaOf(closes, period)
}

func emaOf(closes []decimal.Decimal, period int) optional.Option[decimal.Decimal] {
	if period <= 0 || len(closes) < period {
		return optional.None[decimal.Decimal]()
	}

	seed := decimal.Zero
	for _, close := range closes[:period] {
		seed = seed.Add(close)
	}
	seed = seed.Div(decimal.NewFromInt(int64(period)))

	multiplier := two.Div(decimal.NewFromInt(int64(period) + 1))

	ema := seed
	for _, close := range closes[period:] {
		ema = close.Sub(ema).Mul(multiplier).Add(ema)
	}

	return optional.Some(ema)
}

// TEMA returns the triple exponential moving average over the trailing
// period. It needs roughly three periods of history before producing a
// value.
func (s *Series) TEMA(period int) optional.Option[decimal.Decimal] {
	closes := s.snapshot()
	if period <= 0 || len(closes) < 3*period-2 {
		return optional.None[decimal.Decimal]()
	}

	ema1Series := runningEMA(closes, period)
	ema2Series := runningEMA(ema1Series, period)
	ema3Series := runningEMA(ema2Series, period)

	if len(ema3Series) == 0 {
		return optional.None[decimal.Decimal]()
	}

	ema1 := ema1Series[len(ema1Series)-1]
	ema2 := ema2Series[len(ema2Series)-1]
	ema3 := ema3Series[len(ema3Series)-1]

	return optional.Some(three.Mul(ema1).Sub(three.Mul(ema2)).Add(ema3))
}

// runningEMA returns the EMA value at every point from the seed onward.
func runningEMA(values []decimal.Decimal, period int) []decimal.Decimal {
	if period <= 0 || len(values) < period {
		return nil
	}

	seed := decimal.Zero
	for _, value := range values[:period] {
		seed = seed.Add(value)
	}
	seed = seed.Div(decimal.NewFromInt(int64(period)))

	multiplier := two.Div(decimal.NewFromInt(int64(period) + 1))

	series := make([]decimal.Decimal, 0, len(values)-period+1)
	series = append(series, seed)

	ema := seed
	for _, value := range values[period:] {
		ema = value.Sub(ema).Mul(multiplier).Add(ema)
		series = append(series, ema)
	}

	return series
}

// RSI returns the relative strength index over the trailing period using
// Wilder's smoothing.
func (s *Series) RSI(period int) optional.Option[decimal.Decimal] {
	closes := s.snapshot()
	if period <= 0 || len(closes) < period+1 {
		return optional.None[decimal.Decimal]()
	}

	gains := decimal.Zero
	losses := decimal.Zero

	for i := 1; i <= period; i++ {
		change := closes[i].Sub(closes[i-1])
		if change.IsPositive() {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Neg())
		}
	}

	periodDec := decimal.NewFromInt(int64(period))
	avgGain := gains.Div(periodDec)
	avgLoss := losses.Div(periodDec)

	smoothing := periodDec.Sub(one)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i].Sub(closes[i-1])

		gain := decimal.Zero
		loss := decimal.Zero
		if change.IsPositive() {
			gain = change
		} else {
			loss = change.Neg()
		}

		avgGain = avgGain.Mul(smoothing).Add(gain).Div(periodDec)
		avgLoss = avgLoss.Mul(smoothing).Add(loss).Div(periodDec)
	}

	if avgLoss.IsZero() {
		return optional.Some(hundred)
	}

	rs := avgGain.Div(avgLoss)

	return optional.Some(hundred.Sub(hundred.Div(one.Add(rs))))
}

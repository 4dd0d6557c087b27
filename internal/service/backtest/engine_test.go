package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/service/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStrategy emits a fixed signal whenever the latest bar's time is
// in the script.
type scriptedStrategy struct {
	script map[int64]entity.Side
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) GenerateSignals(history entity.Series) map[string]entity.Signal {
	if len(history.Bars) == 0 {
		return nil
	}
	last := history.Bars[len(history.Bars)-1]
	side, ok := s.script[last.Time.UnixNano()]
	if !ok {
		return nil
	}
	signal, _ := entity.NewSignal(side, 1, nil)
	return map[string]entity.Signal{history.Symbol: signal}
}

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func series(symbol string, closes map[int]float64) entity.Series {
	bars := make([]entity.Bar, 0, len(closes))
	for n, close := range closes {
		bars = append(bars, entity.Bar{
			Time:  day(n),
			Close: decimal.NewFromFloat(close),
		})
	}
	return entity.NewSeries(symbol, bars)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(Config{Strategies: []strategy.Strategy{&scriptedStrategy{}}})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = NewEngine(Config{Data: map[string]entity.Series{
		"AAPL": series("AAPL", map[int]float64{1: 100}),
	}})
	assert.ErrorIs(t, err, ErrNoStrategies)
}

func TestRunExecutesSignalsOnSameBar(t *testing.T) {
	data := map[string]entity.Series{
		"AAPL": series("AAPL", map[int]float64{1: 100, 2: 110, 3: 120}),
	}
	strat := &scriptedStrategy{script: map[int64]entity.Side{
		day(2).UnixNano(): entity.SideBuy,
	}}

	engine, err := NewEngine(Config{
		Data:         data,
		Strategies:   []strategy.Strategy{strat},
		StartingCash: decimal.NewFromInt(100_000),
		LotSize:      10,
	})
	require.NoError(t, err)

	curve, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, curve, 3)

	// the BUY on day 2 executes against day 2's close
	fills := engine.Ledger().TradeHistory()
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(110)))
	assert.Equal(t, day(2), fills[0].Time)

	// day 1: flat. day 2: bought 10@110. day 3: 10 shares marked at 120.
	assert.True(t, curve[0].Equity.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, curve[1].Equity.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, curve[2].Equity.Equal(decimal.NewFromInt(100_100)))
}

func TestRunMergesSparseSeries(t *testing.T) {
	data := map[string]entity.Series{
		"AAPL": series("AAPL", map[int]float64{1: 100, 3: 120}),
		"MSFT": series("MSFT", map[int]float64{2: 200, 3: 210}),
	}
	strat := &scriptedStrategy{script: map[int64]entity.Side{
		day(1).UnixNano(): entity.SideBuy,
		day(2).UnixNano(): entity.SideBuy,
	}}

	engine, err := NewEngine(Config{
		Data:         data,
		Strategies:   []strategy.Strategy{strat},
		StartingCash: decimal.NewFromInt(100_000),
		LotSize:      1,
	})
	require.NoError(t, err)

	curve, err := engine.Run(context.Background())
	require.NoError(t, err)
	// union of day 1, 2, 3
	require.Len(t, curve, 3)
	assert.Equal(t, day(1), curve[0].Time)
	assert.Equal(t, day(2), curve[1].Time)
	assert.Equal(t, day(3), curve[2].Time)

	// day 1 buys 1 AAPL@100, day 2 buys 1 MSFT@200; each symbol only
	// trades on timestamps it has data for
	fills := engine.Ledger().TradeHistory()
	require.Len(t, fills, 2)
	assert.Equal(t, "AAPL", fills[0].Symbol)
	assert.Equal(t, "MSFT", fills[1].Symbol)

	// day 2 equity marks AAPL at its last known close (100)
	assert.True(t, curve[1].Equity.Equal(decimal.NewFromInt(100_000)))
	// day 3: cash 99_700 + AAPL 120 + MSFT 210
	assert.True(t, curve[2].Equity.Equal(decimal.NewFromInt(100_030)))
}

func TestRunIsDeterministic(t *testing.T) {
	data := map[string]entity.Series{
		"AAPL": series("AAPL", map[int]float64{1: 100, 2: 95, 3: 105, 4: 110}),
		"MSFT": series("MSFT", map[int]float64{1: 200, 2: 205, 3: 198, 4: 202}),
	}
	script := map[int64]entity.Side{
		day(1).UnixNano(): entity.SideBuy,
		day(3).UnixNano(): entity.SideSell,
	}

	run := func() entity.EquityCurve {
		engine, err := NewEngine(Config{
			Data:         data,
			Strategies:   []strategy.Strategy{&scriptedStrategy{script: script}},
			StartingCash: decimal.NewFromInt(50_000),
			Commission:   decimal.NewFromFloat(0.5),
			LotSize:      5,
		})
		require.NoError(t, err)
		curve, err := engine.Run(context.Background())
		require.NoError(t, err)
		return curve
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Time, second[i].Time)
		assert.True(t, first[i].Equity.Equal(second[i].Equity))
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	engine, err := NewEngine(Config{
		Data: map[string]entity.Series{
			"AAPL": series("AAPL", map[int]float64{1: 100, 2: 110}),
		},
		Strategies:   []strategy.Strategy{&scriptedStrategy{}},
		StartingCash: decimal.NewFromInt(10_000),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	curve, err := engine.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, curve)
}

func TestOrderHistoryAndPendingOrders(t *testing.T) {
	engine, err := NewEngine(Config{
		Data: map[string]entity.Series{
			"AAPL": series("AAPL", map[int]float64{1: 100}),
		},
		Strategies: []strategy.Strategy{&scriptedStrategy{script: map[int64]entity.Side{
			day(1).UnixNano(): entity.SideBuy,
		}}},
		StartingCash: decimal.NewFromInt(100_000),
		LotSize:      10,
	})
	require.NoError(t, err)

	_, err = engine.Run(context.Background())
	require.NoError(t, err)

	history := engine.OrderHistory()
	require.Len(t, history, 1)
	assert.Equal(t, entity.OrderStatusFilled, history[0].Status)
	assert.Empty(t, engine.PendingOrders())
}

package backtest

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/krobus00/backtest-service/internal/constant"
	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/service/ledger"
	"github.com/krobus00/backtest-service/internal/service/matching"
	"github.com/krobus00/backtest-service/internal/service/strategy"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoData       = errors.New("no bar data supplied")
	ErrNoStrategies = errors.New("no strategies supplied")
)

type Config struct {
	// Data maps symbol to its bar series. Series may be sparse and
	// unaligned; timestamps a symbol lacks are simply skipped for it.
	Data       map[string]entity.Series
	Strategies []strategy.Strategy

	StartingCash decimal.Decimal
	// Commission is a flat charge per fill.
	Commission decimal.Decimal
	// LotSize is the fixed order quantity per non-HOLD signal. Zero
	// defaults to constant.DefaultLotSize.
	LotSize int64
	// MaxQtyPerFill caps an order's first fill. Zero disables the cap.
	MaxQtyPerFill int64
	// ProgressInterval is how many timestamps pass between progress
	// logs. Zero defaults to constant.DefaultProgressInterval.
	ProgressInterval int
}

// Engine replays a multi-symbol historical timeline through the supplied
// strategies, one timestamp at a time, and records the equity curve.
//
// Replay is strictly single-threaded: all matching and ledger mutation
// for a timestamp completes before the next timestamp is considered, so
// runs are reproducible bar for bar.
//
// Strategy history slices are inclusive of the current bar while orders
// execute against that same bar's close, so a decision "sees" the bar it
// trades on. This look-ahead is a documented property of the replay
// model, kept intentionally.
type Engine struct {
	data       map[string]entity.Series
	symbols    []string
	timestamps []time.Time
	strategies []strategy.Strategy

	book   *matching.Engine
	ledger *ledger.Ledger

	commission       decimal.Decimal
	lotSize          int64
	progressInterval int
}

func NewEngine(config Config) (*Engine, error) {
	if len(config.Data) == 0 {
		return nil, ErrNoData
	}
	if len(config.Strategies) == 0 {
		return nil, ErrNoStrategies
	}

	lotSize := config.LotSize
	if lotSize <= 0 {
		lotSize = constant.DefaultLotSize
	}
	progressInterval := config.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = constant.DefaultProgressInterval
	}

	symbols := make([]string, 0, len(config.Data))
	for symbol := range config.Data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	return &Engine{
		data:             config.Data,
		symbols:          symbols,
		timestamps:       mergedTimeline(config.Data),
		strategies:       config.Strategies,
		book:             matching.NewEngine(config.MaxQtyPerFill),
		ledger:           ledger.NewLedger(ledger.Config{StartingCash: config.StartingCash}),
		commission:       config.Commission,
		lotSize:          lotSize,
		progressInterval: progressInterval,
	}, nil
}

// mergedTimeline is the sorted union of every symbol's timestamps.
func mergedTimeline(data map[string]entity.Series) []time.Time {
	seen := make(map[int64]time.Time)
	for _, series := range data {
		for _, bar := range series.Bars {
			seen[bar.Time.UnixNano()] = bar.Time
		}
	}

	timestamps := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		timestamps = append(timestamps, t)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
	return timestamps
}

// Run replays the whole timeline and returns the equity curve.
func (e *Engine) Run(ctx context.Context) (entity.EquityCurve, error) {
	equityCurve := make(entity.EquityCurve, 0, len(e.timestamps))
	lastCloses := make(map[string]decimal.Decimal)

	for idx, current := range e.timestamps {
		if err := ctx.Err(); err != nil {
			return equityCurve, err
		}

		bars := e.barsAt(current)
		if len(bars) == 0 {
			continue
		}

		e.collectSignals(current, bars)
		e.executeOrders(current, bars)

		for symbol, bar := range bars {
			lastCloses[symbol] = bar.Close
		}
		equityCurve = append(equityCurve, entity.EquityPoint{
			Time:   current,
			Equity: e.ledger.TotalEquity(lastCloses),
		})

		if (idx+1)%e.progressInterval == 0 {
			logrus.WithFields(logrus.Fields{
				"processed": idx + 1,
				"total":     len(e.timestamps),
				"equity":    equityCurve[len(equityCurve)-1].Equity,
			}).Info("backtest progress")
		}
	}

	return equityCurve, nil
}

// barsAt returns the symbols that actually have a bar at t.
func (e *Engine) barsAt(t time.Time) map[string]entity.Bar {
	bars := make(map[string]entity.Bar)
	for _, symbol := range e.symbols {
		if bar, ok := e.data[symbol].At(t); ok {
			bars[symbol] = bar
		}
	}
	return bars
}

// collectSignals runs every strategy over each relevant symbol's history
// up to and including t, and routes non-HOLD signals into fixed-lot
// market orders.
func (e *Engine) collectSignals(t time.Time, bars map[string]entity.Bar) {
	for _, strat := range e.strategies {
		for _, symbol := range e.symbols {
			if _, ok := bars[symbol]; !ok {
				continue
			}

			signals := strat.GenerateSignals(e.data[symbol].UpTo(t))
			for signalSymbol, signal := range signals {
				if signal.Side == entity.SideHold {
					continue
				}
				if err := e.submitOrder(signalSymbol, signal.Side, t); err != nil {
					logrus.WithFields(logrus.Fields{
						"strategy": strat.Name(),
						"symbol":   signalSymbol,
					}).Warnf("order rejected: %v", err)
				}
			}
		}
	}
}

func (e *Engine) submitOrder(symbol string, side entity.Side, t time.Time) error {
	order, err := entity.NewOrder(entity.OrderParams{
		Symbol:    symbol,
		Side:      side,
		Type:      entity.OrderTypeMarket,
		Quantity:  e.lotSize,
		CreatedAt: t,
	})
	if err != nil {
		return err
	}

	e.book.AddOrder(order)
	return nil
}

func (e *Engine) executeOrders(t time.Time, bars map[string]entity.Bar) {
	for _, symbol := range e.symbols {
		bar, ok := bars[symbol]
		if !ok {
			continue
		}

		fills := e.book.ProcessBar(matching.ProcessBarParams{
			Symbol:     symbol,
			Time:       t,
			Close:      bar.Close,
			High:       bar.HighOrClose(),
			Low:        bar.LowOrClose(),
			Commission: e.commission,
		})
		for _, fill := range fills {
			e.ledger.ApplyFill(fill)
		}
	}
}

// PendingOrders exposes the still-open orders for introspection. The
// orders stay owned by the matching engine.
func (e *Engine) PendingOrders() []*entity.Order {
	return e.book.AllOpenOrders()
}

// OrderHistory is the audit trail of every submitted order.
func (e *Engine) OrderHistory() []*entity.Order {
	return e.book.History()
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

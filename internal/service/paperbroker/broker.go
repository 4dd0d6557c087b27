package paperbroker

import (
	"errors"
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/krobus00/backtest-service/internal/service/ledger"
	"github.com/krobus00/backtest-service/internal/service/matching"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrNoEquityData = errors.New("no equity data recorded, process at least one price tick first")

type Config struct {
	StartingCash decimal.Decimal
	// Latency delays a submitted order before it becomes matchable.
	Latency time.Duration
	// SlippagePct is the fractional adverse price adjustment per fill,
	// e.g. 0.0005 for 5 bps.
	SlippagePct   decimal.Decimal
	MaxQtyPerFill int64
}

type queuedOrder struct {
	readyAt time.Time
	order   *entity.Order
}

// Broker simulates live execution over externally supplied price ticks.
// It wraps one matching engine and one ledger, adding submission latency
// and execution slippage, and is their sole mutator once constructed.
//
// The broker holds no thread of its own; callers must serialize ticks
// (one OnPriceTick completing before the next begins).
type Broker struct {
	latency     time.Duration
	slippagePct decimal.Decimal

	book       *matching.Engine
	ledger     *ledger.Ledger
	delayQueue []queuedOrder

	fills       []entity.Fill
	equityCurve entity.EquityCurve
	lastPrices  map[string]decimal.Decimal
}

func NewBroker(config Config) *Broker {
	latency := config.Latency
	if latency < 0 {
		latency = 0
	}
	slippagePct := config.SlippagePct
	if slippagePct.LessThan(decimal.Zero) {
		slippagePct = decimal.Zero
	}

	return &Broker{
		latency:     latency,
		slippagePct: slippagePct,
		book:        matching.NewEngine(config.MaxQtyPerFill),
		ledger:      ledger.NewLedger(ledger.Config{StartingCash: config.StartingCash}),
		lastPrices:  make(map[string]decimal.Decimal),
	}
}

// SubmitOrder queues the order; it enters the book once latency has
// elapsed. A zero now falls back to the wall clock.
func (b *Broker) SubmitOrder(order *entity.Order, now time.Time) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	b.delayQueue = append(b.delayQueue, queuedOrder{
		readyAt: now.Add(b.latency),
		order:   order,
	})
}

// CancelOrder first tries to remove the order from the latency queue
// (cancelled before it ever reached the book), then delegates to the
// book.
func (b *Broker) CancelOrder(orderID string) bool {
	for idx, queued := range b.delayQueue {
		if queued.order.ID == orderID {
			b.delayQueue = append(b.delayQueue[:idx], b.delayQueue[idx+1:]...)
			return true
		}
	}
	return b.book.CancelOrder(orderID)
}

// OnPriceTick processes one OHLC observation: flushes queue entries whose
// latency has elapsed, runs one matching pass, applies slippage to each
// fill before it reaches the ledger, and appends an equity sample.
// Returns the new, slippage-adjusted fills.
func (b *Broker) OnPriceTick(symbol string, tickTime time.Time, close, high, low, commission decimal.Decimal) []entity.Fill {
	b.lastPrices[symbol] = close

	b.flushReady(tickTime)

	fills := b.book.ProcessBar(matching.ProcessBarParams{
		Symbol:     symbol,
		Time:       tickTime,
		Close:      close,
		High:       high,
		Low:        low,
		Commission: commission,
	})

	adjusted := make([]entity.Fill, 0, len(fills))
	for _, fill := range fills {
		adjustedFill := fill.WithPrice(b.slippedPrice(fill))
		b.ledger.ApplyFill(adjustedFill)
		adjusted = append(adjusted, adjustedFill)
	}
	if len(adjusted) > 0 {
		b.fills = append(b.fills, adjusted...)
		logrus.WithFields(logrus.Fields{
			"symbol":    symbol,
			"fillCount": len(adjusted),
			"cash":      b.ledger.Cash(),
		}).Debug("paper broker executed fills")
	}

	b.equityCurve = append(b.equityCurve, entity.EquityPoint{
		Time:   tickTime,
		Equity: b.ledger.TotalEquity(b.lastPrices),
	})

	if len(adjusted) == 0 {
		return nil
	}
	return adjusted
}

// flushReady moves every queued order whose ready time has been reached
// into the book, preserving submission order.
func (b *Broker) flushReady(now time.Time) {
	remaining := b.delayQueue[:0]
	for _, queued := range b.delayQueue {
		if !queued.readyAt.After(now) {
			b.book.AddOrder(queued.order)
			continue
		}
		remaining = append(remaining, queued)
	}
	b.delayQueue = remaining
}

func (b *Broker) slippedPrice(fill entity.Fill) decimal.Decimal {
	if b.slippagePct.IsZero() {
		return fill.Price
	}

	one := decimal.NewFromInt(1)
	if fill.Side == entity.SideBuy {
		return fill.Price.Mul(one.Add(b.slippagePct))
	}
	return fill.Price.Mul(one.Sub(b.slippagePct))
}

// Equity marks the portfolio against the supplied prices.
func (b *Broker) Equity(prices map[string]decimal.Decimal) decimal.Decimal {
	return b.ledger.TotalEquity(prices)
}

// EquityCurve is the per-tick equity trail recorded so far.
func (b *Broker) EquityCurve() entity.EquityCurve {
	return b.equityCurve
}

// Fills is the append-only trail of slippage-adjusted fills.
func (b *Broker) Fills() []entity.Fill {
	return b.fills
}

// Results returns the equity curve and fills trail, or an error when no
// tick has been processed yet; an empty artifact is never produced
// silently.
func (b *Broker) Results() (entity.EquityCurve, []entity.Fill, error) {
	if len(b.equityCurve) == 0 {
		return nil, nil, ErrNoEquityData
	}
	return b.equityCurve, b.fills, nil
}

// PendingOrders lists latency-queued orders followed by open orders in
// the book.
func (b *Broker) PendingOrders() []*entity.Order {
	pending := make([]*entity.Order, 0, len(b.delayQueue))
	for _, queued := range b.delayQueue {
		pending = append(pending, queued.order)
	}
	return append(pending, b.book.AllOpenOrders()...)
}

func (b *Broker) Ledger() *ledger.Ledger {
	return b.ledger
}

// Reset clears the latency queue and fills and replaces the book and
// ledger with fresh instances, preserving the configured cap and the
// residual cash position (cash plus any margin loan).
func (b *Broker) Reset() {
	b.delayQueue = nil
	residualCash := b.ledger.Cash().Add(b.ledger.MarginUsed())
	b.book = matching.NewEngine(b.book.MaxQtyPerFill())
	b.ledger = ledger.NewLedger(ledger.Config{StartingCash: residualCash})
	b.fills = nil
}

package matching

import (
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/shopspring/decimal"
)

// Engine is a single-participant order book: it tracks every order ever
// submitted per symbol and attempts execution against one OHLC bar at a
// time. Orders are visited in submission order; there is no price/time
// priority between different orders because there is only one participant.
//
// Commission and slippage stay outside the matching pass so the same
// engine serves both the zero-friction replay and the frictional paper
// broker.
type Engine struct {
	orders        map[string][]*entity.Order
	history       []*entity.Order
	maxQtyPerFill int64
}

// NewEngine creates an order book. maxQtyPerFill limits how much of an
// order can execute on its first fill; zero disables the cap.
func NewEngine(maxQtyPerFill int64) *Engine {
	if maxQtyPerFill < 0 {
		maxQtyPerFill = 0
	}

	return &Engine{
		orders:        make(map[string][]*entity.Order),
		maxQtyPerFill: maxQtyPerFill,
	}
}

// AddOrder registers an order with the book. Validation already happened
// in entity.NewOrder; nothing more is enforced here.
func (e *Engine) AddOrder(order *entity.Order) {
	e.orders[order.Symbol] = append(e.orders[order.Symbol], order)
	e.history = append(e.history, order)
}

// CancelOrder cancels a matching open order. Reports whether a
// cancellation happened.
func (e *Engine) CancelOrder(orderID string) bool {
	for _, orders := range e.orders {
		for _, order := range orders {
			if order.ID == orderID && order.IsOpen() {
				order.Cancel()
				return true
			}
		}
	}
	return false
}

type ProcessBarParams struct {
	Symbol     string
	Time       time.Time
	Close      decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Commission decimal.Decimal
	// MaxQtyPerFill overrides the engine-level cap for this pass.
	// Zero falls back to the engine default.
	MaxQtyPerFill int64
}

// ProcessBar attempts to execute every open order for the symbol against
// one bar. Timeouts are evaluated first; an order that fails its trigger
// condition simply stays open, which is normal flow rather than an error.
func (e *Engine) ProcessBar(params ProcessBarParams) []entity.Fill {
	var fills []entity.Fill

	orders, ok := e.orders[params.Symbol]
	if !ok {
		return fills
	}

	for _, order := range orders {
		if !order.IsOpen() {
			continue
		}

		order.MaybeTimeout(params.Time)
		if !order.IsOpen() {
			continue
		}

		fillPrice, eligible := fillPriceFor(order, params.Close, params.High, params.Low)
		if !eligible {
			continue
		}

		qty := e.executableQty(order, params.MaxQtyPerFill)
		fill := entity.Fill{
			Symbol:     params.Symbol,
			Time:       params.Time,
			Side:       order.Side,
			Quantity:   qty,
			Price:      fillPrice,
			Commission: params.Commission,
		}
		order.RecordFill(fill)
		fills = append(fills, fill)
	}

	return fills
}

// fillPriceFor decides eligibility and execution price for one order
// against one bar.
func fillPriceFor(order *entity.Order, close, high, low decimal.Decimal) (decimal.Decimal, bool) {
	switch order.Type {
	case entity.OrderTypeMarket:
		// Market orders always fill at the bar close.
		return close, true

	case entity.OrderTypeLimit:
		limit := *order.LimitPrice
		if order.Side == entity.SideBuy && low.LessThanOrEqual(limit) {
			// A favorable close may improve on the limit.
			return decimal.Min(limit, close), true
		}
		if order.Side == entity.SideSell && high.GreaterThanOrEqual(limit) {
			return decimal.Max(limit, close), true
		}
		return decimal.Decimal{}, false

	case entity.OrderTypeStop:
		stop := *order.StopPrice
		triggered := (order.Side == entity.SideBuy && high.GreaterThanOrEqual(stop)) ||
			(order.Side == entity.SideSell && low.LessThanOrEqual(stop))
		if !triggered {
			return decimal.Decimal{}, false
		}
		// Once triggered the order behaves as a market order.
		return close, true
	}

	return decimal.Decimal{}, false
}

// executableQty caps only the first fill of an order; once an order has
// any fill the rest of its quantity is eligible in one pass.
func (e *Engine) executableQty(order *entity.Order, capOverride int64) int64 {
	qtyCap := e.maxQtyPerFill
	if capOverride > 0 {
		qtyCap = capOverride
	}

	if qtyCap <= 0 || order.FilledQty > 0 {
		return order.Remaining()
	}
	if order.Remaining() < qtyCap {
		return order.Remaining()
	}
	return qtyCap
}

// OpenOrders returns the still-open orders tracked for symbol, in
// submission order. The orders are shared references, not copies.
func (e *Engine) OpenOrders(symbol string) []*entity.Order {
	var open []*entity.Order
	for _, order := range e.orders[symbol] {
		if order.IsOpen() {
			open = append(open, order)
		}
	}
	return open
}

// AllOpenOrders returns every open order across symbols.
func (e *Engine) AllOpenOrders() []*entity.Order {
	var open []*entity.Order
	for _, order := range e.history {
		if order.IsOpen() {
			open = append(open, order)
		}
	}
	return open
}

// History is the audit trail of every order ever submitted.
func (e *Engine) History() []*entity.Order {
	return e.history
}

func (e *Engine) MaxQtyPerFill() int64 {
	return e.maxQtyPerFill
}

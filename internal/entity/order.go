package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderType string
type OrderStatus string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"

	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// Construction errors. A malformed order is rejected here and can never
// enter the matching engine.
var (
	ErrNonPositiveQuantity = errors.New("order quantity must be positive")
	ErrHoldSide            = errors.New("order side cannot be HOLD")
	ErrLimitPriceRequired  = errors.New("limit_price required for LIMIT orders")
	ErrStopPriceRequired   = errors.New("stop_price required for STOP orders")
)

type OrderParams struct {
	Symbol     string
	Side       Side
	Type       OrderType
	Quantity   int64
	LimitPrice *decimal.Decimal
	StopPrice  *decimal.Decimal
	CreatedAt  time.Time
	// Timeout auto-expires the order once elapsed. Zero means no timeout.
	Timeout time.Duration
}

// Order is the unit submitted for execution. Once handed to the matching
// engine the engine owns it exclusively; other components hold references
// for introspection only. State transitions are monotonic and happen via
// RecordFill, MaybeTimeout and Cancel.
type Order struct {
	ID         string
	Symbol     string
	Side       Side
	Type       OrderType
	Quantity   int64
	LimitPrice *decimal.Decimal
	StopPrice  *decimal.Decimal
	CreatedAt  time.Time
	Timeout    time.Duration

	FilledQty int64
	Status    OrderStatus
	Fills     []Fill
}

func NewOrder(params OrderParams) (*Order, error) {
	if params.Quantity <= 0 {
		return nil, ErrNonPositiveQuantity
	}
	if params.Side == SideHold {
		return nil, ErrHoldSide
	}
	if params.Type == OrderTypeLimit && params.LimitPrice == nil {
		return nil, ErrLimitPriceRequired
	}
	if params.Type == OrderTypeStop && params.StopPrice == nil {
		return nil, ErrStopPriceRequired
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		// The only wall-clock fallback in the core. Simulated contexts
		// always supply their own timestamps.
		createdAt = time.Now().UTC()
	}

	return &Order{
		ID:         uuid.NewString(),
		Symbol:     params.Symbol,
		Side:       params.Side,
		Type:       params.Type,
		Quantity:   params.Quantity,
		LimitPrice: params.LimitPrice,
		StopPrice:  params.StopPrice,
		CreatedAt:  createdAt,
		Timeout:    params.Timeout,
		Status:     OrderStatusPending,
	}, nil
}

// Remaining is the quantity yet to be filled.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQty
}

// IsOpen reports whether the order can still be executed or finalised.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPartiallyFilled
}

// RecordFill appends a fill and advances the lifecycle. Intended for the
// matching engine only.
func (o *Order) RecordFill(fill Fill) {
	o.Fills = append(o.Fills, fill)
	o.FilledQty += fill.Quantity
	if o.FilledQty >= o.Quantity {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

// MaybeTimeout expires the order if its timeout has elapsed at now.
// Evaluated lazily at the start of each matching pass, never by a timer.
func (o *Order) MaybeTimeout(now time.Time) {
	if o.Timeout <= 0 || !o.IsOpen() {
		return
	}
	if now.Sub(o.CreatedAt) > o.Timeout {
		o.Status = OrderStatusExpired
	}
}

// Cancel closes the order if it is still open, otherwise it is a no-op.
func (o *Order) Cancel() {
	if o.IsOpen() {
		o.Status = OrderStatusCancelled
	}
}

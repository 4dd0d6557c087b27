package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestNewOrderValidation(t *testing.T) {
	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideBuy, Type: OrderTypeMarket, Quantity: 0})
		assert.ErrorIs(t, err, ErrNonPositiveQuantity)

		_, err = NewOrder(OrderParams{Symbol: "AAPL", Side: SideBuy, Type: OrderTypeMarket, Quantity: -5})
		assert.ErrorIs(t, err, ErrNonPositiveQuantity)
	})

	t.Run("rejects HOLD side", func(t *testing.T) {
		_, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideHold, Type: OrderTypeMarket, Quantity: 10})
		assert.ErrorIs(t, err, ErrHoldSide)
	})

	t.Run("LIMIT requires a limit price", func(t *testing.T) {
		_, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideBuy, Type: OrderTypeLimit, Quantity: 10})
		assert.ErrorIs(t, err, ErrLimitPriceRequired)
	})

	t.Run("STOP requires a stop price", func(t *testing.T) {
		_, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideSell, Type: OrderTypeStop, Quantity: 10})
		assert.ErrorIs(t, err, ErrStopPriceRequired)
	})

	t.Run("valid order starts pending with an id", func(t *testing.T) {
		order, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideBuy, Type: OrderTypeLimit, Quantity: 10, LimitPrice: decimalPtr(95)})
		require.NoError(t, err)
		assert.NotEmpty(t, order.ID)
		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, int64(10), order.Remaining())
		assert.True(t, order.IsOpen())
	})
}

func TestOrderFillTransitions(t *testing.T) {
	order, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideBuy, Type: OrderTypeMarket, Quantity: 100})
	require.NoError(t, err)

	order.RecordFill(Fill{Symbol: "AAPL", Side: SideBuy, Quantity: 40, Price: decimal.NewFromInt(100)})
	assert.Equal(t, OrderStatusPartiallyFilled, order.Status)
	assert.Equal(t, int64(60), order.Remaining())
	assert.True(t, order.IsOpen())

	order.RecordFill(Fill{Symbol: "AAPL", Side: SideBuy, Quantity: 60, Price: decimal.NewFromInt(101)})
	assert.Equal(t, OrderStatusFilled, order.Status)
	assert.Equal(t, int64(0), order.Remaining())
	assert.False(t, order.IsOpen())

	// fill quantities always sum to FilledQty
	var total int64
	for _, fill := range order.Fills {
		total += fill.Quantity
	}
	assert.Equal(t, order.FilledQty, total)
	assert.LessOrEqual(t, order.FilledQty, order.Quantity)
}

func TestOrderMaybeTimeout(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	order, err := NewOrder(OrderParams{
		Symbol:    "AAPL",
		Side:      SideBuy,
		Type:      OrderTypeMarket,
		Quantity:  10,
		CreatedAt: createdAt,
		Timeout:   time.Second,
	})
	require.NoError(t, err)

	order.MaybeTimeout(createdAt.Add(500 * time.Millisecond))
	assert.Equal(t, OrderStatusPending, order.Status)

	order.MaybeTimeout(createdAt.Add(2 * time.Second))
	assert.Equal(t, OrderStatusExpired, order.Status)

	// terminal states never regress
	order.MaybeTimeout(createdAt)
	assert.Equal(t, OrderStatusExpired, order.Status)
}

func TestOrderCancel(t *testing.T) {
	order, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideSell, Type: OrderTypeMarket, Quantity: 10})
	require.NoError(t, err)

	order.Cancel()
	assert.Equal(t, OrderStatusCancelled, order.Status)

	// cancel is a no-op on closed orders
	filled, err := NewOrder(OrderParams{Symbol: "AAPL", Side: SideSell, Type: OrderTypeMarket, Quantity: 10})
	require.NoError(t, err)
	filled.RecordFill(Fill{Symbol: "AAPL", Side: SideSell, Quantity: 10, Price: decimal.NewFromInt(50)})
	filled.Cancel()
	assert.Equal(t, OrderStatusFilled, filled.Status)
}

func TestNewSignalConfidence(t *testing.T) {
	_, err := NewSignal(SideBuy, 1.5, nil)
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	_, err = NewSignal(SideBuy, -0.1, nil)
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	signal, err := NewSignal(SideHold, 0.5, map[string]any{"rsi": 42.0})
	require.NoError(t, err)
	assert.Equal(t, SideHold, signal.Side)
}

func TestFillWithPrice(t *testing.T) {
	fill := Fill{Symbol: "AAPL", Side: SideBuy, Quantity: 10, Price: decimal.NewFromInt(100)}
	adjusted := fill.WithPrice(decimal.NewFromFloat(100.05))

	assert.True(t, fill.Price.Equal(decimal.NewFromInt(100)), "original fill must stay unchanged")
	assert.True(t, adjusted.Price.Equal(decimal.NewFromFloat(100.05)))
	assert.Equal(t, fill.Quantity, adjusted.Quantity)
}

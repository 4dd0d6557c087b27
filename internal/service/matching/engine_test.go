package matching

import (
	"testing"
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var barTime = time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)

func mustOrder(t *testing.T, params entity.OrderParams) *entity.Order {
	t.Helper()
	if params.CreatedAt.IsZero() {
		params.CreatedAt = barTime
	}
	order, err := entity.NewOrder(params)
	require.NoError(t, err)
	return order
}

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func processBar(e *Engine, symbol string, close, high, low float64) []entity.Fill {
	return e.ProcessBar(ProcessBarParams{
		Symbol: symbol,
		Time:   barTime,
		Close:  decimal.NewFromFloat(close),
		High:   decimal.NewFromFloat(high),
		Low:    decimal.NewFromFloat(low),
	})
}

func TestMarketOrderFillsAtClose(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeMarket, Quantity: 100})
	engine.AddOrder(order)

	fills := processBar(engine, "AAPL", 100, 101, 99)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(100), fills[0].Quantity)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, entity.OrderStatusFilled, order.Status)
}

func TestLimitBuyNotEligible(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeLimit, Quantity: 10, LimitPrice: decimalPtr(95)})
	engine.AddOrder(order)

	// bar low 96 never touches the 95 limit
	fills := processBar(engine, "AAPL", 97, 98, 96)
	assert.Empty(t, fills)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
}

func TestLimitBuyFillsAtBetterOfLimitAndClose(t *testing.T) {
	engine := NewEngine(0)

	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeLimit, Quantity: 10, LimitPrice: decimalPtr(95)})
	engine.AddOrder(order)

	// low touches the limit and the close is below it, so the close wins
	fills := processBar(engine, "AAPL", 93, 96, 92)
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(93)))
}

func TestLimitSellFillsAtBetterOfLimitAndClose(t *testing.T) {
	engine := NewEngine(0)

	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideSell, Type: entity.OrderTypeLimit, Quantity: 10, LimitPrice: decimalPtr(105)})
	engine.AddOrder(order)

	fills := processBar(engine, "AAPL", 107, 108, 104)
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(107)))
	assert.Equal(t, entity.OrderStatusFilled, order.Status)
}

func TestStopOrdersTriggerAsMarket(t *testing.T) {
	engine := NewEngine(0)

	stopBuy := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeStop, Quantity: 10, StopPrice: decimalPtr(105)})
	stopSell := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideSell, Type: entity.OrderTypeStop, Quantity: 10, StopPrice: decimalPtr(95)})
	engine.AddOrder(stopBuy)
	engine.AddOrder(stopSell)

	// neither stop level reached
	fills := processBar(engine, "AAPL", 100, 101, 99)
	assert.Empty(t, fills)

	// high crosses the buy stop; fill at close, not at the stop level
	fills = processBar(engine, "AAPL", 103, 106, 100)
	require.Len(t, fills, 1)
	assert.Equal(t, entity.SideBuy, fills[0].Side)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(103)))

	// low crosses the sell stop
	fills = processBar(engine, "AAPL", 96, 99, 94)
	require.Len(t, fills, 1)
	assert.Equal(t, entity.SideSell, fills[0].Side)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(96)))
}

func TestMaxQtyPerFillCapsOnlyFirstFill(t *testing.T) {
	engine := NewEngine(50)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideSell, Type: entity.OrderTypeMarket, Quantity: 120})
	engine.AddOrder(order)

	fills := processBar(engine, "AAPL", 100, 101, 99)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(50), fills[0].Quantity)
	assert.Equal(t, entity.OrderStatusPartiallyFilled, order.Status)
	assert.Equal(t, int64(70), order.Remaining())

	// the cap no longer applies once the order has a fill
	fills = processBar(engine, "AAPL", 100, 101, 99)
	require.Len(t, fills, 1)
	assert.Equal(t, int64(70), fills[0].Quantity)
	assert.Equal(t, entity.OrderStatusFilled, order.Status)
}

func TestProcessBarCapOverride(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeMarket, Quantity: 100})
	engine.AddOrder(order)

	fills := engine.ProcessBar(ProcessBarParams{
		Symbol:        "AAPL",
		Time:          barTime,
		Close:         decimal.NewFromInt(100),
		High:          decimal.NewFromInt(101),
		Low:           decimal.NewFromInt(99),
		MaxQtyPerFill: 30,
	})
	require.Len(t, fills, 1)
	assert.Equal(t, int64(30), fills[0].Quantity)
}

func TestTimedOutOrderNeverFills(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{
		Symbol:    "AAPL",
		Side:      entity.SideBuy,
		Type:      entity.OrderTypeMarket,
		Quantity:  10,
		CreatedAt: barTime.Add(-2 * time.Second),
		Timeout:   time.Second,
	})
	engine.AddOrder(order)

	fills := processBar(engine, "AAPL", 100, 101, 99)
	assert.Empty(t, fills)
	assert.Equal(t, entity.OrderStatusExpired, order.Status)
}

func TestCancelOrder(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeLimit, Quantity: 10, LimitPrice: decimalPtr(90)})
	engine.AddOrder(order)

	assert.True(t, engine.CancelOrder(order.ID))
	assert.Equal(t, entity.OrderStatusCancelled, order.Status)

	// already closed, nothing to cancel
	assert.False(t, engine.CancelOrder(order.ID))
	assert.False(t, engine.CancelOrder("no-such-id"))
}

func TestCommissionPassedThrough(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeMarket, Quantity: 10})
	engine.AddOrder(order)

	fills := engine.ProcessBar(ProcessBarParams{
		Symbol:     "AAPL",
		Time:       barTime,
		Close:      decimal.NewFromInt(100),
		High:       decimal.NewFromInt(100),
		Low:        decimal.NewFromInt(100),
		Commission: decimal.NewFromInt(2),
	})
	require.Len(t, fills, 1)
	assert.True(t, fills[0].Commission.Equal(decimal.NewFromInt(2)))
}

func TestHistoryKeepsClosedOrders(t *testing.T) {
	engine := NewEngine(0)
	order := mustOrder(t, entity.OrderParams{Symbol: "AAPL", Side: entity.SideBuy, Type: entity.OrderTypeMarket, Quantity: 10})
	engine.AddOrder(order)

	processBar(engine, "AAPL", 100, 101, 99)

	assert.Len(t, engine.History(), 1)
	assert.Empty(t, engine.OpenOrders("AAPL"))
	assert.Empty(t, engine.AllOpenOrders())
}

func TestProcessBarUnknownSymbol(t *testing.T) {
	engine := NewEngine(0)
	assert.Empty(t, processBar(engine, "MSFT", 100, 101, 99))
}

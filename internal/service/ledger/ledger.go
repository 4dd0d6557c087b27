package ledger

import (
	"time"

	"github.com/krobus00/backtest-service/internal/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var defaultMaxLeverage = decimal.NewFromInt(2)

type Config struct {
	StartingCash decimal.Decimal
	// MaxLeverage bounds the advisory margin limit. Zero defaults to 2.
	MaxLeverage decimal.Decimal
}

// Ledger turns fills into cash and position state and marks the book to
// market. Margin numbers are advisory: the ledger never blocks a trade
// that takes cash negative, callers wanting hard limits enforce them
// outside.
type Ledger struct {
	cash        decimal.Decimal
	maxLeverage decimal.Decimal
	positions   map[string]*entity.Position
	trades      []entity.Fill
	peakEquity  decimal.Decimal
}

func NewLedger(config Config) *Ledger {
	maxLeverage := config.MaxLeverage
	if maxLeverage.LessThanOrEqual(decimal.Zero) {
		maxLeverage = defaultMaxLeverage
	}

	return &Ledger{
		cash:        config.StartingCash,
		maxLeverage: maxLeverage,
		positions:   make(map[string]*entity.Position),
	}
}

// ApplyFill updates cash and the symbol's position with an executed
// trade. A quantity crossing zero resets the average price; otherwise the
// average is the fill-weighted blend. The same blend is applied on sign
// flips for continuity even though it understates realized P&L on the
// flipped portion (see DESIGN.md).
func (l *Ledger) ApplyFill(fill entity.Fill) {
	pos, ok := l.positions[fill.Symbol]
	if !ok {
		pos = &entity.Position{}
		l.positions[fill.Symbol] = pos
	}

	direction := fill.Direction()
	newQty := pos.Quantity + direction*fill.Quantity

	if newQty == 0 {
		pos.AvgPrice = decimal.Zero
	} else {
		oldAbs := decimal.NewFromInt(pos.Quantity).Abs()
		fillQty := decimal.NewFromInt(fill.Quantity)
		newAbs := decimal.NewFromInt(newQty).Abs()
		pos.AvgPrice = pos.AvgPrice.Mul(oldAbs).Add(fill.Price.Mul(fillQty)).Div(newAbs)
	}
	pos.Quantity = newQty

	tradeCost := fill.Price.Mul(decimal.NewFromInt(fill.Quantity)).Add(fill.Commission)
	// BUY decreases cash, SELL increases cash.
	l.cash = l.cash.Sub(tradeCost.Mul(decimal.NewFromInt(direction)))
	l.trades = append(l.trades, fill)
}

func (l *Ledger) Cash() decimal.Decimal {
	return l.cash
}

// Positions returns a copy of the per-symbol position map.
func (l *Ledger) Positions() map[string]entity.Position {
	positions := make(map[string]entity.Position, len(l.positions))
	for symbol, pos := range l.positions {
		positions[symbol] = *pos
	}
	return positions
}

func (l *Ledger) Position(symbol string) (entity.Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return entity.Position{}, false
	}
	return *pos, true
}

// TradeHistory is the append-only audit log of applied fills.
func (l *Ledger) TradeHistory() []entity.Fill {
	return l.trades
}

// MarketValue marks every position against prices. Missing marks count
// as zero, which is conservative when data is absent rather than an
// error.
func (l *Ledger) MarketValue(prices map[string]decimal.Decimal) decimal.Decimal {
	value := decimal.Zero
	for symbol, pos := range l.positions {
		value = value.Add(pos.MarketValue(prices[symbol]))
	}
	return value
}

func (l *Ledger) UnrealizedPNL(prices map[string]decimal.Decimal) decimal.Decimal {
	pnl := decimal.Zero
	for symbol, pos := range l.positions {
		pnl = pnl.Add(pos.UnrealizedPNL(prices[symbol]))
	}
	return pnl
}

func (l *Ledger) TotalEquity(prices map[string]decimal.Decimal) decimal.Decimal {
	return l.cash.Add(l.MarketValue(prices))
}

// MarginUsed is the current margin loan as a positive number.
func (l *Ledger) MarginUsed() decimal.Decimal {
	return decimal.Max(l.cash.Neg(), decimal.Zero)
}

// MarginLimit is the maximum allowable margin for the given equity.
func (l *Ledger) MarginLimit(equity decimal.Decimal) decimal.Decimal {
	return decimal.Max(equity.Mul(l.maxLeverage.Sub(decimal.NewFromInt(1))), decimal.Zero)
}

// SizeForRisk returns the share count a given fraction of current cash
// buys at price: floor(cash * riskPct / price). Zero when price is not
// positive.
func (l *Ledger) SizeForRisk(price, riskPct decimal.Decimal) int64 {
	if price.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	return l.cash.Mul(riskPct).Div(price).Floor().IntPart()
}

// RebalanceToTargetWeights computes the signed share deltas that move
// current dollar exposure to equity*weight per symbol, truncating toward
// zero. It is a sizing suggestion only; nothing is submitted. Symbols
// without a positive mark are skipped.
func (l *Ledger) RebalanceToTargetWeights(targetWeights, prices map[string]decimal.Decimal) map[string]int64 {
	equity := l.TotalEquity(prices)
	deltas := make(map[string]int64)

	for symbol, weight := range targetWeights {
		price := prices[symbol]
		if price.LessThanOrEqual(decimal.Zero) {
			logrus.WithFields(logrus.Fields{
				"symbol": symbol,
			}).Warn("rebalance skipped symbol without a mark price")
			continue
		}

		currentQty := int64(0)
		if pos, ok := l.positions[symbol]; ok {
			currentQty = pos.Quantity
		}
		targetDollars := equity.Mul(weight)
		currentDollars := price.Mul(decimal.NewFromInt(currentQty))
		diffQty := targetDollars.Sub(currentDollars).Div(price).IntPart()
		if diffQty != 0 {
			deltas[symbol] = diffQty
		}
	}

	return deltas
}

// CheckDrawdown reports whether equity has fallen from its running peak
// by at least threshold (a fraction, e.g. 0.2 for 20%).
func (l *Ledger) CheckDrawdown(prices map[string]decimal.Decimal, threshold decimal.Decimal) bool {
	equity := l.TotalEquity(prices)
	if equity.GreaterThan(l.peakEquity) {
		l.peakEquity = equity
	}
	if l.peakEquity.LessThanOrEqual(decimal.Zero) {
		return false
	}

	drawdown := l.peakEquity.Sub(equity).Div(l.peakEquity)
	return drawdown.GreaterThanOrEqual(threshold)
}

// Snapshot captures cash and positions for persistence. Trade history is
// an audit log and does not round-trip.
func (l *Ledger) Snapshot(at time.Time) Snapshot {
	positions := make(map[string]entity.Position, len(l.positions))
	for symbol, pos := range l.positions {
		positions[symbol] = *pos
	}

	return Snapshot{
		Cash:       l.cash,
		Positions:  positions,
		CapturedAt: at,
	}
}

// RestoreSnapshot replaces cash and positions with the snapshot state.
func (l *Ledger) RestoreSnapshot(snapshot Snapshot) {
	l.cash = snapshot.Cash
	l.positions = make(map[string]*entity.Position, len(snapshot.Positions))
	for symbol, pos := range snapshot.Positions {
		restored := pos
		l.positions[symbol] = &restored
	}
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is an immutable execution record. Only the matching engine creates
// fills; price adjustments (slippage) are applied by constructing an
// adjusted copy with WithPrice, never by mutating an existing fill.
type Fill struct {
	Symbol     string          `json:"symbol"`
	Time       time.Time       `json:"time"`
	Side       Side            `json:"side"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
}

// WithPrice returns a copy of the fill executed at a different price.
func (f Fill) WithPrice(price decimal.Decimal) Fill {
	adjusted := f
	adjusted.Price = price
	return adjusted
}

// Direction is +1 for BUY and -1 for SELL.
func (f Fill) Direction() int64 {
	if f.Side == SideBuy {
		return 1
	}
	return -1
}

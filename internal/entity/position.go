package entity

import "github.com/shopspring/decimal"

// Position is the signed holding in one symbol plus its volume-weighted
// average entry price. Created lazily by the ledger on first fill.
type Position struct {
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
}

func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}

func (p Position) UnrealizedPNL(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.AvgPrice).Mul(decimal.NewFromInt(p.Quantity))
}

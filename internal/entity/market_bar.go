package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketBar struct {
	Symbol     string          `db:"symbol" json:"symbol"`
	BarTime    time.Time       `db:"bar_time" json:"bar_time"`
	OpenPrice  decimal.Decimal `db:"open_price" json:"open_price"`
	HighPrice  decimal.Decimal `db:"high_price" json:"high_price"`
	LowPrice   decimal.Decimal `db:"low_price" json:"low_price"`
	ClosePrice decimal.Decimal `db:"close_price" json:"close_price"`
	Volume     decimal.Decimal `db:"volume" json:"volume"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (m MarketBar) TableName() string {
	return "market_bars"
}

func (m MarketBar) ToBar() Bar {
	return Bar{
		Time:   m.BarTime,
		Open:   m.OpenPrice,
		High:   m.HighPrice,
		Low:    m.LowPrice,
		Close:  m.ClosePrice,
		Volume: m.Volume,
	}
}

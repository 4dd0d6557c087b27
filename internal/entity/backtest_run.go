package entity

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type BacktestRun struct {
	ID           string          `db:"id" json:"id"`
	Symbols      string          `db:"symbols" json:"symbols"`
	Strategies   string          `db:"strategies" json:"strategies"`
	StartingCash decimal.Decimal `db:"starting_cash" json:"starting_cash"`
	Commission   decimal.Decimal `db:"commission" json:"commission"`
	FinalEquity  decimal.Decimal `db:"final_equity" json:"final_equity"`
	StartedAt    time.Time       `db:"started_at" json:"started_at"`
	FinishedAt   sql.NullTime    `db:"finished_at" json:"finished_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (b BacktestRun) TableName() string {
	return "backtest_runs"
}

type BacktestEquityPoint struct {
	RunID   string          `db:"run_id" json:"run_id"`
	BarTime time.Time       `db:"bar_time" json:"bar_time"`
	Equity  decimal.Decimal `db:"equity" json:"equity"`
}

func (b BacktestEquityPoint) TableName() string {
	return "backtest_equity_points"
}

type BacktestFill struct {
	RunID      string          `db:"run_id" json:"run_id"`
	Symbol     string          `db:"symbol" json:"symbol"`
	FillTime   time.Time       `db:"fill_time" json:"fill_time"`
	Side       Side            `db:"side" json:"side"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Commission decimal.Decimal `db:"commission" json:"commission"`
}

func (b BacktestFill) TableName() string {
	return "backtest_fills"
}

package entity

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLC observation. Close is required; High and Low fall back
// to Close when the source dataset only carries closing prices.
type Bar struct {
	Time   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

func (b Bar) HighOrClose() decimal.Decimal {
	if b.High.IsZero() {
		return b.Close
	}
	return b.High
}

func (b Bar) LowOrClose() decimal.Decimal {
	if b.Low.IsZero() {
		return b.Close
	}
	return b.Low
}

// Series is a time-ordered bar history for one symbol. Strategies receive
// growing prefixes of a series and must tolerate repeated calls.
type Series struct {
	Symbol string
	Bars   []Bar
}

func NewSeries(symbol string, bars []Bar) Series {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	return Series{Symbol: symbol, Bars: sorted}
}

func (s Series) Len() int {
	return len(s.Bars)
}

// At returns the bar observed exactly at t.
func (s Series) At(t time.Time) (Bar, bool) {
	idx := sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Time.Before(t) })
	if idx < len(s.Bars) && s.Bars[idx].Time.Equal(t) {
		return s.Bars[idx], true
	}
	return Bar{}, false
}

// UpTo slices the series up to and including t. The backing array is
// shared; callers treat the result as read-only history.
func (s Series) UpTo(t time.Time) Series {
	idx := sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Time.After(t) })
	return Series{Symbol: s.Symbol, Bars: s.Bars[:idx]}
}

func (s Series) Closes() []decimal.Decimal {
	closes := make([]decimal.Decimal, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}
	return closes
}

func (s Series) Append(bar Bar) Series {
	s.Bars = append(s.Bars, bar)
	return s
}

// EquityPoint is one (timestamp, equity) sample.
type EquityPoint struct {
	Time   time.Time       `json:"time"`
	Equity decimal.Decimal `json:"equity"`
}

// EquityCurve is append-only and monotonically increasing in time; one
// sample per processed bar or tick.
type EquityCurve []EquityPoint

package strategy

import (
	"math"

	"github.com/krobus00/backtest-service/internal/entity"
)

// Indicator math runs on float64; money stays decimal everywhere else.

func closesAsFloats(history entity.Series) []float64 {
	closes := make([]float64, history.Len())
	for i, bar := range history.Bars {
		closes[i] = bar.Close.InexactFloat64()
	}
	return closes
}

// sma is the simple moving average of the last window values ending at
// index end (inclusive). Returns NaN when there is not enough data.
func sma(values []float64, window, end int) float64 {
	start := end - window + 1
	if window <= 0 || start < 0 || end >= len(values) {
		return math.NaN()
	}

	sum := 0.0
	for _, v := range values[start : end+1] {
		sum += v
	}
	return sum / float64(window)
}

// stddev is the population standard deviation over the same window as sma.
func stddev(values []float64, window, end int) float64 {
	mean := sma(values, window, end)
	if math.IsNaN(mean) {
		return math.NaN()
	}

	sumSq := 0.0
	for _, v := range values[end-window+1 : end+1] {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(window))
}

// rsi computes the simple-mean RSI of the last value: average gains over
// average losses across the trailing window of deltas.
func rsi(values []float64, window int) float64 {
	if window <= 0 || len(values) < window+1 {
		return math.NaN()
	}

	gains, losses := 0.0, 0.0
	for i := len(values) - window; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	avgGain := gains / float64(window)
	avgLoss := losses / float64(window)
	if avgLoss == 0 {
		if avgGain == 0 {
			return math.NaN()
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

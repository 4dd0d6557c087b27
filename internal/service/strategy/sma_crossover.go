package strategy

import (
	"fmt"
	"math"

	"github.com/krobus00/backtest-service/internal/entity"
)

type SMACrossoverConfig struct {
	FastWindow int
	SlowWindow int
}

func DefaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{
		FastWindow: 50,
		SlowWindow: 200,
	}
}

func (c SMACrossoverConfig) Validate() error {
	if c.FastWindow < 1 {
		return fmt.Errorf("fast_window must be >= 1, got %d", c.FastWindow)
	}
	if c.SlowWindow < 2 {
		return fmt.Errorf("slow_window must be >= 2, got %d", c.SlowWindow)
	}
	if c.FastWindow >= c.SlowWindow {
		return fmt.Errorf("fast_window (%d) must be < slow_window (%d)", c.FastWindow, c.SlowWindow)
	}
	return nil
}

// SMACrossover signals BUY when the fast moving average crosses above the
// slow one and SELL on the bearish cross.
type SMACrossover struct {
	config SMACrossoverConfig
}

func NewSMACrossover(config SMACrossoverConfig) (*SMACrossover, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sma-crossover parameters: %w", err)
	}
	return &SMACrossover{config: config}, nil
}

func (s *SMACrossover) Name() string {
	return "sma-crossover"
}

func (s *SMACrossover) GenerateSignals(history entity.Series) map[string]entity.Signal {
	// Two points are needed to detect a cross.
	if history.Len() < s.config.SlowWindow+1 {
		return nil
	}

	closes := closesAsFloats(history)
	last := len(closes) - 1
	fastCurr := sma(closes, s.config.FastWindow, last)
	fastPrev := sma(closes, s.config.FastWindow, last-1)
	slowCurr := sma(closes, s.config.SlowWindow, last)
	slowPrev := sma(closes, s.config.SlowWindow, last-1)
	if math.IsNaN(fastPrev) || math.IsNaN(slowPrev) {
		return nil
	}

	side := entity.SideHold
	if fastPrev <= slowPrev && fastCurr > slowCurr {
		side = entity.SideBuy
	} else if fastPrev >= slowPrev && fastCurr < slowCurr {
		side = entity.SideSell
	}

	return map[string]entity.Signal{
		history.Symbol: {Side: side, Confidence: 1.0},
	}
}

package strategy

import (
	"fmt"
	"math"

	"github.com/krobus00/backtest-service/internal/entity"
)

type BollingerBandsConfig struct {
	Window int
	NumStd float64
}

func DefaultBollingerBandsConfig() BollingerBandsConfig {
	return BollingerBandsConfig{
		Window: 20,
		NumStd: 2.0,
	}
}

func (c BollingerBandsConfig) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window must be >= 1, got %d", c.Window)
	}
	if c.NumStd < 0.1 {
		return fmt.Errorf("num_std must be >= 0.1, got %v", c.NumStd)
	}
	return nil
}

// BollingerBands signals BUY when price drops below the lower band and
// SELL when it moves above the upper band.
type BollingerBands struct {
	config BollingerBandsConfig
}

func NewBollingerBands(config BollingerBandsConfig) (*BollingerBands, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bollinger-bands parameters: %w", err)
	}
	return &BollingerBands{config: config}, nil
}

func (s *BollingerBands) Name() string {
	return "bollinger-bands"
}

func (s *BollingerBands) GenerateSignals(history entity.Series) map[string]entity.Signal {
	if history.Len() < s.config.Window {
		return nil
	}

	closes := closesAsFloats(history)
	last := len(closes) - 1
	mean := sma(closes, s.config.Window, last)
	std := stddev(closes, s.config.Window, last)
	if math.IsNaN(mean) || math.IsNaN(std) {
		return nil
	}

	upper := mean + s.config.NumStd*std
	lower := mean - s.config.NumStd*std
	price := closes[last]

	side := entity.SideHold
	if price < lower {
		side = entity.SideBuy
	} else if price > upper {
		side = entity.SideSell
	}

	return map[string]entity.Signal{
		history.Symbol: {
			Side:       side,
			Confidence: 1.0,
			Metadata:   map[string]any{"price": price, "upper": upper, "lower": lower},
		},
	}
}

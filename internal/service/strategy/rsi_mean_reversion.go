package strategy

import (
	"fmt"
	"math"

	"github.com/krobus00/backtest-service/internal/entity"
)

type RSIMeanReversionConfig struct {
	Window     int
	Oversold   float64
	Overbought float64
}

func DefaultRSIMeanReversionConfig() RSIMeanReversionConfig {
	return RSIMeanReversionConfig{
		Window:     14,
		Oversold:   30,
		Overbought: 70,
	}
}

func (c RSIMeanReversionConfig) Validate() error {
	if c.Window < 1 {
		return fmt.Errorf("window must be >= 1, got %d", c.Window)
	}
	if c.Oversold < 1 || c.Oversold > 50 {
		return fmt.Errorf("oversold must be in [1,50], got %v", c.Oversold)
	}
	if c.Overbought < 50 || c.Overbought > 99 {
		return fmt.Errorf("overbought must be in [50,99], got %v", c.Overbought)
	}
	return nil
}

// RSIMeanReversion signals BUY below the oversold threshold and SELL
// above the overbought one.
type RSIMeanReversion struct {
	config RSIMeanReversionConfig
}

func NewRSIMeanReversion(config RSIMeanReversionConfig) (*RSIMeanReversion, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rsi-mean-reversion parameters: %w", err)
	}
	return &RSIMeanReversion{config: config}, nil
}

func (s *RSIMeanReversion) Name() string {
	return "rsi-mean-reversion"
}

func (s *RSIMeanReversion) GenerateSignals(history entity.Series) map[string]entity.Signal {
	if history.Len() == 0 {
		return nil
	}

	value := rsi(closesAsFloats(history), s.config.Window)
	if math.IsNaN(value) {
		return nil
	}

	side := entity.SideHold
	if value < s.config.Oversold {
		side = entity.SideBuy
	} else if value > s.config.Overbought {
		side = entity.SideSell
	}

	return map[string]entity.Signal{
		history.Symbol: {
			Side:       side,
			Confidence: 1.0,
			Metadata:   map[string]any{"rsi": value},
		},
	}
}

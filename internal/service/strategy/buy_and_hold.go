package strategy

import "github.com/krobus00/backtest-service/internal/entity"

// BuyAndHold buys on the first bar of each symbol it sees and holds
// indefinitely.
type BuyAndHold struct {
	entered map[string]bool
}

func NewBuyAndHold() *BuyAndHold {
	return &BuyAndHold{entered: make(map[string]bool)}
}

func (s *BuyAndHold) Name() string {
	return "buy-and-hold"
}

func (s *BuyAndHold) GenerateSignals(history entity.Series) map[string]entity.Signal {
	if history.Len() == 0 {
		return nil
	}

	side := entity.SideHold
	if !s.entered[history.Symbol] {
		s.entered[history.Symbol] = true
		side = entity.SideBuy
	}

	return map[string]entity.Signal{
		history.Symbol: {
			Side:       side,
			Confidence: 1.0,
			Metadata:   map[string]any{"entry_price": history.Bars[0].Close},
		},
	}
}

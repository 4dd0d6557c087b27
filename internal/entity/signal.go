package entity

import "errors"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
	SideHold Side = "HOLD"
)

var ErrInvalidConfidence = errors.New("signal confidence must be between 0 and 1")

// Signal is what a strategy emits for one symbol. HOLD signals are valid
// here and are dropped at the orchestration boundary, never turned into
// orders.
type Signal struct {
	Side       Side
	Confidence float64
	Metadata   map[string]any
}

func NewSignal(side Side, confidence float64, metadata map[string]any) (Signal, error) {
	if confidence < 0 || confidence > 1 {
		return Signal{}, ErrInvalidConfidence
	}

	return Signal{
		Side:       side,
		Confidence: confidence,
		Metadata:   metadata,
	}, nil
}

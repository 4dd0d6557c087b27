package strategy

import (
	"fmt"
	"sort"

	"github.com/krobus00/backtest-service/internal/entity"
)

// Strategy produces signals from a price history. Implementations must
// tolerate repeated calls with growing prefixes of the same series; any
// state they keep is their own indicator state.
type Strategy interface {
	Name() string
	GenerateSignals(history entity.Series) map[string]entity.Signal
}

// Factory builds a strategy with its default parameters.
type Factory func() (Strategy, error)

// Registry is an explicit map from strategy name to factory, built once
// at startup and passed to whoever needs it. There is no runtime
// discovery and no process-wide singleton.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry pre-populated with the built-in
// strategies.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	builtins := map[string]Factory{
		"sma-crossover": func() (Strategy, error) {
			return NewSMACrossover(DefaultSMACrossoverConfig())
		},
		"rsi-mean-reversion": func() (Strategy, error) {
			return NewRSIMeanReversion(DefaultRSIMeanReversionConfig())
		},
		"bollinger-bands": func() (Strategy, error) {
			return NewBollingerBands(DefaultBollingerBandsConfig())
		},
		"buy-and-hold": func() (Strategy, error) {
			return NewBuyAndHold(), nil
		},
	}
	for name, factory := range builtins {
		// built-in names never collide
		_ = r.Register(name, factory)
	}

	return r
}

func (r *Registry) Register(name string, factory Factory) error {
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("strategy %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

func (r *Registry) Create(name string) (Strategy, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q not registered", name)
	}
	return factory()
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package rules

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownRule is returned when a stored configuration references a rule
// key that was never registered.
var ErrUnknownRule = errors.New("unknown rule key")

// Factory constructs a rule from its stored parameters.
type Factory func(params Params) Rule

// Registry maps rule keys to factories. It is populated explicitly at
// startup; there is no import-order-dependent global state.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a unique key.
func (r *Registry) Register(key string, factory Factory) error {
	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("rule key %q already registered", key)
	}
	r.factories[key] = factory
	return nil
}

// New builds a rule instance for the given key and parameters.
func (r *Registry) New(key string, params Params) (Rule, error) {
	factory, ok := r.factories[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRule, key)
	}
	return factory(params), nil
}

// Keys returns all registered rule keys, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns a registry with every built-in rule registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Registration of built-ins cannot collide.
	_ = r.Register(KeyMarketCap, func(p Params) Rule { return NewMarketCapRule(p) })
	_ = r.Register(KeyVolumeRatio, func(p Params) Rule { return NewVolumeRatioRule(p) })
	_ = r.Register(KeyPriceChange, func(p Params) Rule { return NewPriceChangeRule(p) })
	_ = r.Register(KeyTurnoverRate, func(p Params) Rule { return NewTurnoverRateRule(p) })
	_ = r.Register(KeyPERatio, func(p Params) Rule { return NewPERatioRule(p) })
	_ = r.Register(KeyPBRatio, func(p Params) Rule { return NewPBRatioRule(p) })
	_ = r.Register(KeyROE, func(p Params) Rule { return NewROERule(p) })

	return r
}

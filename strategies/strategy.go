// Package strategies defines the candidate-signal contract between external
// strategy providers and the simulation core, plus a small provider registry
// and two reference providers.
package strategies

import (
	"fmt"
	"strings"
	"sync"

	"futsim/market"
)

// Signal is a candidate trade produced by a strategy provider.
// The core consumes signals read-only.
type Signal struct {
	Direction     market.Direction
	Confidence    float64 // 0-100
	StopLoss      float64
	TakeProfit    float64
	RiskReward    float64 // distance to target / distance to stop
	Quality       float64 // 0-100
	StrategyID    string
	RegimeOptimal bool    // provider considers the current regime favorable
	SessionBoost  float64 // additive session edge, typically 0-10
}

// Provider evaluates a candle window and returns zero or more candidate
// signals. Implementations must be pure from the core's perspective: no
// mutation of shared state, same output for the same input window.
type Provider interface {
	ID() string
	Evaluate(candles []market.Candle) []Signal
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Provider)
)

// Register adds a provider under its ID. Registering the same ID twice
// replaces the earlier provider.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.ID()] = p
}

// Get returns the registered provider or nil.
func Get(id string) Provider {
	mu.RLock()
	defer mu.RUnlock()
	return registry[id]
}

// ByName resolves a provider for a config entry: a registered provider under
// that exact ID wins, otherwise one of the built-ins is constructed.
func ByName(name string) (Provider, error) {
	if p := Get(name); p != nil {
		return p, nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "momentum":
		return NewMomentum(MomentumDefaults()), nil
	case "meanrev", "mean-reversion":
		return NewMeanReversion(MeanReversionDefaults()), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: momentum, meanrev, or a registered provider)", name)
	}
}

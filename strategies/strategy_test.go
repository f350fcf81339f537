package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futsim/market"
)

type stubProvider struct{ id string }

func (s stubProvider) ID() string                        { return s.id }
func (s stubProvider) Evaluate([]market.Candle) []Signal { return nil }

func TestRegistry(t *testing.T) {
	Register(stubProvider{id: "stub"})
	assert.NotNil(t, Get("stub"))
	assert.Nil(t, Get("absent"))

	// Re-registering replaces.
	replacement := stubProvider{id: "stub"}
	Register(replacement)
	assert.Equal(t, replacement, Get("stub"))
}

func TestByName(t *testing.T) {
	p, err := ByName("momentum")
	require.NoError(t, err)
	assert.Equal(t, "momentum", p.ID())

	p, err = ByName(" MeanRev ")
	require.NoError(t, err)
	assert.Equal(t, "meanrev", p.ID())

	_, err = ByName("astrology")
	assert.Error(t, err)
}

func TestByNamePrefersRegisteredProvider(t *testing.T) {
	custom := stubProvider{id: "custom-alpha"}
	Register(custom)

	p, err := ByName("custom-alpha")
	require.NoError(t, err)
	assert.Equal(t, custom, p)

	// Built-in names stay reachable alongside registered providers.
	p, err = ByName("momentum")
	require.NoError(t, err)
	assert.Equal(t, "momentum", p.ID())
}

func TestProvidersNeedWarmup(t *testing.T) {
	candles := make([]market.Candle, 10)
	base := time.Date(2024, 3, 5, 11, 0, 0, 0, market.Eastern)
	for i := range candles {
		candles[i] = market.Candle{Time: base, Open: 5000, High: 5001, Low: 4999, Close: 5000.5, Volume: 1000}
	}

	mom, _ := ByName("momentum")
	assert.Empty(t, mom.Evaluate(candles))

	rev, _ := ByName("meanrev")
	assert.Empty(t, rev.Evaluate(candles))
}

func TestMomentumSignalInvariants(t *testing.T) {
	// Sell-off into an oversold bounce: closes drift down hard, then a
	// green bar with upturning momentum.
	base := time.Date(2024, 3, 5, 11, 0, 0, 0, market.Eastern)
	var candles []market.Candle
	price := 5100.0
	for i := 0; i < 50; i++ {
		candles = append(candles, market.Candle{
			Time: base.Add(time.Duration(i) * time.Minute),
			Open: price, High: price + 0.5, Low: price - 3.5, Close: price - 3,
			Volume: 1000,
		})
		price -= 3
	}
	for i := 0; i < 3; i++ {
		candles = append(candles, market.Candle{
			Time: base.Add(time.Duration(50+i) * time.Minute),
			Open: price, High: price + 4.5, Low: price - 0.5, Close: price + 4,
			Volume: 1400,
		})
		price += 4
	}

	mom, _ := ByName("momentum")
	for _, sig := range mom.Evaluate(candles) {
		assert.Equal(t, "momentum", sig.StrategyID)
		assert.GreaterOrEqual(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 100.0)
		assert.Positive(t, sig.RiskReward)

		last := candles[len(candles)-1].Close
		if sig.Direction == market.Long {
			assert.Less(t, sig.StopLoss, last)
			assert.Greater(t, sig.TakeProfit, last)
		} else {
			assert.Greater(t, sig.StopLoss, last)
			assert.Less(t, sig.TakeProfit, last)
		}
	}
}

package position

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futsim/execution"
	"futsim/market"
	"futsim/strategies"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	execCfg := execution.Defaults()
	execCfg.BaseRejectionProb = 0
	execCfg.MaxRejectionProb = 0
	exec := execution.New(execCfg, rand.New(rand.NewSource(1)))
	return NewManager(DefaultConfig(), exec, market.Instruments["ES"])
}

func longPosition(contracts int) *Position {
	return &Position{
		ID:               "t-1",
		Instrument:       "ES",
		Direction:        market.Long,
		RawEntryPrice:    5000,
		EntryPrice:       5000,
		EntryTime:        etTime(10, 0),
		Contracts:        contracts,
		InitialContracts: contracts,
		StopLoss:         4990,
		InitialStopLoss:  4990,
		TakeProfit:       5030,
		Target1:          5010,
		Target2:          5020,
	}
}

func etTime(hour, minute int) time.Time {
	return time.Date(2024, 3, 5, hour, minute, 0, 0, market.Eastern)
}

func bar(hour, minute int, open, high, low, close float64) market.Candle {
	return market.Candle{
		Time: etTime(hour, minute),
		Open: open, High: high, Low: low, Close: close,
		Volume: 1000,
	}
}

func flatWindow() []market.Candle {
	w := make([]market.Candle, 20)
	for i := range w {
		w[i] = bar(11, 0, 5000, 5001, 4999, 5000.5)
	}
	return w
}

func TestStepRejectsClosedPosition(t *testing.T) {
	m := testManager(t)
	p := longPosition(2)
	p.Contracts = 0

	_, err := m.Step(p, bar(12, 0, 5000, 5001, 4999, 5000), flatWindow(), 2, nil)
	assert.Error(t, err)
}

func TestTarget1MovesToBreakevenAndScalesOut(t *testing.T) {
	m := testManager(t)
	p := longPosition(4)

	// High touches target1 at 5010, close settles just under.
	out, err := m.Step(p, bar(12, 0, 5006, 5011, 5005.5, 5008), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.Nil(t, out.Trade)

	assert.True(t, p.Target1Hit)
	assert.True(t, p.TrailingActive)
	assert.Equal(t, 2, out.ScaledOut, "half the position comes off at target1")
	assert.Equal(t, 2, p.Contracts)
	assert.Positive(t, p.RealizedGross, "scale-out realizes 1R on half")
	// Stop jumped to breakeven, then the trail ratcheted it above entry.
	assert.GreaterOrEqual(t, p.StopLoss, p.EntryPrice)
}

func TestTarget2ScalesHalfRemainder(t *testing.T) {
	m := testManager(t)
	p := longPosition(4)
	p.Target1Hit = true
	p.TrailingActive = true
	p.TrailingDistance = 3
	p.StopLoss = 5000
	p.Contracts = 2

	out, err := m.Step(p, bar(12, 0, 5016, 5021, 5015.5, 5018), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.Nil(t, out.Trade)

	assert.True(t, p.Target2Hit)
	assert.Equal(t, 1, out.ScaledOut)
	assert.Equal(t, 1, p.Contracts)
}

func TestTrailingStopOnlyRatchets(t *testing.T) {
	m := testManager(t)
	p := longPosition(2)
	p.Target1Hit = true
	p.Target2Hit = true
	p.TrailingActive = true
	p.TrailingDistance = 3
	p.StopLoss = 5005

	// Price advances: stop follows at close-3.
	out, err := m.Step(p, bar(12, 0, 5009, 5010.5, 5007.5, 5010), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.Nil(t, out.Trade)
	assert.True(t, out.StopMoved)
	assert.InDelta(t, 5007, p.StopLoss, 1e-9)

	// Price eases without touching the stop: the stop holds its ground.
	out, err = m.Step(p, bar(12, 1, 5009, 5009.5, 5007.2, 5008), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.Nil(t, out.Trade)
	assert.False(t, out.StopMoved)
	assert.InDelta(t, 5007, p.StopLoss, 1e-9)
}

func TestStopLossExit(t *testing.T) {
	m := testManager(t)
	p := longPosition(2)

	out, err := m.Step(p, bar(12, 0, 4995, 4996, 4989, 4991), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)

	tr := out.Trade
	assert.Equal(t, ExitStopLoss, tr.ExitReason)
	assert.Negative(t, tr.NetPnL)
	assert.Zero(t, tr.Costs.GapLoss, "no gap when the open respected the stop")
	assert.Zero(t, p.Contracts)
}

func TestGapThroughStopRecordsGapLoss(t *testing.T) {
	m := testManager(t)
	p := longPosition(2)

	// Bar opens 10 points through the stop.
	out, err := m.Step(p, bar(12, 0, 4980, 4984, 4978, 4982), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)

	tr := out.Trade
	assert.Equal(t, ExitStopLoss, tr.ExitReason)
	// 10 points x $50 x 2 contracts, recorded apart from slippage.
	assert.InDelta(t, 1000, tr.Costs.GapLoss, 1e-9)
	assert.Less(t, tr.ExitPrice, 4980.0, "fill comes off the gapped open")
}

func TestTakeProfitExit(t *testing.T) {
	m := testManager(t)
	p := longPosition(1)
	p.Target1Hit = true
	p.Target2Hit = true

	out, err := m.Step(p, bar(12, 0, 5025, 5031, 5024, 5029), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)
	assert.Equal(t, ExitTakeProfit, out.Trade.ExitReason)
	assert.Positive(t, out.Trade.GrossPnL)
}

func TestReversalExitNeedsConfidenceAndProfit(t *testing.T) {
	m := testManager(t)

	opposing := &strategies.Signal{Direction: market.Short, Confidence: 90}
	weak := &strategies.Signal{Direction: market.Short, Confidence: 80}

	// In profit + strong opposing signal: exit.
	p := longPosition(1)
	out, err := m.Step(p, bar(12, 0, 5005, 5009, 5004, 5008), flatWindow(), 2, opposing)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)
	assert.Equal(t, ExitReversal, out.Trade.ExitReason)

	// Below the confidence bar: hold.
	p = longPosition(1)
	out, err = m.Step(p, bar(12, 0, 5005, 5009, 5004, 5008), flatWindow(), 2, weak)
	require.NoError(t, err)
	assert.Nil(t, out.Trade)

	// Strong signal but under water: hold.
	p = longPosition(1)
	out, err = m.Step(p, bar(12, 0, 4996, 4999, 4995, 4997), flatWindow(), 2, opposing)
	require.NoError(t, err)
	assert.Nil(t, out.Trade)
}

func TestForceCloseAtCutoff(t *testing.T) {
	m := testManager(t)
	p := longPosition(3)

	out, err := m.Step(p, bar(15, 55, 5002, 5003, 5001, 5002), flatWindow(), 2, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Trade)

	assert.True(t, out.ForceClosed)
	assert.Equal(t, ExitForceClose, out.Trade.ExitReason)
	assert.Zero(t, p.Contracts, "a mandatory flatten never partial-fills")
}

func TestAfterCutoff(t *testing.T) {
	m := testManager(t)
	assert.False(t, m.AfterCutoff(etTime(15, 54)))
	assert.True(t, m.AfterCutoff(etTime(15, 55)))
	assert.True(t, m.AfterCutoff(etTime(16, 10)))
}

func TestNetPnLIsGrossMinusCosts(t *testing.T) {
	m := testManager(t)
	p := longPosition(2)

	out, err := m.Step(p, bar(12, 0, 5025, 5031, 5024, 5029), flatWindow(), 2, nil)
	require.NoError(t, err)

	// Target1/target2 both clear on the same wide bar before take-profit.
	if out.Trade == nil {
		out, err = m.Step(p, bar(12, 1, 5029, 5032, 5028, 5030), flatWindow(), 2, nil)
		require.NoError(t, err)
	}
	require.NotNil(t, out.Trade)

	tr := out.Trade
	assert.InDelta(t, tr.GrossPnL-tr.Costs.Total(), tr.NetPnL, 1e-9)
	assert.Positive(t, tr.Costs.Commission)
}

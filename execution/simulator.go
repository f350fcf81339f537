// Package execution models realistic order fills against candle data:
// spread, slippage, latency, partial fills, rejection, and gap-through-stop
// behavior. The simulator is a pure function of its inputs given a fixed
// random stream, so tests inject a seeded source.
package execution

import (
	"math"
	"math/rand"

	"futsim/market"
)

// Config holds the fill-model parameters for one instrument.
type Config struct {
	TickSize          float64 `json:"tick-size" yaml:"tick-size"`
	BaseSpreadTicks   float64 `json:"base-spread-ticks" yaml:"base-spread-ticks"`
	BaseSlippageTicks float64 `json:"base-slippage-ticks" yaml:"base-slippage-ticks"`
	MaxSlippageTicks  float64 `json:"max-slippage-ticks" yaml:"max-slippage-ticks"`
	BaseRejectionProb float64 `json:"base-rejection-prob" yaml:"base-rejection-prob"`
	MaxRejectionProb  float64 `json:"max-rejection-prob" yaml:"max-rejection-prob"`
	MinFillRatio      float64 `json:"min-fill-ratio" yaml:"min-fill-ratio"`
	LargeOrderSize    int     `json:"large-order-size" yaml:"large-order-size"`
	VolumeLookback    int     `json:"volume-lookback" yaml:"volume-lookback"`

	LatencyMeanMs float64 `json:"latency-mean-ms" yaml:"latency-mean-ms"`
	LatencyStdMs  float64 `json:"latency-std-ms" yaml:"latency-std-ms"`
	LatencyMinMs  float64 `json:"latency-min-ms" yaml:"latency-min-ms"`
	LatencyMaxMs  float64 `json:"latency-max-ms" yaml:"latency-max-ms"`
}

// Defaults returns a fill model tuned for E-mini index futures.
func Defaults() Config {
	return Config{
		TickSize:          0.25,
		BaseSpreadTicks:   1.0,
		BaseSlippageTicks: 0.5,
		MaxSlippageTicks:  4.0,
		BaseRejectionProb: 0.01,
		MaxRejectionProb:  0.15,
		MinFillRatio:      0.5,
		LargeOrderSize:    5,
		VolumeLookback:    20,
		LatencyMeanMs:     45,
		LatencyStdMs:      20,
		LatencyMinMs:      5,
		LatencyMaxMs:      250,
	}
}

// Request describes one intended market order against the current bar.
type Request struct {
	Candle market.Candle
	Window []market.Candle // recent bars, newest last; used for averages

	Side     market.Direction // side of THIS order (+1 buy, -1 sell)
	Quantity int
	IsEntry  bool

	RefPrice  float64 // intended fill reference (bar close, or stop level)
	StopPrice float64 // resting stop being exited, 0 if none
}

// Result is the simulated outcome of one order.
type Result struct {
	Executed       bool
	Rejected       bool
	FillPrice      float64
	FilledQuantity int

	SpreadPoints  float64 // half-spread paid, in price points
	SlippageTicks float64
	GapPoints     float64 // open gapped through the stop by this much
	LatencyMs     float64
}

// Simulator turns intended orders into realistic fills.
type Simulator struct {
	cfg Config
	rng *rand.Rand
}

// New creates a fill simulator. rng must not be nil; pass a seeded source
// for deterministic replays.
func New(cfg Config, rng *rand.Rand) *Simulator {
	return &Simulator{cfg: cfg, rng: rng}
}

// Simulate executes one order against the current bar.
// Exactly one of Result.Executed / Result.Rejected is true.
func (s *Simulator) Simulate(req Request) Result {
	sess := market.ClassifySession(req.Candle.Time)
	volRatio := s.volatilityRatio(req)
	scarcity := s.volumeScarcity(req)
	sizeF := s.sizeFactor(req.Quantity)

	latency := s.latencyMs()

	// Rejection draw first: a rejected order pays nothing.
	if s.rng.Float64() < s.rejectionProb(volRatio, sizeF, sess) {
		return Result{Rejected: true, LatencyMs: latency}
	}

	ref := req.RefPrice
	gap := 0.0

	// Gap handling: if the bar opened beyond a resting stop, the exit fills
	// at the gapped open. The excess is a gap loss, not slippage.
	if req.StopPrice > 0 {
		open := req.Candle.Open
		if req.Side == market.Short && open < req.StopPrice {
			gap = req.StopPrice - open
			ref = open
		} else if req.Side == market.Long && open > req.StopPrice {
			gap = open - req.StopPrice
			ref = open
		}
	}

	halfSpread := s.spreadPoints(req.Candle, sess, volRatio) / 2
	slipTicks := s.slippageTicks(scarcity, volRatio, sizeF, sess)
	slip := slipTicks * s.cfg.TickSize

	// Buys fill above the reference, sells below.
	fill := ref + float64(req.Side)*(halfSpread+slip)

	return Result{
		Executed:       true,
		FillPrice:      fill,
		FilledQuantity: s.fillQuantity(req.Quantity, scarcity, sizeF, sess),
		SpreadPoints:   halfSpread,
		SlippageTicks:  slipTicks,
		GapPoints:      gap,
		LatencyMs:      latency,
	}
}

// spreadPoints models the quoted spread in price points: base tick spread,
// widened by session and bar volatility, with ±20% jitter.
func (s *Simulator) spreadPoints(c market.Candle, sess market.Session, volRatio float64) float64 {
	spread := s.cfg.BaseSpreadTicks * s.cfg.TickSize

	spread *= sessionSpreadMult(sess)

	// Volatile bars trade wider.
	if volRatio > 1 {
		spread *= 1 + 0.3*(volRatio-1)
	}

	jitter := 0.8 + 0.4*s.rng.Float64()
	return spread * jitter
}

func sessionSpreadMult(s market.Session) float64 {
	switch s {
	case market.SessionOpen:
		return 1.4
	case market.SessionMid:
		return 1.0
	case market.SessionClose:
		return 1.1
	case market.SessionPower:
		return 1.2
	default:
		return 1.8 // overnight books are thin
	}
}

// slippageTicks combines scarcity, volatility, size, and session factors
// multiplicatively on the base, randomized x[0.7,1.3] and capped.
func (s *Simulator) slippageTicks(scarcity, volRatio, sizeF float64, sess market.Session) float64 {
	ticks := s.cfg.BaseSlippageTicks
	ticks *= 1 + scarcity
	ticks *= 1 + 0.5*math.Max(0, volRatio-1)
	ticks *= sizeF
	ticks *= sessionSlipMult(sess)

	ticks *= 0.7 + 0.6*s.rng.Float64()

	return math.Min(ticks, s.cfg.MaxSlippageTicks)
}

func sessionSlipMult(s market.Session) float64 {
	switch s {
	case market.SessionOpen:
		return 1.3
	case market.SessionMid:
		return 1.0
	case market.SessionClose, market.SessionPower:
		return 1.15
	default:
		return 1.5
	}
}

func (s *Simulator) rejectionProb(volRatio, sizeF float64, sess market.Session) float64 {
	p := s.cfg.BaseRejectionProb
	p *= 1 + math.Max(0, volRatio-1)
	p *= sizeF
	if sess == market.SessionOvernight {
		p *= 1.5
	}
	return math.Min(p, s.cfg.MaxRejectionProb)
}

// fillQuantity starts at 95-100% of the request and degrades with thin
// volume, large size, and adverse sessions, floored at MinFillRatio.
func (s *Simulator) fillQuantity(qty int, scarcity, sizeF float64, sess market.Session) int {
	if qty <= 1 {
		return qty
	}

	ratio := 0.95 + 0.05*s.rng.Float64()
	ratio *= 1 - 0.2*scarcity
	ratio /= sizeF
	if sess == market.SessionOvernight {
		ratio *= 0.9
	}
	if ratio < s.cfg.MinFillRatio {
		ratio = s.cfg.MinFillRatio
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(math.Round(float64(qty) * ratio))
	if filled < 1 {
		filled = 1
	}
	return filled
}

// volatilityRatio compares the current bar's range against the recent
// average range; 1.0 means typical, >1 volatile.
func (s *Simulator) volatilityRatio(req Request) float64 {
	avg := market.AvgRange(req.Window, s.cfg.VolumeLookback)
	if avg <= 0 {
		return 1
	}
	return req.Candle.Range() / avg
}

// volumeScarcity is 0 when volume is at/above the recent average and grows
// toward 1 as the bar's volume thins out.
func (s *Simulator) volumeScarcity(req Request) float64 {
	avg := market.AvgVolume(req.Window, s.cfg.VolumeLookback)
	if avg <= 0 || req.Candle.Volume <= 0 {
		return 0
	}
	ratio := req.Candle.Volume / avg
	if ratio >= 1 {
		return 0
	}
	return 1 - ratio
}

func (s *Simulator) sizeFactor(qty int) float64 {
	if s.cfg.LargeOrderSize <= 0 || qty <= s.cfg.LargeOrderSize {
		return 1
	}
	return 1 + 0.2*float64(qty-s.cfg.LargeOrderSize)
}

// latencyMs draws a Box-Muller Gaussian sample clamped to [min,max].
func (s *Simulator) latencyMs() float64 {
	u1 := s.rng.Float64()
	u2 := s.rng.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	lat := s.cfg.LatencyMeanMs + z*s.cfg.LatencyStdMs
	if lat < s.cfg.LatencyMinMs {
		lat = s.cfg.LatencyMinMs
	}
	if lat > s.cfg.LatencyMaxMs {
		lat = s.cfg.LatencyMaxMs
	}
	return lat
}

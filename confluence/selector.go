// Package confluence aggregates candidate signals from all registered
// strategy providers into at most one execution decision per candle.
package confluence

import (
	"sort"

	"futsim/adaptive"
	"futsim/indicators"
	"futsim/market"
	"futsim/strategies"
)

// Weights are the seven confluence scoring factors; they must sum to 100 so
// the composite score lands on a 0-100 scale.
type Weights struct {
	Count      float64 `json:"count" yaml:"count"`           // how many candidates agree
	Confidence float64 `json:"confidence" yaml:"confidence"` // mean candidate confidence
	Regime     float64 `json:"regime" yaml:"regime"`         // fraction flagged regime-optimal
	Session    float64 `json:"session" yaml:"session"`       // mean session boost
	Momentum   float64 `json:"momentum" yaml:"momentum"`     // RSI/MACD zone confirmation
	Diversity  float64 `json:"diversity" yaml:"diversity"`   // distinct signal sources
	Quality    float64 `json:"quality" yaml:"quality"`       // mean quality score
}

func (w Weights) Sum() float64 {
	return w.Count + w.Confidence + w.Regime + w.Session + w.Momentum + w.Diversity + w.Quality
}

// Config holds selector parameters.
type Config struct {
	Weights Weights `json:"weights" yaml:"weights"`

	MinCandidates  int     `json:"min-candidates" yaml:"min-candidates"`
	SoloConfidence float64 `json:"solo-confidence" yaml:"solo-confidence"`

	TrendEMAPeriod   int     `json:"trend-ema-period" yaml:"trend-ema-period"`
	TrendDeadband    float64 `json:"trend-deadband" yaml:"trend-deadband"` // fraction of price
	CounterTrendMult float64 `json:"counter-trend-mult" yaml:"counter-trend-mult"`
	WithTrendMult    float64 `json:"with-trend-mult" yaml:"with-trend-mult"`

	MaxSizeFactor float64 `json:"max-size-factor" yaml:"max-size-factor"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Count:      20,
			Confidence: 20,
			Regime:     15,
			Session:    10,
			Momentum:   15,
			Diversity:  10,
			Quality:    10,
		},
		MinCandidates:    2,
		SoloConfidence:   90,
		TrendEMAPeriod:   50,
		TrendDeadband:    0.001,
		CounterTrendMult: 0.8,
		WithTrendMult:    1.1,
		MaxSizeFactor:    1.5,
	}
}

// Decision is the selector's accepted entry for this candle.
type Decision struct {
	Direction  market.Direction
	Score      float64 // trend-adjusted confluence score
	RawScore   float64
	Top        strategies.Signal // supplies stop/target/strategy label
	Candidates int
	SizeFactor float64
	Solo       bool
}

// Selector scores and gates candidate signals.
type Selector struct {
	cfg Config
}

func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// Select returns nil when no direction clears its gates and no solo
// fallback applies. Confluence success short-circuits the solo path; the
// two are never eligible together.
func (s *Selector) Select(candidates []strategies.Signal, candles []market.Candle, th adaptive.Thresholds) *Decision {
	if len(candidates) == 0 {
		return nil
	}

	var longs, shorts []strategies.Signal
	for _, sig := range candidates {
		if sig.Direction == market.Long {
			longs = append(longs, sig)
		} else {
			shorts = append(shorts, sig)
		}
	}

	trend := s.trendBias(candles)

	long := s.scoreDirection(market.Long, longs, candles, trend)
	short := s.scoreDirection(market.Short, shorts, candles, trend)

	longPass := s.passes(long, th)
	shortPass := s.passes(short, th)

	var winner *dirScore
	switch {
	case longPass && shortPass:
		winner = s.tieBreak(long, short)
	case longPass:
		winner = long
	case shortPass:
		winner = short
	default:
		return s.soloFallback(candidates, th)
	}

	ranked := rank(winner.signals)
	top := ranked[0]

	return &Decision{
		Direction:  winner.dir,
		Score:      winner.adjusted,
		RawScore:   winner.raw,
		Top:        top,
		Candidates: len(winner.signals),
		SizeFactor: s.sizeFactor(winner),
	}
}

type dirScore struct {
	dir      market.Direction
	signals  []strategies.Signal
	raw      float64
	adjusted float64
	meanConf float64
	meanQual float64
}

// scoreDirection computes the weighted seven-factor composite.
func (s *Selector) scoreDirection(dir market.Direction, sigs []strategies.Signal, candles []market.Candle, trend market.Direction) *dirScore {
	ds := &dirScore{dir: dir, signals: sigs}
	if len(sigs) == 0 {
		return ds
	}

	n := float64(len(sigs))
	var confSum, qualSum, boostSum, regimeCount float64
	sources := map[string]struct{}{}
	for _, sig := range sigs {
		confSum += sig.Confidence
		qualSum += sig.Quality
		boostSum += sig.SessionBoost
		if sig.RegimeOptimal {
			regimeCount++
		}
		sources[sig.StrategyID] = struct{}{}
	}
	ds.meanConf = confSum / n
	ds.meanQual = qualSum / n

	countF := n / 3
	if countF > 1 {
		countF = 1
	}
	sessionF := boostSum / n / 10
	if sessionF > 1 {
		sessionF = 1
	}

	w := s.cfg.Weights
	ds.raw = w.Count*countF +
		w.Confidence*(ds.meanConf/100) +
		w.Regime*(regimeCount/n) +
		w.Session*sessionF +
		w.Momentum*s.momentumZone(dir, candles) +
		w.Diversity*(float64(len(sources))/n) +
		w.Quality*(ds.meanQual/100)

	// Counter-trend entries are discounted, with-trend rewarded.
	switch {
	case trend == 0:
		ds.adjusted = ds.raw
	case trend == dir:
		ds.adjusted = ds.raw * s.cfg.WithTrendMult
	default:
		ds.adjusted = ds.raw * s.cfg.CounterTrendMult
	}
	return ds
}

// momentumZone confirms the direction against RSI and MACD: full credit
// when both agree, half when one does.
func (s *Selector) momentumZone(dir market.Direction, candles []market.Candle) float64 {
	rsi := indicators.NewRSI(14)
	macd := indicators.NewMACD(12, 26, 9)
	for _, c := range candles {
		rsi.Update(c)
		macd.Update(c)
	}
	if !rsi.Ready() || !macd.Ready() {
		return 0.5 // no evidence either way
	}

	r := rsi.Value()
	h := macd.Histogram()

	var rsiOK, macdOK bool
	if dir == market.Long {
		rsiOK = r >= 40 && r <= 75
		macdOK = h > 0
	} else {
		rsiOK = r >= 25 && r <= 60
		macdOK = h < 0
	}

	switch {
	case rsiOK && macdOK:
		return 1
	case rsiOK || macdOK:
		return 0.5
	default:
		return 0
	}
}

// trendBias compares price to the long EMA with a deadband: inside the band
// the market is neutral.
func (s *Selector) trendBias(candles []market.Candle) market.Direction {
	ema := indicators.NewEMA(s.cfg.TrendEMAPeriod)
	for _, c := range candles {
		ema.Update(c)
	}
	if !ema.Ready() || len(candles) == 0 {
		return 0
	}
	e := ema.Value()
	price := candles[len(candles)-1].Close
	band := e * s.cfg.TrendDeadband

	switch {
	case price > e+band:
		return market.Long
	case price < e-band:
		return market.Short
	default:
		return 0
	}
}

// passes gates on the raw composite score. The trend adjustment only ranks
// directions that already cleared the gates; it never lifts a sub-threshold
// direction over them or discounts a passing one under.
func (s *Selector) passes(ds *dirScore, th adaptive.Thresholds) bool {
	return len(ds.signals) >= s.cfg.MinCandidates &&
		ds.raw >= th.Confluence &&
		ds.meanConf >= th.Confidence
}

// tieBreak resolves two passing directions. Higher adjusted score wins;
// on an exact tie, the direction with the higher single best-candidate
// confidence, then the lexicographically smaller top strategy id.
func (s *Selector) tieBreak(a, b *dirScore) *dirScore {
	if a.adjusted != b.adjusted {
		if a.adjusted > b.adjusted {
			return a
		}
		return b
	}

	aTop := rank(a.signals)[0]
	bTop := rank(b.signals)[0]
	if aTop.Confidence != bTop.Confidence {
		if aTop.Confidence > bTop.Confidence {
			return a
		}
		return b
	}
	if aTop.StrategyID <= bTop.StrategyID {
		return a
	}
	return b
}

// soloFallback admits a single exceptional candidate at half size.
func (s *Selector) soloFallback(candidates []strategies.Signal, th adaptive.Thresholds) *Decision {
	best := rankByConfidence(candidates)[0]
	if best.Confidence < s.cfg.SoloConfidence || best.RiskReward < th.RiskReward {
		return nil
	}
	return &Decision{
		Direction:  best.Direction,
		Score:      best.Confidence,
		RawScore:   best.Confidence,
		Top:        best,
		Candidates: 1,
		SizeFactor: 0.5,
		Solo:       true,
	}
}

// sizeFactor rewards candidate count (confluence bonus, capped) and the
// quality/confidence tier of the winning set.
func (s *Selector) sizeFactor(ds *dirScore) float64 {
	f := 1.0
	if extra := len(ds.signals) - s.cfg.MinCandidates; extra > 0 {
		f += 0.15 * float64(extra)
	}

	switch {
	case ds.meanQual >= 80 && ds.meanConf >= 80:
		f *= 1.2
	case ds.meanQual >= 65 && ds.meanConf >= 65:
		// nominal tier
	default:
		f *= 0.85
	}

	if f > s.cfg.MaxSizeFactor {
		f = s.cfg.MaxSizeFactor
	}
	return f
}

// rank orders a winning set: regime-optimal first, then confidence, then
// session boost. The top entry supplies stop/target/label.
func rank(sigs []strategies.Signal) []strategies.Signal {
	out := make([]strategies.Signal, len(sigs))
	copy(out, sigs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RegimeOptimal != out[j].RegimeOptimal {
			return out[i].RegimeOptimal
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].SessionBoost > out[j].SessionBoost
	})
	return out
}

func rankByConfidence(sigs []strategies.Signal) []strategies.Signal {
	out := make([]strategies.Signal, len(sigs))
	copy(out, sigs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].StrategyID < out[j].StrategyID
	})
	return out
}

package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"futsim/adaptive"
	"futsim/confluence"
	"futsim/execution"
	"futsim/journal"
	"futsim/market"
	"futsim/metrics"
	"futsim/persist"
	"futsim/pkg/id"
	"futsim/position"
	"futsim/risk"
	"futsim/schedule"
	"futsim/strategies"
)

var (
	// ErrAccountViolated means the trailing-drawdown ceiling was breached;
	// the session refuses to advance until Reset.
	ErrAccountViolated = errors.New("sim: account violated, reset required")

	// ErrNotRunning means Step was invoked on a stopped session.
	ErrNotRunning = errors.New("sim: session not running")
)

// Config collects every component's knobs for one session.
type Config struct {
	Instrument     string  `json:"instrument" yaml:"instrument"`
	InitialBalance float64 `json:"initial-balance" yaml:"initial-balance"`
	WarmupBars     int     `json:"warmup-bars" yaml:"warmup-bars"`
	BatchSize      int     `json:"batch-size" yaml:"batch-size"`
	Seed           int64   `json:"seed" yaml:"seed"` // 0 means time-based

	// NoEntryMinutes before the hard cutoff blocks new entries (binary,
	// never throttled around).
	NoEntryMinutes int `json:"no-entry-minutes" yaml:"no-entry-minutes"`

	Exec       execution.Config  `json:"execution" yaml:"execution"`
	Position   position.Config   `json:"position" yaml:"position"`
	Adaptive   adaptive.Config   `json:"adaptive" yaml:"adaptive"`
	Confluence confluence.Config `json:"confluence" yaml:"confluence"`
	Risk       risk.Config       `json:"risk" yaml:"risk"`
	Schedule   schedule.Config   `json:"schedule" yaml:"schedule"`
}

func DefaultConfig() Config {
	return Config{
		Instrument:     "ES",
		InitialBalance: 50000,
		WarmupBars:     60,
		BatchSize:      100,
		NoEntryMinutes: 25,
		Exec:           execution.Defaults(),
		Position:       position.DefaultConfig(),
		Adaptive:       adaptive.DefaultConfig(),
		Confluence:     confluence.DefaultConfig(),
		Risk:           risk.DefaultConfig(),
		Schedule:       schedule.DefaultConfig(),
	}
}

// TradeListener is notified after a trade fully closes and state has been
// updated. Called outside the session lock.
type TradeListener interface {
	OnTradeClosed(t *position.Trade)
}

// Session is one independent simulation: one account, one instrument, one
// candle series. All mutation happens under its lock via Step/RunBatch; the
// control surface only takes snapshots.
type Session struct {
	mu sync.Mutex

	cfg  Config
	meta market.InstrumentMeta

	candles []market.Candle
	rng     *rand.Rand

	exec      *execution.Simulator
	mgr       *position.Manager
	selector  *confluence.Selector
	gates     *adaptive.Calculator
	throttle  *risk.Throttle
	sched     *schedule.Controller
	providers []strategies.Provider

	jnl      journal.Journal
	store    persist.Store // optional
	storeKey string
	listener TradeListener // optional

	state     State
	riskState risk.State
	pos       *position.Position

	lastCandle     time.Time
	dayPnL         float64
	tradesToday    int
	barsSinceTrade int // -1 before first trade
	barsSinceLoss  int // -1 before first loss
	halted         bool
	unsynced       bool
	batchSize      int
}

// New builds a session over an in-memory candle series. candles must be
// time-ordered; the driver wraps to the start for continuous soak runs.
func New(cfg Config, candles []market.Candle, providers []strategies.Provider, jnl journal.Journal) (*Session, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("sim: empty candle series")
	}
	meta, ok := market.Instruments[cfg.Instrument]
	if !ok {
		return nil, fmt.Errorf("sim: unknown instrument %q", cfg.Instrument)
	}
	if cfg.WarmupBars < 2 {
		return nil, fmt.Errorf("sim: warmup-bars must be at least 2, got %d", cfg.WarmupBars)
	}
	if jnl == nil {
		jnl = journal.Nop{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ex := execution.New(cfg.Exec, rng)

	s := &Session{
		cfg:            cfg,
		meta:           meta,
		candles:        candles,
		rng:            rng,
		exec:           ex,
		mgr:            position.NewManager(cfg.Position, ex, meta),
		selector:       confluence.NewSelector(cfg.Confluence),
		gates:          adaptive.NewCalculator(cfg.Adaptive),
		throttle:       risk.NewThrottle(cfg.Risk),
		sched:          schedule.NewController(cfg.Schedule),
		providers:      providers,
		jnl:            jnl,
		batchSize:      cfg.BatchSize,
		barsSinceTrade: -1,
		barsSinceLoss:  -1,
	}
	s.state = State{
		Balance:     cfg.InitialBalance,
		PeakBalance: cfg.InitialBalance,
		StrategyPnL: make(map[string]float64),
	}
	return s, nil
}

// SetStore attaches a snapshot store. Persistence failures never block
// simulation progress; they flag the session unsynced instead.
func (s *Session) SetStore(store persist.Store, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	s.storeKey = key
}

// SetTradeClosedListener sets an optional listener notified after each full
// close, outside the lock to avoid deadlocks.
func (s *Session) SetTradeClosedListener(l TradeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start marks the session runnable, optionally reseeding the random stream.
func (s *Session) Start(seed int64) Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seed != 0 {
		s.rng.Seed(seed)
	}
	s.state.Running = true
	return s.reportLocked()
}

// Stop halts advancement between batches; a candle is never left partially
// applied.
func (s *Session) Stop() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Running = false
	return s.reportLocked()
}

// Reset rewinds the session to its initial state. This is the only way out
// of an account violation.
func (s *Session) Reset() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng.Seed(seed)

	s.state = State{
		Balance:     s.cfg.InitialBalance,
		PeakBalance: s.cfg.InitialBalance,
		StrategyPnL: make(map[string]float64),
	}
	s.riskState = risk.State{}
	s.pos = nil
	s.sched = schedule.NewController(s.cfg.Schedule)
	s.lastCandle = time.Time{}
	s.dayPnL = 0
	s.tradesToday = 0
	s.barsSinceTrade = -1
	s.barsSinceLoss = -1
	s.halted = false
	return s.reportLocked()
}

// SetBatchSize adjusts how many candles RunBatch advances.
func (s *Session) SetBatchSize(n int) Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.batchSize = n
	}
	return s.reportLocked()
}

// Configure replaces the adaptive threshold bases at runtime.
func (s *Session) Configure(overrides adaptive.Config) Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Adaptive = overrides
	s.gates = adaptive.NewCalculator(overrides)
	return s.reportLocked()
}

// Snapshot returns the current report without advancing anything.
func (s *Session) Snapshot() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reportLocked()
}

// RunBatch advances up to the configured batch size of candles, then saves
// a snapshot if a store is attached. It is the external scheduler's entry
// point; cancellation takes effect between candles.
func (s *Session) RunBatch(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running {
		return s.reportLocked(), ErrNotRunning
	}

	var stepErr error
	for i := 0; i < s.batchSize; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := s.stepLocked(); err != nil {
			stepErr = err
			break
		}
	}

	s.saveLocked(ctx)

	// Flush an equity point per batch so the curve stays bounded.
	_ = s.jnl.RecordEquity(journal.EquitySnapshot{
		Time:        s.lastCandle,
		Balance:     s.state.Balance,
		PeakBalance: s.state.PeakBalance,
		Drawdown:    s.state.PeakBalance - s.state.Balance,
		OpenTrades:  s.openCount(),
	})

	return s.reportLocked(), stepErr
}

// Step advances exactly one candle.
func (s *Session) Step() (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.stepLocked()
	return s.reportLocked(), err
}

func (s *Session) openCount() int {
	if s.pos != nil {
		return 1
	}
	return 0
}

// stepLocked is the per-candle state machine. One candle is processed fully
// or not at all.
func (s *Session) stepLocked() error {
	if s.halted {
		return ErrAccountViolated
	}

	idx := s.state.CurrentIndex % len(s.candles) // wrap for soak runs
	c := s.candles[idx]
	s.state.CurrentIndex++
	metrics.CandlesProcessed.Inc()

	// Daily counters reset exactly once per calendar-day crossing.
	if !s.lastCandle.IsZero() && !market.SameTradingDay(s.lastCandle, c.Time) {
		s.dayPnL = 0
		s.tradesToday = 0
		s.sched.OnDayBoundary()
	}
	s.lastCandle = c.Time

	// DataInsufficient: not enough bars this lap for indicators; skip the
	// candle with no further state mutation.
	lo := idx + 1 - s.cfg.WarmupBars
	if lo < 0 {
		return nil
	}
	window := s.candles[lo : idx+1]

	if s.barsSinceTrade >= 0 {
		s.barsSinceTrade++
	}
	if s.barsSinceLoss >= 0 {
		s.barsSinceLoss++
	}

	signals := s.poll(window)

	evaluated := false
	if s.pos != nil {
		if err := s.managePosition(c, window, signals); err != nil {
			return err
		}
	} else {
		evaluated = s.tryEnter(c, window, signals)
	}

	// RiskState is recomputed every candle. When an entry was just sized,
	// keep that evaluation: it carries the decision's actual signal quality,
	// so status and gauges report the multiplier that sizing used.
	if !evaluated {
		s.riskState = s.throttle.Evaluate(s.riskInputs(c, 100))
	}
	metrics.AccountBalance.Set(s.state.Balance)
	metrics.DrawdownPercent.Set(s.riskState.DrawdownPercent)
	metrics.RiskSizeMultiplier.Set(s.riskState.SizeMultiplier)

	if s.riskState.Level == risk.LevelViolated {
		return s.violateLocked(c, window)
	}
	return nil
}

// poll gathers candidates from every provider. Provider output is consumed
// read-only.
func (s *Session) poll(window []market.Candle) []strategies.Signal {
	var out []strategies.Signal
	for _, p := range s.providers {
		out = append(out, p.Evaluate(window)...)
	}
	return out
}

func (s *Session) managePosition(c market.Candle, window []market.Candle, signals []strategies.Signal) error {
	atr := windowATR(window)
	opp := strongestOpposing(signals, s.pos.Direction)

	out, err := s.mgr.Step(s.pos, c, window, atr, opp)
	if err != nil {
		return err
	}
	if out.ExitRejected {
		s.state.OrdersRejected++
		metrics.OrdersRejected.Inc()
	}
	if out.Trade != nil {
		s.settle(out.Trade)
	}
	return nil
}

// settle folds a fully closed trade into the aggregates. Exactly one Trade
// per full close.
func (s *Session) settle(t *position.Trade) {
	s.pos = nil

	s.state.Balance += t.NetPnL
	s.dayPnL += t.NetPnL
	s.state.Costs.Add(t.Costs)
	s.state.LatencySumMs += t.LatencyMs
	s.state.StrategyPnL[t.StrategyLabel] += t.NetPnL
	s.state.Trades = append(s.state.Trades, *t)

	if t.NetPnL >= 0 {
		s.state.Wins++
	} else {
		s.state.Losses++
		s.barsSinceLoss = 0
	}
	s.barsSinceTrade = 0
	s.sched.OnTradeClosed(t.NetPnL)

	// Peak only ratchets up; drawdown is measured from it.
	if s.state.Balance > s.state.PeakBalance {
		s.state.PeakBalance = s.state.Balance
	}
	if dd := s.state.PeakBalance - s.state.Balance; dd > s.state.MaxDrawdown {
		s.state.MaxDrawdown = dd
	}

	metrics.TradesTotal.WithLabelValues(t.ExitReason).Inc()
	metrics.GapLossDollars.Add(t.Costs.GapLoss)

	s.record(t)

	if l := s.listener; l != nil {
		// Listener runs inline; Session methods must not be re-entered
		// from the callback.
		l.OnTradeClosed(t)
	}
}

func (s *Session) record(t *position.Trade) {
	analytics, err := json.Marshal(t.Analytics)
	if err != nil {
		analytics = []byte("{}")
	}
	_ = s.jnl.RecordTrade(journal.FromTrade(t, string(analytics)))
	_ = s.jnl.RecordEquity(journal.EquitySnapshot{
		Time:        t.ExitTime,
		Balance:     s.state.Balance,
		PeakBalance: s.state.PeakBalance,
		Drawdown:    s.state.PeakBalance - s.state.Balance,
		OpenTrades:  0,
	})
}

// tryEnter runs the confluence/risk/schedule pipeline and opens a position
// when everything clears. It reports whether a risk evaluation happened, so
// the caller knows the session's RiskState already reflects this candle.
func (s *Session) tryEnter(c market.Candle, window []market.Candle, signals []strategies.Signal) bool {
	if len(signals) == 0 {
		return false
	}

	schedState := s.sched.State()
	th := s.gates.Thresholds(adaptive.Inputs{
		Regime:            adaptive.ClassifyRegime(window),
		Session:           market.ClassifySession(c.Time),
		Hour:              c.Time.In(market.Eastern).Hour(),
		ConsecutiveWins:   schedState.ConsecutiveWins,
		ConsecutiveLosses: schedState.ConsecutiveLosses,
	})

	decision := s.selector.Select(signals, window, th)
	if decision == nil {
		return false
	}

	rs := s.throttle.Evaluate(s.riskInputs(c, decision.Top.Quality))
	s.riskState = rs
	if !rs.CanTrade || rs.SizeMultiplier <= 0 {
		return true
	}

	mult := rs.SizeMultiplier * s.sched.Multiplier(s.dayPnL) * decision.SizeFactor
	contracts := s.throttle.Contracts(s.state.Balance, c.Close, decision.Top.StopLoss, s.meta.PointValue, mult)
	if contracts < 1 {
		return true
	}

	s.state.OrdersSubmitted++
	res := s.exec.Simulate(execution.Request{
		Candle:   c,
		Window:   window,
		Side:     decision.Direction,
		Quantity: contracts,
		IsEntry:  true,
		RefPrice: c.Close,
	})
	metrics.OrderLatency.Observe(res.LatencyMs)

	if res.Rejected {
		// Expected steady-state behavior, not an exception.
		s.state.OrdersRejected++
		metrics.OrdersRejected.Inc()
		return true
	}
	if res.FilledQuantity < contracts {
		s.state.PartialFills++
	}

	s.open(c, window, decision, res)
	return true
}

// open creates the position from an accepted decision and its entry fill.
func (s *Session) open(c market.Candle, window []market.Candle, d *confluence.Decision, res execution.Result) {
	top := d.Top
	entry := res.FillPrice
	riskDist := entry - top.StopLoss
	if d.Direction == market.Short {
		riskDist = top.StopLoss - entry
	}
	if riskDist <= 0 {
		// Fill slipped through the stop; stand aside rather than open a
		// position already stopped out.
		return
	}

	// Scale-out rungs at 1R and 2R; the signal's target stays the final
	// take-profit.
	t1 := entry + float64(d.Direction)*riskDist
	t2 := entry + float64(d.Direction)*riskDist*2

	atr := windowATR(window)
	et := c.Time.In(market.Eastern)

	p := &position.Position{
		ID:               id.New(),
		Instrument:       s.cfg.Instrument,
		Direction:        d.Direction,
		RawEntryPrice:    c.Close,
		EntryPrice:       entry,
		EntryTime:        c.Time,
		Contracts:        res.FilledQuantity,
		InitialContracts: res.FilledQuantity,
		StopLoss:         top.StopLoss,
		InitialStopLoss:  top.StopLoss,
		TakeProfit:       top.TakeProfit,
		Target1:          t1,
		Target2:          t2,
		HighestPrice:     c.High,
		LowestPrice:      c.Low,
		ConfluenceScore:  d.Score,
		StrategyLabel:    top.StrategyID,
		LatencyMs:        res.LatencyMs,
		Analytics:        s.analytics(c, window, top, atr, et.Hour()),
	}

	fn := float64(res.FilledQuantity)
	p.Costs.Add(position.CostBreakdown{
		Commission: s.cfg.Position.CommissionPerSide * fn,
		Slippage:   res.SlippageTicks * s.meta.TickValue * fn,
		Spread:     res.SpreadPoints * s.meta.PointValue * fn,
	})

	s.pos = p
	s.tradesToday++
	s.barsSinceTrade = 0
}

// analytics captures entry context for downstream analysis.
func (s *Session) analytics(c market.Candle, window []market.Candle, top strategies.Signal, atr float64, hour int) position.EntryAnalytics {
	return position.EntryAnalytics{
		StrategyID:    top.StrategyID,
		RSI:           windowRSI(window),
		MACDHistogram: windowMACDHist(window),
		EMADistance:   windowEMADistance(window, s.cfg.Confluence.TrendEMAPeriod, c.Close),
		ATR:           atr,
		TrendStrength: adaptive.TrendStrength(window, s.cfg.Confluence.TrendEMAPeriod, 14),
		Regime:        adaptive.ClassifyRegime(window).String(),
		Session:       market.ClassifySession(c.Time).String(),
		Hour:          hour,
	}
}

func (s *Session) riskInputs(c market.Candle, signalQuality float64) risk.Inputs {
	schedState := s.sched.State()
	trend := adaptive.TrendStrength(s.recentWindow(), s.cfg.Confluence.TrendEMAPeriod, 14)

	return risk.Inputs{
		Balance:            s.state.Balance,
		PeakBalance:        s.state.PeakBalance,
		DailyPnL:           s.dayPnL,
		TradesToday:        s.tradesToday,
		BarsSinceLastTrade: s.barsSinceTrade,
		ConsecutiveLosses:  schedState.ConsecutiveLosses,
		BarsSinceLastLoss:  s.barsSinceLoss,
		TimeframeAligned:   trend >= 0 == (c.Close >= c.Open) || trend == 0,
		Session:            market.ClassifySession(c.Time),
		SignalQuality:      signalQuality,
		PreCloseWindow:     s.preCloseWindow(c.Time),
	}
}

func (s *Session) recentWindow() []market.Candle {
	idx := s.state.CurrentIndex - 1
	if idx < 0 {
		return nil
	}
	idx = idx % len(s.candles)
	lo := idx + 1 - s.cfg.WarmupBars
	if lo < 0 {
		return nil
	}
	return s.candles[lo : idx+1]
}

// preCloseWindow blocks new entries in the final minutes before the hard
// cutoff. This block is binary, never throttled.
func (s *Session) preCloseWindow(t time.Time) bool {
	et := t.In(market.Eastern)
	mins := et.Hour()*60 + et.Minute()
	cutoff := s.cfg.Position.CutoffHour*60 + s.cfg.Position.CutoffMinute
	return mins >= cutoff-s.cfg.NoEntryMinutes
}

// violateLocked handles a drawdown ceiling breach: flatten best-effort at
// the current close and refuse all further work until Reset.
func (s *Session) violateLocked(c market.Candle, window []market.Candle) error {
	s.halted = true
	s.state.Running = false

	if s.pos != nil {
		out, err := s.mgr.ForceFlatten(s.pos, c, window)
		if err == nil && out.Trade != nil {
			s.settle(out.Trade)
		}
	}
	return ErrAccountViolated
}

// saveLocked snapshots to the store; failures flag unsynced and never block
// progress.
func (s *Session) saveLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	env, err := persist.Wrap(snapshotPayload{
		Instrument:     s.cfg.Instrument,
		State:          s.state,
		Risk:           s.riskState,
		Schedule:       s.sched.State(),
		Position:       s.pos,
		LastCandle:     s.lastCandle,
		DayPnL:         s.dayPnL,
		TradesToday:    s.tradesToday,
		BarsSinceTrade: s.barsSinceTrade,
		BarsSinceLoss:  s.barsSinceLoss,
		Halted:         s.halted,
	})
	if err == nil {
		err = s.store.Save(ctx, s.storeKey, env)
	}
	s.unsynced = err != nil
}

// Restore loads the latest snapshot from the attached store.
func (s *Session) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return fmt.Errorf("sim: no snapshot store attached")
	}
	env, err := s.store.Load(ctx, s.storeKey)
	if err != nil {
		return err
	}

	var p snapshotPayload
	if err := persist.Unwrap(env, &p); err != nil {
		return err
	}
	if p.Instrument != s.cfg.Instrument {
		return fmt.Errorf("sim: snapshot is for %q, session trades %q", p.Instrument, s.cfg.Instrument)
	}

	s.state = p.State
	if s.state.StrategyPnL == nil {
		s.state.StrategyPnL = make(map[string]float64)
	}
	s.riskState = p.Risk
	s.sched.Restore(p.Schedule)
	s.pos = p.Position
	s.lastCandle = p.LastCandle
	s.dayPnL = p.DayPnL
	s.tradesToday = p.TradesToday
	s.barsSinceTrade = p.BarsSinceTrade
	s.barsSinceLoss = p.BarsSinceLoss
	s.halted = p.Halted
	s.unsynced = false
	return nil
}

func (s *Session) reportLocked() Report {
	r := Report{
		Running:      s.state.Running,
		Halted:       s.halted,
		Unsynced:     s.unsynced,
		CurrentIndex: s.state.CurrentIndex,
		LastCandle:   s.lastCandle,
		Balance:      s.state.Balance,
		PeakBalance:  s.state.PeakBalance,
		NetPnL:       s.state.Balance - s.cfg.InitialBalance,
		MaxDrawdown:  s.state.MaxDrawdown,
		Wins:         s.state.Wins,
		Losses:       s.state.Losses,
		Risk:         s.riskState,
		Schedule:     s.sched.State(),
		Costs:        s.state.Costs,
		StrategyPnL:  make(map[string]float64, len(s.state.StrategyPnL)),
	}
	for k, v := range s.state.StrategyPnL {
		r.StrategyPnL[k] = v
	}

	if total := s.state.Wins + s.state.Losses; total > 0 {
		r.WinRate = float64(s.state.Wins) / float64(total)
		r.Exec.AvgLatencyMs = s.state.LatencySumMs / float64(total)
	}
	r.Exec.OrdersSubmitted = s.state.OrdersSubmitted
	r.Exec.OrdersRejected = s.state.OrdersRejected
	r.Exec.PartialFills = s.state.PartialFills
	if s.state.OrdersSubmitted > 0 {
		r.Exec.RejectRate = float64(s.state.OrdersRejected) / float64(s.state.OrdersSubmitted)
	}

	if s.pos != nil {
		p := *s.pos
		r.OpenPosition = &p
	}

	n := len(s.state.Trades)
	start := n - 10
	if start < 0 {
		start = 0
	}
	r.RecentTrades = append(r.RecentTrades, s.state.Trades[start:]...)
	return r
}

// Trades returns a copy of all closed trades, oldest first.
func (s *Session) Trades() []position.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]position.Trade, len(s.state.Trades))
	copy(out, s.state.Trades)
	return out
}

func strongestOpposing(signals []strategies.Signal, dir market.Direction) *strategies.Signal {
	var best *strategies.Signal
	for i := range signals {
		sig := &signals[i]
		if sig.Direction != dir.Opposite() {
			continue
		}
		if best == nil || sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best
}

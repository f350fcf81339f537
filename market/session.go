package market

import "time"

// Session is a named sub-period of the trading day with distinct liquidity
// and volatility characteristics. Buckets follow the US equity-index futures
// cash session (Eastern time).
type Session int

const (
	SessionOvernight Session = iota
	SessionOpen              // 09:30-10:30 ET
	SessionMid               // 10:30-14:00 ET
	SessionClose             // 14:00-15:00 ET
	SessionPower             // 15:00-16:00 ET
)

func (s Session) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionMid:
		return "mid"
	case SessionClose:
		return "close"
	case SessionPower:
		return "power"
	default:
		return "overnight"
	}
}

// Eastern is the exchange clock for CME equity-index products. Falls back to
// a fixed UTC-5 zone if the tz database is unavailable.
var Eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}()

// ClassifySession buckets a candle timestamp into a trading session.
func ClassifySession(t time.Time) Session {
	et := t.In(Eastern)
	mins := et.Hour()*60 + et.Minute()

	switch {
	case mins >= 9*60+30 && mins < 10*60+30:
		return SessionOpen
	case mins >= 10*60+30 && mins < 14*60:
		return SessionMid
	case mins >= 14*60 && mins < 15*60:
		return SessionClose
	case mins >= 15*60 && mins < 16*60:
		return SessionPower
	default:
		return SessionOvernight
	}
}

// SameTradingDay reports whether two timestamps fall on the same exchange
// calendar day. Daily counters reset exactly once when this flips.
func SameTradingDay(a, b time.Time) bool {
	ae, be := a.In(Eastern), b.In(Eastern)
	return ae.Year() == be.Year() && ae.YearDay() == be.YearDay()
}

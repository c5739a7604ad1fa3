package market

import "time"

// The trading window is fixed to the US equity session and is deliberately
// not configurable, so the engine can never drift into trading outside
// exchange hours through a bad config edit.
const (
	openHour    = 9
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0
)

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("market: load America/New_York: " + err.Error())
	}
	eastern = loc
}

// SessionOpen reports whether `now` falls on a weekday within the
// regular 09:30-16:00 ET session, boundaries inclusive.
func SessionOpen(now time.Time) bool {
	et := now.In(eastern)
	if wd := et.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := et.Hour()*60 + et.Minute()
	return minutes >= openHour*60+openMinute && minutes <= closeHour*60+closeMinute
}

// IdleGate rate-limits the "engine is idle" notification so polling the
// closed-market gate every few seconds does not flood the channel.
type IdleGate struct {
	every time.Duration
	last  time.Time
}

// NewIdleGate creates a gate that allows at most one notification per
// `every`.
func NewIdleGate(every time.Duration) *IdleGate {
	return &IdleGate{every: every}
}

// ShouldNotify reports whether an idle notification is due at `now`,
// and if so arms the gate for the next interval.
func (g *IdleGate) ShouldNotify(now time.Time) bool {
	if !g.last.IsZero() && now.Sub(g.last) < g.every {
		return false
	}
	g.last = now
	return true
}

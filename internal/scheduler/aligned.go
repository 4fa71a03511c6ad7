package scheduler

import "time"

// Alignment schedules wake-ups just after each candle close.
type Alignment struct {
	Interval time.Duration
	// Offset delays the wake-up past the close so the exchange has
	// finalized the bar.
	Offset time.Duration
}

// NewAlignment parses a kline interval such as "5m". ok is false when the
// interval is not recognized.
func NewAlignment(interval string, offset time.Duration) (Alignment, bool) {
	d, ok := ParseIntervalDuration(interval)
	if !ok {
		return Alignment{}, false
	}
	if offset < 0 {
		offset = 0
	}
	return Alignment{Interval: d, Offset: offset}, true
}

// Next returns the upcoming candle close, the wake-up time and the wait
// from now. A wake-up that has already passed for the current candle
// moves to the following one.
func (a Alignment) Next(now time.Time) (nextClose, wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	if a.Interval <= 0 {
		return now, now, 0
	}
	nextClose = now.Truncate(a.Interval).Add(a.Interval)
	wakeAt = nextClose.Add(a.Offset)
	// still inside the offset window of the close that just happened
	if prev := nextClose.Add(-a.Interval).Add(a.Offset); prev.After(now) {
		nextClose = nextClose.Add(-a.Interval)
		wakeAt = prev
	}
	return nextClose, wakeAt, wakeAt.Sub(now)
}

// Package clock is the time source for everything that stamps or waits.
//
// Production code receives Real(); tests receive Fake(start) and move time
// forward explicitly with Advance, which jumps to the target time and then
// fires the AfterFunc callbacks and ticker ticks due by it in deadline order.
package clock

import "time"

// Clock is the subset of the time package the service depends on.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed. A non-positive d runs f right away.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop reports whether the call was prevented from running.
func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers ticks on C. C has capacity 1; late ticks are dropped.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

func (t *Ticker) Stop() { t.stop() }

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. Safe for concurrent use.
//
// AfterFunc callbacks run on the goroutine calling Advance, without the
// clock's lock held, so a callback may schedule further timers.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*pendingTimer
	changed *sync.Cond
}

type pendingTimer struct {
	deadline time.Time
	fn       func()
	ch       chan time.Time
	interval time.Duration
	stopped  bool
	fired    bool
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}

	c.mu.Lock()
	p := &pendingTimer{deadline: c.now.Add(d), fn: f}
	c.pending = append(c.pending, p)
	c.changed.Broadcast()
	c.mu.Unlock()

	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if p.stopped || p.fired {
			return false
		}
		p.stopped = true
		return true
	}}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	ch := make(chan time.Time, 1)
	c.mu.Lock()
	p := &pendingTimer{deadline: c.now.Add(d), ch: ch, interval: d}
	c.pending = append(c.pending, p)
	c.changed.Broadcast()
	c.mu.Unlock()

	return &Ticker{C: ch, stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		p.stopped = true
	}}
}

// Advance sets the clock to now+d first, then fires everything due by then,
// earliest deadline first. Callbacks read the new time, so a timer they arm
// with a positive delay lands after the target and waits for the next
// Advance.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.SliceStable(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, p := range due {
			if p.fn != nil {
				p.fn()
				continue
			}
			select {
			case p.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes due one-shot timers, re-arms due tickers and returns
// what should fire.
func (c *FakeClock) takeDue(target time.Time) []*pendingTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*pendingTimer
	for _, p := range c.pending {
		switch {
		case p.stopped:
		case p.deadline.After(target):
			keep = append(keep, p)
		case p.interval > 0:
			// snapshot the firing, then re-arm
			due = append(due, &pendingTimer{deadline: p.deadline, ch: p.ch})
			p.deadline = p.deadline.Add(p.interval)
			keep = append(keep, p)
		default:
			p.fired = true
			due = append(due, p)
		}
	}
	c.pending = keep
	return due
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Use it to make sure a goroutine has armed its timer before Advance.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of armed timers and tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, p := range c.pending {
		if !p.stopped {
			n++
		}
	}
	return n
}

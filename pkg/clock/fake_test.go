package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func TestFakeClockAdvanceMovesNow(t *testing.T) {
	c := Fake(epoch)
	assert.True(t, c.Now().Equal(epoch))

	c.Advance(90 * time.Second)
	assert.True(t, c.Now().Equal(epoch.Add(90*time.Second)))
}

func TestFakeClockAfterFuncFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(3*time.Minute, func() { fired++ })

	c.Advance(2 * time.Minute)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 1, c.PendingCount())

	c.Advance(time.Minute)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, c.PendingCount())

	c.Advance(time.Hour)
	assert.Equal(t, 1, fired, "one-shot timer must not fire twice")
}

func TestFakeClockAfterFuncOrder(t *testing.T) {
	c := Fake(epoch)
	var order []string
	c.AfterFunc(10*time.Minute, func() { order = append(order, "confirmed") })
	c.AfterFunc(3*time.Minute, func() { order = append(order, "ready") })

	c.Advance(time.Hour)
	assert.Equal(t, []string{"ready", "confirmed"}, order)
}

func TestFakeClockAfterFuncNonPositiveRunsNow(t *testing.T) {
	c := Fake(epoch)
	fired := false
	c.AfterFunc(0, func() { fired = true })
	assert.True(t, fired)
}

func TestFakeClockTimerStop(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeClockCallbackCanRearm(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	var rearm func()
	rearm = func() {
		fired++
		if fired < 3 {
			c.AfterFunc(time.Second, rearm)
		}
	}
	c.AfterFunc(time.Second, rearm)

	// the re-armed timer is due a second after the target, so one Advance
	// fires only the first deadline
	c.Advance(10 * time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, c.PendingCount())

	c.Advance(time.Second)
	assert.Equal(t, 2, fired)
	c.Advance(time.Second)
	assert.Equal(t, 3, fired)

	c.Advance(time.Minute)
	assert.Equal(t, 3, fired)
	assert.Zero(t, c.PendingCount())
}

func TestFakeClockTicker(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(5 * time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C:
		t.Fatal("ticker fired before Advance")
	default:
	}

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire")
	}

	ticker.Stop()
	c.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.AfterFunc(time.Second, func() { close(done) })
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
}

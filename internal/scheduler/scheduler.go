// Package scheduler runs delayed expiry checks for waiting tickets.
//
// Delivery is at least once. Handlers must re-check the ticket they are
// given and treat a stale task as a no-op.
package scheduler

import (
	"context"
	"errors"
	"time"

	"booth-waitlist/internal/data/entity"

	"github.com/google/uuid"
)

var ErrStopped = errors.New("scheduler stopped")

// Task is one deferred expiry check. Kind is the status the ticket was in
// when the check was scheduled.
type Task struct {
	WaitingID uuid.UUID            `json:"waiting_id"`
	Kind      entity.WaitingStatus `json:"kind"`
	DueAt     time.Time            `json:"due_at"`
	Attempt   int                  `json:"attempt"`
}

type Handler func(ctx context.Context, task Task) error

type Scheduler interface {
	// Schedule arranges for the handler to see a task once delay has passed.
	// It never waits for the handler.
	Schedule(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, delay time.Duration) error
	Start(ctx context.Context, handler Handler) error
	Stop()
}

type Options struct {
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	TaskTimeout  time.Duration

	// redis backend only
	PollInterval time.Duration
	BatchSize    int
	Key          string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 10 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Key == "" {
		o.Key = "booth-waitlist:expiry"
	}
	return o
}

const maxBackoff = 5 * time.Minute

// backoff doubles the base delay for every failed attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalScheduler keeps pending checks as in-process timers. Pending checks
// are lost on restart; the reconciler picks those tickets up.
type LocalScheduler struct {
	clock clock.Clock
	log   *zap.Logger
	pool  *pool

	mu      sync.Mutex
	timers  map[uint64]*clock.Timer
	nextID  uint64
	stopped bool
	cancel  context.CancelFunc
}

func NewLocalScheduler(c clock.Clock, opts Options, log *zap.Logger) *LocalScheduler {
	opts = opts.withDefaults()
	s := &LocalScheduler{
		clock:  c,
		log:    log.With(zap.String("scheduler", "local")),
		timers: make(map[uint64]*clock.Timer),
	}
	s.pool = newPool(opts, s.log, s.retry)
	return s
}

func (s *LocalScheduler) Schedule(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, delay time.Duration) error {
	task := Task{
		WaitingID: waitingID,
		Kind:      kind,
		DueAt:     s.clock.Now().Add(delay),
	}
	if !s.after(task, delay) {
		return ErrStopped
	}

	s.log.Debug("Expiry check scheduled",
		zap.String("waiting_id", waitingID.String()),
		zap.String("kind", kind.String()),
		zap.Duration("delay", delay),
	)
	return nil
}

func (s *LocalScheduler) Start(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return ErrStopped
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.pool.start(ctx, handler)
	return nil
}

// Stop cancels pending timers and waits for running checks to return.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for id, t := range s.timers {
		if t != nil {
			t.Stop()
		}
		delete(s.timers, id)
	}
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.pool.wait()

	for _, task := range s.pool.drain() {
		s.discard(task)
	}
}

// Pending returns the number of armed timers.
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *LocalScheduler) after(task Task, delay time.Duration) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	id := s.nextID
	s.nextID++
	s.timers[id] = nil
	s.mu.Unlock()

	// AfterFunc may run the callback before returning, so s.mu must not be held
	t := s.clock.AfterFunc(delay, func() { s.fire(id, task) })

	s.mu.Lock()
	if _, pending := s.timers[id]; pending {
		s.timers[id] = t
	}
	s.mu.Unlock()
	return true
}

// retry re-arms a failed check. After Stop there is nothing to arm.
func (s *LocalScheduler) retry(task Task, delay time.Duration) {
	if !s.after(task, delay) {
		s.discard(task)
	}
}

func (s *LocalScheduler) discard(task Task) {
	s.log.Warn("Expiry check discarded on stop, left to the reconciler",
		zap.String("waiting_id", task.WaitingID.String()),
		zap.String("kind", task.Kind.String()),
		zap.Time("due_at", task.DueAt),
	)
}

func (s *LocalScheduler) fire(id uint64, task Task) {
	s.mu.Lock()
	delete(s.timers, id)
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}

	select {
	case s.pool.jobs <- task:
	default:
		s.log.Warn("Scheduler queue full, backing off",
			zap.String("waiting_id", task.WaitingID.String()),
			zap.Int("queue_size", cap(s.pool.jobs)),
		)
		s.retry(task, s.pool.opts.RetryBackoff)
	}
}

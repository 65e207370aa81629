package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/clock"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisScheduler keeps pending checks in a sorted set scored by due time in
// unix milliseconds, so they survive a restart. Whoever removes a member
// with ZREM owns it.
type RedisScheduler struct {
	client *redis.Client
	clock  clock.Clock
	opts   Options
	log    *zap.Logger
	pool   *pool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewRedisScheduler(client *redis.Client, c clock.Clock, opts Options, log *zap.Logger) *RedisScheduler {
	opts = opts.withDefaults()
	s := &RedisScheduler{
		client: client,
		clock:  c,
		opts:   opts,
		log:    log.With(zap.String("scheduler", "redis"), zap.String("key", opts.Key)),
	}
	s.pool = newPool(opts, s.log, s.requeue)
	return s
}

func (s *RedisScheduler) Schedule(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, delay time.Duration) error {
	task := Task{
		WaitingID: waitingID,
		Kind:      kind,
		DueAt:     s.clock.Now().Add(delay),
	}
	if err := s.add(ctx, task); err != nil {
		return err
	}

	s.log.Debug("Expiry check scheduled",
		zap.String("waiting_id", waitingID.String()),
		zap.String("kind", kind.String()),
		zap.Time("due_at", task.DueAt),
	)
	return nil
}

func (s *RedisScheduler) add(ctx context.Context, task Task) error {
	member, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task for waiting %s: %w", task.WaitingID, err)
	}

	err = s.client.ZAdd(ctx, s.opts.Key, &redis.Z{
		Score:  float64(task.DueAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: enqueue waiting %s: %v", entity.ErrSchedulerDelivery, task.WaitingID, err)
	}
	return nil
}

func (s *RedisScheduler) requeue(task Task, delay time.Duration) {
	task.DueAt = s.clock.Now().Add(delay)

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TaskTimeout)
	defer cancel()

	if err := s.add(ctx, task); err != nil {
		s.log.Error("Failed to requeue expiry check",
			zap.Error(err),
			zap.String("waiting_id", task.WaitingID.String()),
		)
	}
}

func (s *RedisScheduler) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.pool.start(ctx, handler)
	go s.pollLoop(ctx)
	return nil
}

// Stop ends polling and waits for the workers. Checks claimed from the set
// but not yet finished are written back, due immediately.
func (s *RedisScheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		s.pool.wait()
	}

	// claimed but never run: give them back to the set
	left := s.pool.drain()
	for _, task := range left {
		s.requeue(task, 0)
	}
	if len(left) > 0 {
		s.log.Info("Returned queued expiry checks on stop", zap.Int("count", len(left)))
	}
}

func (s *RedisScheduler) pollLoop(ctx context.Context) {
	defer close(s.done)

	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.poll(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("Failed to poll due expiry checks", zap.Error(err))
			}
		}
	}
}

// poll claims every member due at the current time and hands it to the
// worker pool. It returns how many tasks were dispatched.
func (s *RedisScheduler) poll(ctx context.Context) (int, error) {
	now := s.clock.Now().UnixMilli()

	members, err := s.client.ZRangeByScore(ctx, s.opts.Key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: int64(s.opts.BatchSize),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("read due tasks: %w", err)
	}

	dispatched := 0
	for _, member := range members {
		removed, err := s.client.ZRem(ctx, s.opts.Key, member).Result()
		if err != nil {
			return dispatched, fmt.Errorf("claim task: %w", err)
		}
		if removed == 0 {
			// another poller claimed it
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(member), &task); err != nil {
			s.log.Error("Dropping malformed expiry task", zap.Error(err), zap.String("member", member))
			continue
		}

		if !s.pool.submit(ctx, task) {
			// shutting down: give the claim back
			s.requeue(task, 0)
			return dispatched, ctx.Err()
		}
		dispatched++
	}

	return dispatched, nil
}

// Len returns how many checks are waiting in the sorted set.
func (s *RedisScheduler) Len(ctx context.Context) (int64, error) {
	return s.client.ZCard(ctx, s.opts.Key).Result()
}

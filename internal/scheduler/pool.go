package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booth-waitlist/internal/data/entity"

	"go.uber.org/zap"
)

// pool drains a bounded job channel with a fixed set of workers. A failed
// task is handed to retry until MaxAttempts is reached.
type pool struct {
	opts    Options
	log     *zap.Logger
	jobs    chan Task
	retry   func(task Task, delay time.Duration)
	handler Handler
	wg      sync.WaitGroup
}

func newPool(opts Options, log *zap.Logger, retry func(Task, time.Duration)) *pool {
	return &pool{
		opts:  opts,
		log:   log,
		jobs:  make(chan Task, opts.QueueSize),
		retry: retry,
	}
}

func (p *pool) start(ctx context.Context, handler Handler) {
	p.handler = handler
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *pool) wait() {
	p.wg.Wait()
}

// drain empties the job queue. Call it only after wait, once no worker can
// take from the queue.
func (p *pool) drain() []Task {
	var left []Task
	for {
		select {
		case task := <-p.jobs:
			left = append(left, task)
		default:
			return left
		}
	}
}

// submit blocks until the task is queued or ctx ends.
func (p *pool) submit(ctx context.Context, task Task) bool {
	select {
	case p.jobs <- task:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.jobs:
			p.run(ctx, task, id)
		}
	}
}

func (p *pool) run(ctx context.Context, task Task, worker int) {
	taskCtx, cancel := context.WithTimeout(ctx, p.opts.TaskTimeout)
	defer cancel()

	err := p.safeHandle(taskCtx, task)
	if err == nil {
		return
	}

	// interrupted by Stop: hand it back without spending an attempt
	if ctx.Err() != nil {
		p.log.Info("Expiry check interrupted by shutdown",
			zap.String("waiting_id", task.WaitingID.String()),
			zap.String("kind", task.Kind.String()),
		)
		p.retry(task, 0)
		return
	}

	attempt := task.Attempt + 1
	if attempt >= p.opts.MaxAttempts {
		p.log.Error("Expiry check dropped after retries",
			zap.Error(fmt.Errorf("%w: %v", entity.ErrSchedulerDelivery, err)),
			zap.String("waiting_id", task.WaitingID.String()),
			zap.String("kind", task.Kind.String()),
			zap.Int("attempts", attempt),
		)
		return
	}

	delay := backoff(p.opts.RetryBackoff, task.Attempt)
	p.log.Warn("Expiry check failed, retrying",
		zap.Error(err),
		zap.String("waiting_id", task.WaitingID.String()),
		zap.Int("worker", worker),
		zap.Int("attempt", attempt),
		zap.Duration("backoff", delay),
	)

	task.Attempt = attempt
	p.retry(task, delay)
}

func (p *pool) safeHandle(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler(ctx, task)
}

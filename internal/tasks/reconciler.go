// Package tasks holds the periodic background jobs.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OverdueReconciler expires tickets whose confirmation window closed without
// an expiry check running.
type OverdueReconciler interface {
	ReconcileOverdue(ctx context.Context, boothID uuid.UUID, limit int) (int, error)
}

// Reconciler sweeps every booth on a cron schedule. It backs up the expiry
// scheduler, which loses pending checks when the process restarts.
type Reconciler struct {
	cron      *cron.Cron
	target    OverdueReconciler
	batchSize int
	timeout   time.Duration
	log       *zap.Logger
}

func NewReconciler(spec string, batchSize int, target OverdueReconciler, log *zap.Logger) (*Reconciler, error) {
	log = log.With(zap.String("task", "reconciler"))
	cronLog := cronLogger{log: log.Sugar()}

	r := &Reconciler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		target:    target,
		batchSize: batchSize,
		timeout:   time.Minute,
		log:       log,
	}

	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("add reconcile job %q: %w", spec, err)
	}
	return r, nil
}

func (r *Reconciler) Start() {
	r.cron.Start()
	r.log.Info("Reconciler started")
}

// Stop waits for a running sweep to finish.
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("Reconciler stopped")
}

// RunOnce performs a single sweep and returns the number of expired tickets.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	expired, err := r.target.ReconcileOverdue(ctx, uuid.Nil, r.batchSize)
	if err != nil {
		r.log.Error("Reconcile sweep failed", zap.Error(err), zap.Int("expired", expired))
		return expired
	}
	if expired > 0 {
		r.log.Info("Reconcile sweep expired waitings", zap.Int("expired", expired))
	}
	return expired
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

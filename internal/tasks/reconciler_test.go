package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTarget struct {
	calls   atomic.Int32
	expired int
	err     error
	booth   uuid.UUID
	limit   int
}

func (f *fakeTarget) ReconcileOverdue(ctx context.Context, boothID uuid.UUID, limit int) (int, error) {
	f.calls.Add(1)
	f.booth, f.limit = boothID, limit
	return f.expired, f.err
}

func TestReconciler_RunOnce(t *testing.T) {
	target := &fakeTarget{expired: 3}
	r, err := NewReconciler("@every 30s", 50, target, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, r.RunOnce(context.Background()))
	assert.Equal(t, uuid.Nil, target.booth, "sweeps all booths")
	assert.Equal(t, 50, target.limit)

	target.err = errors.New("db down")
	target.expired = 1
	assert.Equal(t, 1, r.RunOnce(context.Background()))
}

func TestReconciler_RunsOnSchedule(t *testing.T) {
	target := &fakeTarget{}
	r, err := NewReconciler("@every 1s", 10, target, zap.NewNop())
	require.NoError(t, err)

	r.Start()
	t.Cleanup(r.Stop)

	require.Eventually(t, func() bool { return target.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestReconciler_InvalidSpec(t *testing.T) {
	_, err := NewReconciler("every now and then", 10, &fakeTarget{}, zap.NewNop())
	assert.Error(t, err)
}

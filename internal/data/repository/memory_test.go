package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"booth-waitlist/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)

func newTicket(t *testing.T, booth uuid.UUID, at time.Time) *entity.Waiting {
	t.Helper()
	w, err := entity.NewWaiting(uuid.New(), booth, 2, at)
	require.NoError(t, err)
	return w
}

func TestMemoryWaiting_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting

	w := newTicket(t, uuid.New(), t0)
	require.NoError(t, repo.Create(ctx, w, entity.ActorUser))

	got, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	got.Status = entity.WaitingStatusArrived
	again, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitingStatusWaiting, again.Status, "reads return copies")

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	events, err := repo.FindEvents(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, entity.WaitingStatus(""), events[0].FromStatus)
	assert.Equal(t, entity.WaitingStatusWaiting, events[0].ToStatus)
}

func TestMemoryWaiting_Ordering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting
	booth := uuid.New()

	late := newTicket(t, booth, t0.Add(2*time.Minute))
	early := newTicket(t, booth, t0)
	mid := newTicket(t, booth, t0.Add(time.Minute))
	other := newTicket(t, uuid.New(), t0)
	for _, w := range []*entity.Waiting{late, early, mid, other} {
		require.NoError(t, repo.Create(ctx, w, entity.ActorUser))
	}

	mid.MarkReadyToConfirm(t0.Add(3 * time.Minute))
	require.NoError(t, repo.UpdateStatus(ctx, mid, entity.WaitingStatusWaiting, entity.ActorAdmin))

	all, err := repo.FindByBooth(ctx, booth)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{early.ID, mid.ID, late.ID}, ids(all))

	waiting, err := repo.FindByBoothAndStatuses(ctx, booth, []entity.WaitingStatus{entity.WaitingStatusWaiting})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{early.ID, late.ID}, ids(waiting))

	counts, err := repo.CountByBoothGroupedByStatus(ctx, booth)
	require.NoError(t, err)
	assert.Equal(t, map[entity.WaitingStatus]int{
		entity.WaitingStatusWaiting:        2,
		entity.WaitingStatusReadyToConfirm: 1,
	}, counts)
}

func TestMemoryWaiting_FindByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting
	user := uuid.New()

	first, _ := entity.NewWaiting(user, uuid.New(), 1, t0)
	second, _ := entity.NewWaiting(user, uuid.New(), 1, t0.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, first, entity.ActorUser))
	require.NoError(t, repo.Create(ctx, second, entity.ActorUser))

	got, err := repo.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID}, ids(got))
}

func TestMemoryWaiting_UpdateStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting

	w := newTicket(t, uuid.New(), t0)
	require.NoError(t, repo.Create(ctx, w, entity.ActorUser))

	called := w.Clone()
	require.NoError(t, called.MarkReadyToConfirm(t0.Add(time.Minute)))
	require.NoError(t, repo.UpdateStatus(ctx, called, entity.WaitingStatusWaiting, entity.ActorAdmin))

	// a second writer still holding the old status loses
	stale := w.Clone()
	require.NoError(t, stale.MarkCanceled(t0.Add(2*time.Minute)))
	err := repo.UpdateStatus(ctx, stale, entity.WaitingStatusWaiting, entity.ActorUser)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))

	got, err := repo.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitingStatusReadyToConfirm, got.Status)
	assert.Nil(t, got.CanceledAt)

	missing := newTicket(t, uuid.New(), t0)
	err = repo.UpdateStatus(ctx, missing, entity.WaitingStatusWaiting, entity.ActorUser)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	events, err := repo.FindEvents(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entity.WaitingStatusWaiting, events[1].FromStatus)
	assert.Equal(t, entity.WaitingStatusReadyToConfirm, events[1].ToStatus)
	assert.Equal(t, entity.ActorAdmin, events[1].Actor)
}

func TestMemoryWaiting_ConcurrentUpdatesHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting

	w := newTicket(t, uuid.New(), t0)
	require.NoError(t, repo.Create(ctx, w, entity.ActorUser))

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := w.Clone()
			c.MarkCanceled(t0.Add(time.Minute))
			results <- repo.UpdateStatus(ctx, c, entity.WaitingStatusWaiting, entity.ActorUser)
		}()
	}
	wg.Wait()
	close(results)

	var ok, lost int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, entity.ErrInvalidTransition):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, lost)
}

func TestMemoryWaiting_FindOverdue(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop()).Waiting
	booth := uuid.New()

	old := newTicket(t, booth, t0)
	fresh := newTicket(t, booth, t0)
	elsewhere := newTicket(t, uuid.New(), t0)
	for i, w := range []*entity.Waiting{old, fresh, elsewhere} {
		require.NoError(t, repo.Create(ctx, w, entity.ActorUser))
		calledAt := t0.Add(time.Duration(i) * time.Minute)
		if w == fresh {
			calledAt = t0.Add(10 * time.Minute)
		}
		require.NoError(t, w.MarkReadyToConfirm(calledAt))
		require.NoError(t, repo.UpdateStatus(ctx, w, entity.WaitingStatusWaiting, entity.ActorAdmin))
	}

	got, err := repo.FindOverdue(ctx, OverdueFilter{
		Status: entity.WaitingStatusReadyToConfirm,
		Before: t0.Add(5 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID, elsewhere.ID}, ids(got))

	got, err = repo.FindOverdue(ctx, OverdueFilter{
		Status:  entity.WaitingStatusReadyToConfirm,
		Before:  t0.Add(5 * time.Minute),
		BoothID: booth,
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID}, ids(got))

	_, err = repo.FindOverdue(ctx, OverdueFilter{Status: entity.WaitingStatusWaiting, Before: t0})
	assert.True(t, errors.Is(err, entity.ErrInvalidArgument))
}

func TestMemoryBoothAndAdmin(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop())

	booth := &entity.Booth{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: t0, UpdatedAt: t0},
		Name:           "Coffee",
		OperatedStatus: entity.BoothStatusNotStarted,
	}
	require.NoError(t, repo.Booth.Create(ctx, booth))

	require.NoError(t, booth.SetOperatedStatus(entity.BoothStatusOperating, t0.Add(time.Hour)))
	require.NoError(t, repo.Booth.UpdateOperatedStatus(ctx, booth))

	got, err := repo.Booth.FindByID(ctx, booth.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BoothStatusOperating, got.OperatedStatus)
	require.NotNil(t, got.OpenTime)
	assert.Equal(t, t0.Add(time.Hour), *got.OpenTime)

	_, err = repo.Booth.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	admin := &entity.Admin{Base: entity.Base{ID: uuid.New(), CreatedAt: t0}, BoothID: booth.ID, AdminCodeHash: "hash"}
	require.NoError(t, repo.Admin.Create(ctx, admin))

	admins, err := repo.Admin.FindByBoothID(ctx, booth.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].ID)
}

func TestMemoryBooth_CreateWithAdminIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop())

	booth := &entity.Booth{Base: entity.Base{ID: uuid.New(), CreatedAt: t0}, Name: "Tea"}
	stray := &entity.Admin{Base: entity.Base{ID: uuid.New(), CreatedAt: t0}, BoothID: uuid.New(), AdminCodeHash: "hash"}

	err := repo.Booth.Create(ctx, booth, stray)
	assert.ErrorIs(t, err, entity.ErrInvalidArgument)

	_, err = repo.Booth.FindByID(ctx, booth.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	own := &entity.Admin{Base: entity.Base{ID: uuid.New(), CreatedAt: t0}, BoothID: booth.ID, AdminCodeHash: "hash"}
	require.NoError(t, repo.Booth.Create(ctx, booth, own))

	admins, err := repo.Admin.FindByBoothID(ctx, booth.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, own.ID, admins[0].ID)
}

func ids(ws []*entity.Waiting) []uuid.UUID {
	out := make([]uuid.UUID, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

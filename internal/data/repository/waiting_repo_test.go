package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to TEST_DATABASE_URL and applies the migrations.
func openTestDB(t *testing.T) database.PgxIface {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func TestPostgresWaiting_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db, zap.NewNop())

	now := time.Now().UTC().Truncate(time.Microsecond)
	booth := &entity.Booth{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:           "integration",
		OperatedStatus: entity.BoothStatusOperating,
	}
	require.NoError(t, repo.Booth.Create(ctx, booth))

	w, err := entity.NewWaiting(uuid.New(), booth.ID, 3, now)
	require.NoError(t, err)
	require.NoError(t, repo.Waiting.Create(ctx, w, entity.ActorUser))

	got, err := repo.Waiting.FindByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitingStatusWaiting, got.Status)
	assert.Equal(t, 3, got.PartySize)

	called := got.Clone()
	require.NoError(t, called.MarkReadyToConfirm(now.Add(time.Second)))
	require.NoError(t, repo.Waiting.UpdateStatus(ctx, called, entity.WaitingStatusWaiting, entity.ActorAdmin))

	stale := got.Clone()
	require.NoError(t, stale.MarkCanceled(now.Add(2*time.Second)))
	err = repo.Waiting.UpdateStatus(ctx, stale, entity.WaitingStatusWaiting, entity.ActorUser)
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))

	ghost, _ := entity.NewWaiting(uuid.New(), booth.ID, 1, now)
	err = repo.Waiting.UpdateStatus(ctx, ghost, entity.WaitingStatusWaiting, entity.ActorUser)
	assert.True(t, errors.Is(err, entity.ErrNotFound))

	calling, err := repo.Waiting.FindByBoothAndStatuses(ctx, booth.ID, entity.WaitingGroupCalling.Statuses())
	require.NoError(t, err)
	require.Len(t, calling, 1)
	assert.Equal(t, w.ID, calling[0].ID)

	overdue, err := repo.Waiting.FindOverdue(ctx, OverdueFilter{
		Status:  entity.WaitingStatusReadyToConfirm,
		Before:  now.Add(time.Hour),
		BoothID: booth.ID,
	})
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	events, err := repo.Waiting.FindEvents(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entity.WaitingStatus(""), events[0].FromStatus)
	assert.Equal(t, entity.WaitingStatusReadyToConfirm, events[1].ToStatus)

	_, err = repo.Waiting.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestPostgresBooth_CreateRollsBackOnAdminFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRepository(db, zap.NewNop())

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := &entity.Booth{Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Name: "first", OperatedStatus: entity.BoothStatusNotStarted}
	admin := &entity.Admin{Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, BoothID: first.ID, AdminCodeHash: "hash"}
	require.NoError(t, repo.Booth.Create(ctx, first, admin))

	// reusing the admin id violates the primary key after the booth row is written
	second := &entity.Booth{Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Name: "second", OperatedStatus: entity.BoothStatusNotStarted}
	dup := &entity.Admin{Base: admin.Base, BoothID: second.ID, AdminCodeHash: "hash"}
	require.Error(t, repo.Booth.Create(ctx, second, dup))

	_, err := repo.Booth.FindByID(ctx, second.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	admins, err := repo.Admin.FindByBoothID(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

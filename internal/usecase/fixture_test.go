package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/scheduler"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC)

const testAdminCode = "1234"

type scheduledCall struct {
	WaitingID uuid.UUID
	Kind      entity.WaitingStatus
	Delay     time.Duration
}

// recordingScheduler only records; tests drive expiry by hand.
type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduledCall
	err   error
}

func (r *recordingScheduler) Schedule(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, scheduledCall{WaitingID: waitingID, Kind: kind, Delay: delay})
	return nil
}

func (r *recordingScheduler) Start(ctx context.Context, handler scheduler.Handler) error { return nil }
func (r *recordingScheduler) Stop()                                                    {}

func (r *recordingScheduler) scheduled() []scheduledCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]scheduledCall(nil), r.calls...)
}

func testConfig() *utils.Config {
	return &utils.Config{
		JWT: utils.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		Waiting: utils.WaitingConfig{
			ReadyToConfirmWindow: 180 * time.Second,
			ConfirmedWindow:      600 * time.Second,
			ExpiryGrace:          time.Second,
			MaxPartySize:         20,
		},
	}
}

type fixture struct {
	svc   *Service
	repo  *repository.Repository
	clock *clock.FakeClock
	sched *recordingScheduler
	booth *entity.Booth
	admin entity.AdminContext
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fc := clock.Fake(t0)
	repo := repository.NewMemoryRepository(zap.NewNop())
	sched := &recordingScheduler{}
	svc := NewService(repo, sched, fc, testConfig(), zap.NewNop())

	booth, admin, err := svc.Admin.RegisterBooth(context.Background(), &request.RegisterBoothRequest{
		Name:      "Photo booth",
		Location:  "Hall A",
		AdminCode: testAdminCode,
	})
	require.NoError(t, err)

	return &fixture{
		svc:   svc,
		repo:  repo,
		clock: fc,
		sched: sched,
		booth: booth,
		admin: entity.AdminContext{AdminID: admin.ID, BoothID: booth.ID},
	}
}

// register creates a ticket for a fresh user and moves the clock one second
// so registration times are distinct.
func (f *fixture) register(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	user := uuid.New()
	resp, err := f.svc.Waiting.CreateWaiting(context.Background(), user, &request.CreateWaitingRequest{
		BoothID:   f.booth.ID.String(),
		PartySize: 2,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	return user, uuid.MustParse(resp.ID)
}

func (f *fixture) load(t *testing.T, id uuid.UUID) *entity.Waiting {
	t.Helper()
	w, err := f.repo.Waiting.FindByID(context.Background(), id)
	require.NoError(t, err)
	return w
}

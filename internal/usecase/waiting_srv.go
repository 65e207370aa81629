package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/dto/response"
	"booth-waitlist/internal/scheduler"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrWindowOpen means an expiry check ran before the ticket's window closed.
var ErrWindowOpen = errors.New("confirmation window still open")

var tracer = otel.Tracer("booth-waitlist/usecase")

type WaitingService interface {
	CreateWaiting(ctx context.Context, userID uuid.UUID, req *request.CreateWaitingRequest) (*response.WaitingResponse, error)
	GetUserWaiting(ctx context.Context, userID, waitingID uuid.UUID) (*response.WaitingDetailResponse, error)
	ListUserWaitings(ctx context.Context, userID uuid.UUID) ([]response.WaitingResponse, error)

	// UserTransition and AdminTransition check who may run the action on
	// which ticket before delegating to Transition.
	UserTransition(ctx context.Context, userID, waitingID uuid.UUID, action string) (*response.WaitingResponse, error)
	AdminTransition(ctx context.Context, admin entity.AdminContext, waitingID uuid.UUID, action string) (*response.WaitingResponse, error)
	Transition(ctx context.Context, waitingID uuid.UUID, action entity.WaitingAction, actor entity.Actor) (*entity.Waiting, error)

	// ExpireWaiting moves a ticket still in kind and past its window to
	// time_over_canceled. It fails with entity.ErrInvalidTransition when the
	// ticket has left kind, including when a concurrent writer wins.
	ExpireWaiting(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus) (*entity.Waiting, error)
	HandleExpiry(ctx context.Context, task scheduler.Task) error
	ReconcileOverdue(ctx context.Context, boothID uuid.UUID, limit int) (int, error)

	ExpiresAt(w *entity.Waiting) *time.Time
}

type waitingService struct {
	repo      *repository.Repository
	scheduler scheduler.Scheduler
	clock     clock.Clock
	config    utils.WaitingConfig
	log       *zap.Logger
}

func NewWaitingService(repo *repository.Repository, sched scheduler.Scheduler, c clock.Clock, config utils.WaitingConfig, log *zap.Logger) WaitingService {
	return &waitingService{
		repo:      repo,
		scheduler: sched,
		clock:     c,
		config:    config,
		log:       log.With(zap.String("service", "waiting")),
	}
}

func (s *waitingService) CreateWaiting(ctx context.Context, userID uuid.UUID, req *request.CreateWaitingRequest) (*response.WaitingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create waiting validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}
	if req.PartySize > s.config.MaxPartySize {
		return nil, fmt.Errorf("%w: party size %d exceeds %d", entity.ErrInvalidArgument, req.PartySize, s.config.MaxPartySize)
	}

	boothID, err := uuid.Parse(req.BoothID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booth ID %s", entity.ErrInvalidArgument, req.BoothID)
	}

	booth, err := s.repo.Booth.FindByID(ctx, boothID)
	if err != nil {
		return nil, fmt.Errorf("find booth for waiting: %w", err)
	}
	if !booth.AcceptsWaitings() {
		return nil, fmt.Errorf("%w: booth %s is %s", entity.ErrInvalidTransition, booth.ID, booth.OperatedStatus)
	}

	waiting, err := entity.NewWaiting(userID, boothID, req.PartySize, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Waiting.Create(ctx, waiting, entity.ActorUser); err != nil {
		s.log.Error("Failed to create waiting", zap.Error(err), zap.String("booth_id", boothID.String()))
		return nil, fmt.Errorf("create waiting: %w", err)
	}

	s.log.Info("Waiting registered",
		zap.String("waiting_id", waiting.ID.String()),
		zap.String("booth_id", boothID.String()),
		zap.Int("party_size", waiting.PartySize),
	)

	resp := response.WaitingToResponse(waiting, nil)
	return &resp, nil
}

func (s *waitingService) GetUserWaiting(ctx context.Context, userID, waitingID uuid.UUID) (*response.WaitingDetailResponse, error) {
	waiting, err := s.ownWaiting(ctx, userID, waitingID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.Waiting.FindEvents(ctx, waitingID)
	if err != nil {
		return nil, fmt.Errorf("load waiting history: %w", err)
	}

	return &response.WaitingDetailResponse{
		WaitingResponse: response.WaitingToResponse(waiting, s.ExpiresAt(waiting)),
		History:         response.WaitingEventsToResponse(events),
	}, nil
}

func (s *waitingService) ListUserWaitings(ctx context.Context, userID uuid.UUID) ([]response.WaitingResponse, error) {
	waitings, err := s.repo.Waiting.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list waitings for user %s: %w", userID, err)
	}
	return s.toResponses(waitings), nil
}

func (s *waitingService) UserTransition(ctx context.Context, userID, waitingID uuid.UUID, action string) (*response.WaitingResponse, error) {
	act, err := entity.ParseWaitingAction(action)
	if err != nil {
		return nil, err
	}
	if !act.AllowedFor(entity.ActorUser) {
		return nil, fmt.Errorf("%w: users cannot %s a waiting", entity.ErrForbidden, act)
	}

	waiting, err := s.ownWaiting(ctx, userID, waitingID)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, waiting, act, entity.ActorUser)
	if err != nil {
		return nil, err
	}
	resp := response.WaitingToResponse(updated, s.ExpiresAt(updated))
	return &resp, nil
}

func (s *waitingService) AdminTransition(ctx context.Context, admin entity.AdminContext, waitingID uuid.UUID, action string) (*response.WaitingResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}

	act, err := entity.ParseWaitingAction(action)
	if err != nil {
		return nil, err
	}
	if !act.AllowedFor(entity.ActorAdmin) {
		return nil, fmt.Errorf("%w: admins cannot %s a waiting", entity.ErrForbidden, act)
	}

	waiting, err := s.repo.Waiting.FindByID(ctx, waitingID)
	if err != nil {
		return nil, err
	}
	if waiting.BoothID != admin.BoothID {
		s.log.Warn("Admin touched a waiting of another booth",
			zap.String("admin_id", admin.AdminID.String()),
			zap.String("waiting_id", waitingID.String()),
		)
		return nil, fmt.Errorf("%w: waiting %s belongs to another booth", entity.ErrForbidden, waitingID)
	}

	updated, err := s.transition(ctx, waiting, act, entity.ActorAdmin)
	if err != nil {
		return nil, err
	}
	resp := response.WaitingToResponse(updated, s.ExpiresAt(updated))
	return &resp, nil
}

func (s *waitingService) Transition(ctx context.Context, waitingID uuid.UUID, action entity.WaitingAction, actor entity.Actor) (*entity.Waiting, error) {
	waiting, err := s.repo.Waiting.FindByID(ctx, waitingID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, waiting, action, actor)
}

// transition applies action to a loaded ticket, persists it keyed on the
// loaded status and only then schedules the expiry check.
func (s *waitingService) transition(ctx context.Context, waiting *entity.Waiting, action entity.WaitingAction, actor entity.Actor) (*entity.Waiting, error) {
	ctx, span := tracer.Start(ctx, "waiting.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("waiting.id", waiting.ID.String()),
		attribute.String("waiting.action", string(action)),
		attribute.String("waiting.actor", string(actor)),
	)

	from := waiting.Status
	next := waiting.Clone()
	if err := next.Apply(action, s.clock.Now()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.repo.Waiting.UpdateStatus(ctx, next, from, actor); err != nil {
		span.RecordError(err)
		if errors.Is(err, entity.ErrInvalidTransition) {
			s.log.Info("Transition lost a race",
				zap.String("waiting_id", waiting.ID.String()),
				zap.String("action", string(action)),
			)
			return nil, err
		}
		s.log.Error("Failed to persist transition", zap.Error(err), zap.String("waiting_id", waiting.ID.String()))
		return nil, fmt.Errorf("persist waiting %s: %w", waiting.ID, err)
	}

	s.log.Info("Waiting transitioned",
		zap.String("waiting_id", next.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", next.Status.String()),
		zap.String("actor", string(actor)),
	)

	if window, ok := s.window(next.Status); ok {
		s.scheduleExpiry(ctx, next.ID, next.Status, window+s.config.ExpiryGrace)
	}

	return next, nil
}

// scheduleExpiry never fails the caller. A lost check is picked up by the
// reconciler.
func (s *waitingService) scheduleExpiry(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, delay time.Duration) {
	if err := s.scheduler.Schedule(ctx, waitingID, kind, delay); err != nil {
		s.log.Error("Failed to schedule expiry check",
			zap.Error(fmt.Errorf("%w: %v", entity.ErrSchedulerDelivery, err)),
			zap.String("waiting_id", waitingID.String()),
			zap.String("kind", kind.String()),
		)
	}
}

func (s *waitingService) ExpireWaiting(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus) (*entity.Waiting, error) {
	w, _, err := s.expire(ctx, waitingID, kind, entity.ActorScheduler)
	return w, err
}

// expire returns the time left in the window alongside ErrWindowOpen.
func (s *waitingService) expire(ctx context.Context, waitingID uuid.UUID, kind entity.WaitingStatus, actor entity.Actor) (*entity.Waiting, time.Duration, error) {
	window, ok := s.window(kind)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s has no expiry window", entity.ErrInvalidArgument, kind)
	}

	waiting, err := s.repo.Waiting.FindByID(ctx, waitingID)
	if err != nil {
		return nil, 0, err
	}
	if waiting.Status != kind {
		return nil, 0, fmt.Errorf("%w: waiting %s is %s, not %s", entity.ErrInvalidTransition, waitingID, waiting.Status, kind)
	}

	now := s.clock.Now()
	expired := waiting.IsReadyToConfirmExpired(now, window)
	if kind == entity.WaitingStatusConfirmed {
		expired = waiting.IsConfirmedExpired(now, window)
	}
	if !expired {
		remaining := window
		if deadline := s.ExpiresAt(waiting); deadline != nil {
			remaining = deadline.Sub(now)
		}
		return nil, remaining, fmt.Errorf("%w: waiting %s", ErrWindowOpen, waitingID)
	}

	next := waiting.Clone()
	if err := next.MarkTimeOverCanceled(now); err != nil {
		return nil, 0, err
	}
	if err := s.repo.Waiting.UpdateStatus(ctx, next, kind, actor); err != nil {
		return nil, 0, err
	}

	s.log.Info("Waiting expired",
		zap.String("waiting_id", waitingID.String()),
		zap.String("from", kind.String()),
		zap.String("actor", string(actor)),
	)
	return next, 0, nil
}

// HandleExpiry is the scheduler callback. Only storage failures are returned,
// so the scheduler retries exactly those.
func (s *waitingService) HandleExpiry(ctx context.Context, task scheduler.Task) error {
	ctx, span := tracer.Start(ctx, "waiting.expiry_check")
	defer span.End()
	span.SetAttributes(
		attribute.String("waiting.id", task.WaitingID.String()),
		attribute.String("waiting.kind", task.Kind.String()),
		attribute.Int("task.attempt", task.Attempt),
	)

	_, remaining, err := s.expire(ctx, task.WaitingID, task.Kind, entity.ActorScheduler)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entity.ErrNotFound):
		s.log.Warn("Expiry check for missing waiting", zap.String("waiting_id", task.WaitingID.String()))
		return nil
	case errors.Is(err, entity.ErrInvalidTransition):
		s.log.Debug("Expiry check no longer applies",
			zap.String("waiting_id", task.WaitingID.String()),
			zap.String("kind", task.Kind.String()),
		)
		return nil
	case errors.Is(err, ErrWindowOpen):
		s.log.Debug("Expiry check fired early, rescheduling",
			zap.String("waiting_id", task.WaitingID.String()),
			zap.Duration("remaining", remaining),
		)
		s.scheduleExpiry(ctx, task.WaitingID, task.Kind, remaining+s.config.ExpiryGrace)
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("Expiry check failed", zap.Error(err), zap.String("waiting_id", task.WaitingID.String()))
		return err
	}
}

// defaultReconcileBatch applies when ReconcileOverdue gets a non-positive limit.
const defaultReconcileBatch = 100

// ReconcileOverdue expires tickets whose window closed without a check
// running. A nil boothID sweeps every booth. limit is the batch size per
// query; batches repeat until one comes back short or makes no progress.
func (s *waitingService) ReconcileOverdue(ctx context.Context, boothID uuid.UUID, limit int) (int, error) {
	ctx, span := tracer.Start(ctx, "waiting.reconcile")
	defer span.End()

	if limit <= 0 {
		limit = defaultReconcileBatch
	}

	expired := 0
	var errs []error

	for _, kind := range []entity.WaitingStatus{entity.WaitingStatusReadyToConfirm, entity.WaitingStatusConfirmed} {
		for {
			n, full, err := s.reconcileBatch(ctx, boothID, kind, limit)
			expired += n
			if err != nil {
				errs = append(errs, err)
				break
			}
			if !full || n == 0 {
				break
			}
		}
	}

	span.SetAttributes(attribute.Int("waiting.expired", expired))
	if expired > 0 {
		s.log.Info("Reconciled overdue waitings", zap.Int("expired", expired), zap.String("booth_id", boothID.String()))
	}
	return expired, errors.Join(errs...)
}

// reconcileBatch expires one batch of overdue tickets in kind. full reports
// whether the query returned a whole batch, so more may be waiting.
func (s *waitingService) reconcileBatch(ctx context.Context, boothID uuid.UUID, kind entity.WaitingStatus, limit int) (int, bool, error) {
	window, _ := s.window(kind)
	overdue, err := s.repo.Waiting.FindOverdue(ctx, repository.OverdueFilter{
		Status:  kind,
		Before:  s.clock.Now().Add(-window),
		BoothID: boothID,
		Limit:   limit,
	})
	if err != nil {
		return 0, false, err
	}

	expired := 0
	var errs []error
	for _, w := range overdue {
		_, _, err := s.expire(ctx, w.ID, kind, entity.ActorSystem)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, entity.ErrInvalidTransition), errors.Is(err, entity.ErrNotFound), errors.Is(err, ErrWindowOpen):
		default:
			errs = append(errs, err)
		}
	}
	return expired, len(overdue) == limit, errors.Join(errs...)
}

// ExpiresAt is when the current confirmation window closes, or nil.
func (s *waitingService) ExpiresAt(w *entity.Waiting) *time.Time {
	var stamp *time.Time
	switch w.Status {
	case entity.WaitingStatusReadyToConfirm:
		stamp = w.ReadyToConfirmAt
	case entity.WaitingStatusConfirmed:
		stamp = w.ConfirmedAt
	}
	window, ok := s.window(w.Status)
	if stamp == nil || !ok {
		return nil
	}
	t := stamp.Add(window)
	return &t
}

func (s *waitingService) window(status entity.WaitingStatus) (time.Duration, bool) {
	switch status {
	case entity.WaitingStatusReadyToConfirm:
		return s.config.ReadyToConfirmWindow, true
	case entity.WaitingStatusConfirmed:
		return s.config.ConfirmedWindow, true
	default:
		return 0, false
	}
}

// ownWaiting hides tickets of other users behind ErrNotFound.
func (s *waitingService) ownWaiting(ctx context.Context, userID, waitingID uuid.UUID) (*entity.Waiting, error) {
	waiting, err := s.repo.Waiting.FindByID(ctx, waitingID)
	if err != nil {
		return nil, err
	}
	if waiting.UserID != userID {
		return nil, fmt.Errorf("waiting %s: %w", waitingID, entity.ErrNotFound)
	}
	return waiting, nil
}

func (s *waitingService) toResponses(waitings []*entity.Waiting) []response.WaitingResponse {
	out := make([]response.WaitingResponse, 0, len(waitings))
	for _, w := range waitings {
		out = append(out, response.WaitingToResponse(w, s.ExpiresAt(w)))
	}
	return out
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"booth-waitlist/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryStore backs the in-memory repositories. One mutex guards every map,
// which makes UpdateStatus a compare-and-swap on the stored status.
type memoryStore struct {
	mu       sync.RWMutex
	waitings map[uuid.UUID]*entity.Waiting
	events   map[uuid.UUID][]*entity.WaitingStatusEvent
	booths   map[uuid.UUID]*entity.Booth
	admins   map[uuid.UUID]*entity.Admin
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		waitings: make(map[uuid.UUID]*entity.Waiting),
		events:   make(map[uuid.UUID][]*entity.WaitingStatusEvent),
		booths:   make(map[uuid.UUID]*entity.Booth),
		admins:   make(map[uuid.UUID]*entity.Admin),
	}
}

type memoryWaitingRepository struct {
	store *memoryStore
	log   *zap.Logger
}

func NewMemoryWaitingRepository(log *zap.Logger) WaitingRepository {
	return newMemoryWaitingRepository(newMemoryStore(), log)
}

func newMemoryWaitingRepository(store *memoryStore, log *zap.Logger) *memoryWaitingRepository {
	return &memoryWaitingRepository{
		store: store,
		log:   log.With(zap.String("repository", "waiting_memory")),
	}
}

func (r *memoryWaitingRepository) Create(ctx context.Context, waiting *entity.Waiting, actor entity.Actor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.waitings[waiting.ID]; exists {
		return fmt.Errorf("create waiting %s: duplicate id", waiting.ID)
	}
	r.store.waitings[waiting.ID] = waiting.Clone()
	r.store.events[waiting.ID] = append(r.store.events[waiting.ID], entity.NewWaitingStatusEvent(waiting, "", actor))
	return nil
}

func (r *memoryWaitingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Waiting, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	w, ok := r.store.waitings[id]
	if !ok {
		return nil, fmt.Errorf("waiting %s: %w", id, entity.ErrNotFound)
	}
	return w.Clone(), nil
}

func (r *memoryWaitingRepository) FindByBooth(ctx context.Context, boothID uuid.UUID) ([]*entity.Waiting, error) {
	return r.filter(func(w *entity.Waiting) bool { return w.BoothID == boothID }, false), nil
}

func (r *memoryWaitingRepository) FindByBoothAndStatuses(ctx context.Context, boothID uuid.UUID, statuses []entity.WaitingStatus) ([]*entity.Waiting, error) {
	set := make(map[entity.WaitingStatus]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return r.filter(func(w *entity.Waiting) bool {
		_, ok := set[w.Status]
		return ok && w.BoothID == boothID
	}, false), nil
}

func (r *memoryWaitingRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Waiting, error) {
	return r.filter(func(w *entity.Waiting) bool { return w.UserID == userID }, true), nil
}

func (r *memoryWaitingRepository) FindOverdue(ctx context.Context, filter OverdueFilter) ([]*entity.Waiting, error) {
	if _, err := stampColumn(filter.Status); err != nil {
		return nil, err
	}

	stampOf := func(w *entity.Waiting) *time.Time {
		if filter.Status == entity.WaitingStatusReadyToConfirm {
			return w.ReadyToConfirmAt
		}
		return w.ConfirmedAt
	}

	matches := r.filter(func(w *entity.Waiting) bool {
		if w.Status != filter.Status {
			return false
		}
		if filter.BoothID != uuid.Nil && w.BoothID != filter.BoothID {
			return false
		}
		at := stampOf(w)
		return at != nil && at.Before(filter.Before)
	}, false)

	sort.SliceStable(matches, func(i, j int) bool {
		return stampOf(matches[i]).Before(*stampOf(matches[j]))
	})

	if limit := limitOrDefault(filter.Limit); len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (r *memoryWaitingRepository) CountByBoothGroupedByStatus(ctx context.Context, boothID uuid.UUID) (map[entity.WaitingStatus]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[entity.WaitingStatus]int)
	for _, w := range r.store.waitings {
		if w.BoothID == boothID {
			counts[w.Status]++
		}
	}
	return counts, nil
}

func (r *memoryWaitingRepository) UpdateStatus(ctx context.Context, waiting *entity.Waiting, from entity.WaitingStatus, actor entity.Actor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.waitings[waiting.ID]
	if !ok {
		return fmt.Errorf("waiting %s: %w", waiting.ID, entity.ErrNotFound)
	}
	if current.Status != from {
		return fmt.Errorf("%w: waiting %s is no longer %s", entity.ErrInvalidTransition, waiting.ID, from)
	}

	next := waiting.Clone()
	// keep stamps that were already stored
	if current.ReadyToConfirmAt != nil {
		next.ReadyToConfirmAt = current.ReadyToConfirmAt
	}
	if current.ConfirmedAt != nil {
		next.ConfirmedAt = current.ConfirmedAt
	}
	if current.CanceledAt != nil {
		next.CanceledAt = current.CanceledAt
	}

	r.store.waitings[waiting.ID] = next
	r.store.events[waiting.ID] = append(r.store.events[waiting.ID], entity.NewWaitingStatusEvent(next, from, actor))
	return nil
}

func (r *memoryWaitingRepository) FindEvents(ctx context.Context, waitingID uuid.UUID) ([]*entity.WaitingStatusEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stored := r.store.events[waitingID]
	events := make([]*entity.WaitingStatusEvent, 0, len(stored))
	for _, e := range stored {
		c := *e
		events = append(events, &c)
	}
	return events, nil
}

// filter returns clones of the matching tickets ordered by registration time.
func (r *memoryWaitingRepository) filter(match func(*entity.Waiting) bool, newestFirst bool) []*entity.Waiting {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*entity.Waiting, 0)
	for _, w := range r.store.waitings {
		if match(w) {
			out = append(out, w.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}

type memoryBoothRepository struct {
	store *memoryStore
}

func (r *memoryBoothRepository) Create(ctx context.Context, booth *entity.Booth, admins ...*entity.Admin) error {
	if err := checkBoothAdmins(booth, admins); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c := *booth
	r.store.booths[booth.ID] = &c
	for _, admin := range admins {
		a := *admin
		r.store.admins[admin.ID] = &a
	}
	return nil
}

func (r *memoryBoothRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booth, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.booths[id]
	if !ok {
		return nil, fmt.Errorf("booth %s: %w", id, entity.ErrNotFound)
	}
	c := *b
	return &c, nil
}

func (r *memoryBoothRepository) UpdateOperatedStatus(ctx context.Context, booth *entity.Booth) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.booths[booth.ID]
	if !ok {
		return fmt.Errorf("booth %s: %w", booth.ID, entity.ErrNotFound)
	}
	next := *current
	next.OperatedStatus = booth.OperatedStatus
	next.UpdatedAt = booth.UpdatedAt
	if next.OpenTime == nil {
		next.OpenTime = booth.OpenTime
	}
	if next.CloseTime == nil {
		next.CloseTime = booth.CloseTime
	}
	r.store.booths[booth.ID] = &next
	return nil
}

type memoryAdminRepository struct {
	store *memoryStore
}

func (r *memoryAdminRepository) Create(ctx context.Context, admin *entity.Admin) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c := *admin
	r.store.admins[admin.ID] = &c
	return nil
}

func (r *memoryAdminRepository) FindByBoothID(ctx context.Context, boothID uuid.UUID) ([]*entity.Admin, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var admins []*entity.Admin
	for _, a := range r.store.admins {
		if a.BoothID == boothID {
			c := *a
			admins = append(admins, &c)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].CreatedAt.Before(admins[j].CreatedAt) })
	return admins, nil
}

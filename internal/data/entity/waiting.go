package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WaitingStatus string

const (
	WaitingStatusWaiting          WaitingStatus = "waiting"
	WaitingStatusReadyToConfirm   WaitingStatus = "ready_to_confirm"
	WaitingStatusConfirmed        WaitingStatus = "confirmed"
	WaitingStatusArrived          WaitingStatus = "arrived"
	WaitingStatusCanceled         WaitingStatus = "canceled"
	WaitingStatusTimeOverCanceled WaitingStatus = "time_over_canceled"
)

// transitions lists, per status, the statuses it may move to.
var transitions = map[WaitingStatus][]WaitingStatus{
	WaitingStatusWaiting:        {WaitingStatusReadyToConfirm, WaitingStatusCanceled},
	WaitingStatusReadyToConfirm: {WaitingStatusConfirmed, WaitingStatusCanceled, WaitingStatusTimeOverCanceled},
	WaitingStatusConfirmed:      {WaitingStatusArrived, WaitingStatusCanceled, WaitingStatusTimeOverCanceled},
}

func (s WaitingStatus) String() string {
	return string(s)
}

func (s WaitingStatus) IsValid() bool {
	switch s {
	case WaitingStatusWaiting, WaitingStatusReadyToConfirm, WaitingStatusConfirmed,
		WaitingStatusArrived, WaitingStatusCanceled, WaitingStatusTimeOverCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once no further transition is possible.
func (s WaitingStatus) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to WaitingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Waiting is one party's place in a booth queue.
type Waiting struct {
	ID               uuid.UUID     `db:"id"`
	UserID           uuid.UUID     `db:"user_id"`
	BoothID          uuid.UUID     `db:"booth_id"`
	PartySize        int           `db:"party_size"`
	Status           WaitingStatus `db:"status"`
	RegisteredAt     time.Time     `db:"registered_at"`
	ReadyToConfirmAt *time.Time    `db:"ready_to_confirm_at"`
	ConfirmedAt      *time.Time    `db:"confirmed_at"`
	CanceledAt       *time.Time    `db:"canceled_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

func NewWaiting(userID, boothID uuid.UUID, partySize int, now time.Time) (*Waiting, error) {
	if partySize < 1 {
		return nil, fmt.Errorf("%w: party size must be at least 1, got %d", ErrInvalidArgument, partySize)
	}

	return &Waiting{
		ID:           uuid.New(),
		UserID:       userID,
		BoothID:      boothID,
		PartySize:    partySize,
		Status:       WaitingStatusWaiting,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// MarkReadyToConfirm is the admin "call": the party has the ready-to-confirm
// window to confirm it is coming.
func (w *Waiting) MarkReadyToConfirm(now time.Time) error {
	if err := w.moveTo(WaitingStatusReadyToConfirm, now); err != nil {
		return err
	}
	stamp(&w.ReadyToConfirmAt, now)
	return nil
}

func (w *Waiting) MarkConfirmed(now time.Time) error {
	if err := w.moveTo(WaitingStatusConfirmed, now); err != nil {
		return err
	}
	stamp(&w.ConfirmedAt, now)
	return nil
}

func (w *Waiting) MarkArrived(now time.Time) error {
	return w.moveTo(WaitingStatusArrived, now)
}

func (w *Waiting) MarkCanceled(now time.Time) error {
	if err := w.moveTo(WaitingStatusCanceled, now); err != nil {
		return err
	}
	stamp(&w.CanceledAt, now)
	return nil
}

// MarkTimeOverCanceled is reserved for the expiry check.
func (w *Waiting) MarkTimeOverCanceled(now time.Time) error {
	if err := w.moveTo(WaitingStatusTimeOverCanceled, now); err != nil {
		return err
	}
	stamp(&w.CanceledAt, now)
	return nil
}

// IsReadyToConfirmExpired is true when more than window has passed since the
// ticket was called.
func (w *Waiting) IsReadyToConfirmExpired(now time.Time, window time.Duration) bool {
	return w.ReadyToConfirmAt != nil && now.Sub(*w.ReadyToConfirmAt) > window
}

// IsConfirmedExpired is true when more than window has passed since the
// party confirmed without arriving.
func (w *Waiting) IsConfirmedExpired(now time.Time, window time.Duration) bool {
	return w.ConfirmedAt != nil && now.Sub(*w.ConfirmedAt) > window
}

// Apply runs the transition behind a user or admin action.
func (w *Waiting) Apply(action WaitingAction, now time.Time) error {
	switch action {
	case WaitingActionCall:
		return w.MarkReadyToConfirm(now)
	case WaitingActionConfirm:
		return w.MarkConfirmed(now)
	case WaitingActionArrive:
		return w.MarkArrived(now)
	case WaitingActionCancel:
		return w.MarkCanceled(now)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, action)
	}
}

func (w *Waiting) moveTo(to WaitingStatus, now time.Time) error {
	if !CanTransition(w.Status, to) {
		return fmt.Errorf("%w: waiting %s cannot move from %s to %s", ErrInvalidTransition, w.ID, w.Status, to)
	}
	w.Status = to
	w.UpdatedAt = now
	return nil
}

// stamp sets a lifecycle timestamp once; later calls leave it untouched.
func stamp(field **time.Time, now time.Time) {
	if *field != nil {
		return
	}
	t := now
	*field = &t
}

// Clone returns a deep copy so callers can mutate without sharing timestamps.
func (w *Waiting) Clone() *Waiting {
	c := *w
	c.ReadyToConfirmAt = cloneTime(w.ReadyToConfirmAt)
	c.ConfirmedAt = cloneTime(w.ConfirmedAt)
	c.CanceledAt = cloneTime(w.CanceledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

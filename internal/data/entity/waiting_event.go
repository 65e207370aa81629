package entity

import (
	"time"

	"github.com/google/uuid"
)

// WaitingStatusEvent is one row of a ticket's status history. FromStatus is
// empty for the creation event.
type WaitingStatusEvent struct {
	ID         uuid.UUID     `db:"id"`
	WaitingID  uuid.UUID     `db:"waiting_id"`
	FromStatus WaitingStatus `db:"from_status"`
	ToStatus   WaitingStatus `db:"to_status"`
	Actor      Actor         `db:"actor"`
	OccurredAt time.Time     `db:"occurred_at"`
}

func NewWaitingStatusEvent(w *Waiting, from WaitingStatus, actor Actor) *WaitingStatusEvent {
	return &WaitingStatusEvent{
		ID:         uuid.New(),
		WaitingID:  w.ID,
		FromStatus: from,
		ToStatus:   w.Status,
		Actor:      actor,
		OccurredAt: w.UpdatedAt,
	}
}

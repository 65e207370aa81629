package response

import (
	"time"

	"booth-waitlist/internal/data/entity"
)

type WaitingResponse struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	BoothID          string               `json:"booth_id"`
	PartySize        int                  `json:"party_size"`
	Status           entity.WaitingStatus `json:"status"`
	Group            entity.WaitingGroup  `json:"group"`
	RegisteredAt     time.Time            `json:"registered_at"`
	ReadyToConfirmAt *time.Time           `json:"ready_to_confirm_at,omitempty"`
	ConfirmedAt      *time.Time           `json:"confirmed_at,omitempty"`
	CanceledAt       *time.Time           `json:"canceled_at,omitempty"`
	ExpiresAt        *time.Time           `json:"expires_at,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type WaitingEventResponse struct {
	FromStatus entity.WaitingStatus `json:"from_status,omitempty"`
	ToStatus   entity.WaitingStatus `json:"to_status"`
	Actor      entity.Actor         `json:"actor"`
	OccurredAt time.Time            `json:"occurred_at"`
}

type WaitingDetailResponse struct {
	WaitingResponse
	History []WaitingEventResponse `json:"history"`
}

type WaitingSummaryResponse struct {
	BoothID string                      `json:"booth_id"`
	Groups  map[entity.WaitingGroup]int `json:"groups"`
	Total   int                         `json:"total"`
}

type ReconcileResponse struct {
	Expired int `json:"expired"`
}

// WaitingToResponse converts a ticket. expiresAt is the end of the current
// confirmation window, nil when none is running.
func WaitingToResponse(w *entity.Waiting, expiresAt *time.Time) WaitingResponse {
	group, _ := entity.GroupOf(w.Status)
	return WaitingResponse{
		ID:               w.ID.String(),
		UserID:           w.UserID.String(),
		BoothID:          w.BoothID.String(),
		PartySize:        w.PartySize,
		Status:           w.Status,
		Group:            group,
		RegisteredAt:     w.RegisteredAt,
		ReadyToConfirmAt: w.ReadyToConfirmAt,
		ConfirmedAt:      w.ConfirmedAt,
		CanceledAt:       w.CanceledAt,
		ExpiresAt:        expiresAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

func WaitingEventsToResponse(events []*entity.WaitingStatusEvent) []WaitingEventResponse {
	out := make([]WaitingEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, WaitingEventResponse{
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Actor:      e.Actor,
			OccurredAt: e.OccurredAt,
		})
	}
	return out
}

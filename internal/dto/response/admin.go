package response

import (
	"time"

	"booth-waitlist/internal/data/entity"
)

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	AdminID   string    `json:"admin_id"`
	BoothID   string    `json:"booth_id"`
	BoothName string    `json:"booth_name"`
}

type BoothResponse struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Location       string                     `json:"location"`
	OperatedStatus entity.BoothOperatedStatus `json:"operated_status"`
	OpenTime       *time.Time                 `json:"open_time,omitempty"`
	CloseTime      *time.Time                 `json:"close_time,omitempty"`
}

func BoothToResponse(b *entity.Booth) BoothResponse {
	return BoothResponse{
		ID:             b.ID.String(),
		Name:           b.Name,
		Location:       b.Location,
		OperatedStatus: b.OperatedStatus,
		OpenTime:       b.OpenTime,
		CloseTime:      b.CloseTime,
	}
}

package request

type CreateWaitingRequest struct {
	BoothID   string `json:"booth_id" validate:"required,uuid"`
	PartySize int    `json:"party_size" validate:"required,min=1"`
}

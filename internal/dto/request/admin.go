package request

type AdminLoginRequest struct {
	BoothID   string `json:"booth_id" validate:"required,uuid"`
	AdminCode string `json:"admin_code" validate:"required,min=4,max=72"`
}

type UpdateBoothStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=not_started operating paused finished"`
}

// RegisterBoothRequest is used by the demo seeder.
type RegisterBoothRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	Location  string `json:"location" validate:"max=255"`
	AdminCode string `json:"admin_code" validate:"required,min=4,max=72"`
}

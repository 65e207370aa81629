package entity

import (
	"time"

	"github.com/google/uuid"
)

type Base struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AdminContext identifies the admin acting and the booth they manage. It is
// passed explicitly to every admin operation.
type AdminContext struct {
	AdminID uuid.UUID
	BoothID uuid.UUID
}

func (a AdminContext) Valid() bool {
	return a.AdminID != uuid.Nil && a.BoothID != uuid.Nil
}

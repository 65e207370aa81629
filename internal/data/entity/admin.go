package entity

import "github.com/google/uuid"

// Admin manages exactly one booth. The admin code is only ever stored hashed.
type Admin struct {
	Base
	BoothID       uuid.UUID `db:"booth_id"`
	AdminCodeHash string    `db:"admin_code_hash"`
}

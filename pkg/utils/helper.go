package utils

import (
	"github.com/google/uuid"
)

// ParseUUID reports false for anything uuid.Parse rejects, including the nil
// UUID, which is never a valid row id.
func ParseUUID(value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

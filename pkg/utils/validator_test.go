package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `validate:"required"`
	Size  int    `validate:"min=1,max=20"`
	Group string `validate:"omitempty,oneof=waiting calling"`
}

func TestValidateStruct(t *testing.T) {
	assert.Nil(t, ValidateStruct(sample{Name: "a", Size: 3}))

	errs := ValidateStruct(sample{Size: 21, Group: "other"})
	assert.Equal(t, "This field is required", errs["Name"])
	assert.Equal(t, "Maximum value is 20", errs["Size"])
	assert.Equal(t, "Must be one of: waiting, calling", errs["Group"])

	assert.Equal(t,
		"Group: Must be one of: waiting, calling; Name: This field is required; Size: Maximum value is 20",
		FormatValidationErrors(errs))
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationSubject struct {
	Email string `validate:"required,email"`
	Name  string `validate:"required,min=2"`
}

func TestValidatePassesOnValidStruct(t *testing.T) {
	err := Validate(validationSubject{Email: "pat@example.com", Name: "Pat"})
	assert.NoError(t, err)
}

func TestValidateReportsFailingFields(t *testing.T) {
	err := Validate(validationSubject{Email: "not-an-email", Name: "P"})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "Email failed on the 'email' rule")
	assert.Contains(t, msg, "Name failed on the 'min' rule (expected 2)")
}

func TestFormatValidationErrorPassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, assert.AnError.Error(), FormatValidationError(assert.AnError))
}

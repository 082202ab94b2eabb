package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestFormatValidationErrors(t *testing.T) {
	v := validator.New()
	err := v.Struct(signup{Email: "nope", Password: "123"})
	require.Error(t, err)

	out := FormatValidationErrors(err)
	require.Len(t, out, 2)
	assert.Equal(t, "Email", out[0].Field)
	assert.Equal(t, "email", out[0].Tag)
	assert.Equal(t, "Email must be a valid email address", out[0].Message)
	assert.Equal(t, "Password must be at least 6 characters long", out[1].Message)

	assert.Nil(t, FormatValidationErrors(errors.New("other")))
}

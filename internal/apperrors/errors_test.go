package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("submit: %w", Persistence("insert applicant", cause))

	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.True(t, IsRetryable(err))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("first_name", "first name is required")

	var ae *Error
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, "first_name", ae.Field)
	assert.Equal(t, "first name is required", Message(err))
	assert.False(t, IsRetryable(err))
}

func TestMessageHidesPersistenceDetails(t *testing.T) {
	err := Persistence("insert user", errors.New("dial tcp 10.0.0.3:3306"))
	assert.Equal(t, ErrPersistence.Error(), Message(err))
	assert.Contains(t, err.Error(), "dial tcp")
}

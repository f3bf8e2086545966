package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("loading challenge: %w", NotFound("challenge not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestValidateStructReportsJSONFields(t *testing.T) {
	err := ValidateStruct(signup{Email: "not-an-email", Password: "abc"})
	require.Error(t, err)

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, KindValidationFailed, appErr.Kind)
	assert.Equal(t, "must be a valid email address", appErr.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", appErr.Fields["password"])
}

func TestValidateStructPasses(t *testing.T) {
	assert.NoError(t, ValidateStruct(signup{Email: "a@x.com", Password: "secret1"}))
}

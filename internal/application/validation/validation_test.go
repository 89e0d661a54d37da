package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesflow/backend/internal/domain/shared"
)

type sampleRequest struct {
	Name     string `json:"name" binding:"required,max=10"`
	Priority string `json:"priority" binding:"omitempty,oneof=low normal high urgent"`
	Email    string `json:"contact_email" binding:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		err := Struct(sampleRequest{Name: "offer", Priority: "high"})

		assert.NoError(t, err)
	})

	t.Run("missing required field reported under its json name", func(t *testing.T) {
		err := Struct(sampleRequest{})

		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrValidation))

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "This field is required", domainErr.Detail("name"))
	})

	t.Run("collects every failing field", func(t *testing.T) {
		err := Struct(sampleRequest{
			Name:     "far too long for the field",
			Priority: "eventually",
			Email:    "not-an-address",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Len(t, domainErr.Details, 3)
		assert.Contains(t, domainErr.Detail("priority"), "Must be one of")
		assert.Equal(t, "Invalid email format", domainErr.Detail("contact_email"))
	})
}

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"invariant", Invariant("negative"), http.StatusBadRequest},
		{"conflict", Conflict("Username already exists: bob"), http.StatusBadRequest},
		{"auth", Auth("Invalid token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("Only administrators can advance orders"), http.StatusForbidden},
		{"not found", NotFound("Product not found"), http.StatusNotFound},
		{"infrastructure", Infrastructure("db.Query", errors.New("broken pipe")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("loading: %w", NotFound("Category not found")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("find: %w", NotFound("Product not found"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.False(t, IsForbidden(err))
	assert.True(t, IsForbidden(fmt.Errorf("advance: %w", Forbidden("no"))))
}

func TestPublicMessageHidesInfrastructureDetail(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3306: connection refused")
	err := Infrastructure("db.QueryOne", cause)

	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Database query failed")

	assert.Equal(t, "Invalid product ID", PublicMessage(Validation("Invalid product ID")))
}

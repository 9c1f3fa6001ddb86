package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("cart", "user-1")
	assert.Contains(t, err.Error(), "NOT_FOUND")
	assert.Contains(t, err.Error(), "cart with id user-1 not found")
}

func TestAppError_Unwrap(t *testing.T) {
	err := AlreadyExists("cart item", "product_id", "prod-1")
	assert.True(t, errors.Is(err, ErrAlreadyExists))
}

func TestAppError_UnwrapThroughFmt(t *testing.T) {
	wrapped := fmt.Errorf("add item: %w", Conflict("cart operation already in progress"))
	assert.True(t, errors.Is(wrapped, ErrConflict))

	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error not found", NotFound("cart", "u1"), http.StatusNotFound},
		{"app error precondition", Precondition("ADDRESS_REQUIRED", "address required"), http.StatusUnprocessableEntity},
		{"sentinel not found", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel conflict", fmt.Errorf("x: %w", ErrConflict), http.StatusConflict},
		{"sentinel invalid input", fmt.Errorf("x: %w", ErrInvalidInput), http.StatusBadRequest},
		{"sentinel unauthorized", fmt.Errorf("x: %w", ErrUnauthorized), http.StatusUnauthorized},
		{"sentinel unavailable", fmt.Errorf("x: %w", ErrUnavailable), http.StatusServiceUnavailable},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
	"github.com/Tausif706/FreshMart/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return NewClient(httpclient.New(cfg), srv.URL)
}

func TestClient_Verify(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@example.com","role":"customer"}`))
	})

	id, err := c.Verify(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "a@example.com", id.Email)
	assert.Equal(t, "customer", id.Role)
}

func TestClient_Verify_InvalidToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Verify(context.Background(), "bad-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestClient_Verify_EmptyUserIsUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Verify(context.Background(), "token-1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestClient_Verify_BackendDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	c := NewClient(httpclient.New(cfg), srv.URL)

	_, err := c.Verify(context.Background(), "token-1")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable, "a dead backend must not read as a bad token")
}

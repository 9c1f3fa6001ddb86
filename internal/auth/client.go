// Package auth verifies access tokens against the managed auth backend.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Tausif706/FreshMart/internal/session"
	apperrors "github.com/Tausif706/FreshMart/pkg/errors"
	"github.com/Tausif706/FreshMart/pkg/httpclient"
)

// doer is satisfied by both the plain and the circuit-breaking HTTP client.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client verifies bearer tokens by asking the auth backend who they belong
// to. Verification failures are distinguished from backend outages so
// callers can return 401 versus 503 correctly.
type Client struct {
	http    doer
	baseURL string
}

// NewClient creates an auth client for the backend at baseURL.
func NewClient(httpClient doer, baseURL string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify resolves the token to an identity. An invalid or expired token
// returns ErrUnauthorized; an unreachable backend or open circuit returns
// ErrUnavailable.
func (c *Client) Verify(ctx context.Context, token string) (*session.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, apperrors.Unavailable("auth backend circuit open")
		}
		return nil, apperrors.Unavailable("auth backend unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user userResponse
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("decode auth response: %w", err)
		}
		if user.ID == "" {
			return nil, apperrors.Unauthorized("auth backend returned no user")
		}
		return &session.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.Unauthorized("invalid or expired token")

	default:
		return nil, apperrors.Unavailable(fmt.Sprintf("auth backend returned %d", resp.StatusCode))
	}
}

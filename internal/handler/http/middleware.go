package http

import (
	"context"

	"github.com/Tausif706/FreshMart/internal/session"
	"github.com/Tausif706/FreshMart/pkg/middleware"
)

// tokenVerifier resolves a bearer token to an identity.
type tokenVerifier interface {
	Verify(ctx context.Context, token string) (*session.Identity, error)
}

// NewTokenValidator adapts the auth client to the middleware contract and
// records successful verifications with the session observer, so the rest of
// the service sees the sign-in.
func NewTokenValidator(verifier tokenVerifier, observer *session.Observer) middleware.TokenValidator {
	return func(ctx context.Context, token string) (*middleware.Claims, error) {
		id, err := verifier.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		observer.SignedIn(*id)
		return &middleware.Claims{UserID: id.UserID, Email: id.Email, Role: id.Role}, nil
	}
}

package handlers

import (
	"context"

	"github.com/vidshare/backend/internal/auth"
)

// Authenticator verifies access tokens.
type Authenticator interface {
	Authenticate(accessToken string) (auth.Identity, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

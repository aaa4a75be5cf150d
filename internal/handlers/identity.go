package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

type identityKey struct{}

// identityFrom returns the caller attached by authGuard.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok && id.UserID != ""
}

func actorID(r *http.Request) string {
	id, _ := identityFrom(r.Context())
	return id.UserID
}

// accessToken reads the bearer credential, falling back to the access cookie.
func accessToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(accessCookie); err == nil {
		return c.Value
	}
	return ""
}

type authGuard struct {
	auth Authenticator
}

func (g authGuard) attach(r *http.Request, id auth.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey{}, id)
	ctx = logging.WithUser(ctx, id.UserID)
	return r.WithContext(ctx)
}

// require rejects requests without a valid access token.
func (g authGuard) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.auth == nil {
			respondError(r.Context(), w, apperr.Internal("authentication unavailable", nil))
			return
		}
		token := accessToken(r)
		if token == "" {
			respondError(r.Context(), w, apperr.Unauthorized("unauthorized request", auth.ErrInvalidToken))
			return
		}
		id, err := g.auth.Authenticate(token)
		if err != nil {
			respondError(r.Context(), w, apperr.Unauthorized("invalid or expired access token", err))
			return
		}
		next(w, g.attach(r, id))
	}
}

// optional attaches the caller when a valid token is present and serves the
// request anonymously otherwise.
func (g authGuard) optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.auth != nil {
			if token := accessToken(r); token != "" {
				if id, err := g.auth.Authenticate(token); err == nil {
					r = g.attach(r, id)
				}
			}
		}
		next(w, r)
	}
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound indicates the user has no active session slot.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenMismatch indicates the presented refresh token is no longer the stored one.
	ErrTokenMismatch = errors.New("refresh token does not match active session")
	// ErrInvalidToken indicates a missing, malformed, or wrongly signed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token is well formed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// IsUnauthorized reports whether err is one of the credential failures above.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrTokenMismatch) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrTokenExpired)
}

// Session is the single active refresh slot of a user.
type Session struct {
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

// SessionStore persists one refresh slot per user.
type SessionStore interface {
	// Put overwrites the user's slot unconditionally.
	Put(ctx context.Context, session Session) error
	// Rotate replaces the slot only if it still holds expectedHash. It returns
	// ErrSessionNotFound when the slot is empty and ErrTokenMismatch when the
	// stored hash differs. The compare and the write happen atomically.
	Rotate(ctx context.Context, userID, expectedHash string, next Session) error
	// Clear empties the slot. Clearing an empty slot is not an error.
	Clear(ctx context.Context, userID string) error
}

// HashToken returns the digest under which a refresh token is stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

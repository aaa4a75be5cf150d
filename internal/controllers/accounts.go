package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

const minPasswordLength = 8

// Accounts handles registration and the session lifecycle.
type Accounts struct {
	store        repositories.Store
	blobs        BlobStore
	sessions     *auth.Manager
	clock        clockwork.Clock
	metrics      *metrics.Metrics
	passwordCost int
}

// RegisterInput carries a new account. Avatar and CoverImage are optional.
type RegisterInput struct {
	Username   string
	Email      string
	FullName   string
	Password   string
	Avatar     *media.Upload
	CoverImage *media.Upload
}

// Register validates and stores a new account. Duplicate usernames or emails
// fail with Conflict.
func (c *Accounts) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	logger := logging.FromContext(ctx)

	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := strings.TrimSpace(in.FullName)
	if username == "" || email == "" || fullName == "" || in.Password == "" {
		return models.Account{}, apperr.Validation("username, email, fullName and password are required")
	}
	if strings.ContainsAny(username, " \t@/") {
		return models.Account{}, apperr.Validation("username may not contain spaces, '@' or '/'")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.Account{}, apperr.Validation("invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return models.Account{}, apperr.Validation("password must be at least 8 characters")
	}

	for _, login := range []string{username, email} {
		_, err := c.store.Users.FindByLogin(ctx, login)
		if err == nil {
			logger.Warn("register existing account", slog.String("username", username))
			return models.Account{}, apperr.Conflict("user with this username or email already exists")
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return models.Account{}, apperr.Internal("unable to verify existing accounts", err)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), c.passwordCost)
	if err != nil {
		return models.Account{}, apperr.Internal("failed to secure password", err)
	}

	var uploaded []string
	upload := func(u *media.Upload, what string) (string, error) {
		if u == nil {
			return "", nil
		}
		img := *u
		img.Kind = media.KindImage
		asset, err := c.blobs.Put(ctx, img)
		if err != nil {
			return "", apperr.Internal("failed to upload "+what, err)
		}
		uploaded = append(uploaded, asset.URL)
		return asset.URL, nil
	}

	avatar, err := upload(in.Avatar, "avatar")
	if err != nil {
		return models.Account{}, err
	}
	cover, err := upload(in.CoverImage, "cover image")
	if err != nil {
		c.blobs.Discard(ctx, uploaded...)
		return models.Account{}, err
	}

	now := c.clock.Now().UTC()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatar,
		CoverImage: cover,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := c.store.Users.Create(ctx, user); err != nil {
		if len(uploaded) > 0 {
			c.blobs.Discard(ctx, uploaded...)
		}
		if errors.Is(err, repositories.ErrConflict) {
			return models.Account{}, apperr.Conflict("user with this username or email already exists")
		}
		return models.Account{}, apperr.Internal("failed to create account", err)
	}

	logger.Info("account registered", slog.String("user_id", user.ID))
	return user.Account(), nil
}

// Login checks the credentials and opens a session, replacing any previous
// refresh token of the user.
func (c *Accounts) Login(ctx context.Context, login, password string) (models.Account, models.SessionTokens, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return models.Account{}, models.SessionTokens{}, apperr.Validation("username or email and password are required")
	}

	user, err := c.store.Users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logging.FromContext(ctx).Warn("login unknown account")
			return models.Account{}, models.SessionTokens{}, apperr.Unauthorized("invalid credentials", nil)
		}
		return models.Account{}, models.SessionTokens{}, apperr.Internal("load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		logging.FromContext(ctx).Warn("login password mismatch", slog.String("user_id", user.ID))
		return models.Account{}, models.SessionTokens{}, apperr.Unauthorized("invalid credentials", nil)
	}

	tokens, err := c.sessions.Issue(ctx, auth.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return models.Account{}, models.SessionTokens{}, apperr.Internal("failed to create session", err)
	}
	return user.Account(), tokens, nil
}

// Refresh rotates the caller's session. A token that was already exchanged,
// revoked, or has expired fails with Unauthorized.
func (c *Accounts) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return models.SessionTokens{}, apperr.Unauthorized("refresh token is required", auth.ErrInvalidToken)
	}

	tokens, err := c.sessions.Refresh(ctx, refreshToken)
	if c.metrics != nil {
		c.metrics.SessionRefreshes.WithLabelValues(refreshResult(err)).Inc()
	}
	if err != nil {
		if auth.IsUnauthorized(err) {
			return models.SessionTokens{}, apperr.Unauthorized("refresh token is expired or used", err)
		}
		return models.SessionTokens{}, apperr.Internal("failed to refresh session", err)
	}
	return tokens, nil
}

// Logout clears the caller's refresh slot.
func (c *Accounts) Logout(ctx context.Context, userID string) error {
	if err := c.sessions.Invalidate(ctx, userID); err != nil {
		if auth.IsUnauthorized(err) {
			return apperr.Unauthorized("not logged in", err)
		}
		return apperr.Internal("failed to end session", err)
	}
	return nil
}

// Current returns the caller's own account view.
func (c *Accounts) Current(ctx context.Context, userID string) (models.Account, error) {
	user, err := c.store.Users.FindByID(ctx, userID)
	if err != nil {
		return models.Account{}, storeError(err, "user")
	}
	return user.Account(), nil
}

func refreshResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, auth.ErrTokenMismatch), errors.Is(err, auth.ErrSessionNotFound):
		return "mismatch"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}

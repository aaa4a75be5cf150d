package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vidshare/backend/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Identity is the authenticated principal carried by an access token.
type Identity struct {
	UserID   string
	Username string
}

type tokenClaims struct {
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Clock         clockwork.Clock
}

// Manager issues, validates, and rotates access/refresh token pairs.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	clock         clockwork.Clock

	store SessionStore
}

// NewManager constructs a Manager backed by store.
func NewManager(opts Options, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if len(opts.AccessSecret) == 0 || len(opts.RefreshSecret) == 0 {
		panic("auth: token secrets must not be empty")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		accessSecret:  opts.AccessSecret,
		refreshSecret: opts.RefreshSecret,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		clock:         clock,
		store:         store,
	}
}

// Issue mints a new pair for id and overwrites the user's refresh slot.
func (m *Manager) Issue(ctx context.Context, id Identity) (models.SessionTokens, error) {
	if id.UserID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	tokens, err := m.mint(id)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.Put(ctx, Session{
		UserID:    id.UserID,
		TokenHash: HashToken(tokens.RefreshToken),
		ExpiresAt: tokens.RefreshExpiresAt,
	}); err != nil {
		return models.SessionTokens{}, fmt.Errorf("store session: %w", err)
	}

	return tokens, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// still be the one held in the user's slot; the swap is delegated to the store
// so that concurrent refreshes with the same token cannot both succeed.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	claims, err := m.parse(refreshToken, m.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return models.SessionTokens{}, err
	}

	id := Identity{UserID: claims.Subject, Username: claims.Username}
	tokens, err := m.mint(id)
	if err != nil {
		return models.SessionTokens{}, err
	}

	err = m.store.Rotate(ctx, id.UserID, HashToken(refreshToken), Session{
		UserID:    id.UserID,
		TokenHash: HashToken(tokens.RefreshToken),
		ExpiresAt: tokens.RefreshExpiresAt,
	})
	if err != nil {
		return models.SessionTokens{}, err
	}

	return tokens, nil
}

// Invalidate clears the user's refresh slot. Access tokens already issued stay
// valid until they expire.
func (m *Manager) Invalidate(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrSessionNotFound
	}
	return m.store.Clear(ctx, userID)
}

// Authenticate verifies an access token without consulting the store.
func (m *Manager) Authenticate(accessToken string) (Identity, error) {
	claims, err := m.parse(accessToken, m.accessSecret, tokenTypeAccess)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}

func (m *Manager) mint(id Identity) (models.SessionTokens, error) {
	now := m.clock.Now().UTC()

	access, accessExp, err := m.sign(id, tokenTypeAccess, m.accessSecret, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := m.sign(id, tokenTypeRefresh, m.refreshSecret, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (m *Manager) sign(id Identity, typ string, secret []byte, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expires := jwt.NewNumericDate(now.Add(ttl))
	claims := tokenClaims{
		Username: id.Username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expires,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires.Time, nil
}

func (m *Manager) parse(raw string, secret []byte, typ string) (*tokenClaims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

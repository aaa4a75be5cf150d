package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/models"
)

// AuthHandler implements registration and the session lifecycle endpoints.
type AuthHandler struct {
	Accounts       *controllers.Accounts
	Limiter        RateLimiter
	SecureCookies  bool
	MaxUploadBytes int64
	Proxies        TrustedProxies
}

type loginResponse struct {
	User models.Account `json:"user"`
	models.SessionTokens
}

// Register handles POST /users/register.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(ctx, w, r, "register") {
		return
	}

	form, err := readUploadForm(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	in := controllers.RegisterInput{
		Username: form.value("username"),
		Email:    form.value("email"),
		FullName: form.value("fullName"),
		Password: form.value("password"),
	}
	if in.Avatar, err = form.upload("avatar", media.KindImage); err != nil {
		respondError(ctx, w, err)
		return
	}
	if in.CoverImage, err = form.upload("coverImage", media.KindImage); err != nil {
		respondError(ctx, w, err)
		return
	}

	account, err := h.Accounts.Register(ctx, in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, account, "user registered successfully")
}

// Login handles POST /users/login. The login field may be a username or an
// email address; "username" and "email" are accepted as aliases.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(ctx, w, r, "login") {
		return
	}

	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	login := form.value("login")
	if login == "" {
		login = form.value("username")
	}
	if login == "" {
		login = form.value("email")
	}

	account, tokens, err := h.Accounts.Login(ctx, login, form.value("password"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, loginResponse{User: account, SessionTokens: tokens}, "user logged in successfully")
}

// Refresh handles POST /users/refresh-token. A token sent in the body wins
// over the cookie.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.allow(ctx, w, r, "refresh") {
		return
	}

	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	token := form.value("refreshToken")
	if token == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			token = c.Value
		}
	}

	tokens, err := h.Accounts.Refresh(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.KindUnauthorized) {
			h.clearSessionCookies(w)
		}
		respondError(ctx, w, err)
		return
	}

	h.setSessionCookies(w, tokens)
	respondJSON(ctx, w, http.StatusOK, tokens, "access token refreshed")
}

// Logout handles POST /users/logout.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Accounts.Logout(ctx, actorID(r)); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.clearSessionCookies(w)
	respondJSON(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// Current handles GET /users/current-user.
func (h AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := h.Accounts.Current(ctx, actorID(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, account, "current user fetched successfully")
}

func (h AuthHandler) allow(ctx context.Context, w http.ResponseWriter, r *http.Request, scope string) bool {
	if allowRequest(h.Limiter, h.Proxies, r, scope) {
		return true
	}
	logging.FromContext(ctx).Warn("rate limit exceeded", "scope", scope, "ip", clientIP(r, h.Proxies))
	w.Header().Set("Retry-After", "60")
	respondJSON(ctx, w, http.StatusTooManyRequests, nil, "too many requests, try again later")
	return false
}

func (h AuthHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(accessCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(refreshCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h AuthHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

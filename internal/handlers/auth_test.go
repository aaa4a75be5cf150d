package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/vidshare/backend/internal/models"
)

func cookieNamed(rec interface{ Result() *http.Response }, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsHTTPOnlyCookies(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	srv.signUp("alice")

	rec, _ := srv.sendJSON(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	expectStatus(t, rec, http.StatusOK)

	for _, name := range []string{accessCookie, refreshCookie} {
		c := cookieNamed(rec, name)
		if c == nil || c.Value == "" || !c.HttpOnly {
			t.Fatalf("expected http-only cookie %s, got %+v", name, c)
		}
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	srv.signUp("alice")

	rec, resp := srv.sendJSON(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": "ALICE", "email": "new@example.com", "fullName": "A", "password": "password123",
	})
	expectStatus(t, rec, http.StatusConflict)
	if resp.Success {
		t.Fatal("expected success=false")
	}
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	alice := srv.signUp("alice")

	rec, resp := srv.sendJSON(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": alice.tokens.RefreshToken,
	})
	expectStatus(t, rec, http.StatusOK)
	rotated := decodeData[models.SessionTokens](t, resp)
	if rotated.RefreshToken == "" || rotated.RefreshToken == alice.tokens.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	rec, _ = srv.send(request{
		method:  http.MethodPost,
		path:    "/api/v1/users/refresh-token",
		cookies: []*http.Cookie{{Name: refreshCookie, Value: rotated.RefreshToken}},
	})
	expectStatus(t, rec, http.StatusOK)

	rec, _ = srv.sendJSON(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": alice.tokens.RefreshToken,
	})
	expectStatus(t, rec, http.StatusUnauthorized)
	if c := cookieNamed(rec, refreshCookie); c == nil || c.MaxAge >= 0 {
		t.Fatalf("expected refresh cookie to be cleared, got %+v", c)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	alice := srv.signUp("alice")

	rec, resp := srv.send(request{method: http.MethodGet, path: "/api/v1/users/current-user", token: alice.tokens.AccessToken})
	expectStatus(t, rec, http.StatusOK)
	account := decodeData[models.Account](t, resp)
	if account.Email != "alice@example.com" {
		t.Fatalf("unexpected account %+v", account)
	}

	rec, _ = srv.send(request{
		method:  http.MethodPost,
		path:    "/api/v1/users/logout",
		cookies: []*http.Cookie{{Name: accessCookie, Value: alice.tokens.AccessToken}},
	})
	expectStatus(t, rec, http.StatusOK)

	rec, _ = srv.sendJSON(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": alice.tokens.RefreshToken,
	})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestSessionEndpointsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, testOptions{limiter: &allowN{n: 1}})
	srv.signUp("alice")

	rec, resp := srv.sendJSON(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "alice", "password": "password123",
	})
	expectStatus(t, rec, http.StatusTooManyRequests)
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestLoginRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	srv.signUp("alice")

	padding := strings.Repeat("a", maxFieldBytes+1)
	rec, resp := srv.send(request{
		method:      http.MethodPost,
		path:        "/api/v1/users/login",
		body:        strings.NewReader(`{"username":"alice","password":"password123","pad":"` + padding + `"}`),
		contentType: "application/json",
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if !strings.Contains(resp.Message, "request body exceeds") {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestLoginRejectsMultipartBody(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	srv.signUp("alice")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("username", "alice")
	_ = mw.WriteField("password", "password123")
	part, err := mw.CreateFormFile("blob", "blob.bin")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(bytes.Repeat([]byte{'x'}, 4096))
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	rec, _ := srv.send(request{
		method:      http.MethodPost,
		path:        "/api/v1/users/login",
		body:        &body,
		contentType: mw.FormDataContentType(),
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRefreshPrefersBodyTokenOverCookie(t *testing.T) {
	srv := newTestServer(t, testOptions{})
	alice := srv.signUp("alice")

	rec, resp := srv.sendJSON(http.MethodPost, "/api/v1/users/refresh-token", "", map[string]string{
		"refreshToken": alice.tokens.RefreshToken,
	})
	expectStatus(t, rec, http.StatusOK)
	rotated := decodeData[models.SessionTokens](t, resp)

	rec, _ = srv.send(request{
		method:      http.MethodPost,
		path:        "/api/v1/users/refresh-token",
		body:        strings.NewReader(`{"refreshToken":"` + rotated.RefreshToken + `"}`),
		contentType: "application/json",
		cookies:     []*http.Cookie{{Name: refreshCookie, Value: alice.tokens.RefreshToken}},
	})
	expectStatus(t, rec, http.StatusOK)
}

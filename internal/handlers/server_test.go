package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/query"
	"github.com/vidshare/backend/internal/repositories"
)

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjects) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	location := "https://cdn.test/" + key
	m.objects[location] = data
	return location, nil
}

func (m *memoryObjects) Delete(_ context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, location)
	return nil
}

func (m *memoryObjects) has(location string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[location]
	return ok
}

type allowN struct {
	mu   sync.Mutex
	left map[string]int
	n    int
}

func (a *allowN) Allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.left == nil {
		a.left = make(map[string]int)
	}
	used := a.left[key]
	if used >= a.n {
		return false
	}
	a.left[key] = used + 1
	return true
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   repositories.Store
	objects *memoryObjects
}

type testOptions struct {
	limiter RateLimiter
	health  map[string]HealthCheck
}

func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	store := repositories.NewMemoryStore()
	objects := &memoryObjects{}
	probe := media.NewFFProbe("ffprobe", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte(`{"format":{"duration":"30.0"}}`), nil
	}
	blobs := media.NewStore(objects, probe, nil, nil, media.Config{TempDir: t.TempDir()})

	sessions := auth.NewManager(auth.Options{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Issuer:        "vidshare-test",
	}, auth.NewInMemorySessionStore())

	set := controllers.New(controllers.Deps{
		Store:        store,
		Blobs:        blobs,
		Sessions:     sessions,
		PasswordCost: bcrypt.MinCost,
	})

	mux := http.NewServeMux()
	RegisterRoutes(mux, Dependencies{
		Controllers:    set,
		Queries:        query.NewEngine(store),
		Auth:           sessions,
		AuthLimiter:    opts.limiter,
		Health:         opts.health,
		MaxUploadBytes: 1 << 20,
	})

	return &testServer{t: t, handler: mux, store: store, objects: objects}
}

type apiResponse struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

type request struct {
	method      string
	path        string
	token       string
	body        io.Reader
	contentType string
	cookies     []*http.Cookie
}

func (s *testServer) send(req request) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()

	r := httptest.NewRequest(req.method, req.path, req.body)
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)

	var resp apiResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			s.t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
		if resp.StatusCode != rec.Code {
			s.t.Fatalf("envelope status %d does not match http status %d", resp.StatusCode, rec.Code)
		}
	}
	return rec, resp
}

func (s *testServer) sendJSON(method, path, token string, payload any) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return s.send(request{method: method, path: path, token: token, body: body, contentType: "application/json"})
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(resp.Data))
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}

type session struct {
	userID string
	tokens models.SessionTokens
}

func (s *testServer) signUp(username string) session {
	s.t.Helper()

	rec, _ := s.sendJSON(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"fullName": "Full " + username,
		"password": "password123",
	})
	expectStatus(s.t, rec, http.StatusCreated)

	rec, resp := s.sendJSON(http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	expectStatus(s.t, rec, http.StatusOK)

	login := decodeData[loginResponse](s.t, resp)
	if login.User.ID == "" || login.AccessToken == "" || login.RefreshToken == "" {
		s.t.Fatalf("incomplete login response: %+v", login)
	}
	return session{userID: login.User.ID, tokens: login.SessionTokens}
}

func (s *testServer) uploadVideo(token, title string) models.Video {
	s.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, value := range map[string]string{"title": title, "description": "about " + title} {
		if err := mw.WriteField(key, value); err != nil {
			s.t.Fatalf("write field: %v", err)
		}
	}
	for field, name := range map[string]string{"videoFile": "clip.mp4", "thumbnail": "thumb.png"} {
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			s.t.Fatalf("create form file: %v", err)
		}
		fmt.Fprintf(part, "%s-bytes", field)
	}
	if err := mw.Close(); err != nil {
		s.t.Fatalf("close multipart: %v", err)
	}

	rec, resp := s.send(request{
		method:      http.MethodPost,
		path:        "/api/v1/videos",
		token:       token,
		body:        &body,
		contentType: mw.FormDataContentType(),
	})
	expectStatus(s.t, rec, http.StatusCreated)
	return decodeData[models.Video](s.t, resp)
}

func (s *testServer) feedIDs(path string) []string {
	s.t.Helper()
	rec, resp := s.send(request{method: http.MethodGet, path: path})
	expectStatus(s.t, rec, http.StatusOK)
	page := decodeData[models.Page[models.VideoWithOwner]](s.t, resp)
	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

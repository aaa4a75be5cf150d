// Package client is a Go caller for the vidshare API that keeps a session
// alive by refreshing the token pair once when the server answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vidshare/backend/internal/models"
)

const refreshPath = "/api/v1/users/refresh-token"

// ErrSessionExpired is returned when the refresh token no longer works and
// the caller has to log in again.
var ErrSessionExpired = errors.New("client: session expired")

// Credentials holds the current token pair.
type Credentials struct {
	mu     sync.RWMutex
	tokens models.SessionTokens
}

// Set replaces the stored pair.
func (c *Credentials) Set(tokens models.SessionTokens) {
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
}

// Get returns the stored pair.
func (c *Credentials) Get() models.SessionTokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Clear forgets both tokens.
func (c *Credentials) Clear() {
	c.Set(models.SessionTokens{})
}

// Client sends authenticated requests to a vidshare server.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
	group   singleflight.Group
}

// New returns a client for baseURL. A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		creds:   &Credentials{},
	}
}

// Credentials exposes the token holder, e.g. to seed it after login.
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// Envelope mirrors the server's response wrapper.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

// Do sends req with the stored access token. On a 401 it refreshes the pair
// once and replays req. The request body is buffered for the replay.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
	}

	sent := c.creds.Get().AccessToken
	resp, err := c.send(req, body, sent)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if err := c.refresh(req.Context(), sent); err != nil {
		return nil, err
	}

	resp, err = c.send(req, body, c.creds.Get().AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.creds.Clear()
		return nil, ErrSessionExpired
	}
	return resp, nil
}

// Call sends a JSON request to path and decodes the envelope. A payload of
// nil sends no body. Non-2xx answers come back as *APIError.
func (c *Client) Call(ctx context.Context, method, path string, payload any) (Envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Envelope{}, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return Envelope{}, err
	}
	defer resp.Body.Close()

	return decodeEnvelope(resp)
}

// APIError is a non-2xx envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vidshare: %d %s", e.StatusCode, e.Message)
}

func decodeEnvelope(resp *http.Response) (Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return env, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}

func (c *Client) send(req *http.Request, body []byte, token string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if body != nil {
		clone.Body = io.NopCloser(bytes.NewReader(body))
		clone.ContentLength = int64(len(body))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	if token != "" {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(clone)
}

// refresh rotates the pair unless another caller already did so after the
// failed request went out. Concurrent callers share one refresh call.
func (c *Client) refresh(ctx context.Context, staleAccess string) error {
	if current := c.creds.Get(); current.AccessToken != "" && current.AccessToken != staleAccess {
		return nil
	}

	_, err, _ := c.group.Do("refresh", func() (any, error) {
		if current := c.creds.Get(); current.AccessToken != staleAccess {
			return nil, nil
		}
		return nil, c.rotate(ctx)
	})
	return err
}

func (c *Client) rotate(ctx context.Context) error {
	refreshToken := c.creds.Get().RefreshToken
	if refreshToken == "" {
		c.creds.Clear()
		return ErrSessionExpired
	}

	raw, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.creds.Clear()
		return ErrSessionExpired
	}
	env, err := decodeEnvelope(resp)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	var tokens models.SessionTokens
	if err := json.Unmarshal(env.Data, &tokens); err != nil {
		return fmt.Errorf("decode refreshed tokens: %w", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		c.creds.Clear()
		return ErrSessionExpired
	}
	c.creds.Set(tokens)
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

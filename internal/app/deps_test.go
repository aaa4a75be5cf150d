package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func testConfig() config.Config {
	return config.Config{
		MaxUploadBytes: 1 << 20,
		Tokens: config.TokenConfig{
			AccessSecret:  "access",
			RefreshSecret: "refresh",
			AccessTTL:     time.Minute,
			RefreshTTL:    time.Hour,
		},
		Sessions:    config.SessionConfig{Backend: config.SessionBackendPostgres},
		ObjectStore: config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
		Media:       config.MediaConfig{FFProbePath: "ffprobe", ReaperWorkers: 1, ReaperQueue: 4},
		AuthLimit:   config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 5},
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	rt, err := buildDependencies(context.Background(), fakePool{}, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotNil(t, rt.cleanup)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, rt.cleanup(ctx))
	}()

	deps := rt.handlers
	require.NotNil(t, deps.Controllers)
	assert.NotNil(t, deps.Controllers.Videos)
	assert.NotNil(t, deps.Controllers.Accounts)
	assert.NotNil(t, deps.Queries)
	assert.NotNil(t, deps.Auth)
	assert.NotNil(t, deps.AuthLimiter)
	assert.NotNil(t, rt.metrics)
	assert.EqualValues(t, 1<<20, deps.MaxUploadBytes)

	check, ok := deps.Health["database"]
	require.True(t, ok)
	assert.Error(t, check(context.Background()), "fake pool cannot acquire")

	rec := httptest.NewRecorder()
	deps.Metrics.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuildDependenciesRejectsBadConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	cfg.Tokens.AccessSecret = ""
	_, err := buildDependencies(context.Background(), fakePool{}, cfg, logger)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Sessions.Backend = "memcached"
	_, err = buildDependencies(context.Background(), fakePool{}, cfg, logger)
	assert.ErrorContains(t, err, "unknown session backend")

	cfg = testConfig()
	cfg.ObjectStore.Bucket = " "
	_, err = buildDependencies(context.Background(), fakePool{}, cfg, logger)
	assert.ErrorContains(t, err, "bucket is required")
}

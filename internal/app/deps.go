package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/config"
	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/handlers"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/query"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/storage"
)

// runtime is everything serve needs beyond the database pool.
type runtime struct {
	handlers handlers.Dependencies
	metrics  *metrics.Metrics
	// cleanup drains background work and closes side connections.
	cleanup func(context.Context) error
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (runtime, error) {
	if cfg.Tokens.AccessSecret == "" || cfg.Tokens.RefreshSecret == "" {
		return runtime{}, errors.New("token secrets must be configured")
	}

	var closers []func(context.Context) error
	cleanup := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}

	sessionStore, closeSessions, err := openSessionStore(ctx, pool, cfg.Sessions)
	if err != nil {
		return runtime{}, err
	}
	if closeSessions != nil {
		closers = append(closers, closeSessions)
	}

	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		_ = cleanup(ctx)
		return runtime{}, err
	}

	m := metrics.New()
	reaper := media.NewReaper(objects, m, media.ReaperConfig{
		QueueSize: cfg.Media.ReaperQueue,
		Workers:   cfg.Media.ReaperWorkers,
	}, logger)
	closers = append(closers, reaper.Shutdown)

	blobs := media.NewStore(objects, media.NewFFProbe(cfg.Media.FFProbePath, cfg.Media.FFProbeTimeout), reaper, m, media.Config{
		TempDir: cfg.Media.TempDir,
	})

	sessions := auth.NewManager(auth.Options{
		AccessSecret:  []byte(cfg.Tokens.AccessSecret),
		RefreshSecret: []byte(cfg.Tokens.RefreshSecret),
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
		Issuer:        cfg.Tokens.Issuer,
	}, sessionStore)

	store := repositories.NewPostgresStore(pool)

	deps := handlers.Dependencies{
		Controllers: controllers.New(controllers.Deps{
			Store:    store,
			Blobs:    blobs,
			Sessions: sessions,
			Metrics:  m,
		}),
		Queries:     query.NewEngine(store),
		Auth:        sessions,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthLimit.Requests, cfg.AuthLimit.Window, cfg.AuthLimit.Burst, 0, nil),
		Health: map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return db.Ping(ctx, pool) },
		},
		Metrics:        m.Handler(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookies:  cfg.SecureCookies,
		TrustedProxies: cfg.TrustedProxies,
	}

	return runtime{handlers: deps, metrics: m, cleanup: cleanup}, nil
}

// openSessionStore picks the refresh-slot backend. The returned closer is nil
// when the backend shares the database pool.
func openSessionStore(ctx context.Context, pool db.Pool, cfg config.SessionConfig) (auth.SessionStore, func(context.Context) error, error) {
	switch cfg.Backend {
	case "", config.SessionBackendPostgres:
		return repositories.NewPostgresSessionStore(pool), nil, nil
	case config.SessionBackendRedis:
		rdb, err := repositories.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewRedisSessionStore(rdb), func(context.Context) error { return rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

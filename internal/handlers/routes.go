package handlers

import (
	"net/http"
	"strings"

	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/query"
)

const apiPrefix = "/api/v1"

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Controllers    *controllers.Set
	Queries        *query.Engine
	Auth           Authenticator
	AuthLimiter    RateLimiter
	Health         map[string]HealthCheck
	Metrics        http.Handler
	MaxUploadBytes int64
	SecureCookies  bool
	TrustedProxies TrustedProxies
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	guard := authGuard{auth: deps.Auth}
	health := HealthHandler{Checks: deps.Health}
	accounts := AuthHandler{
		Accounts:       deps.Controllers.Accounts,
		Limiter:        deps.AuthLimiter,
		SecureCookies:  deps.SecureCookies,
		MaxUploadBytes: deps.MaxUploadBytes,
		Proxies:        deps.TrustedProxies,
	}
	videos := VideoHandler{Videos: deps.Controllers.Videos, Queries: deps.Queries, MaxUploadBytes: deps.MaxUploadBytes}
	comments := CommentHandler{Comments: deps.Controllers.Comments, Queries: deps.Queries}
	playlists := PlaylistHandler{Playlists: deps.Controllers.Playlists, Queries: deps.Queries}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Controllers.Subscriptions, Queries: deps.Queries}

	mux.HandleFunc("GET /healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	route := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+apiPrefix+path, h)
	}

	route("POST /users/register", accounts.Register)
	route("POST /users/login", accounts.Login)
	route("POST /users/refresh-token", accounts.Refresh)
	route("POST /users/logout", guard.require(accounts.Logout))
	route("GET /users/current-user", guard.require(accounts.Current))

	route("GET /videos", videos.Feed)
	route("POST /videos", guard.require(videos.Create))
	route("GET /videos/user/{userId}", videos.ByUser)
	route("GET /videos/{videoId}", guard.optional(videos.Detail))
	route("PATCH /videos/{videoId}", guard.require(videos.Update))
	route("DELETE /videos/{videoId}", guard.require(videos.Delete))
	route("PATCH /videos/toggle-publish/{videoId}", guard.require(videos.TogglePublish))

	route("GET /comments/{videoId}", guard.optional(comments.List))
	route("POST /comments/{videoId}", guard.require(comments.Add))
	route("PATCH /comments/c/{commentId}", guard.require(comments.Update))
	route("DELETE /comments/c/{commentId}", guard.require(comments.Delete))

	route("POST /playlists", guard.require(playlists.Create))
	route("GET /playlists/user/{userId}", playlists.ByUser)
	route("GET /playlists/{playlistId}", playlists.Detail)
	route("PATCH /playlists/{playlistId}", guard.require(playlists.Update))
	route("DELETE /playlists/{playlistId}", guard.require(playlists.Delete))
	route("PATCH /playlists/add/{videoId}/{playlistId}", guard.require(playlists.AddVideo))
	route("PATCH /playlists/remove/{videoId}/{playlistId}", guard.require(playlists.RemoveVideo))

	route("POST /subscription/c/{channelId}", guard.require(subscriptions.Toggle))
	route("GET /subscription/c/{channelId}", subscriptions.Subscribers)
	route("GET /subscription/u/{subscriberId}", subscriptions.Channels)
}

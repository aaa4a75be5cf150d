package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/query"
)

// SubscriptionHandler serves the /subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions *controllers.Subscriptions
	Queries       *query.Engine
}

// Toggle handles POST /subscription/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subscribed, err := h.Subscriptions.Toggle(ctx, actorID(r), r.PathValue("channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	label := controllers.SubscriptionLabel(subscribed)
	respondJSON(ctx, w, http.StatusOK, map[string]any{"subscribed": subscribed, "status": label}, "channel "+label)
}

// Subscribers handles GET /subscription/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profiles, err := h.Queries.ChannelSubscribers(ctx, r.PathValue("channelId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profiles, "subscribers fetched successfully")
}

// Channels handles GET /subscription/u/{subscriberId}.
func (h SubscriptionHandler) Channels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profiles, err := h.Queries.SubscribedChannels(ctx, r.PathValue("subscriberId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, profiles, "subscribed channels fetched successfully")
}

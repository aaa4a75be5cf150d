package controllers

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/vidshare/backend/internal/access"
	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/repositories"
)

// Subscriptions handles channel follow state.
type Subscriptions struct {
	store repositories.Store
	clock clockwork.Clock
}

// Toggle subscribes actorID to channelID, or unsubscribes when already
// subscribed. It reports whether the actor is subscribed afterwards.
func (c *Subscriptions) Toggle(ctx context.Context, actorID, channelID string) (bool, error) {
	if channelID == "" {
		return false, apperr.Validation("channel id is required")
	}
	if channelID == actorID {
		return false, apperr.Validation("you cannot subscribe to your own channel")
	}

	if _, err := c.store.Users.FindByID(ctx, channelID); err != nil {
		return false, storeError(err, "channel")
	}

	if err := access.Authorize(actorID, access.Resource{Kind: access.KindSubscription, ID: channelID, OwnerID: actorID}); err != nil {
		return false, err
	}

	subscribed, err := c.store.Subscriptions.Toggle(ctx, actorID, channelID, c.clock.Now().UTC())
	if err != nil {
		return false, writeError(err, "toggle subscription")
	}
	return subscribed, nil
}

// SubscriptionLabel names a subscription state for responses.
func SubscriptionLabel(subscribed bool) string {
	if subscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

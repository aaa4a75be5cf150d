// Package access decides whether an actor may mutate a resource.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/repositories"
)

// Kind names a guarded resource type.
type Kind string

const (
	KindVideo        Kind = "video"
	KindPlaylist     Kind = "playlist"
	KindComment      Kind = "comment"
	KindSubscription Kind = "subscription"
)

// Resource is the ownership view of an entity.
//
// For comments ParentOwnerID is the owner of the commented video; leave it
// empty to restrict a decision to the comment author. For subscriptions
// OwnerID is the subscriber and ID is the channel.
type Resource struct {
	Kind          Kind
	ID            string
	OwnerID       string
	ParentOwnerID string
}

// CanMutate reports whether actorID may change r. It has no side effects.
func CanMutate(actorID string, r Resource) bool {
	if actorID == "" {
		return false
	}
	switch r.Kind {
	case KindVideo, KindPlaylist:
		return r.OwnerID == actorID
	case KindComment:
		return r.OwnerID == actorID || (r.ParentOwnerID != "" && r.ParentOwnerID == actorID)
	case KindSubscription:
		return r.OwnerID == actorID && r.ID != actorID
	default:
		return false
	}
}

// Authorize returns a Forbidden error when CanMutate is false.
func Authorize(actorID string, r Resource) error {
	if CanMutate(actorID, r) {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("you are not allowed to modify this %s", r.Kind))
}

// Require loads the entity with the given id, then checks ownership. A missing
// entity is NotFound regardless of who asks; only an existing entity can yield
// Forbidden.
func Require[T any](
	ctx context.Context,
	kind Kind,
	actorID, id string,
	load func(context.Context, string) (T, error),
	describe func(T) Resource,
) (T, error) {
	entity, err := load(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, repositories.ErrNotFound) {
			return zero, apperr.NotFound(fmt.Sprintf("%s not found", kind))
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return zero, err
		}
		return zero, apperr.Internal(fmt.Sprintf("load %s", kind), err)
	}

	if err := Authorize(actorID, describe(entity)); err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

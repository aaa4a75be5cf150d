// Package controllers implements the mutating operations of the API. Every
// operation follows the same shape: validate input, check that referenced
// entities exist, check ownership, then write through the entity store.
package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/metrics"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// BlobStore uploads and removes media files.
type BlobStore interface {
	Put(ctx context.Context, u media.Upload) (media.Asset, error)
	// Delete removes blobs of a committed change and reports failures.
	Delete(ctx context.Context, locations ...string) error
	// Discard removes blobs of a change that never committed. Best effort.
	Discard(ctx context.Context, locations ...string)
}

// Deps wires the controllers to their collaborators. Metrics, Clock, and
// PasswordCost are optional.
type Deps struct {
	Store        repositories.Store
	Blobs        BlobStore
	Sessions     *auth.Manager
	Clock        clockwork.Clock
	Metrics      *metrics.Metrics
	PasswordCost int
}

// Set groups one controller per resource.
type Set struct {
	Videos        *Videos
	Comments      *Comments
	Playlists     *Playlists
	Subscriptions *Subscriptions
	Accounts      *Accounts
}

// New constructs every controller over the same dependencies.
func New(d Deps) *Set {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.PasswordCost == 0 {
		d.PasswordCost = bcrypt.DefaultCost
	}
	return &Set{
		Videos:        &Videos{store: d.Store, blobs: d.Blobs, clock: d.Clock},
		Comments:      &Comments{store: d.Store, clock: d.Clock},
		Playlists:     &Playlists{store: d.Store, clock: d.Clock},
		Subscriptions: &Subscriptions{store: d.Store, clock: d.Clock},
		Accounts:      &Accounts{store: d.Store, blobs: d.Blobs, sessions: d.Sessions, clock: d.Clock, metrics: d.Metrics, passwordCost: d.PasswordCost},
	}
}

// required trims value and fails with a Validation error naming field when
// nothing is left.
func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperr.Validation(field + " is required")
	}
	return value, nil
}

// optional trims a patch field. A nil or blank value means "keep".
func optional(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// visibleTo reports whether viewerID may see video. Drafts exist only for
// their owner.
func visibleTo(video models.Video, viewerID string) bool {
	return video.IsPublished || video.OwnerID == viewerID
}

func storeError(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("load "+what, err)
}

func writeError(err error, action string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(action + ": referenced record not found")
	}
	return apperr.Internal("failed to "+action, err)
}

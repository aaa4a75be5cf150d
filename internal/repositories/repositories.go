package repositories

import (
	"context"
	"time"

	"github.com/vidshare/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByLogin matches either the username or the email address.
	FindByLogin(ctx context.Context, login string) (models.User, error)
	// Profiles returns the public profile of every known id. Unknown ids are omitted.
	Profiles(ctx context.Context, ids []string) (map[string]models.PublicProfile, error)
}

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Video, error)
	// Update persists title, description, thumbnail, and updated_at.
	Update(ctx context.Context, video models.Video) error
	// TogglePublished flips the publish flag in a single write and returns the new value.
	TogglePublished(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	// Search returns one page of matching videos and the total match count.
	Search(ctx context.Context, filter models.VideoFilter) ([]models.Video, int, error)
}

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// ListForVideo returns one page of comments, newest first, and the total count.
	ListForVideo(ctx context.Context, videoID string, page models.PageRequest) ([]models.Comment, int, error)
}

// PlaylistRepository exposes data access for playlists and their entries.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	// Update persists name, description, and updated_at.
	Update(ctx context.Context, playlist models.Playlist) error
	Delete(ctx context.Context, id string) error
	// AddVideo appends videoID unless it is already present.
	AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) error
	RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) error
	// ListByOwner returns the owner's playlists, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
}

// SubscriptionRepository exposes data access for channel subscriptions.
type SubscriptionRepository interface {
	// Toggle deletes the (subscriber, channel) row when present and creates it
	// otherwise. It reports whether the pair is subscribed afterwards.
	Toggle(ctx context.Context, subscriberID, channelID string, at time.Time) (bool, error)
	// ListByChannel returns the channel's subscriptions, newest first.
	ListByChannel(ctx context.Context, channelID string) ([]models.Subscription, error)
	// ListBySubscriber returns the user's subscriptions, newest first.
	ListBySubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// Store groups the entity repositories behind a single handle.
type Store struct {
	Users         UserRepository
	Videos        VideoRepository
	Comments      CommentRepository
	Playlists     PlaylistRepository
	Subscriptions SubscriptionRepository
}

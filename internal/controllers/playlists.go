package controllers

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vidshare/backend/internal/access"
	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// Playlists handles owner-curated video lists.
type Playlists struct {
	store repositories.Store
	clock clockwork.Clock
}

// UpdatePlaylistInput patches a playlist. Blank fields keep their current value.
type UpdatePlaylistInput struct {
	Name        *string
	Description *string
}

func describePlaylist(p models.Playlist) access.Resource {
	return access.Resource{Kind: access.KindPlaylist, ID: p.ID, OwnerID: p.OwnerID}
}

// Create starts an empty playlist owned by actorID.
func (c *Playlists) Create(ctx context.Context, actorID, name, description string) (models.Playlist, error) {
	name, err := required("name", name)
	if err != nil {
		return models.Playlist{}, err
	}
	description, err = required("description", description)
	if err != nil {
		return models.Playlist{}, err
	}

	now := c.clock.Now().UTC()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Name:        name,
		Description: description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.store.Playlists.Create(ctx, playlist); err != nil {
		return models.Playlist{}, writeError(err, "save playlist")
	}
	return playlist, nil
}

// Update renames or re-describes a playlist.
func (c *Playlists) Update(ctx context.Context, actorID, playlistID string, in UpdatePlaylistInput) (models.Playlist, error) {
	name, description := optional(in.Name), optional(in.Description)
	if name == "" && description == "" {
		return models.Playlist{}, apperr.Validation("name or description is required")
	}

	playlist, err := access.Require(ctx, access.KindPlaylist, actorID, playlistID, c.store.Playlists.FindByID, describePlaylist)
	if err != nil {
		return models.Playlist{}, err
	}

	if name != "" {
		playlist.Name = name
	}
	if description != "" {
		playlist.Description = description
	}
	playlist.UpdatedAt = c.clock.Now().UTC()

	if err := c.store.Playlists.Update(ctx, playlist); err != nil {
		return models.Playlist{}, writeError(err, "update playlist")
	}
	return playlist, nil
}

// Delete removes a playlist. The videos it listed are untouched.
func (c *Playlists) Delete(ctx context.Context, actorID, playlistID string) error {
	playlist, err := access.Require(ctx, access.KindPlaylist, actorID, playlistID, c.store.Playlists.FindByID, describePlaylist)
	if err != nil {
		return err
	}
	if err := c.store.Playlists.Delete(ctx, playlist.ID); err != nil {
		return writeError(err, "delete playlist")
	}
	return nil
}

// AddVideo appends videoID to the playlist. Adding a video that is already
// listed changes nothing.
func (c *Playlists) AddVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error) {
	if _, err := c.store.Videos.FindByID(ctx, videoID); err != nil {
		return models.Playlist{}, storeError(err, "video")
	}

	playlist, err := access.Require(ctx, access.KindPlaylist, actorID, playlistID, c.store.Playlists.FindByID, describePlaylist)
	if err != nil {
		return models.Playlist{}, err
	}

	if playlist.Contains(videoID) {
		return playlist, nil
	}
	if err := c.store.Playlists.AddVideo(ctx, playlist.ID, videoID, c.clock.Now().UTC()); err != nil {
		return models.Playlist{}, writeError(err, "add video to playlist")
	}
	return c.reload(ctx, playlist.ID)
}

// RemoveVideo drops videoID from the playlist. Removing an absent video is a
// no-op.
func (c *Playlists) RemoveVideo(ctx context.Context, actorID, videoID, playlistID string) (models.Playlist, error) {
	playlist, err := access.Require(ctx, access.KindPlaylist, actorID, playlistID, c.store.Playlists.FindByID, describePlaylist)
	if err != nil {
		return models.Playlist{}, err
	}

	if !playlist.Contains(videoID) {
		return playlist, nil
	}
	if err := c.store.Playlists.RemoveVideo(ctx, playlist.ID, videoID, c.clock.Now().UTC()); err != nil {
		return models.Playlist{}, writeError(err, "remove video from playlist")
	}
	return c.reload(ctx, playlist.ID)
}

func (c *Playlists) reload(ctx context.Context, id string) (models.Playlist, error) {
	playlist, err := c.store.Playlists.FindByID(ctx, id)
	if err != nil {
		return models.Playlist{}, storeError(err, "playlist")
	}
	return playlist, nil
}

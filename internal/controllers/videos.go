package controllers

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vidshare/backend/internal/access"
	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// Videos handles uploads, edits, publishing, and deletion of videos.
type Videos struct {
	store repositories.Store
	blobs BlobStore
	clock clockwork.Clock
}

// CreateVideoInput carries a new video and its two files.
type CreateVideoInput struct {
	Title       string
	Description string
	VideoFile   *media.Upload
	Thumbnail   *media.Upload
	// IsPublished defaults to true when nil.
	IsPublished *bool
}

// UpdateVideoInput patches a video. Blank fields keep their current value.
type UpdateVideoInput struct {
	Title       *string
	Description *string
	Thumbnail   *media.Upload
}

func describeVideo(v models.Video) access.Resource {
	return access.Resource{Kind: access.KindVideo, ID: v.ID, OwnerID: v.OwnerID}
}

// Create uploads both files, then records the video. Uploaded blobs are
// discarded when any later step fails.
func (c *Videos) Create(ctx context.Context, actorID string, in CreateVideoInput) (video models.Video, err error) {
	title, err := required("title", in.Title)
	if err != nil {
		return models.Video{}, err
	}
	description, err := required("description", in.Description)
	if err != nil {
		return models.Video{}, err
	}
	if in.VideoFile == nil {
		return models.Video{}, apperr.Validation("videoFile is required")
	}
	if in.Thumbnail == nil {
		return models.Video{}, apperr.Validation("thumbnail is required")
	}

	ctx, span := logging.StartSpan(ctx, "videos.create", slog.String("owner_id", actorID))
	defer func() { span.End(err) }()

	file := *in.VideoFile
	file.Kind = media.KindVideo
	videoAsset, err := c.blobs.Put(ctx, file)
	if err != nil {
		return models.Video{}, apperr.Internal("failed to upload video file", err)
	}

	thumb := *in.Thumbnail
	thumb.Kind = media.KindImage
	thumbAsset, err := c.blobs.Put(ctx, thumb)
	if err != nil {
		c.blobs.Discard(ctx, videoAsset.URL)
		return models.Video{}, apperr.Internal("failed to upload thumbnail", err)
	}

	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	now := c.clock.Now().UTC()
	video = models.Video{
		ID:          uuid.NewString(),
		OwnerID:     actorID,
		Title:       title,
		Description: description,
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Duration:    videoAsset.Duration,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.store.Videos.Create(ctx, video); err != nil {
		c.blobs.Discard(ctx, videoAsset.URL, thumbAsset.URL)
		return models.Video{}, writeError(err, "save video")
	}
	return video, nil
}

// Update changes title, description, or thumbnail. A replaced thumbnail is
// deleted only after the record points at the new one.
func (c *Videos) Update(ctx context.Context, actorID, videoID string, in UpdateVideoInput) (video models.Video, err error) {
	title, description := optional(in.Title), optional(in.Description)
	if title == "" && description == "" && in.Thumbnail == nil {
		return models.Video{}, apperr.Validation("title, description or thumbnail is required")
	}

	ctx, span := logging.StartSpan(ctx, "videos.update", slog.String("video_id", videoID))
	defer func() { span.End(err) }()

	video, err = access.Require(ctx, access.KindVideo, actorID, videoID, c.store.Videos.FindByID, describeVideo)
	if err != nil {
		return models.Video{}, err
	}

	if title != "" {
		video.Title = title
	}
	if description != "" {
		video.Description = description
	}

	oldThumbnail := ""
	if in.Thumbnail != nil {
		thumb := *in.Thumbnail
		thumb.Kind = media.KindImage
		asset, err := c.blobs.Put(ctx, thumb)
		if err != nil {
			return models.Video{}, apperr.Internal("failed to upload thumbnail", err)
		}
		oldThumbnail = video.Thumbnail
		video.Thumbnail = asset.URL
	}
	video.UpdatedAt = c.clock.Now().UTC()

	if err := c.store.Videos.Update(ctx, video); err != nil {
		if in.Thumbnail != nil {
			c.blobs.Discard(ctx, video.Thumbnail)
		}
		return models.Video{}, writeError(err, "update video")
	}

	if oldThumbnail != "" {
		if err := c.blobs.Delete(ctx, oldThumbnail); err != nil {
			return models.Video{}, apperr.Internal("video updated but the previous thumbnail could not be deleted", err)
		}
	}
	return video, nil
}

// Delete removes the record first and the blobs afterwards. When the record
// cannot be deleted the blobs are left untouched.
func (c *Videos) Delete(ctx context.Context, actorID, videoID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "videos.delete", slog.String("video_id", videoID))
	defer func() { span.End(err) }()

	video, err := access.Require(ctx, access.KindVideo, actorID, videoID, c.store.Videos.FindByID, describeVideo)
	if err != nil {
		return err
	}

	if err := c.store.Videos.Delete(ctx, video.ID); err != nil {
		return writeError(err, "delete video")
	}

	if err := c.blobs.Delete(ctx, video.VideoFile, video.Thumbnail); err != nil {
		return apperr.Internal("video deleted but its files could not be removed", err)
	}
	return nil
}

// TogglePublish flips the publish flag and returns the new state.
func (c *Videos) TogglePublish(ctx context.Context, actorID, videoID string) (bool, error) {
	video, err := access.Require(ctx, access.KindVideo, actorID, videoID, c.store.Videos.FindByID, describeVideo)
	if err != nil {
		return false, err
	}

	published, err := c.store.Videos.TogglePublished(ctx, video.ID, c.clock.Now().UTC())
	if err != nil {
		return false, writeError(err, "toggle publish state")
	}
	return published, nil
}

// PublishLabel names a publish state for responses.
func PublishLabel(published bool) string {
	if published {
		return "Published"
	}
	return "Unpublished"
}

package controllers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/vidshare/backend/internal/access"
	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/repositories"
)

// Comments handles remarks on videos.
type Comments struct {
	store repositories.Store
	clock clockwork.Clock
}

type commentOnVideo struct {
	models.Comment
	videoOwnerID string
}

// Add posts content on a video the actor can see.
func (c *Comments) Add(ctx context.Context, actorID, videoID, content string) (models.Comment, error) {
	content, err := required("content", content)
	if err != nil {
		return models.Comment{}, err
	}

	video, err := c.store.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Comment{}, storeError(err, "video")
	}
	if !visibleTo(video, actorID) {
		return models.Comment{}, apperr.NotFound("video not found")
	}

	now := c.clock.Now().UTC()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   actorID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Comments.Create(ctx, comment); err != nil {
		return models.Comment{}, writeError(err, "save comment")
	}
	return comment, nil
}

// Update rewrites the content of a comment. Only its author may do so.
func (c *Comments) Update(ctx context.Context, actorID, commentID, content string) (models.Comment, error) {
	content, err := required("content", content)
	if err != nil {
		return models.Comment{}, err
	}

	comment, err := access.Require(ctx, access.KindComment, actorID, commentID, c.store.Comments.FindByID,
		func(cm models.Comment) access.Resource {
			return access.Resource{Kind: access.KindComment, ID: cm.ID, OwnerID: cm.OwnerID}
		})
	if err != nil {
		return models.Comment{}, err
	}

	now := c.clock.Now().UTC()
	if err := c.store.Comments.UpdateContent(ctx, comment.ID, content, now); err != nil {
		return models.Comment{}, writeError(err, "update comment")
	}
	comment.Content = content
	comment.UpdatedAt = now
	return comment, nil
}

// Delete removes a comment. Its author and the owner of the commented video
// may both do so.
func (c *Comments) Delete(ctx context.Context, actorID, commentID string) error {
	target, err := access.Require(ctx, access.KindComment, actorID, commentID, c.loadWithVideoOwner,
		func(cv commentOnVideo) access.Resource {
			return access.Resource{Kind: access.KindComment, ID: cv.ID, OwnerID: cv.OwnerID, ParentOwnerID: cv.videoOwnerID}
		})
	if err != nil {
		return err
	}

	if err := c.store.Comments.Delete(ctx, target.ID); err != nil {
		return writeError(err, "delete comment")
	}
	return nil
}

func (c *Comments) loadWithVideoOwner(ctx context.Context, id string) (commentOnVideo, error) {
	comment, err := c.store.Comments.FindByID(ctx, id)
	if err != nil {
		return commentOnVideo{}, err
	}

	video, err := c.store.Videos.FindByID(ctx, comment.VideoID)
	switch {
	case err == nil:
		return commentOnVideo{Comment: comment, videoOwnerID: video.OwnerID}, nil
	case errors.Is(err, repositories.ErrNotFound):
		return commentOnVideo{Comment: comment}, nil
	default:
		return commentOnVideo{}, err
	}
}

// Package query builds the joined, sorted, and paginated read views served by
// the API. Every method is a read-only projection over the entity store.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pipeline"
	"github.com/vidshare/backend/internal/repositories"
)

// Engine answers the read-side queries.
type Engine struct {
	store repositories.Store
}

// NewEngine constructs an Engine over store.
func NewEngine(store repositories.Store) *Engine {
	return &Engine{store: store}
}

func storeError(err error, what string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Internal("load "+what, err)
}

// Feed runs the video listing: match on title or description, restrict to
// published videos unless an owner is given, sort, then window.
func (e *Engine) Feed(ctx context.Context, filter models.VideoFilter) (page models.Page[models.VideoWithOwner], err error) {
	ctx, span := logging.StartSpan(ctx, "query.feed",
		slog.String("search", filter.Search),
		slog.String("sort_by", string(filter.SortBy)),
		slog.Int("page", filter.Page),
	)
	defer func() { span.End(err) }()

	videos, total, err := e.store.Videos.Search(ctx, filter)
	if err != nil {
		return models.Page[models.VideoWithOwner]{}, apperr.Internal("search videos", err)
	}

	items, err := e.withOwners(ctx, videos)
	if err != nil {
		return models.Page[models.VideoWithOwner]{}, err
	}

	return models.NewPage(items, filter.PageRequest, total), nil
}

// UserVideos lists every video of userID regardless of publish state, newest first.
func (e *Engine) UserVideos(ctx context.Context, userID string, page models.PageRequest) (models.Page[models.VideoWithOwner], error) {
	return e.Feed(ctx, models.VideoFilter{
		OwnerID:     userID,
		SortBy:      models.SortByCreatedAt,
		Direction:   models.SortDesc,
		PageRequest: page,
	})
}

// VideoDetail joins a video to its owner. Unpublished videos exist only for
// their owner; everyone else gets NotFound.
func (e *Engine) VideoDetail(ctx context.Context, viewerID, videoID string) (models.VideoWithOwner, error) {
	video, err := e.store.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.VideoWithOwner{}, storeError(err, "video")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.VideoWithOwner{}, apperr.NotFound("video not found")
	}

	joined, err := e.withOwners(ctx, []models.Video{video})
	if err != nil {
		return models.VideoWithOwner{}, err
	}
	return joined[0], nil
}

// VideoComments lists a video's comments with author username and avatar,
// newest first. The video must exist and be visible to viewerID.
func (e *Engine) VideoComments(ctx context.Context, viewerID, videoID string, req models.PageRequest) (page models.Page[models.CommentView], err error) {
	ctx, span := logging.StartSpan(ctx, "query.video_comments", slog.String("video_id", videoID))
	defer func() { span.End(err) }()

	video, err := e.store.Videos.FindByID(ctx, videoID)
	if err != nil {
		return models.Page[models.CommentView]{}, storeError(err, "video")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Page[models.CommentView]{}, apperr.NotFound("video not found")
	}

	comments, total, err := e.store.Comments.ListForVideo(ctx, videoID, req)
	if err != nil {
		return models.Page[models.CommentView]{}, apperr.Internal("list comments", err)
	}

	profiles, err := e.profiles(ctx, pipeline.Map(comments, func(c models.Comment) string { return c.OwnerID }))
	if err != nil {
		return models.Page[models.CommentView]{}, err
	}

	views := pipeline.Map(comments, func(c models.Comment) models.CommentView {
		author := profiles[c.OwnerID]
		return models.CommentView{
			ID:        c.ID,
			OwnerID:   c.OwnerID,
			Content:   c.Content,
			Username:  author.Username,
			Avatar:    author.Avatar,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		}
	})

	return models.NewPage(views, req, total), nil
}

// PlaylistDetail joins a playlist to its owner and its videos. Videos are
// ordered newest first and videoCount is derived from the joined list.
func (e *Engine) PlaylistDetail(ctx context.Context, playlistID string) (detail models.PlaylistDetail, err error) {
	ctx, span := logging.StartSpan(ctx, "query.playlist_detail", slog.String("playlist_id", playlistID))
	defer func() { span.End(err) }()

	playlist, err := e.store.Playlists.FindByID(ctx, playlistID)
	if err != nil {
		return models.PlaylistDetail{}, storeError(err, "playlist")
	}

	videos, err := e.store.Videos.FindByIDs(ctx, playlist.VideoIDs)
	if err != nil {
		return models.PlaylistDetail{}, apperr.Internal("load playlist videos", err)
	}
	videos = pipeline.Run(videos, pipeline.Sort(newestVideoFirst))

	joined, err := e.withOwners(ctx, videos)
	if err != nil {
		return models.PlaylistDetail{}, err
	}

	owners, err := e.profiles(ctx, []string{playlist.OwnerID})
	if err != nil {
		return models.PlaylistDetail{}, err
	}

	return models.PlaylistDetail{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Owner:       ownerProfile(owners, playlist.OwnerID),
		Videos:      joined,
		VideoCount:  len(joined),
		CreatedAt:   playlist.CreatedAt,
		UpdatedAt:   playlist.UpdatedAt,
	}, nil
}

// UserPlaylists lists a user's playlists, newest first, with derived counts.
func (e *Engine) UserPlaylists(ctx context.Context, userID string) ([]models.PlaylistSummary, error) {
	if _, err := e.store.Users.FindByID(ctx, userID); err != nil {
		return nil, storeError(err, "user")
	}

	playlists, err := e.store.Playlists.ListByOwner(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list playlists", err)
	}

	return pipeline.Map(playlists, func(p models.Playlist) models.PlaylistSummary {
		if p.VideoIDs == nil {
			p.VideoIDs = []string{}
		}
		return models.PlaylistSummary{Playlist: p, VideoCount: len(p.VideoIDs)}
	}), nil
}

// ChannelSubscribers returns the public profiles of a channel's subscribers.
// The channel must exist.
func (e *Engine) ChannelSubscribers(ctx context.Context, channelID string) ([]models.PublicProfile, error) {
	if _, err := e.store.Users.FindByID(ctx, channelID); err != nil {
		return nil, storeError(err, "channel")
	}

	subs, err := e.store.Subscriptions.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, apperr.Internal("list subscribers", err)
	}
	return e.counterparties(ctx, pipeline.Map(subs, func(s models.Subscription) string { return s.SubscriberID }))
}

// SubscribedChannels returns the public profiles of the channels a user
// follows. An unknown user simply follows nobody.
func (e *Engine) SubscribedChannels(ctx context.Context, subscriberID string) ([]models.PublicProfile, error) {
	subs, err := e.store.Subscriptions.ListBySubscriber(ctx, subscriberID)
	if err != nil {
		return nil, apperr.Internal("list subscriptions", err)
	}
	return e.counterparties(ctx, pipeline.Map(subs, func(s models.Subscription) string { return s.ChannelID }))
}

func (e *Engine) counterparties(ctx context.Context, ids []string) ([]models.PublicProfile, error) {
	profiles, err := e.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (e *Engine) withOwners(ctx context.Context, videos []models.Video) ([]models.VideoWithOwner, error) {
	profiles, err := e.profiles(ctx, pipeline.Map(videos, func(v models.Video) string { return v.OwnerID }))
	if err != nil {
		return nil, err
	}
	return pipeline.Map(videos, func(v models.Video) models.VideoWithOwner {
		return models.VideoWithOwner{Video: v, OwnerInfo: ownerProfile(profiles, v.OwnerID)}
	}), nil
}

func (e *Engine) profiles(ctx context.Context, ids []string) (map[string]models.PublicProfile, error) {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	profiles, err := e.store.Users.Profiles(ctx, unique)
	if err != nil {
		return nil, apperr.Internal("load profiles", fmt.Errorf("%d ids: %w", len(unique), err))
	}
	return profiles, nil
}

func ownerProfile(profiles map[string]models.PublicProfile, id string) models.PublicProfile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return models.PublicProfile{ID: id}
}

func newestVideoFirst(a, b models.Video) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return 1
	}
	if a.ID > b.ID {
		return -1
	}
	return 0
}

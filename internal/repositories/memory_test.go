package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidshare/backend/internal/models"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seedMemoryUser(t *testing.T, store Store, id string) models.User {
	t.Helper()
	user := models.User{ID: id, Username: id, Email: id + "@example.com", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}

func TestMemoryUsers_UniqueAndLogin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedMemoryUser(t, store, "alice")

	err := store.Users.Create(ctx, models.User{ID: "other", Username: "alice", Email: "x@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	byEmail, err := store.Users.FindByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.ID)

	_, err = store.Users.FindByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	profiles, err := store.Users.Profiles(ctx, []string{"alice", "ghost"})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
	assert.Equal(t, "alice", profiles["alice"].Username)
}

func TestMemoryVideos_SearchVisibilitySortAndWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedMemoryUser(t, store, "alice")
	seedMemoryUser(t, store, "bob")

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Videos.Create(ctx, models.Video{
			ID:          fmt.Sprintf("v%d", i),
			OwnerID:     "alice",
			Title:       fmt.Sprintf("Cooking %d", i),
			Views:       int64(10 - i),
			IsPublished: i != 2,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.Videos.Create(ctx, models.Video{
		ID: "b1", OwnerID: "bob", Title: "Gardening", Description: "cooking outdoors", IsPublished: true, CreatedAt: base,
	}))

	videos, total, err := store.Videos.Search(ctx, models.VideoFilter{
		Search:      "COOKING",
		PageRequest: models.PageRequest{Page: 1, PageSize: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"v4", "v3", "v1"}, videoIDs(videos))

	videos, total, err = store.Videos.Search(ctx, models.VideoFilter{
		OwnerID:     "alice",
		SortBy:      models.SortByViews,
		Direction:   models.SortAsc,
		PageRequest: models.PageRequest{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []string{"v4", "v3", "v2", "v1", "v0"}, videoIDs(videos))

	videos, _, err = store.Videos.Search(ctx, models.VideoFilter{
		Search:      "100% real",
		PageRequest: models.PageRequest{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestMemoryVideos_DeleteCascades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedMemoryUser(t, store, "alice")

	require.NoError(t, store.Videos.Create(ctx, models.Video{ID: "v1", OwnerID: "alice", CreatedAt: base}))
	require.NoError(t, store.Comments.Create(ctx, models.Comment{ID: "c1", VideoID: "v1", OwnerID: "alice", Content: "hi", CreatedAt: base}))
	require.NoError(t, store.Playlists.Create(ctx, models.Playlist{ID: "p1", OwnerID: "alice", Name: "mix", CreatedAt: base}))
	require.NoError(t, store.Playlists.AddVideo(ctx, "p1", "v1", base))

	require.NoError(t, store.Videos.Delete(ctx, "v1"))

	_, err := store.Comments.FindByID(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	playlist, err := store.Playlists.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, playlist.VideoIDs)

	assert.ErrorIs(t, store.Videos.Delete(ctx, "v1"), ErrNotFound)
}

func TestMemoryPlaylists_AddIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedMemoryUser(t, store, "alice")
	require.NoError(t, store.Videos.Create(ctx, models.Video{ID: "v1", OwnerID: "alice", CreatedAt: base}))
	require.NoError(t, store.Videos.Create(ctx, models.Video{ID: "v2", OwnerID: "alice", CreatedAt: base}))
	require.NoError(t, store.Playlists.Create(ctx, models.Playlist{ID: "p1", OwnerID: "alice", Name: "mix", CreatedAt: base}))

	require.NoError(t, store.Playlists.AddVideo(ctx, "p1", "v1", base))
	require.NoError(t, store.Playlists.AddVideo(ctx, "p1", "v2", base))
	require.NoError(t, store.Playlists.AddVideo(ctx, "p1", "v1", base))

	playlist, err := store.Playlists.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, playlist.VideoIDs)

	assert.ErrorIs(t, store.Playlists.AddVideo(ctx, "p1", "missing", base), ErrNotFound)
	assert.ErrorIs(t, store.Playlists.AddVideo(ctx, "missing", "v1", base), ErrNotFound)

	require.NoError(t, store.Playlists.RemoveVideo(ctx, "p1", "v1", base))
	require.NoError(t, store.Playlists.RemoveVideo(ctx, "p1", "v1", base))
	playlist, err = store.Playlists.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v2"}, playlist.VideoIDs)
}

func TestMemorySubscriptions_Toggle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedMemoryUser(t, store, "alice")
	seedMemoryUser(t, store, "bob")

	subscribed, err := store.Subscriptions.Toggle(ctx, "alice", "bob", base)
	require.NoError(t, err)
	assert.True(t, subscribed)

	subs, err := store.Subscriptions.ListByChannel(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "alice", subs[0].SubscriberID)

	subscribed, err = store.Subscriptions.Toggle(ctx, "alice", "bob", base)
	require.NoError(t, err)
	assert.False(t, subscribed)

	subs, err = store.Subscriptions.ListBySubscriber(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = store.Subscriptions.Toggle(ctx, "alice", "ghost", base)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVideoSearchSQL(t *testing.T) {
	countSQL, selectSQL, args := videoSearchSQL(models.VideoFilter{
		Search:    "50%_off",
		SortBy:    models.SortByViews,
		Direction: models.SortAsc,
	})

	assert.Equal(t, "SELECT COUNT(*) FROM videos WHERE (title ILIKE $1 OR description ILIKE $1) AND is_published = TRUE", countSQL)
	assert.Contains(t, selectSQL, "ORDER BY views ASC, id ASC LIMIT $2 OFFSET $3")
	assert.Equal(t, []any{`%50\%\_off%`}, args)

	_, selectSQL, args = videoSearchSQL(models.VideoFilter{OwnerID: "alice", SortBy: "bogus"})
	assert.Contains(t, selectSQL, "WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3")
	assert.NotContains(t, selectSQL, "is_published")
	assert.Equal(t, []any{"alice"}, args)
}

func videoIDs(videos []models.Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	return ids
}

package repositories

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func requireDatabase(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("skipping database integration test")
	}
	resetDatabase(t)
}

func TestPostgresUserRepository_CreateAndFind(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := models.User{
		ID:        uuid.NewString(),
		Username:  "someone-else",
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByLogin(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	fetched, err = repo.FindByLogin(ctx, user.Username)
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if fetched.ID != user.ID {
		t.Fatalf("unexpected user fetched by username: %+v", fetched)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	profiles, err := repo.Profiles(ctx, []string{user.ID, uuid.NewString()})
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[user.ID].Username != user.Username {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}

func TestPostgresVideoRepository_SearchAndToggle(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	owner := createTestUser(t, users, "owner")

	baseTime := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
	published := createTestVideo(t, videos, owner.ID, "Published cooking", baseTime, true)
	hidden := createTestVideo(t, videos, owner.ID, "Hidden cooking", baseTime.Add(time.Minute), false)
	createTestVideo(t, videos, owner.ID, "Woodworking", baseTime.Add(2*time.Minute), true)

	feed, total, err := videos.Search(ctx, models.VideoFilter{
		Search:      "cook",
		PageRequest: models.PageRequest{Page: 1, PageSize: 10},
	})
	if err != nil {
		t.Fatalf("search feed: %v", err)
	}
	if total != 1 || len(feed) != 1 || feed[0].ID != published.ID {
		t.Fatalf("expected only the published match, got total=%d %+v", total, feed)
	}

	own, total, err := videos.Search(ctx, models.VideoFilter{
		OwnerID:     owner.ID,
		PageRequest: models.PageRequest{Page: 1, PageSize: 2},
	})
	if err != nil {
		t.Fatalf("search owner videos: %v", err)
	}
	if total != 3 || len(own) != 2 || own[1].ID != hidden.ID {
		t.Fatalf("unexpected owner page total=%d %+v", total, own)
	}

	state, err := videos.TogglePublished(ctx, hidden.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("toggle publish: %v", err)
	}
	if !state {
		t.Fatalf("expected hidden video to become published")
	}

	if _, err := videos.TogglePublished(ctx, uuid.NewString(), time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound toggling unknown video, got %v", err)
	}

	if err := videos.Delete(ctx, published.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if err := videos.Delete(ctx, published.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresPlaylistRepository_Entries(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	playlists := NewPostgresPlaylistRepository(testPool)

	owner := createTestUser(t, users, "curator")
	v1 := createTestVideo(t, videos, owner.ID, "one", time.Now().UTC(), true)
	v2 := createTestVideo(t, videos, owner.ID, "two", time.Now().UTC(), true)

	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Name:        "Favourites",
		Description: "best of",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	for _, id := range []string{v1.ID, v2.ID, v1.ID} {
		if err := playlists.AddVideo(ctx, playlist.ID, id, time.Now().UTC()); err != nil {
			t.Fatalf("add video %s: %v", id, err)
		}
	}

	if err := playlists.AddVideo(ctx, playlist.ID, uuid.NewString(), time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound adding unknown video, got %v", err)
	}

	loaded, err := playlists.FindByID(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("find playlist: %v", err)
	}
	if len(loaded.VideoIDs) != 2 || loaded.VideoIDs[0] != v1.ID {
		t.Fatalf("expected two unique entries in insertion order, got %v", loaded.VideoIDs)
	}

	if err := playlists.RemoveVideo(ctx, playlist.ID, v1.ID, time.Now().UTC()); err != nil {
		t.Fatalf("remove video: %v", err)
	}

	owned, err := playlists.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(owned) != 1 || len(owned[0].VideoIDs) != 1 || owned[0].VideoIDs[0] != v2.ID {
		t.Fatalf("unexpected owner playlists: %+v", owned)
	}
}

func TestPostgresSubscriptionRepository_Toggle(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	users := NewPostgresUserRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	fan := createTestUser(t, users, "fan")
	channel := createTestUser(t, users, "channel")

	on, err := subs.Toggle(ctx, fan.ID, channel.ID, time.Now().UTC())
	if err != nil || !on {
		t.Fatalf("expected subscribe, got %v %v", on, err)
	}

	list, err := subs.ListByChannel(ctx, channel.ID)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(list) != 1 || list[0].SubscriberID != fan.ID {
		t.Fatalf("unexpected subscribers: %+v", list)
	}

	on, err = subs.Toggle(ctx, fan.ID, channel.ID, time.Now().UTC())
	if err != nil || on {
		t.Fatalf("expected unsubscribe, got %v %v", on, err)
	}

	if _, err := subs.Toggle(ctx, fan.ID, uuid.NewString(), time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}
}

func TestPostgresSessionStore_PutRotateClear(t *testing.T) {
	requireDatabase(t)
	ctx := context.Background()

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "owner")

	store := NewPostgresSessionStore(testPool)
	expires := time.Now().UTC().Add(24 * time.Hour)

	if err := store.Rotate(ctx, user.ID, "h0", auth.Session{TokenHash: "h1", ExpiresAt: expires}); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound rotating empty slot, got %v", err)
	}

	if err := store.Put(ctx, auth.Session{UserID: user.ID, TokenHash: "h1", ExpiresAt: expires}); err != nil {
		t.Fatalf("put session: %v", err)
	}

	if err := store.Rotate(ctx, user.ID, "stale", auth.Session{TokenHash: "h2", ExpiresAt: expires}); !errors.Is(err, auth.ErrTokenMismatch) {
		t.Fatalf("expected ErrTokenMismatch, got %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Rotate(ctx, user.ID, "h1", auth.Session{TokenHash: fmt.Sprintf("next-%d", i), ExpiresAt: expires})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, auth.ErrTokenMismatch) {
				t.Errorf("unexpected rotate error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winning rotation, got %d", wins)
	}

	if err := store.Clear(ctx, user.ID); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if err := store.Clear(ctx, user.ID); err != nil {
		t.Fatalf("clear empty session: %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE playlist_videos, playlists, comments, subscriptions, videos, sessions, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, createdAt time.Time, published bool) models.Video {
	t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: title + " description",
		VideoFile:   "https://cdn.example.com/videos/" + title,
		Thumbnail:   "https://cdn.example.com/images/" + title,
		Duration:    12.5,
		IsPublished: published,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}

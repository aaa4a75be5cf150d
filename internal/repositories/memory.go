package repositories

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pipeline"
)

// NewMemoryStore returns a Store whose repositories share one in-memory
// dataset. It mirrors the PostgreSQL constraints (unique keys, foreign keys,
// cascades) and is used by tests and local development.
func NewMemoryStore() Store {
	state := &memoryState{
		users:     make(map[string]models.User),
		videos:    make(map[string]models.Video),
		comments:  make(map[string]models.Comment),
		playlists: make(map[string]models.Playlist),
		subs:      make(map[subscriptionKey]models.Subscription),
	}
	return Store{
		Users:         &memoryUsers{state},
		Videos:        &memoryVideos{state},
		Comments:      &memoryComments{state},
		Playlists:     &memoryPlaylists{state},
		Subscriptions: &memorySubscriptions{state},
	}
}

type subscriptionKey struct {
	subscriber string
	channel    string
}

type memoryState struct {
	mu        sync.RWMutex
	users     map[string]models.User
	videos    map[string]models.Video
	comments  map[string]models.Comment
	playlists map[string]models.Playlist
	subs      map[subscriptionKey]models.Subscription
}

func values[K comparable, V any](m map[K]V) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func newestFirst[T any](createdAt func(T) time.Time, id func(T) string) func(a, b T) int {
	return pipeline.Reverse(func(a, b T) int {
		if c := createdAt(a).Compare(createdAt(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	})
}

type memoryUsers struct{ *memoryState }

func (s *memoryUsers) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (s *memoryUsers) FindByLogin(_ context.Context, login string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == login || user.Email == login {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *memoryUsers) Profiles(_ context.Context, ids []string) (map[string]models.PublicProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make(map[string]models.PublicProfile, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			profiles[id] = user.Profile()
		}
	}
	return profiles, nil
}

type memoryVideos struct{ *memoryState }

func (s *memoryVideos) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[video.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *memoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (s *memoryVideos) FindByIDs(_ context.Context, ids []string) ([]models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Video
	for _, id := range ids {
		if video, ok := s.videos[id]; ok {
			out = append(out, video)
		}
	}
	return out, nil
}

func (s *memoryVideos) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.videos[video.ID]
	if !ok {
		return ErrNotFound
	}
	current.Title = video.Title
	current.Description = video.Description
	current.Thumbnail = video.Thumbnail
	current.UpdatedAt = video.UpdatedAt
	s.videos[video.ID] = current
	return nil
}

func (s *memoryVideos) TogglePublished(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[id]
	if !ok {
		return false, ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	video.UpdatedAt = at
	s.videos[id] = video
	return video.IsPublished, nil
}

func (s *memoryVideos) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[id]; !ok {
		return ErrNotFound
	}
	delete(s.videos, id)

	for commentID, comment := range s.comments {
		if comment.VideoID == id {
			delete(s.comments, commentID)
		}
	}
	for playlistID, playlist := range s.playlists {
		if playlist.Contains(id) {
			playlist.VideoIDs = slices.DeleteFunc(slices.Clone(playlist.VideoIDs), func(v string) bool { return v == id })
			s.playlists[playlistID] = playlist
		}
	}
	return nil
}

func videoComparator(field models.SortField) func(a, b models.Video) int {
	return func(a, b models.Video) int {
		var c int
		switch field {
		case models.SortByViews:
			c = cmp.Compare(a.Views, b.Views)
		case models.SortByTitle:
			c = cmp.Compare(a.Title, b.Title)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	}
}

func (s *memoryVideos) Search(_ context.Context, filter models.VideoFilter) ([]models.Video, int, error) {
	s.mu.RLock()
	all := values(s.videos)
	s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	order := videoComparator(filter.SortBy)
	if filter.Direction != models.SortAsc {
		order = pipeline.Reverse(order)
	}

	matched := pipeline.Run(all,
		pipeline.Match(func(v models.Video) bool {
			if filter.OwnerID != "" {
				return v.OwnerID == filter.OwnerID
			}
			return v.IsPublished
		}),
		pipeline.Match(func(v models.Video) bool {
			return needle == "" ||
				strings.Contains(strings.ToLower(v.Title), needle) ||
				strings.Contains(strings.ToLower(v.Description), needle)
		}),
		pipeline.Sort(order),
	)

	return pipeline.Window[models.Video](filter.PageRequest)(matched), len(matched), nil
}

type memoryComments struct{ *memoryState }

func (s *memoryComments) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[comment.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.videos[comment.VideoID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[comment.OwnerID]; !ok {
		return ErrNotFound
	}
	s.comments[comment.ID] = comment
	return nil
}

func (s *memoryComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return comment, nil
}

func (s *memoryComments) UpdateContent(_ context.Context, id, content string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = at
	s.comments[id] = comment
	return nil
}

func (s *memoryComments) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *memoryComments) ListForVideo(_ context.Context, videoID string, page models.PageRequest) ([]models.Comment, int, error) {
	s.mu.RLock()
	all := values(s.comments)
	s.mu.RUnlock()

	matched := pipeline.Run(all,
		pipeline.Match(func(c models.Comment) bool { return c.VideoID == videoID }),
		pipeline.Sort(newestFirst(
			func(c models.Comment) time.Time { return c.CreatedAt },
			func(c models.Comment) string { return c.ID },
		)),
	)

	return pipeline.Window[models.Comment](page)(matched), len(matched), nil
}

type memoryPlaylists struct{ *memoryState }

func clonePlaylist(p models.Playlist) models.Playlist {
	p.VideoIDs = slices.Clone(p.VideoIDs)
	return p
}

func (s *memoryPlaylists) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[playlist.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.users[playlist.OwnerID]; !ok {
		return ErrNotFound
	}
	playlist.VideoIDs = nil
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *memoryPlaylists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	return clonePlaylist(playlist), nil
}

func (s *memoryPlaylists) Update(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.playlists[playlist.ID]
	if !ok {
		return ErrNotFound
	}
	current.Name = playlist.Name
	current.Description = playlist.Description
	current.UpdatedAt = playlist.UpdatedAt
	s.playlists[playlist.ID] = current
	return nil
}

func (s *memoryPlaylists) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

func (s *memoryPlaylists) AddVideo(_ context.Context, playlistID, videoID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.videos[videoID]; !ok {
		return ErrNotFound
	}
	if playlist.Contains(videoID) {
		return nil
	}
	playlist.VideoIDs = append(slices.Clone(playlist.VideoIDs), videoID)
	playlist.UpdatedAt = at
	s.playlists[playlistID] = playlist
	return nil
}

func (s *memoryPlaylists) RemoveVideo(_ context.Context, playlistID, videoID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlist, ok := s.playlists[playlistID]
	if !ok {
		return ErrNotFound
	}
	if !playlist.Contains(videoID) {
		return nil
	}
	playlist.VideoIDs = slices.DeleteFunc(slices.Clone(playlist.VideoIDs), func(v string) bool { return v == videoID })
	playlist.UpdatedAt = at
	s.playlists[playlistID] = playlist
	return nil
}

func (s *memoryPlaylists) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.RLock()
	all := make([]models.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		all = append(all, clonePlaylist(p))
	}
	s.mu.RUnlock()

	return pipeline.Run(all,
		pipeline.Match(func(p models.Playlist) bool { return p.OwnerID == ownerID }),
		pipeline.Sort(newestFirst(
			func(p models.Playlist) time.Time { return p.CreatedAt },
			func(p models.Playlist) string { return p.ID },
		)),
	), nil
}

type memorySubscriptions struct{ *memoryState }

func (s *memorySubscriptions) Toggle(_ context.Context, subscriberID, channelID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subs[key]; ok {
		delete(s.subs, key)
		return false, nil
	}
	if _, ok := s.users[subscriberID]; !ok {
		return false, ErrNotFound
	}
	if _, ok := s.users[channelID]; !ok {
		return false, ErrNotFound
	}
	s.subs[key] = models.Subscription{SubscriberID: subscriberID, ChannelID: channelID, CreatedAt: at}
	return true, nil
}

func (s *memorySubscriptions) list(keep func(models.Subscription) bool) []models.Subscription {
	s.mu.RLock()
	all := values(s.subs)
	s.mu.RUnlock()

	return pipeline.Run(all,
		pipeline.Match(keep),
		pipeline.Sort(newestFirst(
			func(sub models.Subscription) time.Time { return sub.CreatedAt },
			func(sub models.Subscription) string { return sub.SubscriberID + "/" + sub.ChannelID },
		)),
	)
}

func (s *memorySubscriptions) ListByChannel(_ context.Context, channelID string) ([]models.Subscription, error) {
	return s.list(func(sub models.Subscription) bool { return sub.ChannelID == channelID }), nil
}

func (s *memorySubscriptions) ListBySubscriber(_ context.Context, subscriberID string) ([]models.Subscription, error) {
	return s.list(func(sub models.Subscription) bool { return sub.SubscriberID == subscriberID }), nil
}

package models

import "time"

// User represents an account (and channel) within the vidshare platform.
type User struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Avatar     string
	CoverImage string
	Password   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PublicProfile is the fixed field set joined into other resources.
// It never carries credentials.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar"`
}

// Profile projects the public fields of the user.
func (u User) Profile() PublicProfile {
	return PublicProfile{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// Account is the view a user gets of their own record.
type Account struct {
	PublicProfile
	Email      string    `json:"email"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Account projects the self-view of the user.
func (u User) Account() Account {
	return Account{PublicProfile: u.Profile(), Email: u.Email, CoverImage: u.CoverImage, CreatedAt: u.CreatedAt}
}

// Video is an uploaded video and its media locations.
type Video struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoWithOwner joins a video to its owner's public profile.
type VideoWithOwner struct {
	Video
	OwnerInfo PublicProfile `json:"ownerInfo"`
}

// Comment is a user's remark on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CommentView is a comment joined to its author's username and avatar.
type CommentView struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Playlist is an ordered, duplicate-free list of videos curated by its owner.
type Playlist struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Contains reports whether videoID is already part of the playlist.
func (p Playlist) Contains(videoID string) bool {
	for _, id := range p.VideoIDs {
		if id == videoID {
			return true
		}
	}
	return false
}

// PlaylistSummary adds the derived video count to a playlist.
type PlaylistSummary struct {
	Playlist
	VideoCount int `json:"videoCount"`
}

// PlaylistDetail joins a playlist to its owner and its videos.
type PlaylistDetail struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       PublicProfile    `json:"owner"`
	Videos      []VideoWithOwner `json:"playlistVideos"`
	VideoCount  int              `json:"videoCount"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Subscription links a subscriber to a channel (both users).
type Subscription struct {
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/query"
)

// PlaylistHandler serves the /playlists endpoints.
type PlaylistHandler struct {
	Playlists *controllers.Playlists
	Queries   *query.Engine
}

// Create handles POST /playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	playlist, err := h.Playlists.Create(ctx, actorID(r), form.value("name"), form.value("description"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// ByUser handles GET /playlists/user/{userId}.
func (h PlaylistHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlists, err := h.Queries.UserPlaylists(ctx, r.PathValue("userId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, playlists, "playlists fetched successfully")
}

// Detail handles GET /playlists/{playlistId}.
func (h PlaylistHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	detail, err := h.Queries.PlaylistDetail(ctx, r.PathValue("playlistId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, detail, "playlist fetched successfully")
}

// Update handles PATCH /playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	playlist, err := h.Playlists.Update(ctx, actorID(r), r.PathValue("playlistId"), controllers.UpdatePlaylistInput{
		Name:        form.optional("name"),
		Description: form.optional("description"),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, playlist, "playlist updated successfully")
}

// Delete handles DELETE /playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Playlists.Delete(ctx, actorID(r), r.PathValue("playlistId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.AddVideo(ctx, actorID(r), r.PathValue("videoId"), r.PathValue("playlistId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, playlist, "video added to playlist")
}

// RemoveVideo handles PATCH /playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, err := h.Playlists.RemoveVideo(ctx, actorID(r), r.PathValue("videoId"), r.PathValue("playlistId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, playlist, "video removed from playlist")
}

package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/media"
	"github.com/vidshare/backend/internal/query"
)

// VideoHandler serves the /videos endpoints.
type VideoHandler struct {
	Videos         *controllers.Videos
	Queries        *query.Engine
	MaxUploadBytes int64
}

// Feed handles GET /videos.
func (h VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := query.ParseFeed(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, err := h.Queries.Feed(ctx, filter)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// ByUser handles GET /videos/user/{userId}.
func (h VideoHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageReq, err := query.ParsePageRequest(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, err := h.Queries.UserVideos(ctx, r.PathValue("userId"), pageReq)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, page, "user videos fetched successfully")
}

// Detail handles GET /videos/{videoId}.
func (h VideoHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, err := h.Queries.VideoDetail(ctx, actorID(r), r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Create handles POST /videos (multipart: videoFile, thumbnail).
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readUploadForm(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	in := controllers.CreateVideoInput{Title: form.value("title"), Description: form.value("description")}
	if in.IsPublished, err = form.boolean("isPublished"); err != nil {
		respondError(ctx, w, err)
		return
	}
	if in.VideoFile, err = form.upload("videoFile", media.KindVideo); err != nil {
		respondError(ctx, w, err)
		return
	}
	if in.Thumbnail, err = form.upload("thumbnail", media.KindImage); err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Create(ctx, actorID(r), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, video, "video uploaded successfully")
}

// Update handles PATCH /videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readUploadForm(w, r, h.MaxUploadBytes)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	in := controllers.UpdateVideoInput{Title: form.optional("title"), Description: form.optional("description")}
	if in.Thumbnail, err = form.upload("thumbnail", media.KindImage); err != nil {
		respondError(ctx, w, err)
		return
	}

	video, err := h.Videos.Update(ctx, actorID(r), r.PathValue("videoId"), in)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Videos.Delete(ctx, actorID(r), r.PathValue("videoId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /videos/toggle-publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	published, err := h.Videos.TogglePublish(ctx, actorID(r), r.PathValue("videoId"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"isPublished": published,
		"status":      controllers.PublishLabel(published),
	}, "video "+controllers.PublishLabel(published))
}

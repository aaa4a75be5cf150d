package handlers

import (
	"net/http"

	"github.com/vidshare/backend/internal/controllers"
	"github.com/vidshare/backend/internal/query"
)

// CommentHandler serves the /comments endpoints.
type CommentHandler struct {
	Comments *controllers.Comments
	Queries  *query.Engine
}

// List handles GET /comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageReq, err := query.ParsePageRequest(r.URL.Query())
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	page, err := h.Queries.VideoComments(ctx, actorID(r), r.PathValue("videoId"), pageReq)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, page, "comments fetched successfully")
}

// Add handles POST /comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	comment, err := h.Comments.Add(ctx, actorID(r), r.PathValue("videoId"), form.value("content"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := readForm(w, r)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	defer form.close()

	comment, err := h.Comments.Update(ctx, actorID(r), r.PathValue("commentId"), form.value("content"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, comment, "comment updated successfully")
}

// Delete handles DELETE /comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Comments.Delete(ctx, actorID(r), r.PathValue("commentId")); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}

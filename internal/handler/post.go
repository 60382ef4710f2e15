package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillshare/internal/service"
)

// PostHandler serves posts, the feed and engagement on posts.
type PostHandler struct {
	posts      *service.PostService
	feed       *service.FeedComposer
	engagement *service.EngagementService
	runs       *service.CodeRunService
	logger     *slog.Logger
}

func NewPostHandler(
	posts *service.PostService,
	feed *service.FeedComposer,
	engagement *service.EngagementService,
	runs *service.CodeRunService,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		posts:      posts,
		feed:       feed,
		engagement: engagement,
		runs:       runs,
		logger:     logger,
	}
}

// HandleCreate handles POST /posts.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.posts.Create(r.Context(), me, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleFeed handles GET /posts.
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	posts, err := h.feed.Feed(r.Context(), me)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleListByUser handles GET /posts/user/{userId}.
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListByAuthor(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet handles GET /posts/{postId}.
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.Get(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /posts/{postId}.
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.posts.Delete(r.Context(), me, chi.URLParam(r, "postId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post deleted successfully"})
}

// HandleLike handles POST /posts/{postId}/like.
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	res, err := h.engagement.ToggleLike(r.Context(), me, chi.URLParam(r, "postId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type commentRequest struct {
	Content string `json:"content"`
}

// HandleComment handles POST /posts/{postId}/comment.
func (h *PostHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	var in commentRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.engagement.AddComment(r.Context(), me, chi.URLParam(r, "postId"), in.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRun handles POST /posts/{postId}/run.
func (h *PostHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	res, err := h.runs.RunPost(r.Context(), chi.URLParam(r, "postId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillshare/internal/service"
)

type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleGetProfile handles GET /users/profile. The gate already loaded the
// principal for this request, so it is returned as is.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, me)
}

// HandleUpdateProfile handles PUT /users/profile.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	var in service.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.users.UpdateProfile(r.Context(), me, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetUser handles GET /users/{userId}.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleFollow handles POST /users/{userId}/follow.
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.users.Follow(r.Context(), me, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// HandleUnfollow handles DELETE /users/{userId}/follow.
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.users.Unfollow(r.Context(), me, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

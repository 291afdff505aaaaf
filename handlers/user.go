package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/services"
)

// UserHandler, profil başlığı ve takip endpoint'leri.
type UserHandler struct {
	follow services.FollowService
}

// NewUserHandler, constructor.
func NewUserHandler(follow services.FollowService) *UserHandler {
	return &UserHandler{follow: follow}
}

// Get godoc
// GET /api/users/{username}
//
// Kullanıcı özetini yükler ve takip durumunu seed eder.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.follow.LoadUser(r.Context(), r.PathValue("username"))
	if !ok {
		writeFailure(w, h.follow.Error())
		return
	}
	if cur, ok := h.follow.User(user.Username); ok {
		user = cur
	}
	pkg.JSON(w, http.StatusOK, user)
}

type followRequest struct {
	Username string `json:"username"`
}

// ToggleFollow godoc
// POST /api/users/{userId}/follow
//
// Body opsiyonel: { "username": "mehmet" }. Optimistic; yanıt yeni takip durumunu taşır.
func (h *UserHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := r.PathValue("userId")
	if !h.follow.ToggleFollow(userID, req.Username) {
		writeFailure(w, h.follow.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]any{
		"userId":      userID,
		"isFollowing": h.follow.IsFollowing(userID),
	})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang/glog"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/services"
	"github.com/akinalp/memesync/ws"
)

// SessionManager, auth collaborator'ın login/logout yüzü. *session.Session karşılar.
type SessionManager interface {
	Login(token string) (models.SessionUser, error)
	Logout()
	Current() (models.SessionUser, bool)
}

// ConnectionStatus, status endpoint'inin okuduğu bağlantı durumu. *ws.Manager karşılar.
type ConnectionStatus interface {
	State() ws.State
	Degraded() bool
	Subscriptions() []string
}

// SessionHandler, oturum ve durum endpoint'leri.
type SessionHandler struct {
	session       SessionManager
	conn          ConnectionStatus
	content       services.ContentService
	notifications services.NotificationService
}

// NewSessionHandler, constructor.
func NewSessionHandler(
	session SessionManager,
	conn ConnectionStatus,
	content services.ContentService,
	notifications services.NotificationService,
) *SessionHandler {
	return &SessionHandler{
		session:       session,
		conn:          conn,
		content:       content,
		notifications: notifications,
	}
}

type loginRequest struct {
	Token string `json:"token"`
}

// Login godoc
// POST /api/session
//
// Renderer'ın aldığı bearer token ile oturum açar. Token imzası burada
// doğrulanmaz; payload'dan kimlik okunur, sunucu her istekte doğrular.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := strings.TrimSpace(strings.TrimPrefix(req.Token, "Bearer "))
	user, err := h.session.Login(token)
	if err != nil {
		glog.Warningf("[bridge] login rejected: %v", err)
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// Logout godoc
// DELETE /api/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Logout()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type statusResponse struct {
	Authenticated     bool                `json:"authenticated"`
	User              *models.SessionUser `json:"user,omitempty"`
	Connection        ws.State            `json:"connection"`
	Degraded          bool                `json:"degraded"`
	Subscriptions     []string            `json:"subscriptions"`
	Error             string              `json:"error,omitempty"`
	NotificationError string              `json:"notificationError,omitempty"`
	Unread            int                 `json:"unread"`
}

// Status godoc
// GET /api/status
//
// Bağlantı durumu, degraded bayrağı, açık post abonelikleri ve store'ların son hatası.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Connection:    h.conn.State(),
		Degraded:      h.conn.Degraded(),
		Subscriptions: h.conn.Subscriptions(),
		Unread:        h.notifications.UnreadCount(),
	}
	if user, ok := h.session.Current(); ok {
		resp.Authenticated = true
		resp.User = &user
	}
	if err := h.content.Error(); err != nil {
		resp.Error = err.Error()
	}
	if err := h.notifications.Error(); err != nil {
		resp.NotificationError = err.Error()
	}

	pkg.JSON(w, http.StatusOK, resp)
}

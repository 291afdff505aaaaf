package handlers

import (
	"net/http"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/services"
)

// NotificationHandler, Notification Ingest listesi.
type NotificationHandler struct {
	notifications services.NotificationService
}

// NewNotificationHandler, constructor.
func NewNotificationHandler(notifications services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

type notificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// List godoc
// GET /api/notifications?refresh=true
//
// refresh verilirse backlog tekrar çekilip canlı listeyle birleştirilir.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		if !h.notifications.Fetch(r.Context()) {
			writeFailure(w, h.notifications.Error())
			return
		}
	}

	pkg.JSON(w, http.StatusOK, notificationListResponse{
		Notifications: h.notifications.List(),
		Unread:        h.notifications.UnreadCount(),
	})
}

// MarkRead godoc
// POST /api/notifications/read
//
// Tüm okunmamışlar tek batch çağrısıyla okundu yapılır.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if !h.notifications.MarkAllRead(r.Context()) {
		writeFailure(w, h.notifications.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]int{"unread": h.notifications.UnreadCount()})
}

// Clear godoc
// DELETE /api/notifications
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.notifications.ClearAll(r.Context()) {
		writeFailure(w, h.notifications.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notifications cleared"})
}

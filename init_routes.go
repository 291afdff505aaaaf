// Package main: Bridge route registration.
//
// initRoutes, rendering collaborator'ın konuştuğu tüm endpoint'leri mux'a bağlar.
// /api/session, /api/status, /api/health ve home feed dışındaki her route oturum ister.
package main

import (
	"net/http"

	"github.com/akinalp/memesync/middleware"
)

// initRoutes, middleware chain'i kurar ve endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: literal path'ler parametrik path'lerden önce tanımlanır
// ("/api/items/close" → "/api/items/{id}/..." öncesinde).
func initRoutes(mux *http.ServeMux, h *Handlers, identity middleware.Identity) {
	sessionMw := middleware.NewSessionMiddleware(identity)

	auth := func(handler http.HandlerFunc) http.Handler {
		return sessionMw.RequireSession(handler)
	}
	optional := func(handler http.HandlerFunc) http.Handler {
		return sessionMw.AttachSession(handler)
	}

	// Health
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"memesync"}`))
	})

	// Session
	mux.HandleFunc("POST /api/session", h.Session.Login)
	mux.HandleFunc("DELETE /api/session", h.Session.Logout)
	mux.HandleFunc("GET /api/status", h.Session.Status)

	// Feeds: anonim istek sadece home'a (trending) ulaşır, handler diğerlerini 401 ile reddeder.
	mux.Handle("GET /api/feeds/{feed}", optional(h.Feed.List))
	mux.Handle("POST /api/feeds/{feed}/first", optional(h.Feed.FetchFirst))
	mux.Handle("POST /api/feeds/{feed}/next", optional(h.Feed.FetchNext))

	// Search
	mux.Handle("POST /api/search", auth(h.Feed.Search))
	mux.Handle("DELETE /api/search", auth(h.Feed.ClearSearch))

	// Items
	mux.Handle("POST /api/items/close", auth(h.Feed.Close))
	mux.Handle("POST /api/items/{id}/like", auth(h.Feed.ToggleLike))
	mux.Handle("POST /api/items/{id}/save", auth(h.Feed.ToggleSave))
	mux.Handle("POST /api/items/{id}/open", auth(h.Feed.Open))
	mux.Handle("DELETE /api/items/{id}", auth(h.Feed.Delete))
	mux.Handle("GET /api/items/{id}/comments", auth(h.Feed.Comments))
	mux.Handle("POST /api/items/{id}/comments", auth(h.Feed.AddComment))

	// Profiles & users
	mux.Handle("GET /api/profiles/{userId}/{tab}", auth(h.Feed.Profile))
	mux.Handle("GET /api/users/{username}", auth(h.User.Get))
	mux.Handle("POST /api/users/{userId}/follow", auth(h.User.ToggleFollow))

	// Notifications
	mux.Handle("GET /api/notifications", auth(h.Notification.List))
	mux.Handle("POST /api/notifications/read", auth(h.Notification.MarkRead))
	mux.Handle("DELETE /api/notifications", auth(h.Notification.Clear))
}

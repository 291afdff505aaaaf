// Package main: Handler katmanı başlatma.
//
// Handler'lar "thin" dir: sadece HTTP parse + store çağrısı + response write.
package main

import (
	"github.com/akinalp/memesync/handlers"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Session      *handlers.SessionHandler
	Feed         *handlers.FeedHandler
	User         *handlers.UserHandler
	Notification *handlers.NotificationHandler
}

// initHandlers, handler'ları store'lar, session ve bağlantı durumu ile oluşturur.
func initHandlers(svcs *Services, sess handlers.SessionManager, conn handlers.ConnectionStatus) *Handlers {
	return &Handlers{
		Session:      handlers.NewSessionHandler(sess, conn, svcs.Content, svcs.Notification),
		Feed:         handlers.NewFeedHandler(svcs.Content),
		User:         handlers.NewUserHandler(svcs.Follow),
		Notification: handlers.NewNotificationHandler(svcs.Notification),
	}
}

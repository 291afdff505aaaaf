// Package main: Session callback wire-up.
//
// registerSessionCallbacks, login/logout olaylarını Connection Manager'a ve store'lara bağlar.
// Session paketi ws ve services'e bağımlı değildir; katmanlar burada birleşir.
package main

import (
	"context"

	"github.com/golang/glog"

	"github.com/akinalp/memesync/session"
)

// connector, Connection Manager'ın yaşam döngüsü yüzü. *ws.Manager karşılar.
type connector interface {
	Connect(ctx context.Context) error
	Disconnect()
}

// registerSessionCallbacks, login'de bağlanır ve bildirim backlog'unu çeker;
// logout'ta bağlantıyı kapatır ve tüm store'ları sıfırlar.
//
// Listener, Login / Logout'u çağıran goroutine'de çalışır. Connect bloklamaz
// (sadece ilk dial'ı yapar); backlog fetch ayrı goroutine'de yapılır.
func registerSessionCallbacks(ctx context.Context, sess *session.Session, manager connector, svcs *Services) (unsubscribe func()) {
	return sess.OnChange(func(ev session.Event) {
		switch ev.Kind {
		case session.LoggedIn:
			if err := manager.Connect(ctx); err != nil {
				glog.Warningf("[main] realtime connect for %s failed: %v", ev.User.Username, err)
			}
			go func() {
				if !svcs.Notification.Fetch(ctx) {
					glog.Warningf("[main] notification backlog failed: %v", svcs.Notification.Error())
				}
			}()

		case session.LoggedOut:
			manager.Disconnect()
			svcs.Content.Reset()
			svcs.Notification.Reset()
			svcs.Follow.Reset()
		}
	})
}

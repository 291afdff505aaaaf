package services

import (
	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/ws"
)

// Realtime, store'ların Connection Manager'dan kullandığı yüz.
// *ws.Manager bu interface'i karşılar; testlerde fake kullanılır.
//
// Abonelik kararı store'a aittir: store Subscribe / Unsubscribe çağırır,
// Manager kendiliğinden abone olmaz.
type Realtime interface {
	Send(msg ws.Message) bool
	Subscribe(postID string) bool
	Unsubscribe(postID string) bool
	State() ws.State
	Degraded() bool
	OnStateChange(fn func(ws.StateChange)) func()
}

// Identity, auth collaborator'ın senkron accessor'ı. *session.Session karşılar.
type Identity interface {
	Current() (models.SessionUser, bool)
}

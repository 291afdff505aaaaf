// Package middleware, bridge request pipeline'ına eklenen ara katmanlar.
//
// Go'da middleware bir fonksiyondur: func(next http.Handler) http.Handler.
// Middleware kendi işini yapar, sonra next'i çağırır; hata varsa request burada durur.
package middleware

import (
	"context"
	"net/http"

	"github.com/akinalp/memesync/handlers"
	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
)

// Identity, oturumun senkron accessor'ı. *session.Session karşılar.
type Identity interface {
	Current() (models.SessionUser, bool)
}

// SessionMiddleware, oturum açık olmasını zorunlu kılar.
type SessionMiddleware struct {
	identity Identity
}

// NewSessionMiddleware, constructor.
func NewSessionMiddleware(identity Identity) *SessionMiddleware {
	return &SessionMiddleware{identity: identity}
}

// RequireSession, oturum yoksa 401 döner; varsa kullanıcıyı context'e ekleyip next'i çağırır.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := m.identity.Current()
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "login required")
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AttachSession, oturum varsa kullanıcıyı context'e ekler; yoksa isteği anonim geçirir.
// Anonim erişimin kapsamına handler karar verir (ör. sadece home / trending).
func (m *SessionMiddleware) AttachSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := m.identity.Current(); ok {
			r = r.WithContext(context.WithValue(r.Context(), handlers.UserContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

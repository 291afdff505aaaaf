// Package session, auth collaborator'ın sync engine tarafındaki yüzüdür.
//
// Global singleton yok: Session constructor ile oluşturulur ve Connection Manager'a,
// repository'lere ve store'lara parametre olarak verilir. Testler birbirinden
// izole instance'lar oluşturabilir.
//
// Token'ın imzası burada doğrulanmaz (secret sunucudadır). Sadece payload okunur,
// kimlik ve expiry çıkarılır; sunucu her istekte token'ı zaten doğrular.
package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/glog"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
)

// EventKind, oturum olayı tipi.
type EventKind int

const (
	LoggedIn EventKind = iota + 1
	LoggedOut
)

func (k EventKind) String() string {
	switch k {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event, login/logout bildirimi. LoggedOut'ta User çıkış yapan kullanıcıdır.
type Event struct {
	Kind EventKind
	User models.SessionUser
}

// Session, mevcut kullanıcının kimliği ve bearer token'ı.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *models.SessionUser
	now   func() time.Time

	listenMu  sync.Mutex
	listeners map[uint64]func(Event)
	nextID    uint64
}

// New, boş (anonim) bir Session oluşturur.
func New() *Session {
	return &Session{
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
}

// Login, token'dan kullanıcıyı çıkarır ve oturumu açar.
//
// Aynı kullanıcı için tekrar çağrılırsa sadece token yenilenir (event yok).
// Farklı kullanıcı için önce LoggedOut, sonra LoggedIn yayınlanır.
func (s *Session) Login(token string) (models.SessionUser, error) {
	user, err := ParseToken(token, s.now())
	if err != nil {
		return models.SessionUser{}, err
	}

	s.mu.Lock()
	prev := s.user
	s.token = token
	s.user = &user
	s.mu.Unlock()

	switch {
	case prev == nil:
		glog.Infof("[session] logged in as %s", user.Username)
		s.emit(Event{Kind: LoggedIn, User: user})
	case prev.UserID != user.UserID:
		glog.Infof("[session] switched user %s -> %s", prev.Username, user.Username)
		s.emit(Event{Kind: LoggedOut, User: *prev})
		s.emit(Event{Kind: LoggedIn, User: user})
	default:
		glog.V(2).Infof("[session] token refreshed for %s", user.Username)
	}
	return user, nil
}

// Logout, oturumu kapatır. Zaten anonimse no-op.
func (s *Session) Logout() {
	s.mu.Lock()
	prev := s.user
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if prev == nil {
		return
	}
	glog.Infof("[session] logged out %s", prev.Username)
	s.emit(Event{Kind: LoggedOut, User: *prev})
}

// Current, mevcut kullanıcıyı döner; anonimse (zero, false).
func (s *Session) Current() (models.SessionUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return models.SessionUser{}, false
	}
	return *s.user, true
}

// Authenticated, oturum açık mı?
func (s *Session) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

// Token, bearer token; anonimse boş string. ws.TokenSource'u karşılar.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// OnChange, login/logout olaylarını dinler. fn, olayı tetikleyen goroutine'de,
// session lock'u tutulmadan, kayıt sırasıyla çağrılır.
func (s *Session) OnChange(fn func(Event)) (unsubscribe func()) {
	s.listenMu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.listenMu.Unlock()

	return func() {
		s.listenMu.Lock()
		delete(s.listeners, id)
		s.listenMu.Unlock()
	}
}

func (s *Session) emit(ev Event) {
	s.listenMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// ParseToken, JWT payload'unu imza doğrulamadan okur ve SessionUser döner.
// Süresi dolmuş veya kimlik içermeyen token'lar ErrUnauthorized ile reddedilir.
func ParseToken(token string, now time.Time) (models.SessionUser, error) {
	if token == "" {
		return models.SessionUser{}, fmt.Errorf("%w: empty token", pkg.ErrUnauthorized)
	}

	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.SessionUser{}, fmt.Errorf("%w: malformed token: %v", pkg.ErrUnauthorized, err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return models.SessionUser{}, fmt.Errorf("%w: token expired at %s", pkg.ErrUnauthorized, claims.ExpiresAt.Format(time.RFC3339))
	}

	user := claims.User()
	if user.UserID == "" || user.Username == "" {
		return models.SessionUser{}, fmt.Errorf("%w: token has no user identity", pkg.ErrUnauthorized)
	}
	return user, nil
}

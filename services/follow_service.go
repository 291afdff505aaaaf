package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/repository"
	"github.com/akinalp/memesync/ws"
)

// FollowService, mevcut kullanıcının takip ilişkileri ve yüklenmiş profil başlıkları.
//
// ToggleFollow optimistic'tir; FOLLOW event'leri kendi takip bayrağımızı uzlaştırır
// ve follower sayılarını sunucunun değeriyle ezer.
type FollowService interface {
	LoadUser(ctx context.Context, username string) (models.UserSummary, bool)
	User(username string) (models.UserSummary, bool)
	IsFollowing(userID string) bool
	ToggleFollow(userID, username string) bool
	FollowersCount() int
	Error() error
	Reset()
	Close()
}

type followService struct {
	users    repository.UserRepository
	identity Identity
	rt       Realtime

	unregister func()

	mu sync.Mutex
	// profiles, username (lower-case) → özet. byID, userID → username.
	profiles  map[string]models.UserSummary
	byID      map[string]string
	following map[string]bool
	// followers, beni takip eden / bırakan kullanıcıların son görülen durumu.
	followers map[string]bool
	myCount   int
	lastErr   error
}

// NewFollowService, constructor. FOLLOW handler'ını dispatcher'a kaydeder.
func NewFollowService(users repository.UserRepository, identity Identity, rt Realtime, dispatcher *ws.Dispatcher) FollowService {
	s := &followService{
		users:     users,
		identity:  identity,
		rt:        rt,
		profiles:  make(map[string]models.UserSummary),
		byID:      make(map[string]string),
		following: make(map[string]bool),
		followers: make(map[string]bool),
	}
	s.unregister = ws.Handle(dispatcher, s.handleFollow)
	return s
}

// LoadUser, kullanıcı özetini REST'ten yükler ve takip durumunu seed eder.
func (s *followService) LoadUser(ctx context.Context, username string) (models.UserSummary, bool) {
	me, _ := s.identity.Current()

	user, err := s.users.GetByUsername(ctx, username, me.UserID)
	if err != nil {
		glog.Warningf("[follow] load user %s failed: %v", username, err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return models.UserSummary{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[strings.ToLower(user.Username)] = user
	s.byID[user.UserID] = strings.ToLower(user.Username)
	if me.UserID != "" && user.UserID == me.UserID {
		s.myCount = user.FollowersCount
	} else {
		s.following[user.UserID] = user.IsFollowing
	}
	s.lastErr = nil
	return user, true
}

func (s *followService) User(username string) (models.UserSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.profiles[strings.ToLower(username)]
	return user, ok
}

func (s *followService) IsFollowing(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.following[userID]
}

// FollowersCount, mevcut kullanıcının takipçi sayısı.
func (s *followService) FollowersCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.myCount
}

// ToggleFollow, takip durumunu anında çevirir ve FOLLOW gönderir.
// Soket kapalıysa değişiklik geri alınır.
func (s *followService) ToggleFollow(userID, username string) bool {
	me, ok := s.identity.Current()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.lastErr = fmt.Errorf("%w: follow requires a session", pkg.ErrNotAuthenticated)
		return false
	}
	if userID == "" || userID == me.UserID {
		s.lastErr = fmt.Errorf("%w: cannot follow %q", pkg.ErrBadRequest, userID)
		return false
	}

	if username == "" {
		username = s.profiles[s.byID[userID]].Username
	}
	next := !s.following[userID]
	s.setFollowingLocked(userID, next, nil)

	sent := s.rt.Send(ws.FollowMessage{
		FollowerID:        me.UserID,
		FollowerUsername:  me.Username,
		FollowingUserID:   userID,
		FollowingUsername: username,
		IsFollowing:       next,
		ProfilePictureURL: me.ProfilePictureURL,
	})
	if !sent {
		s.setFollowingLocked(userID, !next, nil)
		glog.Warningf("[follow] follow %s not sent, reverted", userID)
		s.lastErr = fmt.Errorf("%w: follow %s", pkg.ErrNotConnected, userID)
		return false
	}

	s.lastErr = nil
	return true
}

// setFollowingLocked, takip bayrağını ve yüklüyse hedefin follower sayısını günceller.
// count varsa sayı ezilir; yoksa bayrak değiştiyse ±1 uygulanır.
func (s *followService) setFollowingLocked(userID string, following bool, count *int) {
	prev := s.following[userID]
	s.following[userID] = following

	key, ok := s.byID[userID]
	if !ok {
		return
	}
	user := s.profiles[key]
	user.IsFollowing = following
	switch {
	case count != nil:
		user.FollowersCount = max(*count, 0)
	case prev != following && following:
		user.FollowersCount++
	case prev != following:
		user.FollowersCount = max(user.FollowersCount-1, 0)
	}
	s.profiles[key] = user
}

func (s *followService) handleFollow(msg ws.FollowMessage) {
	me, ok := s.identity.Current()
	if !ok || msg.FollowingUserID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case msg.FollowerID != "" && msg.FollowerID == me.UserID:
		if s.following[msg.FollowingUserID] != msg.IsFollowing {
			glog.V(2).Infof("[follow] %s converging to %v", msg.FollowingUserID, msg.IsFollowing)
		}
		s.setFollowingLocked(msg.FollowingUserID, msg.IsFollowing, msg.FollowersCount)

	case msg.FollowingUserID == me.UserID:
		prev, seen := s.followers[msg.FollowerID]
		if msg.FollowerID != "" {
			s.followers[msg.FollowerID] = msg.IsFollowing
		}
		switch {
		case msg.FollowersCount != nil:
			s.myCount = max(*msg.FollowersCount, 0)
		case seen && prev == msg.IsFollowing:
			// Aynı event tekrar geldi; sayı zaten uygulandı.
			glog.V(2).Infof("[follow] duplicate follow event from %s ignored", msg.FollowerID)
			return
		case msg.IsFollowing:
			s.myCount++
		default:
			s.myCount = max(s.myCount-1, 0)
		}
		if key, ok := s.byID[me.UserID]; ok {
			user := s.profiles[key]
			user.FollowersCount = s.myCount
			s.profiles[key] = user
		}

	case msg.FollowersCount != nil:
		// Başka iki kullanıcı arasındaki takip: sadece sayı.
		if key, ok := s.byID[msg.FollowingUserID]; ok {
			user := s.profiles[key]
			user.FollowersCount = max(*msg.FollowersCount, 0)
			s.profiles[key] = user
		}
	}
}

func (s *followService) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Reset, logout sonrası tüm takip durumunu temizler.
func (s *followService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = make(map[string]models.UserSummary)
	s.byID = make(map[string]string)
	s.following = make(map[string]bool)
	s.followers = make(map[string]bool)
	s.myCount = 0
	s.lastErr = nil
}

func (s *followService) Close() {
	if s.unregister != nil {
		s.unregister()
		s.unregister = nil
	}
}

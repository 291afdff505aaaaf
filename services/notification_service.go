package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/repository"
	"github.com/akinalp/memesync/ws"
)

// syntheticReplaceWindow, sunucu bildirimi bu süre içinde üretilmiş eşdeğer
// sentetik bildirimin yerine geçer.
const syntheticReplaceWindow = 10 * time.Second

// ItemLookup, item sahipliğini sormak için Content Store'un read accessor'ı.
type ItemLookup interface {
	Item(id string) (models.FeedItem, bool)
}

// NotificationService, backlog ve canlı event'leri tek bir en-yeni-önde listede birleştirir.
//
// Dedup anahtarı bildirim id'sidir. Id'siz canlı event'lere "temp-" prefix'li
// sentetik id atanır; bunlar backlog id'leriyle asla dedup edilmez.
type NotificationService interface {
	Fetch(ctx context.Context) bool
	List() []models.Notification
	UnreadCount() int
	MarkAllRead(ctx context.Context) bool
	ClearAll(ctx context.Context) bool
	Add(n models.Notification) models.Notification
	Error() error
	Reset()
	Close()
}

type notificationService struct {
	repo     repository.NotificationRepository
	identity Identity
	items    ItemLookup
	now      func() time.Time

	unregister []func()

	mu         sync.Mutex
	list       []models.Notification
	generation uint64
	lastErr    error
}

// NewNotificationService, constructor. NOTIFICATION, LIKE, COMMENT ve FOLLOW
// handler'larını dispatcher'a kaydeder.
func NewNotificationService(
	repo repository.NotificationRepository,
	identity Identity,
	items ItemLookup,
	dispatcher *ws.Dispatcher,
) NotificationService {
	s := &notificationService{
		repo:     repo,
		identity: identity,
		items:    items,
		now:      time.Now,
	}
	s.unregister = append(s.unregister,
		ws.Handle(dispatcher, s.handleNotification),
		ws.Handle(dispatcher, s.handleLike),
		ws.Handle(dispatcher, s.handleComment),
		ws.Handle(dispatcher, s.handleFollow),
	)
	return s
}

// Fetch, backlog'u yükler ve mevcut listeyle birleştirir. Sentetik bildirimler korunur.
func (s *notificationService) Fetch(ctx context.Context) bool {
	if _, ok := s.identity.Current(); !ok {
		s.fail(fmt.Errorf("%w: notifications require a session", pkg.ErrNotAuthenticated))
		return false
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	backlog, err := s.repo.List(ctx)
	if err != nil {
		glog.Warningf("[notify] fetch backlog failed: %v", err)
		s.fail(err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}

	merged := make([]models.Notification, 0, len(backlog)+len(s.list))
	seen := make(map[string]struct{}, len(backlog))
	for _, n := range backlog {
		if n.ID == "" {
			continue
		}
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		merged = append(merged, n)
	}
	for _, n := range s.list {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		merged = append(merged, n)
	}
	sortNewestFirst(merged)

	s.list = merged
	s.lastErr = nil
	glog.V(2).Infof("[notify] backlog merged: %d notifications", len(merged))
	return true
}

// List, en yeni önde bildirimlerin kopyası.
func (s *notificationService) List() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.list)
}

func (s *notificationService) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.list {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkAllRead, tüm okunmamışları tek batch çağrısıyla okundu yapar.
// Yerel durum önce değişir, çağrı başarısız olursa aynı bildirimler geri alınır.
func (s *notificationService) MarkAllRead(ctx context.Context) bool {
	s.mu.Lock()
	var marked []string
	for i := range s.list {
		if !s.list[i].Read {
			s.list[i].Read = true
			marked = append(marked, s.list[i].ID)
		}
	}
	s.mu.Unlock()

	if len(marked) == 0 {
		return true
	}

	if err := s.repo.MarkAllRead(ctx); err != nil {
		glog.Warningf("[notify] mark all read failed, reverting %d: %v", len(marked), err)

		s.mu.Lock()
		defer s.mu.Unlock()

		for i := range s.list {
			if slices.Contains(marked, s.list[i].ID) {
				s.list[i].Read = false
			}
		}
		s.lastErr = err
		return false
	}

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()
	return true
}

// ClearAll, kullanıcının tüm bildirimlerini sunucuda siler ve listeyi boşaltır.
func (s *notificationService) ClearAll(ctx context.Context) bool {
	me, ok := s.identity.Current()
	if !ok {
		s.fail(fmt.Errorf("%w: notifications require a session", pkg.ErrNotAuthenticated))
		return false
	}

	if err := s.repo.DeleteAll(ctx, me.Username); err != nil {
		glog.Warningf("[notify] clear all failed: %v", err)
		s.fail(err)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.list = nil
	s.lastErr = nil
	return true
}

// Add, bildirimi sırasına yerleştirir ve yerleşen değeri döner.
// Id yoksa sentetik id atanır. Aynı id zaten listedeyse mevcut kayıt döner.
func (s *notificationService) Add(n models.Notification) models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addLocked(n)
}

func (s *notificationService) addLocked(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = models.SyntheticIDPrefix + ulid.Make().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}

	if i := slices.IndexFunc(s.list, func(x models.Notification) bool { return x.ID == n.ID }); i >= 0 {
		return s.list[i]
	}

	// Sunucu bildirimi, az önce canlı event'ten üretilmiş eşdeğer sentetik kaydın yerine geçer.
	if !n.IsSynthetic() {
		if i := slices.IndexFunc(s.list, func(x models.Notification) bool { return sameEvent(x, n) }); i >= 0 {
			s.list = slices.Delete(s.list, i, i+1)
		}
	}

	at, _ := slices.BinarySearchFunc(s.list, n, func(x, target models.Notification) int {
		// Eşit zamanlı kayıtlarda yeni gelen önde durur.
		if x.CreatedAt.After(target.CreatedAt) {
			return -1
		}
		return 1
	})
	s.list = slices.Insert(s.list, at, n)
	return n
}

func sameEvent(synthetic, server models.Notification) bool {
	if !synthetic.IsSynthetic() || synthetic.Read {
		return false
	}
	if synthetic.Type != server.Type || synthetic.TargetID != server.TargetID {
		return false
	}
	if synthetic.SourceUsername != server.SourceUsername && synthetic.SourceUserID != server.SourceUserID {
		return false
	}
	d := server.CreatedAt.Sub(synthetic.CreatedAt)
	return d < syntheticReplaceWindow && d > -syntheticReplaceWindow
}

func (s *notificationService) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Reset, logout sonrası listeyi boşaltır.
func (s *notificationService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.list = nil
	s.lastErr = nil
}

func (s *notificationService) Close() {
	for _, unregister := range s.unregister {
		unregister()
	}
	s.unregister = nil
}

func (s *notificationService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
}

// ─── Live events ───

func (s *notificationService) handleNotification(msg ws.NotificationMessage) {
	me, ok := s.identity.Current()
	if !ok {
		return
	}
	if msg.UserID != "" && msg.UserID != me.UserID {
		glog.V(2).Infof("[notify] dropping notification for %s", msg.UserID)
		return
	}

	s.Add(models.Notification{
		ID:                      msg.ID,
		Type:                    models.ParseNotificationType(msg.NotificationType),
		Message:                 msg.Message,
		UserID:                  me.UserID,
		TargetID:                msg.TargetID,
		SourceUserID:            msg.SourceUserID,
		SourceUsername:          msg.SourceUsername,
		SourceProfilePictureURL: msg.SourceProfilePictureURL,
		CreatedAt:               msg.CreatedAt.Time,
	})
}

// handleLike, başka birinin benim yüklediğim item'ı beğenmesinden bildirim üretir.
func (s *notificationService) handleLike(msg ws.LikeMessage) {
	if !msg.Liked() {
		return
	}
	me, ok := s.ownedBy(msg.MemeID, msg.UserID)
	if !ok {
		return
	}
	s.Add(models.Notification{
		Type:           models.NotificationLike,
		Message:        fmt.Sprintf("%s liked your meme", msg.Username),
		UserID:         me.UserID,
		TargetID:       msg.MemeID,
		SourceUserID:   msg.UserID,
		SourceUsername: msg.Username,
	})
}

func (s *notificationService) handleComment(msg ws.CommentMessage) {
	me, ok := s.ownedBy(msg.MemeID, msg.UserID)
	if !ok {
		return
	}
	s.Add(models.Notification{
		Type:                    models.NotificationComment,
		Message:                 fmt.Sprintf("%s commented on your meme", msg.Username),
		UserID:                  me.UserID,
		TargetID:                msg.MemeID,
		SourceUserID:            msg.UserID,
		SourceUsername:          msg.Username,
		SourceProfilePictureURL: msg.ProfilePictureURL,
		CreatedAt:               msg.CreatedAt.Time,
	})
}

func (s *notificationService) handleFollow(msg ws.FollowMessage) {
	me, ok := s.identity.Current()
	if !ok || !msg.IsFollowing || msg.FollowingUserID != me.UserID {
		return
	}
	if msg.FollowerID == "" || msg.FollowerID == me.UserID {
		return
	}
	s.Add(models.Notification{
		Type:                    models.NotificationFollow,
		Message:                 fmt.Sprintf("%s started following you", msg.FollowerUsername),
		UserID:                  me.UserID,
		SourceUserID:            msg.FollowerID,
		SourceUsername:          msg.FollowerUsername,
		SourceProfilePictureURL: msg.ProfilePictureURL,
	})
}

// ownedBy, item mevcut kullanıcıya aitse ve actor başka biriyse true döner.
func (s *notificationService) ownedBy(itemID, actorID string) (models.SessionUser, bool) {
	me, ok := s.identity.Current()
	if !ok || actorID == "" || actorID == me.UserID {
		return models.SessionUser{}, false
	}
	item, ok := s.items.Item(itemID)
	if !ok || item.UploaderID != me.UserID {
		return models.SessionUser{}, false
	}
	return me, true
}

func sortNewestFirst(list []models.Notification) {
	slices.SortStableFunc(list, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/pkg/cache"
	"github.com/akinalp/memesync/ws"
)

// toggleKind, like ve save toggle'ları arasındaki farkları toplar.
type toggleKind struct {
	name   string
	feed   Feed
	active func(*models.FeedItem) bool
	count  func(*models.FeedItem) int
	patch  func(active bool, count int) models.ItemPatch
	build  func(id string, active bool, user models.SessionUser) ws.Message
}

var likeToggle = toggleKind{
	name:   "like",
	feed:   FeedLiked,
	active: func(row *models.FeedItem) bool { return row.Liked },
	count:  func(row *models.FeedItem) int { return row.LikeCount },
	patch: func(active bool, count int) models.ItemPatch {
		return models.ItemPatch{Liked: models.BoolPtr(active), LikeCount: models.IntPtr(count)}
	},
	build: func(id string, active bool, user models.SessionUser) ws.Message {
		action := ws.ActionUnlike
		if active {
			action = ws.ActionLike
		}
		return ws.LikeMessage{MemeID: id, Action: action, UserID: user.UserID, Username: user.Username}
	},
}

var saveToggle = toggleKind{
	name:   "save",
	feed:   FeedSaved,
	active: func(row *models.FeedItem) bool { return row.Saved },
	count:  func(row *models.FeedItem) int { return row.SaveCount },
	patch: func(active bool, count int) models.ItemPatch {
		return models.ItemPatch{Saved: models.BoolPtr(active), SaveCount: models.IntPtr(count)}
	},
	build: func(id string, active bool, user models.SessionUser) ws.Message {
		action := ws.ActionUnsave
		if active {
			action = ws.ActionSave
		}
		return ws.SaveMessage{MemeID: id, Action: action, UserID: user.UserID, Username: user.Username}
	},
}

// flip, satırı active durumuna getiren patch: bool set edilir, sayaç ±1 (0'da kırpılır).
func (k toggleKind) flip(row *models.FeedItem, active bool) models.ItemPatch {
	count := k.count(row)
	if active {
		count++
	} else {
		count--
	}
	return k.patch(active, max(count, 0))
}

// ─── Optimistic toggles ───

// ToggleLike, item'ın like durumunu her collection'da anında çevirir ve LIKE gönderir.
func (s *contentService) ToggleLike(id string) bool {
	return s.toggle(likeToggle, id)
}

// ToggleSave, ToggleLike'ın save karşılığı.
func (s *contentService) ToggleSave(id string) bool {
	return s.toggle(saveToggle, id)
}

func (s *contentService) toggle(kind toggleKind, id string) bool {
	user, ok := s.identity.Current()
	if !ok {
		s.fail(fmt.Errorf("%w: %s requires a session", pkg.ErrNotAuthenticated, kind.name))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		glog.Errorf("[content] %s abandoned: item %s is not in any collection", kind.name, id)
		s.lastErr = fmt.Errorf("%w: %s", pkg.ErrItemNotFound, id)
		return false
	}

	// Mevcut durum kullanıcının liked / saved collection üyeliğinden okunur.
	active := slices.Contains(s.lists[kind.feed], id)
	previous := kind.patch(kind.active(row), kind.count(row))
	next := !active

	s.applyLocked(id, kind.flip(row, next))
	glog.V(2).Infof("[content] %s %s -> %v (optimistic)", kind.name, id, next)

	if !s.rt.Send(kind.build(id, next, user)) {
		// Soket yoksa istek hiç çıkmadı, öngörülen durum geri alınır.
		s.applyLocked(id, previous)
		glog.Warningf("[content] %s %s not sent, reverted", kind.name, id)
		s.lastErr = fmt.Errorf("%w: %s %s", pkg.ErrNotConnected, kind.name, id)
		return false
	}

	s.lastErr = nil
	return true
}

// ─── Reconciliation ───

func (s *contentService) handleLike(msg ws.LikeMessage) {
	s.reconcile(likeToggle, msg.MemeID, msg.UserID, msg.Liked(), msg.LikeCount)
}

func (s *contentService) handleSave(msg ws.SaveMessage) {
	s.reconcile(saveToggle, msg.MemeID, msg.UserID, msg.Saved(), msg.SaveCount)
}

// reconcile, otoriter event'i yerel tahminle uzlaştırır.
//
// Kendi event'imiz yerel durumla çelişiyorsa flip tekrar uygulanır (istek yeniden gönderilmez).
// Başka kullanıcının event'i, ya da actor'ı eksik event, sadece sayacı ezer; bool'a dokunmaz.
func (s *contentService) reconcile(kind toggleKind, id, actorID string, authoritative bool, count *int) {
	if id == "" {
		return
	}
	me, authed := s.identity.Current()
	own := authed && actorID != "" && actorID == me.UserID

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[id]; ok && own {
		if slices.Contains(s.lists[kind.feed], id) != authoritative {
			glog.V(2).Infof("[content] %s %s converging to %v", kind.name, id, authoritative)
			s.applyLocked(id, kind.flip(row, authoritative))
		}
	}

	if count == nil {
		return
	}
	var patch models.ItemPatch
	if kind.feed == FeedLiked {
		patch.LikeCount = models.IntPtr(*count)
	} else {
		patch.SaveCount = models.IntPtr(*count)
	}
	s.applyLocked(id, patch)
}

// handleStateChange, açık post'a her connected geçişinde yeniden abone olur.
func (s *contentService) handleStateChange(change ws.StateChange) {
	if change.To != ws.StateConnected {
		return
	}

	s.mu.Lock()
	selected := s.selectedID
	s.mu.Unlock()

	if selected != "" {
		s.rt.Subscribe(selected)
	}
}

// ─── Comments ───

func (s *contentService) handleComment(msg ws.CommentMessage) {
	if msg.MemeID == "" {
		return
	}
	c := models.Comment{
		ID:                msg.ID,
		ItemID:            msg.MemeID,
		UserID:            msg.UserID,
		Username:          msg.Username,
		Text:              msg.Text,
		ProfilePictureURL: msg.ProfilePictureURL,
		CreatedAt:         msg.CreatedAt.Time,
	}
	if c.ID == "" {
		c.ID = models.SyntheticIDPrefix + uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addCommentLocked(c)
}

// addCommentLocked, yorumu ekler ve item'ın yorum sayısını her yerde 1 artırır.
// Aynı id ikinci kez gelirse hiçbir şey değişmez.
func (s *contentService) addCommentLocked(c models.Comment) bool {
	key := c.ItemID + "/" + c.ID
	if _, dup := s.seenComments[key]; dup {
		return false
	}
	s.seenComments[key] = struct{}{}

	if s.selectedID == c.ItemID {
		s.comments = slices.Insert(s.comments, 0, c)
	}

	if row, ok := s.rows[c.ItemID]; ok {
		s.applyLocked(c.ItemID, models.ItemPatch{CommentCount: models.IntPtr(row.CommentCount + 1)})
	}
	return true
}

// FetchComments, item'ın yorum sayfasını yükler. İlk sayfa listeyi değiştirir, sonrakiler ekler.
func (s *contentService) FetchComments(ctx context.Context, id string, page int) (models.CommentPage, bool) {
	if page < 1 {
		page = 1
	}
	result, err := s.feeds.FetchComments(ctx, id, page, commentPageSize)
	if err != nil {
		glog.Warningf("[content] fetch comments %s page %d failed: %v", id, page, err)
		s.fail(err)
		return models.CommentPage{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range result.Comments {
		s.seenComments[c.ItemID+"/"+c.ID] = struct{}{}
	}
	if s.selectedID == id {
		if page == 1 {
			s.comments = slices.Clone(result.Comments)
		} else {
			for _, c := range result.Comments {
				if !slices.ContainsFunc(s.comments, func(x models.Comment) bool { return x.ID == c.ID }) {
					s.comments = append(s.comments, c)
				}
			}
		}
	}
	s.lastErr = nil
	return result, true
}

// Comments, açık post'un yüklü yorumları (en yeni önde).
func (s *contentService) Comments() []models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.comments)
}

// AddComment, yorumu REST ile oluşturur ve yerel listeye ekler.
func (s *contentService) AddComment(ctx context.Context, id, text string) (models.Comment, bool) {
	user, ok := s.identity.Current()
	if !ok {
		s.fail(fmt.Errorf("%w: comment requires a session", pkg.ErrNotAuthenticated))
		return models.Comment{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.fail(fmt.Errorf("%w: comment text is empty", pkg.ErrBadRequest))
		return models.Comment{}, false
	}

	created, err := s.feeds.CreateComment(ctx, models.Comment{
		ItemID:            id,
		UserID:            user.UserID,
		Username:          user.Username,
		ProfilePictureURL: user.ProfilePictureURL,
		Text:              text,
	})
	if err != nil {
		glog.Warningf("[content] create comment on %s failed: %v", id, err)
		s.fail(err)
		return models.Comment{}, false
	}
	if created.ID == "" {
		created.ID = models.SyntheticIDPrefix + uuid.NewString()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addCommentLocked(created)
	s.lastErr = nil
	return created, true
}

// ─── Item detail ───

// OpenPost, item'ı viewer bayraklarıyla yükler, post'a abone olur ve ilk yorum sayfasını getirir.
func (s *contentService) OpenPost(ctx context.Context, id string) (models.FeedItem, bool) {
	me, _ := s.identity.Current()
	gen := s.currentGeneration()

	item, err := s.feeds.FetchItem(ctx, id, me.UserID)
	if err != nil {
		glog.Warningf("[content] open post %s failed: %v", id, err)
		s.fail(err)
		return models.FeedItem{}, false
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return models.FeedItem{}, false
	}
	previous := s.selectedID
	if me.UserID == "" {
		item = s.withKnownFlagsLocked(item)
	}
	s.selectedID = id
	s.upsertLocked(item)
	if previous != id {
		s.comments = nil
	}
	s.lastErr = nil
	s.mu.Unlock()

	if previous != "" && previous != id {
		s.rt.Unsubscribe(previous)
	}
	s.rt.Subscribe(id)

	s.FetchComments(ctx, id, 1)

	out, _ := s.Item(id)
	return out, true
}

// ClosePost, detay görünümünü kapatır ve aboneliği bırakır.
func (s *contentService) ClosePost() {
	s.mu.Lock()
	selected := s.selectedID
	s.selectedID = ""
	s.comments = nil
	s.pruneLocked()
	s.mu.Unlock()

	if selected != "" {
		s.rt.Unsubscribe(selected)
	}
}

// Selected, açık post'un satırı.
func (s *contentService) Selected() (models.FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedID == "" {
		return models.FeedItem{}, false
	}
	row, ok := s.rows[s.selectedID]
	if !ok {
		return models.FeedItem{}, false
	}
	return row.Clone(), true
}

// ─── Delete / upload ───

// DeleteItem, sunucu onayladıktan sonra item'ı her collection'dan ve cache'ten kaldırır.
// Hata durumunda yerel state değişmez.
func (s *contentService) DeleteItem(ctx context.Context, id string) bool {
	if _, ok := s.identity.Current(); !ok {
		s.fail(fmt.Errorf("%w: delete requires a session", pkg.ErrNotAuthenticated))
		return false
	}

	if err := s.feeds.DeleteItem(ctx, id); err != nil {
		glog.Warningf("[content] delete %s failed: %v", id, err)
		s.fail(err)
		return false
	}

	if keys := s.cache.KeysContaining(id); len(keys) > 0 {
		s.cache.Invalidate(keys...)
	}

	s.mu.Lock()
	s.removeEverywhereLocked(id)
	wasSelected := s.selectedID == id
	if wasSelected {
		s.selectedID = ""
		s.comments = nil
	}
	s.lastErr = nil
	s.mu.Unlock()

	var holding []profileKey
	s.profiles.Range(func(key profileKey, pf profileFeed) {
		if slices.Contains(pf.ids, id) {
			holding = append(holding, key)
		}
	})
	for _, key := range holding {
		s.profiles.Update(key, func(pf profileFeed) profileFeed {
			if i := slices.Index(pf.ids, id); i >= 0 {
				pf.ids = slices.Delete(slices.Clone(pf.ids), i, i+1)
				pf.total = max(pf.total-1, 0)
			}
			return pf
		})
	}

	if wasSelected {
		s.rt.Unsubscribe(id)
	}
	glog.Infof("[content] item %s deleted", id)
	return true
}

// PrependUploaded, yeni yüklenen item'ı home'un ve kullanıcının upload sekmesinin başına ekler.
func (s *contentService) PrependUploaded(item models.FeedItem) {
	if item.ID == "" {
		return
	}
	me, ok := s.identity.Current()

	s.mu.Lock()
	s.upsertLocked(item)
	ids, _ := setMember(s.lists[FeedHome], item.ID, true)
	s.lists[FeedHome] = ids
	s.mu.Unlock()

	s.cache.PrependItem(cache.FeedHome, item)
	// Önbellekteki arama sonuçları yeni item'ı bilmiyor; sonraki arama sunucudan gelir.
	s.cache.InvalidateSearches()

	if ok {
		s.profiles.Update(profileKey{userID: me.UserID, tab: models.ProfileTabUploads}, func(pf profileFeed) profileFeed {
			if !slices.Contains(pf.ids, item.ID) {
				pf.ids = slices.Insert(slices.Clone(pf.ids), 0, item.ID)
				pf.total++
			}
			return pf
		})
	}
}

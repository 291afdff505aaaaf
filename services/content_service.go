package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/pkg/cache"
	"github.com/akinalp/memesync/repository"
	"github.com/akinalp/memesync/ws"
)

// Feed, rendering collaborator'a açılan mantıksal collection.
type Feed string

const (
	FeedHome     Feed = "home"
	FeedDiscover Feed = "discover"
	FeedSearch   Feed = "search"
	FeedLiked    Feed = "liked"
	FeedSaved    Feed = "saved"
)

// ParseFeed, path parametresinden Feed üretir.
func ParseFeed(raw string) (Feed, error) {
	switch f := Feed(strings.ToLower(raw)); f {
	case FeedHome, FeedDiscover, FeedSearch, FeedLiked, FeedSaved:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown feed %q", pkg.ErrBadRequest, raw)
	}
}

const (
	defaultPageSize    = 10
	commentPageSize    = 10
	auxCleanupInterval = time.Minute
)

// PageInfo, fetch aksiyonlarının UI geri bildirimi için döndüğü sayfa metadata'sı.
type PageInfo struct {
	Feed      Feed `json:"feed"`
	Page      int  `json:"page"`
	Count     int  `json:"count"`
	HasMore   bool `json:"hasMore"`
	FromCache bool `json:"fromCache"`
}

// ProfileFeed, bir kullanıcının bir profil sekmesi.
type ProfileFeed struct {
	UserID  string            `json:"userId"`
	Tab     models.ProfileTab `json:"tab"`
	Items   []models.FeedItem `json:"items"`
	HasMore bool              `json:"hasMore"`
	Total   int               `json:"total"`
}

// ContentOptions, ContentService sayfa boyutları ve profil cache ömrü.
type ContentOptions struct {
	HomePageSize     int
	DiscoverPageSize int
	ProfilePageSize  int
	ProfileTTL       time.Duration
}

// ContentService, ekrandaki feed item'larının otoriter bellek içi temsili.
//
// Fetch aksiyonları önce Paginated TTL Cache'e bakar, miss'te REST'e gider.
// Like / save toggle'ları optimistic uygulanır ve Connection Manager üzerinden
// gönderilir; Dispatcher'dan gelen LIKE / SAVE / COMMENT event'leri ile uzlaştırılır.
//
// Hiçbir aksiyon error dönmez: başarı bayrağı veya sayfa metadata'sı döner,
// hata Error() ile okunur.
type ContentService interface {
	FetchFirstPage(ctx context.Context, feed Feed) (PageInfo, bool)
	FetchNextPage(ctx context.Context, feed Feed) (PageInfo, bool)
	Items(feed Feed) []models.FeedItem
	HasMore(feed Feed) bool
	Item(id string) (models.FeedItem, bool)

	ToggleLike(id string) bool
	ToggleSave(id string) bool
	DeleteItem(ctx context.Context, id string) bool

	Search(ctx context.Context, query string) (PageInfo, bool)
	ClearSearch()
	SearchQuery() string
	SearchUsers() []models.UserSummary

	OpenPost(ctx context.Context, id string) (models.FeedItem, bool)
	ClosePost()
	Selected() (models.FeedItem, bool)
	FetchComments(ctx context.Context, id string, page int) (models.CommentPage, bool)
	Comments() []models.Comment
	AddComment(ctx context.Context, id, text string) (models.Comment, bool)

	FetchProfile(ctx context.Context, userID string, tab models.ProfileTab) (ProfileFeed, bool)
	FetchProfileNext(ctx context.Context, userID string, tab models.ProfileTab) (ProfileFeed, bool)
	InvalidateProfile(userID string)
	PrependUploaded(item models.FeedItem)

	Error() error
	RealtimeDegraded() bool
	Reset()
	Close()
}

// cursor, bir feed'in sayfalama durumu.
type cursor struct {
	page    int
	hasMore bool
}

type profileKey struct {
	userID string
	tab    models.ProfileTab
}

// profileFeed, profil cache'inde tutulan sekme. Item'lar rows'ta, burada sadece id'ler var.
type profileFeed struct {
	ids     []string
	hasMore bool
	total   int
}

type contentService struct {
	feeds    repository.FeedRepository
	cache    *cache.FeedCache
	profiles *cache.TTLCache[profileKey, profileFeed]
	users    *cache.TTLCache[string, []models.UserSummary]
	identity Identity
	rt       Realtime
	opts     ContentOptions

	unregister []func()

	// mu, aşağıdaki tüm state'i korur. Network çağrıları lock dışında yapılır.
	mu sync.Mutex

	// rows, identity map: aynı id tek satırdır, collection'lar id listesidir.
	rows  map[string]*models.FeedItem
	lists map[Feed][]string
	pages map[Feed]cursor

	searchQuery string
	searchUsers []models.UserSummary
	searchSeq   uint64

	selectedID   string
	comments     []models.Comment
	seenComments map[string]struct{}

	// generation, Reset'te artar; uçuştaki fetch'in sonucu eski oturuma yazılmaz.
	generation uint64
	lastErr    error
}

// NewContentService, constructor. LIKE / SAVE / COMMENT handler'larını dispatcher'a,
// bağlantı geçiş dinleyicisini rt'ye kaydeder. Close ile kayıtlar kaldırılır.
func NewContentService(
	feeds repository.FeedRepository,
	feedCache *cache.FeedCache,
	identity Identity,
	rt Realtime,
	dispatcher *ws.Dispatcher,
	opts ContentOptions,
) ContentService {
	if opts.HomePageSize <= 0 {
		opts.HomePageSize = defaultPageSize
	}
	if opts.DiscoverPageSize <= 0 {
		opts.DiscoverPageSize = defaultPageSize
	}
	if opts.ProfilePageSize <= 0 {
		opts.ProfilePageSize = defaultPageSize
	}
	if opts.ProfileTTL <= 0 {
		opts.ProfileTTL = feedCache.TTL()
	}

	s := &contentService{
		feeds:        feeds,
		cache:        feedCache,
		profiles:     cache.New[profileKey, profileFeed](opts.ProfileTTL, auxCleanupInterval),
		users:        cache.New[string, []models.UserSummary](feedCache.TTL(), auxCleanupInterval),
		identity:     identity,
		rt:           rt,
		opts:         opts,
		rows:         make(map[string]*models.FeedItem),
		lists:        make(map[Feed][]string),
		pages:        make(map[Feed]cursor),
		seenComments: make(map[string]struct{}),
	}

	s.unregister = append(s.unregister,
		ws.Handle(dispatcher, s.handleLike),
		ws.Handle(dispatcher, s.handleSave),
		ws.Handle(dispatcher, s.handleComment),
		rt.OnStateChange(s.handleStateChange),
	)
	return s
}

// ─── Fetch ───

// FetchFirstPage, feed'in ilk sayfasını cache-first yükler ve collection'ı değiştirir.
// Oturum yoksa home trending'e düşer.
func (s *contentService) FetchFirstPage(ctx context.Context, feed Feed) (PageInfo, bool) {
	switch feed {
	case FeedHome, FeedDiscover:
		return s.fetchFeedPage(ctx, feed, 1)
	case FeedSearch:
		q := s.SearchQuery()
		if q == "" {
			return PageInfo{Feed: feed}, true
		}
		return s.Search(ctx, q)
	case FeedLiked, FeedSaved:
		return s.fetchOwnTab(ctx, feed, true)
	default:
		s.fail(fmt.Errorf("%w: unknown feed %q", pkg.ErrBadRequest, feed))
		return PageInfo{Feed: feed}, false
	}
}

// FetchNextPage, sonraki sayfayı yükler ve collection'a ekler.
// Daha fazla sayfa yoksa network'e gitmeden HasMore=false döner.
func (s *contentService) FetchNextPage(ctx context.Context, feed Feed) (PageInfo, bool) {
	switch feed {
	case FeedHome, FeedDiscover:
		s.mu.Lock()
		cur, ok := s.pages[feed]
		s.mu.Unlock()
		if !ok {
			return s.fetchFeedPage(ctx, feed, 1)
		}
		if !cur.hasMore {
			return PageInfo{Feed: feed, Page: cur.page}, true
		}
		return s.fetchFeedPage(ctx, feed, cur.page+1)
	case FeedSearch:
		// Arama tek sayfadır.
		return PageInfo{Feed: feed, Page: 1, Count: len(s.Items(feed))}, true
	case FeedLiked, FeedSaved:
		return s.fetchOwnTab(ctx, feed, false)
	default:
		s.fail(fmt.Errorf("%w: unknown feed %q", pkg.ErrBadRequest, feed))
		return PageInfo{Feed: feed}, false
	}
}

// feedKey, home / discover için cache key. Anonim home trending'dir.
func feedKey(feed Feed, authenticated bool) cache.FeedKey {
	if feed == FeedDiscover {
		return cache.FeedDiscover
	}
	if !authenticated {
		return cache.FeedTrending
	}
	return cache.FeedHome
}

func (s *contentService) fetchFeedPage(ctx context.Context, feed Feed, page int) (PageInfo, bool) {
	user, authed := s.identity.Current()
	key := feedKey(feed, authed)

	if page == 1 {
		if entry, ok := s.cache.Get(key); ok {
			s.mu.Lock()
			s.installEntryLocked(feed, key, entry)
			s.lastErr = nil
			s.mu.Unlock()
			glog.V(2).Infof("[content] %s served from cache (%d items)", key, len(entry.Items))
			return PageInfo{Feed: feed, Page: entry.CurrentPage, Count: len(entry.Items), HasMore: entry.HasMore, FromCache: true}, true
		}
	}

	gen := s.currentGeneration()

	var (
		result models.FeedPage
		err    error
	)
	switch key {
	case cache.FeedHome:
		result, err = s.feeds.FetchHome(ctx, user.UserID, page, s.opts.HomePageSize)
	case cache.FeedTrending:
		if page > 1 {
			return PageInfo{Feed: feed, Page: 1}, true
		}
		result, err = s.feeds.FetchTrending(ctx)
	case cache.FeedDiscover:
		result, err = s.feeds.FetchDiscover(ctx, user.Username, page, s.opts.DiscoverPageSize)
	}
	if err != nil {
		glog.Warningf("[content] fetch %s page %d failed: %v", key, page, err)
		s.fail(err)
		return PageInfo{Feed: feed, Page: page}, false
	}

	data := cache.Page{Items: result.Items, HasMore: result.HasNextPage}
	cached := true
	if page == 1 {
		s.cache.Put(key, data)
	} else if !s.cache.AppendToLive(key, page, data) {
		// Entry sayfalama sırasında expire oldu. Sayfa sadece bellekteki listeye eklenir;
		// sonraki FetchFirstPage cache miss görür ve 1. sayfadan tekrar çeker.
		glog.V(2).Infof("[content] %s expired while paging, page %d kept in memory only", key, page)
		cached = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		glog.V(2).Infof("[content] dropping %s page %d fetched for previous session", key, page)
		return PageInfo{Feed: feed, Page: page}, false
	}

	// Sayfalar numaraya göre birleştirildiği için collection her zaman cache'in
	// düzleştirilmiş listesinden kurulur.
	if entry, ok := s.cache.Get(key); ok && cached {
		s.installEntryLocked(feed, key, entry)
	} else {
		s.installItemsLocked(feed, result.Items, page == 1, key != cache.FeedTrending)
		s.pages[feed] = cursor{page: page, hasMore: result.HasNextPage}
	}
	s.lastErr = nil

	return PageInfo{Feed: feed, Page: page, Count: len(result.Items), HasMore: result.HasNextPage}, true
}

// installEntryLocked, cache entry'sini feed collection'ı olarak kurar.
func (s *contentService) installEntryLocked(feed Feed, key cache.FeedKey, entry cache.Entry) {
	s.installItemsLocked(feed, entry.Items, true, key != cache.FeedTrending && !key.IsSearch())
	s.pages[feed] = cursor{page: entry.CurrentPage, hasMore: entry.HasMore}
}

// installItemsLocked, item'ları rows'a yazar ve feed listesini kurar.
// flagsKnown false ise (trending, arama, profil) mevcut satırın liked / saved bayrakları korunur.
func (s *contentService) installItemsLocked(feed Feed, items []models.FeedItem, replace, flagsKnown bool) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !flagsKnown {
			item = s.withKnownFlagsLocked(item)
		}
		s.upsertLocked(item)
		ids = append(ids, item.ID)
	}

	if replace {
		s.lists[feed] = uniqueIDs(ids)
	} else {
		s.lists[feed] = uniqueIDs(append(s.lists[feed], ids...))
	}
	s.pruneLocked()
}

// fetchOwnTab, mevcut kullanıcının liked / saved collection'ını profil sekmesinden yükler.
func (s *contentService) fetchOwnTab(ctx context.Context, feed Feed, first bool) (PageInfo, bool) {
	user, ok := s.identity.Current()
	if !ok {
		s.fail(fmt.Errorf("%w: %s requires a session", pkg.ErrNotAuthenticated, feed))
		return PageInfo{Feed: feed}, false
	}

	tab := models.ProfileTabLikes
	if feed == FeedSaved {
		tab = models.ProfileTabSaves
	}

	pf, fromCache, ok := s.loadProfilePage(ctx, user.UserID, tab, first)
	if !ok {
		return PageInfo{Feed: feed}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sekme sırası önde, sekmede henüz görünmeyen ama bayrağı açık satırlar arkada.
	merged := slices.Clone(pf.ids)
	for _, id := range s.lists[feed] {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	s.lists[feed] = merged
	s.lastErr = nil

	page := 1
	if s.opts.ProfilePageSize > 0 && len(pf.ids) > 0 {
		page = (len(pf.ids)-1)/s.opts.ProfilePageSize + 1
	}
	return PageInfo{Feed: feed, Page: page, Count: len(pf.ids), HasMore: pf.hasMore, FromCache: fromCache}, true
}

// FetchProfile, kullanıcının sekmesini cache-first yükler.
func (s *contentService) FetchProfile(ctx context.Context, userID string, tab models.ProfileTab) (ProfileFeed, bool) {
	return s.fetchProfile(ctx, userID, tab, true)
}

// FetchProfileNext, sekmenin sonraki offset sayfasını yükler.
func (s *contentService) FetchProfileNext(ctx context.Context, userID string, tab models.ProfileTab) (ProfileFeed, bool) {
	return s.fetchProfile(ctx, userID, tab, false)
}

func (s *contentService) fetchProfile(ctx context.Context, userID string, tab models.ProfileTab, first bool) (ProfileFeed, bool) {
	out := ProfileFeed{UserID: userID, Tab: tab}
	if userID == "" || !tab.Valid() {
		s.fail(fmt.Errorf("%w: invalid profile %q / %q", pkg.ErrBadRequest, userID, tab))
		return out, false
	}

	pf, _, ok := s.loadProfilePage(ctx, userID, tab, first)
	if !ok {
		return out, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out.Items = s.materializeLocked(pf.ids)
	out.HasMore = pf.hasMore
	out.Total = pf.total
	s.lastErr = nil
	return out, true
}

// loadProfilePage, profil sekmesini cache'ten veya REST'ten yükler ve satırları yazar.
// first false ise cache'teki sekmenin sonuna bir sonraki offset sayfası eklenir.
func (s *contentService) loadProfilePage(ctx context.Context, userID string, tab models.ProfileTab, first bool) (profileFeed, bool, bool) {
	key := profileKey{userID: userID, tab: tab}

	offset := 0
	prev, cached := s.profiles.Get(key)
	switch {
	case first && cached:
		return prev, true, true
	case !first && cached:
		if !prev.hasMore {
			return prev, true, true
		}
		offset = len(prev.ids)
	default:
		prev = profileFeed{}
	}

	gen := s.currentGeneration()
	result, err := s.feeds.FetchProfile(ctx, userID, tab, offset, s.opts.ProfilePageSize)
	if err != nil {
		glog.Warningf("[content] fetch profile %s/%s offset %d failed: %v", userID, tab, offset, err)
		s.fail(err)
		return profileFeed{}, false, false
	}

	me, _ := s.identity.Current()
	own := me.UserID != "" && me.UserID == userID

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return profileFeed{}, false, false
	}

	ids := slices.Clone(prev.ids)
	for _, item := range result.Items {
		item = s.withKnownFlagsLocked(item)
		if own && tab == models.ProfileTabLikes {
			item.Liked = true
		}
		if own && tab == models.ProfileTabSaves {
			item.Saved = true
		}
		s.upsertLocked(item)
		if !slices.Contains(ids, item.ID) {
			ids = append(ids, item.ID)
		}
	}

	// Satırlar yazıldıktan sonra set edilir: üyelik değişimi kendi sekmesini invalidate eder.
	pf := profileFeed{ids: ids, hasMore: result.HasNextPage, total: result.Total}
	s.profiles.Set(key, pf)
	return pf, false, true
}

// InvalidateProfile, kullanıcının tüm profil sekmelerini cache'ten siler.
func (s *contentService) InvalidateProfile(userID string) {
	s.profiles.DeleteFunc(func(key profileKey) bool { return key.userID == userID })
}

// ─── Search ───

// Search, sorguyu normalize edilmiş key ile cache-first arar; item'lar ve kullanıcılar döner.
// Boş sorgu ClearSearch ile aynıdır. Daha yeni bir arama başladıysa eski sonuç yazılmaz.
func (s *contentService) Search(ctx context.Context, query string) (PageInfo, bool) {
	norm := cache.NormalizeQuery(query)
	if norm == "" {
		s.ClearSearch()
		return PageInfo{Feed: FeedSearch}, true
	}
	key := cache.SearchKey(norm)
	display := strings.TrimSpace(query)

	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	gen := s.generation
	s.mu.Unlock()

	if entry, ok := s.cache.Get(key); ok {
		if users, ok := s.users.Get(norm); ok {
			s.mu.Lock()
			defer s.mu.Unlock()

			s.installSearchLocked(display, entry.Items, users)
			s.lastErr = nil
			return PageInfo{Feed: FeedSearch, Page: 1, Count: len(entry.Items), FromCache: true}, true
		}
	}

	result, err := s.feeds.Search(ctx, display)
	if err != nil {
		glog.Warningf("[content] search %q failed: %v", norm, err)
		s.fail(err)
		return PageInfo{Feed: FeedSearch}, false
	}

	// Sorgular sınırsız key üretir, yeni arama yazılırken süresi dolanlar temizlenir.
	if n := s.cache.Sweep(); n > 0 {
		glog.V(2).Infof("[cache] swept %d expired entries", n)
	}
	s.cache.Put(key, cache.Page{Items: result.Items})
	s.users.Set(norm, result.Users)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || seq != s.searchSeq {
		glog.V(2).Infof("[content] search %q superseded, result cached only", norm)
		return PageInfo{Feed: FeedSearch, Page: 1, Count: len(result.Items)}, true
	}
	s.installSearchLocked(display, result.Items, result.Users)
	s.lastErr = nil
	return PageInfo{Feed: FeedSearch, Page: 1, Count: len(result.Items)}, true
}

func (s *contentService) installSearchLocked(query string, items []models.FeedItem, users []models.UserSummary) {
	s.searchQuery = query
	s.searchUsers = slices.Clone(users)
	s.installItemsLocked(FeedSearch, items, true, false)
	s.pages[FeedSearch] = cursor{page: 1}
}

// ClearSearch, arama sonuçlarını ekrandan kaldırır. Cache'teki sonuçlar kalır.
func (s *contentService) ClearSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchSeq++
	s.searchQuery = ""
	s.searchUsers = nil
	delete(s.lists, FeedSearch)
	delete(s.pages, FeedSearch)
	s.pruneLocked()
}

func (s *contentService) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.searchQuery
}

func (s *contentService) SearchUsers() []models.UserSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.searchUsers)
}

// ─── Read accessors ───

// Items, feed collection'ının kopyasını sırasıyla döner.
func (s *contentService) Items(feed Feed) []models.FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.materializeLocked(s.lists[feed])
}

func (s *contentService) HasMore(feed Feed) bool {
	if feed == FeedLiked || feed == FeedSaved {
		user, ok := s.identity.Current()
		if !ok {
			return false
		}
		tab := models.ProfileTabLikes
		if feed == FeedSaved {
			tab = models.ProfileTabSaves
		}
		pf, ok := s.profiles.Get(profileKey{userID: user.UserID, tab: tab})
		return !ok || pf.hasMore
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.pages[feed]
	return ok && cur.hasMore
}

// Item, id'ye göre satırın kopyası.
func (s *contentService) Item(id string) (models.FeedItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return models.FeedItem{}, false
	}
	return row.Clone(), true
}

func (s *contentService) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// RealtimeDegraded, reconnect sınırı aşıldıysa true: canlı güncellemeler durmuştur.
func (s *contentService) RealtimeDegraded() bool {
	return s.rt.Degraded()
}

// Reset, logout sonrası tüm collection'ları, cache'leri ve seçili item'ı temizler.
func (s *contentService) Reset() {
	s.mu.Lock()
	s.generation++
	s.searchSeq++
	s.rows = make(map[string]*models.FeedItem)
	s.lists = make(map[Feed][]string)
	s.pages = make(map[Feed]cursor)
	s.searchQuery = ""
	s.searchUsers = nil
	s.selectedID = ""
	s.comments = nil
	s.seenComments = make(map[string]struct{})
	s.lastErr = nil
	s.mu.Unlock()

	s.cache.Invalidate()
	s.profiles.Clear()
	s.users.Clear()
	glog.Infof("[content] store reset")
}

// Close, dispatcher ve state dinleyici kayıtlarını kaldırır.
func (s *contentService) Close() {
	for _, unregister := range s.unregister {
		unregister()
	}
	s.unregister = nil
	s.profiles.Close()
	s.users.Close()
}

// ─── Identity map helpers ───

func (s *contentService) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.generation
}

func (s *contentService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
}

// withKnownFlagsLocked, item'ın liked / saved bayraklarını mevcut satırdan alır.
func (s *contentService) withKnownFlagsLocked(item models.FeedItem) models.FeedItem {
	if row, ok := s.rows[item.ID]; ok {
		item.Liked, item.Saved = row.Liked, row.Saved
	}
	return item
}

// upsertLocked, satırı yazar (id korunur, diğer alanlar değişir) ve üyelikleri eşitler.
func (s *contentService) upsertLocked(item models.FeedItem) {
	if item.ID == "" {
		return
	}
	item = item.Clone()
	if row, ok := s.rows[item.ID]; ok {
		*row = item
	} else {
		s.rows[item.ID] = &item
	}
	s.syncMembershipLocked(item.ID)
}

// syncMembershipLocked, liked / saved listelerini satırın bayraklarıyla eşitler.
// Üyelik değişirse kullanıcının kendi LIKE / SAVE sekmesi cache'i bayatlamıştır.
func (s *contentService) syncMembershipLocked(id string) {
	row, ok := s.rows[id]
	if !ok {
		return
	}

	var changed []models.ProfileTab
	if next, moved := setMember(s.lists[FeedLiked], id, row.Liked); moved {
		s.lists[FeedLiked] = next
		changed = append(changed, models.ProfileTabLikes)
	}
	if next, moved := setMember(s.lists[FeedSaved], id, row.Saved); moved {
		s.lists[FeedSaved] = next
		changed = append(changed, models.ProfileTabSaves)
	}

	if len(changed) == 0 {
		return
	}
	if me, ok := s.identity.Current(); ok {
		for _, tab := range changed {
			s.profiles.Delete(profileKey{userID: me.UserID, tab: tab})
		}
	}
}

// applyLocked, patch'i satıra, üyeliklere ve item'ı tutan her cache entry'sine uygular.
// Satır yoksa sadece cache güncellenir.
func (s *contentService) applyLocked(id string, patch models.ItemPatch) {
	if patch.IsZero() {
		return
	}
	if row, ok := s.rows[id]; ok {
		patch.Apply(row)
		if patch.Liked != nil || patch.Saved != nil {
			s.syncMembershipLocked(id)
		}
	}
	s.cache.MutateEverywhere(id, patch)
}

// materializeLocked, id listesini satır kopyalarına çevirir.
func (s *contentService) materializeLocked(ids []string) []models.FeedItem {
	out := make([]models.FeedItem, 0, len(ids))
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out = append(out, row.Clone())
		}
	}
	return out
}

// pruneLocked, hiçbir collection'ın, profil sekmesinin veya detay görünümünün
// referans vermediği satırları siler.
func (s *contentService) pruneLocked() {
	live := make(map[string]struct{}, len(s.rows))
	for _, ids := range s.lists {
		for _, id := range ids {
			live[id] = struct{}{}
		}
	}
	if s.selectedID != "" {
		live[s.selectedID] = struct{}{}
	}
	s.profiles.Range(func(_ profileKey, pf profileFeed) {
		for _, id := range pf.ids {
			live[id] = struct{}{}
		}
	})

	for id := range s.rows {
		if _, ok := live[id]; !ok {
			delete(s.rows, id)
		}
	}
}

func (s *contentService) removeEverywhereLocked(id string) {
	for feed, ids := range s.lists {
		if i := slices.Index(ids, id); i >= 0 {
			s.lists[feed] = slices.Delete(ids, i, i+1)
		}
	}
	delete(s.rows, id)
}

// setMember, id'yi listeye ekler (başa, zaten varsa atlanır) veya çıkarır.
// İkinci dönüş değeri liste değiştiyse true.
func setMember(ids []string, id string, member bool) ([]string, bool) {
	i := slices.Index(ids, id)
	switch {
	case member && i < 0:
		return slices.Insert(ids, 0, id), true
	case !member && i >= 0:
		return slices.Delete(slices.Clone(ids), i, i+1), true
	default:
		return ids, false
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

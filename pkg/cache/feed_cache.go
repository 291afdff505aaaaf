package cache

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/akinalp/memesync/models"
)

// DefaultFeedTTL, feed entry'lerinin varsayılan yaşam süresi.
const DefaultFeedTTL = 5 * time.Minute

// FeedKey, sayfalanmış bir collection'ın mantıksal kimliği.
// Home, discover ve her normalize edilmiş arama sorgusu bağımsız entry'lerdir;
// feed değiştirmek diğer feed'in sıcak cache'ini silmez.
type FeedKey string

const (
	FeedHome     FeedKey = "home"
	FeedTrending FeedKey = "trending" // anonim home
	FeedDiscover FeedKey = "discover"

	searchPrefix = "search:"
)

// SearchKey, arama sorgusunun cache key'i. Sorgu trim + lower-case edilir,
// böylece "Cats " ve "cats" aynı entry'ye düşer.
func SearchKey(query string) FeedKey {
	return FeedKey(searchPrefix + NormalizeQuery(query))
}

// NormalizeQuery, arama sorgusunu cache key formuna getirir.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// IsSearch, key bir arama sonucu mu?
func (k FeedKey) IsSearch() bool {
	return strings.HasPrefix(string(k), searchPrefix)
}

// Page, tek bir fetch'in cache'e yazılan verisi.
// Item'ların Liked / Saved bayrakları fetch anında sunucunun bildirdiği değerlerdir.
type Page struct {
	Items   []models.FeedItem
	Cursor  string
	HasMore bool
}

// Entry, bir feed key'in tüm sayfalarının düzleştirilmiş görüntüsü.
// Get her zaman kopya döner; Entry üzerindeki değişiklikler cache'i etkilemez.
type Entry struct {
	Items       []models.FeedItem
	// Liked / Saved, Items içindeki bayraklı item'ların yan listeleri. Content store
	// bunları okumaz; liked / saved durumunun kaynağı store'un kendi id map'idir.
	Liked       []models.FeedItem
	Saved       []models.FeedItem
	CurrentPage int
	HasMore     bool
	Cursor      string
	Timestamp   time.Time
	ExpiresAt   time.Time
}

// cachedPage, page map'teki tek sayfa. liked / saved bu sayfanın companion listeleridir.
type cachedPage struct {
	items []models.FeedItem
	liked []models.FeedItem
	saved []models.FeedItem
}

// feedEntry, cache'in iç kaydı. pages tek doğruluk kaynağıdır,
// items / liked / saved her yazmada pages'ten yeniden kurulur.
type feedEntry struct {
	pages       map[int]*cachedPage
	items       []models.FeedItem
	liked       []models.FeedItem
	saved       []models.FeedItem
	currentPage int
	hasMore     bool
	cursor      string
	timestamp   time.Time
	expiresAt   time.Time
}

// FeedCache, feed key → sayfalanmış entry tutan TTL cache.
//
// Network'ten habersiz saf bir veri yapısıdır. Süresi dolmuş bir entry
// okunduğu anda silinir ve miss döner, asla stale veri servis edilmez.
//
// Neden düz append değil de page map?
// Scroll ile tetiklenen page-3 fetch'i geç kalmış bir page-2 retry'ından önce
// bitebilir. Sayfalar numaraya göre saklanıp her yazmada artan sırada
// birleştirilirse sonuç varış sırasından bağımsız olur.
type FeedCache struct {
	mu      sync.Mutex
	entries map[FeedKey]*feedEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewFeedCache, yeni bir FeedCache oluşturur. ttl <= 0 ise DefaultFeedTTL kullanılır.
func NewFeedCache(ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = DefaultFeedTTL
	}
	return &FeedCache{
		entries: make(map[FeedKey]*feedEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// TTL, entry yaşam süresi.
func (c *FeedCache) TTL() time.Duration {
	return c.ttl
}

// Get, entry'yi sadece now <= expiresAt ise döner.
// Süresi dolmuşsa entry silinir ve (Entry{}, false) döner.
func (c *FeedCache) Get(key FeedKey) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntry(key)
	if e == nil {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Put, key için yeni bir entry oluşturur: pages = {1: page}.
// Önceki entry (varsa) tamamen değiştirilir.
func (c *FeedCache) Put(key FeedKey, page Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = c.newEntry(1, page)
}

// AppendPage, pageNumber altına sayfayı ekler ve düzleştirilmiş listeleri yeniden kurar.
//
// Entry yoksa (veya süresi dolmuşsa) sadece bu sayfayı içeren yeni bir entry oluşturur.
// Aynı sayfa numarası tekrar yazılırsa eski sayfanın yerine geçer (idempotent merge).
// cursor / hasMore sadece pageNumber >= currentPage ise güncellenir; geç gelen eski bir
// sayfa, daha ileri bir sayfanın bildirdiği hasMore'u ezmez.
func (c *FeedCache) AppendPage(key FeedKey, pageNumber int, page Page) {
	if pageNumber < 1 {
		pageNumber = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntry(key)
	if e == nil {
		c.entries[key] = c.newEntry(pageNumber, page)
		return
	}
	c.mergePage(e, pageNumber, page)
}

// AppendToLive, AppendPage gibidir ama sadece canlı bir entry'ye yazar.
// Entry yoksa veya süresi dolmuşsa hiçbir şey yazılmaz ve false döner; yalnız
// N. sayfayı içeren yetim bir entry oluşmaz.
func (c *FeedCache) AppendToLive(key FeedKey, pageNumber int, page Page) bool {
	if pageNumber < 1 {
		pageNumber = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntry(key)
	if e == nil {
		return false
	}
	c.mergePage(e, pageNumber, page)
	return true
}

func (c *FeedCache) mergePage(e *feedEntry, pageNumber int, page Page) {
	e.pages[pageNumber] = newCachedPage(page.Items)
	if pageNumber >= e.currentPage {
		e.currentPage = pageNumber
		e.hasMore = page.HasMore
		e.cursor = page.Cursor
	}
	e.rebuild()
	c.touch(e)
}

// MutateItem, itemID'yi düzleştirilmiş listede ve onu içeren her sayfada bulur,
// patch'i yerinde uygular. Patch Liked / Saved bayrağını değiştiriyorsa item ilgili
// companion listeye eklenir (zaten varsa atlanır) veya listeden çıkarılır.
//
// Entry yoksa, süresi dolmuşsa veya item entry'de değilse no-op; false döner.
func (c *FeedCache) MutateItem(key FeedKey, itemID string, patch models.ItemPatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntry(key)
	if e == nil {
		return false
	}
	if !e.mutate(itemID, patch) {
		return false
	}
	c.touch(e)
	return true
}

// MutateEverywhere, item'ı içeren tüm canlı entry'lere patch uygular.
// Etkilenen key sayısını döner.
func (c *FeedCache) MutateEverywhere(itemID string, patch models.ItemPatch) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		e := c.liveEntry(key)
		if e == nil {
			continue
		}
		if e.mutate(itemID, patch) {
			c.touch(e)
			n++
		}
	}
	return n
}

// PrependItem, "bunu az önce ben oluşturdum" durumu için item'ı düzleştirilmiş listenin
// ve ilk sayfanın başına ekler. Entry yoksa veya süresi dolmuşsa no-op: bir sonraki
// gerçek fetch doğru şekilde doldurur. Item zaten entry'deyse tekrar eklenmez.
func (c *FeedCache) PrependItem(key FeedKey, item models.FeedItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.liveEntry(key)
	if e == nil || indexOf(e.items, item.ID) >= 0 {
		return false
	}

	first := e.firstPage()
	p := e.pages[first]
	p.items = slices.Insert(p.items, 0, item.Clone())
	if item.Liked {
		p.liked = slices.Insert(p.liked, 0, item.Clone())
	}
	if item.Saved {
		p.saved = slices.Insert(p.saved, 0, item.Clone())
	}
	e.rebuild()
	c.touch(e)
	return true
}

// KeysContaining, item'ı içeren tüm canlı key'leri döner.
// Silme sonrası ilgili entry'leri invalidate etmek için kullanılır.
func (c *FeedCache) KeysContaining(itemID string) []FeedKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []FeedKey
	for key := range c.entries {
		if e := c.liveEntry(key); e != nil && indexOf(e.items, itemID) >= 0 {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Invalidate, verilen key'leri siler. Key verilmezse tüm cache boşaltılır.
func (c *FeedCache) Invalidate(keys ...FeedKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		c.entries = make(map[FeedKey]*feedEntry)
		return
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// InvalidateSearches, tüm arama sonucu entry'lerini siler.
func (c *FeedCache) InvalidateSearches() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.IsSearch() {
			delete(c.entries, key)
		}
	}
}

// Sweep, süresi dolmuş tüm entry'leri fiziksel olarak siler.
// Arama sorguları sınırsız key üretebildiği için store yeni bir arama yazarken çağırır.
func (c *FeedCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

// Len, map'teki entry sayısı (süresi dolmuşlar dahil).
func (c *FeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// liveEntry, entry'yi döner; süresi dolmuşsa siler ve nil döner. Caller lock tutmalı.
func (c *FeedCache) liveEntry(key FeedKey) *feedEntry {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e
}

func (c *FeedCache) newEntry(pageNumber int, page Page) *feedEntry {
	e := &feedEntry{
		pages:       map[int]*cachedPage{pageNumber: newCachedPage(page.Items)},
		currentPage: pageNumber,
		hasMore:     page.HasMore,
		cursor:      page.Cursor,
	}
	e.rebuild()
	c.touch(e)
	return e
}

// touch, sliding expiration: her yazmada timestamp ve expiresAt yenilenir.
func (c *FeedCache) touch(e *feedEntry) {
	e.timestamp = c.now()
	e.expiresAt = e.timestamp.Add(c.ttl)
}

func newCachedPage(items []models.FeedItem) *cachedPage {
	p := &cachedPage{items: cloneItems(items)}
	for _, it := range p.items {
		if it.Liked {
			p.liked = append(p.liked, it.Clone())
		}
		if it.Saved {
			p.saved = append(p.saved, it.Clone())
		}
	}
	return p
}

// rebuild, düzleştirilmiş listeleri sayfaları artan numara sırasında birleştirerek kurar.
// Aynı id birden fazla sayfada varsa (sunucu tarafında kayan sayfalama) ilk görülen kalır.
func (e *feedEntry) rebuild() {
	numbers := make([]int, 0, len(e.pages))
	for n := range e.pages {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	e.items, e.liked, e.saved = nil, nil, nil
	seenItems := make(map[string]bool)
	seenLiked := make(map[string]bool)
	seenSaved := make(map[string]bool)
	for _, n := range numbers {
		p := e.pages[n]
		e.items = appendUnique(e.items, p.items, seenItems)
		e.liked = appendUnique(e.liked, p.liked, seenLiked)
		e.saved = appendUnique(e.saved, p.saved, seenSaved)
	}
}

// mutate, patch'i item'ı içeren her sayfaya uygular ve listeleri yeniden kurar.
func (e *feedEntry) mutate(itemID string, patch models.ItemPatch) bool {
	found := false
	for _, p := range e.pages {
		i := indexOf(p.items, itemID)
		if i < 0 {
			// Sadece companion listede olan item (eski sayfa kalıntısı) yine de güncellenir.
			patchIn(p.liked, itemID, patch)
			patchIn(p.saved, itemID, patch)
			continue
		}
		found = true
		patch.Apply(&p.items[i])
		updated := p.items[i]

		patchIn(p.liked, itemID, patch)
		patchIn(p.saved, itemID, patch)
		if patch.Liked != nil {
			p.liked = setMembership(p.liked, updated, *patch.Liked)
		}
		if patch.Saved != nil {
			p.saved = setMembership(p.saved, updated, *patch.Saved)
		}
	}
	if found {
		e.rebuild()
	}
	return found
}

func (e *feedEntry) firstPage() int {
	first := 0
	for n := range e.pages {
		if first == 0 || n < first {
			first = n
		}
	}
	return first
}

func (e *feedEntry) snapshot() Entry {
	return Entry{
		Items:       cloneItems(e.items),
		Liked:       cloneItems(e.liked),
		Saved:       cloneItems(e.saved),
		CurrentPage: e.currentPage,
		HasMore:     e.hasMore,
		Cursor:      e.cursor,
		Timestamp:   e.timestamp,
		ExpiresAt:   e.expiresAt,
	}
}

// setMembership, item'ı listeye ekler (idempotent) veya listeden çıkarır.
// Yeni eklenen item listenin başına gider (en son beğenilen üstte).
func setMembership(list []models.FeedItem, item models.FeedItem, member bool) []models.FeedItem {
	i := indexOf(list, item.ID)
	switch {
	case member && i < 0:
		return slices.Insert(list, 0, item.Clone())
	case !member && i >= 0:
		return slices.Delete(list, i, i+1)
	}
	return list
}

func patchIn(list []models.FeedItem, itemID string, patch models.ItemPatch) {
	if i := indexOf(list, itemID); i >= 0 {
		patch.Apply(&list[i])
	}
}

func appendUnique(dst, src []models.FeedItem, seen map[string]bool) []models.FeedItem {
	for _, it := range src {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		dst = append(dst, it.Clone())
	}
	return dst
}

func indexOf(list []models.FeedItem, itemID string) int {
	return slices.IndexFunc(list, func(it models.FeedItem) bool { return it.ID == itemID })
}

func cloneItems(items []models.FeedItem) []models.FeedItem {
	if items == nil {
		return nil
	}
	out := make([]models.FeedItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

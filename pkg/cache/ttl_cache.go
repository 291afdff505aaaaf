// Package cache, sync engine'in bellek içi cache yapılarını barındırır.
//
// İki cache var:
//   - FeedCache: feed key → sayfalanmış entry (home, discover, arama sonuçları)
//   - TTLCache: düz key → value cache (profil sekmeleri, arama kullanıcı listeleri)
//
// İkisi de sadece bellektedir, process yeniden başlarsa kaybolur.
//
// TTL (Time To Live):
// Her entry bir "son kullanma tarihi" taşır. Bu tarih geçtikten sonra entry okunamaz,
// okunmaya çalışıldığında silinir ve cache miss olur.
package cache

import (
	"sync"
	"time"
)

// entry, cache'teki tek bir kayıttır.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, generic in-memory TTL cache.
//
//	tabs := cache.New[string, models.FeedPage](5*time.Minute, time.Minute)
//	tabs.Set("u1:UPLOAD", page)
//	page, ok := tabs.Get("u1:UPLOAD")
//
// Thread safety: tüm erişim tek bir mutex ile korunur. Get de yazma yapabilir
// (süresi dolmuş entry'yi siler), bu yüzden RLock yeterli değil.
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	// stopCleanup: periyodik temizleme goroutine'ini durdurmak için.
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// New, yeni bir TTLCache oluşturur ve periyodik temizleme goroutine'ini başlatır.
//
// cleanupInterval <= 0 ise goroutine başlatılmaz; temizlik sadece okuma sırasında olur.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					c.evictExpired()
				case <-c.stopCleanup:
					return
				}
			}
		}()
	}

	return c
}

// Get, cache'ten bir değer okur.
// Key yoksa veya süresi dolmuşsa (zero value, false) döner; süresi dolmuş entry silinir.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, cache'e bir değer yazar (TTL ile).
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Update, canlı bir entry'nin değerini fn ile değiştirir. Expiry korunur.
// Entry yoksa veya süresi dolmuşsa fn çağrılmaz ve false döner.
func (c *TTLCache[K, V]) Update(key K, fn func(V) V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return false
	}
	e.value = fn(e.value)
	c.entries[key] = e
	return true
}

// Range, canlı her entry için fn'i çağırır. fn içinden cache'e erişilmemelidir.
func (c *TTLCache[K, V]) Range(fn func(key K, value V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		fn(key, e.value)
	}
}

// Delete, belirli bir key'i cache'ten siler.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc, predicate'i sağlayan tüm key'leri siler.
//
// Kullanım: bir kullanıcının tüm profil sekmelerini invalidate etmek.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
		}
	}
}

// Clear, tüm cache'i boşaltır.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
}

// Len, cache'teki toplam entry sayısını döner (süresi dolmuşlar dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close, periyodik temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
}

// evictExpired, süresi dolan entry'leri map'ten fiziksel olarak siler.
func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Package ratelimit, realtime bağlantı üzerinden giden mesajları sınırlayan yapıları içerir.
//
// İki katman var:
//   - MessageRateLimiter: mesaj tipi bazlı pencere + cooldown. Sunucu çok hızlı mesaj
//     gönderen client'ı policy violation (1008) ile kapatır; bu limiter o noktaya gelmeden keser.
//   - SendDeduper: aynı içerikli mesajın kısa süre içinde tekrar gönderilmesini bastırır
//     (çift tık, aynı anda iki view'dan gelen toggle).
//
// pkg/ratelimit hiçbir proje içi pakete bağımlı değildir (leaf dependency).
package ratelimit

import (
	"sync"
	"time"
)

// messageBucket, bir mesaj tipi için sayaç ve cooldown bilgisi tutar.
type messageBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// MessageRateLimiter, key (mesaj tipi) bazlı giden mesaj sınırlayıcı.
//
//	limiter := ratelimit.NewMessageRateLimiter(20, 5*time.Second, 10*time.Second)
//	if !limiter.Allow("LIKE") { return false }
//
// Limit aşıldığında key cooldown süresi boyunca reddedilir, sonra pencere sıfırlanır.
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*messageBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// NewMessageRateLimiter, yeni limiter oluşturur ve arka plan temizleme goroutine'ini başlatır.
// maxMessages <= 0 ise limiter her mesaja izin verir.
func NewMessageRateLimiter(maxMessages int, window, cooldown time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*messageBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, key için bir mesaj daha gönderilebilir mi?
//
// Akış:
// 1. Cooldown'daysa → reject.
// 2. Cooldown bitmişse veya window dolmuşsa → yeni pencere başlat.
// 3. Window içindeyse → count artır, max aşıldıysa cooldown başlat.
func (rl *MessageRateLimiter) Allow(key string) bool {
	if rl.maxMessages <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	if !exists {
		rl.buckets[key] = &messageBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// Reset, tüm sayaçları sıfırlar. Yeni bağlantı kurulduğunda çağrılır.
func (rl *MessageRateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.buckets = make(map[string]*messageBucket)
}

// Close, temizleme goroutine'ini durdurur.
func (rl *MessageRateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *MessageRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, hem window'u hem cooldown'u bitmiş bucket'ları siler.
func (rl *MessageRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)

		if windowExpired && cooldownExpired {
			delete(rl.buckets, key)
		}
	}
}

package ratelimit

import (
	"sync"
	"time"
)

type sentRecord struct {
	fingerprint string
	at          time.Time
}

// SendDeduper, aynı key için aynı fingerprint'i window içinde ikinci kez geçirmez.
//
// Key mantıksal hedeftir (ör: "LIKE:m1"), fingerprint mesajın tam içeriğidir.
// Sadece o key'e en son gönderilen içerik tekrar edildiğinde bastırılır:
// LIKE → UNLIKE → LIKE dizisi hızlı yapılsa bile son LIKE geçer.
type SendDeduper struct {
	mu   sync.Mutex
	last map[string]sentRecord
	now  func() time.Time
}

// NewSendDeduper, constructor.
func NewSendDeduper() *SendDeduper {
	return &SendDeduper{
		last: make(map[string]sentRecord),
		now:  time.Now,
	}
}

// Allow, key'e son gönderilen fingerprint aynıysa ve window dolmadıysa false döner.
// Aksi halde kaydı günceller ve true döner. window <= 0 ise dedup uygulanmaz.
func (d *SendDeduper) Allow(key, fingerprint string, window time.Duration) bool {
	if window <= 0 {
		return true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if rec, ok := d.last[key]; ok && rec.fingerprint == fingerprint && now.Sub(rec.at) < window {
		return false
	}
	d.last[key] = sentRecord{fingerprint: fingerprint, at: now}

	// Map'in büyümesini sınırla; ayrı cleanup goroutine'ine gerek yok.
	if len(d.last) > 256 {
		for k, rec := range d.last {
			if now.Sub(rec.at) > time.Minute {
				delete(d.last, k)
			}
		}
	}
	return true
}

// Forget, key kaydını siler. Gönderim başarısız olduğunda veya hedefin durumu
// tersine döndüğünde (LEAVE_POST) çağrılır.
func (d *SendDeduper) Forget(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.last, key)
}

// Reset, tüm kayıtları siler.
func (d *SendDeduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.last = make(map[string]sentRecord)
}

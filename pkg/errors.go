// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Error'lar sabit değişkenlerdir, karşılaştırma referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Repository katmanı REST yanıtlarını bu error'lara çevirir (StatusToError),
// service katmanı bunları wrap eder, bridge handler'ları tekrar HTTP status'a map'ler.
package pkg

import "errors"

// Domain-level error'lar.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")

	// ErrNetwork: istek tamamlanamadı (bağlantı hatası, timeout, 5xx).
	// Caller son bilinen state'i korur ve retry edilebilir bir error gösterir.
	ErrNetwork = errors.New("network failure")

	// ErrNotConnected: realtime bağlantı açık değil, mesaj gönderilemedi.
	ErrNotConnected = errors.New("realtime connection not established")

	// ErrItemNotFound: mutation istenen item hiçbir collection'da yok.
	// Stale view demektir, view yeniden fetch etmelidir.
	ErrItemNotFound = errors.New("item not found in any collection")

	// ErrNotAuthenticated: oturum yok, kullanıcıya bağlı işlem yapılamaz.
	ErrNotAuthenticated = errors.New("not authenticated")
)

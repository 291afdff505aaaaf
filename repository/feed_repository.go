// Package repository, REST collaborator'a erişim katmanını tanımlar.
//
// Service katmanı doğrudan HTTP isteği yazmaz, repository interface'leri
// üzerinden çalışır. Testlerde fake repository ile network olmadan çalışılır.
package repository

import (
	"context"

	"github.com/akinalp/memesync/models"
)

// SearchResult, arama cevabı: eşleşen item'lar ve kullanıcılar.
type SearchResult struct {
	Items []models.FeedItem
	Users []models.UserSummary
}

// FeedRepository, feed / arama / profil / detay ve yorum endpoint'leri.
//
// Sayfalı cevaplar models.FeedPage döner; Page alanı istenen sayfa numarasıdır.
// Item'ların Liked / Saved bayrakları sunucunun fetch anındaki değerleridir.
type FeedRepository interface {
	// FetchHome, oturum açmış kullanıcının kişisel feed'i.
	FetchHome(ctx context.Context, userID string, page, limit int) (models.FeedPage, error)
	// FetchTrending, anonim kullanıcı için trend olanlar. Tek sayfadır.
	FetchTrending(ctx context.Context) (models.FeedPage, error)
	FetchDiscover(ctx context.Context, username string, page, limit int) (models.FeedPage, error)
	Search(ctx context.Context, query string) (SearchResult, error)
	// FetchProfile, offset tabanlı profil sekmesi (UPLOAD / LIKE / SAVE).
	FetchProfile(ctx context.Context, userID string, tab models.ProfileTab, offset, limit int) (models.FeedPage, error)
	// FetchItem, tek item ve viewerID için liked / saved bayrakları.
	FetchItem(ctx context.Context, itemID, viewerID string) (models.FeedItem, error)
	FetchComments(ctx context.Context, itemID string, page, limit int) (models.CommentPage, error)
	// CreateComment, yorumu oluşturur ve sunucunun verdiği id ile döner.
	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	DeleteItem(ctx context.Context, itemID string) error
}

package models

import "time"

// FeedItem, feed'de gösterilen tek bir post (meme).
//
// ID immutable'dır, diğer tüm alanlar yerinde değiştirilebilir.
// Aynı item birden fazla collection'da (home, liked, search...) bulunabilir,
// bunlar aynı satırın farklı görünümleridir. Bir mutation item'ı tutan
// her collection'a uygulanmalıdır.
//
// Liked / Saved: mevcut kullanıcının bu item ile ilişkisi (client-local).
type FeedItem struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	MediaURL          string    `json:"mediaUrl"`
	UploaderID        string    `json:"userId"`
	Uploader          string    `json:"uploader"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	Tags              []string  `json:"tags,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	LikeCount         int       `json:"likeCount"`
	SaveCount         int       `json:"saveCount"`
	CommentCount      int       `json:"commentCount"`
	Liked             bool      `json:"liked"`
	Saved             bool      `json:"saved"`
}

// Clone, item'ın bağımsız bir kopyasını döner (Tags slice'ı dahil).
// Cache ve store dışarıya her zaman kopya verir, iç state alias'lanmaz.
func (f FeedItem) Clone() FeedItem {
	if f.Tags != nil {
		f.Tags = append([]string(nil), f.Tags...)
	}
	return f
}

// ItemPatch, bir FeedItem üzerinde kısmi güncelleme.
//
// Pointer field pattern: nil = "bu alana dokunma".
// Böylece "likeCount'u 0 yap" ile "likeCount'u değiştirme" ayırt edilebilir.
type ItemPatch struct {
	Liked        *bool
	Saved        *bool
	LikeCount    *int
	SaveCount    *int
	CommentCount *int
}

// Apply, patch'i item'a yerinde uygular. Sayaçlar 0'ın altına inmez.
func (p ItemPatch) Apply(item *FeedItem) {
	if p.Liked != nil {
		item.Liked = *p.Liked
	}
	if p.Saved != nil {
		item.Saved = *p.Saved
	}
	if p.LikeCount != nil {
		item.LikeCount = max(*p.LikeCount, 0)
	}
	if p.SaveCount != nil {
		item.SaveCount = max(*p.SaveCount, 0)
	}
	if p.CommentCount != nil {
		item.CommentCount = max(*p.CommentCount, 0)
	}
}

// IsZero, patch hiçbir alanı değiştirmiyorsa true döner.
func (p ItemPatch) IsZero() bool {
	return p.Liked == nil && p.Saved == nil &&
		p.LikeCount == nil && p.SaveCount == nil && p.CommentCount == nil
}

// BoolPtr ve IntPtr, patch literal'leri için küçük yardımcılar.
func BoolPtr(v bool) *bool { return &v }

func IntPtr(v int) *int { return &v }

// FeedPage, bir sayfalık fetch sonucu.
type FeedPage struct {
	Items       []FeedItem `json:"items"`
	HasNextPage bool       `json:"hasNextPage"`
	Total       int        `json:"total,omitempty"`
	Page        int        `json:"page"`
}

// ProfileTab, profil sayfasındaki sekme tipi.
type ProfileTab string

const (
	ProfileTabUploads ProfileTab = "UPLOAD"
	ProfileTabLikes   ProfileTab = "LIKE"
	ProfileTabSaves   ProfileTab = "SAVE"
)

// Valid, tab bilinen bir değer mi?
func (t ProfileTab) Valid() bool {
	switch t {
	case ProfileTabUploads, ProfileTabLikes, ProfileTabSaves:
		return true
	}
	return false
}

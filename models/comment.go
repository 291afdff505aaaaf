package models

import "time"

// Comment, bir item'a yazılmış yorum.
// Live COMMENT event'inde id yoksa client tarafında sentetik id atanır.
type Comment struct {
	ID                string    `json:"id"`
	ItemID            string    `json:"memeId"`
	UserID            string    `json:"userId"`
	Username          string    `json:"username"`
	Text              string    `json:"text"`
	ProfilePictureURL string    `json:"profilePictureUrl"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CommentPage, sayfalanmış yorum listesi.
type CommentPage struct {
	Comments    []Comment `json:"comments"`
	CurrentPage int       `json:"currentPage"`
	TotalPages  int       `json:"totalPages"`
	TotalItems  int       `json:"totalItems"`
}

// HasMore, sonraki sayfa var mı?
func (p CommentPage) HasMore() bool {
	return p.CurrentPage < p.TotalPages
}

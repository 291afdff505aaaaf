package models

import (
	"strings"
	"time"
)

// NotificationType, bildirim tipi.
type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationSystem  NotificationType = "system"
)

// ParseNotificationType, sunucunun gönderdiği tip string'ini normalize eder.
// Sunucu "LIKE" veya "like" gönderebilir. Bilinmeyen tipler system sayılır.
func ParseNotificationType(raw string) NotificationType {
	switch t := NotificationType(strings.ToLower(strings.TrimSpace(raw))); t {
	case NotificationFollow, NotificationLike, NotificationComment:
		return t
	default:
		return NotificationSystem
	}
}

// SyntheticIDPrefix, client tarafında üretilen bildirim id'lerinin prefix'i.
// Bu id'ler sunucu id'leriyle asla dedup edilmez.
const SyntheticIDPrefix = "temp-"

// Notification, kullanıcıya gösterilen tek bir bildirim.
type Notification struct {
	ID                      string           `json:"id"`
	Type                    NotificationType `json:"type"`
	Message                 string           `json:"message"`
	UserID                  string           `json:"userId"`
	TargetID                string           `json:"targetId,omitempty"`
	SourceUserID            string           `json:"sourceUserId,omitempty"`
	SourceUsername          string           `json:"sourceUsername,omitempty"`
	SourceProfilePictureURL string           `json:"sourceProfilePictureUrl,omitempty"`
	CreatedAt               time.Time        `json:"createdAt"`
	Read                    bool             `json:"read"`
}

// IsSynthetic, id client tarafında mı üretildi?
func (n Notification) IsSynthetic() bool {
	return strings.HasPrefix(n.ID, SyntheticIDPrefix)
}

package repository

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/akinalp/memesync/models"
)

// apiNotification, sunucunun bildirim kaydı.
type apiNotification struct {
	ID                string     `json:"id"`
	SenderUsername    string     `json:"senderUsername"`
	ReceiverUsername  string     `json:"receiverUsername"`
	ProfilePictureURL string     `json:"profilePictureUrl"`
	Type              string     `json:"type"`
	Message           string     `json:"message"`
	Read              bool       `json:"read"`
	IsRead            bool       `json:"isRead"`
	MemeID            string     `json:"memeId"`
	CreatedAt         *time.Time `json:"createdAt"`
}

func (n apiNotification) toNotification() models.Notification {
	out := models.Notification{
		ID:                      n.ID,
		Type:                    models.ParseNotificationType(n.Type),
		Message:                 n.Message,
		TargetID:                n.MemeID,
		SourceUsername:          n.SenderUsername,
		SourceProfilePictureURL: n.ProfilePictureURL,
		Read:                    n.Read || n.IsRead,
	}
	if n.CreatedAt != nil {
		out.CreatedAt = *n.CreatedAt
	}
	return out
}

type httpNotificationRepo struct {
	api *APIClient
}

// NewHTTPNotificationRepo, REST tabanlı NotificationRepository oluşturur.
func NewHTTPNotificationRepo(api *APIClient) NotificationRepository {
	return &httpNotificationRepo{api: api}
}

func (r *httpNotificationRepo) List(ctx context.Context) ([]models.Notification, error) {
	var resp []apiNotification
	if err := r.api.get(ctx, "notifications", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]models.Notification, 0, len(resp))
	for _, n := range resp {
		out = append(out, n.toNotification())
	}
	return out, nil
}

func (r *httpNotificationRepo) MarkAllRead(ctx context.Context) error {
	if err := r.api.post(ctx, "notifications/readAll", nil, nil); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *httpNotificationRepo) DeleteAll(ctx context.Context, username string) error {
	if err := r.api.delete(ctx, "notifications/"+url.PathEscape(username)); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

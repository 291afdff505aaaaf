package repository

import (
	"context"

	"github.com/akinalp/memesync/models"
)

// NotificationRepository, bildirim backlog'u ve toplu işlemler.
type NotificationRepository interface {
	List(ctx context.Context) ([]models.Notification, error)
	// MarkAllRead, tüm okunmamışları tek çağrıda okundu yapar.
	MarkAllRead(ctx context.Context) error
	DeleteAll(ctx context.Context, username string) error
}

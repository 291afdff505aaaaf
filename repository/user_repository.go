package repository

import (
	"context"

	"github.com/akinalp/memesync/models"
)

// UserRepository, kullanıcı profili okuma.
type UserRepository interface {
	// GetByUsername, kullanıcı özetini döner. IsFollowing viewerID'ye göre hesaplanır.
	GetByUsername(ctx context.Context, username, viewerID string) (models.UserSummary, error)
}

package repository

import (
	"context"
	"fmt"
	"net/url"

	"github.com/akinalp/memesync/models"
)

type apiFollower struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type apiUser struct {
	UserID            string        `json:"userId"`
	Username          string        `json:"username"`
	ProfilePictureURL string        `json:"profilePictureUrl"`
	FollowersCount    int           `json:"followersCount"`
	FollowingCount    int           `json:"followingCount"`
	IsFollowing       *bool         `json:"isFollowing"`
	Followers         []apiFollower `json:"followers"`
}

type httpUserRepo struct {
	api *APIClient
}

// NewHTTPUserRepo, REST tabanlı UserRepository oluşturur.
func NewHTTPUserRepo(api *APIClient) UserRepository {
	return &httpUserRepo{api: api}
}

func (r *httpUserRepo) GetByUsername(ctx context.Context, username, viewerID string) (models.UserSummary, error) {
	var resp apiUser
	if err := r.api.get(ctx, "users/"+url.PathEscape(username), nil, &resp); err != nil {
		return models.UserSummary{}, fmt.Errorf("failed to get user %s: %w", username, err)
	}

	out := models.UserSummary{
		UserID:            resp.UserID,
		Username:          resp.Username,
		ProfilePictureURL: resp.ProfilePictureURL,
		FollowersCount:    resp.FollowersCount,
		FollowingCount:    resp.FollowingCount,
	}
	if out.FollowersCount == 0 {
		out.FollowersCount = len(resp.Followers)
	}

	// Sunucu isFollowing göndermiyorsa follower listesinden hesaplanır.
	if resp.IsFollowing != nil {
		out.IsFollowing = *resp.IsFollowing
	} else if viewerID != "" {
		for _, f := range resp.Followers {
			if f.UserID == viewerID {
				out.IsFollowing = true
				break
			}
		}
	}
	return out, nil
}

package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
)

// apiMeme, sunucunun meme gösterimi. Alan adları sunucu sürümleri arasında
// tutarsız ("likecount", "uploadedby"), mapping tek yerde yapılır.
type apiMeme struct {
	ID                string     `json:"id"`
	MediaURL          string     `json:"mediaUrl"`
	Caption           string     `json:"caption"`
	Title             string     `json:"title"`
	UploadedBy        string     `json:"uploadedby"`
	Uploader          string     `json:"uploader"`
	ProfilePictureURL string     `json:"profilePictureUrl"`
	UserID            string     `json:"userId"`
	LikeCount         int        `json:"likecount"`
	SaveCount         int        `json:"saveCount"`
	CommentsCount     int        `json:"commentsCount"`
	MemeCreated       *time.Time `json:"memeCreated"`
	CreatedAt         *time.Time `json:"createdAt"`
	Tags              []string   `json:"tags"`
}

func (m apiMeme) toItem(liked, saved bool) models.FeedItem {
	item := models.FeedItem{
		ID:                m.ID,
		Title:             m.Caption,
		MediaURL:          m.MediaURL,
		UploaderID:        m.UserID,
		Uploader:          m.Uploader,
		ProfilePictureURL: m.ProfilePictureURL,
		Tags:              m.Tags,
		LikeCount:         max(m.LikeCount, 0),
		SaveCount:         max(m.SaveCount, 0),
		CommentCount:      max(m.CommentsCount, 0),
		Liked:             liked,
		Saved:             saved,
	}
	if item.Title == "" {
		item.Title = m.Title
	}
	if item.Uploader == "" {
		item.Uploader = m.UploadedBy
	}
	switch {
	case m.MemeCreated != nil:
		item.CreatedAt = *m.MemeCreated
	case m.CreatedAt != nil:
		item.CreatedAt = *m.CreatedAt
	}
	return item
}

// apiMemeWithStatus, kişiselleştirilmiş cevaplardaki {meme, liked, saved} sarmalı.
type apiMemeWithStatus struct {
	Meme  apiMeme `json:"meme"`
	Liked bool    `json:"liked"`
	Saved bool    `json:"saved"`
}

type apiFeedResponse struct {
	Memes       []apiMemeWithStatus `json:"memes"`
	HasNextPage bool                `json:"hasNextPage"`
}

type apiProfileResponse struct {
	Memes       []apiMeme `json:"memes"`
	Total       int       `json:"total"`
	HasNextPage bool      `json:"hasNextPage"`
}

type apiUserHit struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	FollowersCount    int    `json:"followersCount"`
}

type apiSearchResponse struct {
	Memes []apiMeme    `json:"memes"`
	Users []apiUserHit `json:"users"`
}

type apiComment struct {
	ID                string     `json:"id"`
	MemeID            string     `json:"memeId"`
	UserID            string     `json:"userId"`
	Username          string     `json:"username"`
	Text              string     `json:"text"`
	ProfilePictureURL string     `json:"profilePictureUrl"`
	CreatedAt         *time.Time `json:"createdAt"`
}

func (c apiComment) toComment(itemID string) models.Comment {
	out := models.Comment{
		ID:                c.ID,
		ItemID:            c.MemeID,
		UserID:            c.UserID,
		Username:          c.Username,
		Text:              c.Text,
		ProfilePictureURL: c.ProfilePictureURL,
	}
	if out.ItemID == "" {
		out.ItemID = itemID
	}
	if c.CreatedAt != nil {
		out.CreatedAt = *c.CreatedAt
	}
	return out
}

type apiCommentPage struct {
	Data        []apiComment `json:"data"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	TotalItems  int          `json:"totalItems"`
}

type httpFeedRepo struct {
	api *APIClient
}

// NewHTTPFeedRepo, REST tabanlı FeedRepository oluşturur.
func NewHTTPFeedRepo(api *APIClient) FeedRepository {
	return &httpFeedRepo{api: api}
}

func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}

func (r *httpFeedRepo) FetchHome(ctx context.Context, userID string, page, limit int) (models.FeedPage, error) {
	q := pageQuery(page, limit)
	q.Set("userId", userID)

	var resp apiFeedResponse
	if err := r.api.get(ctx, "memes/feed/main", q, &resp); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to fetch home page %d: %w", page, err)
	}
	return resp.toPage(page), nil
}

func (r *httpFeedRepo) FetchTrending(ctx context.Context) (models.FeedPage, error) {
	q := url.Values{}
	q.Set("excludeComments", "true")

	var memes []apiMeme
	if err := r.api.get(ctx, "memes/trending", q, &memes); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to fetch trending: %w", err)
	}
	items := make([]models.FeedItem, 0, len(memes))
	for _, m := range memes {
		items = append(items, m.toItem(false, false))
	}
	return models.FeedPage{Items: items, Page: 1, Total: len(items)}, nil
}

func (r *httpFeedRepo) FetchDiscover(ctx context.Context, username string, page, limit int) (models.FeedPage, error) {
	q := pageQuery(page, limit)
	if username != "" {
		q.Set("username", username)
	}

	var resp apiFeedResponse
	if err := r.api.get(ctx, "memes/discover", q, &resp); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to fetch discover page %d: %w", page, err)
	}
	return resp.toPage(page), nil
}

func (r *httpFeedRepo) Search(ctx context.Context, query string) (SearchResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("excludeComments", "true")

	var resp apiSearchResponse
	if err := r.api.get(ctx, "memes/search", q, &resp); err != nil {
		return SearchResult{}, fmt.Errorf("failed to search %q: %w", query, err)
	}

	out := SearchResult{
		Items: make([]models.FeedItem, 0, len(resp.Memes)),
		Users: make([]models.UserSummary, 0, len(resp.Users)),
	}
	for _, m := range resp.Memes {
		out.Items = append(out.Items, m.toItem(false, false))
	}
	for _, u := range resp.Users {
		out.Users = append(out.Users, models.UserSummary{
			UserID:            u.UserID,
			Username:          u.Username,
			ProfilePictureURL: u.ProfilePictureURL,
			FollowersCount:    u.FollowersCount,
		})
	}
	return out, nil
}

func (r *httpFeedRepo) FetchProfile(ctx context.Context, userID string, tab models.ProfileTab, offset, limit int) (models.FeedPage, error) {
	if !tab.Valid() {
		return models.FeedPage{}, fmt.Errorf("%w: unknown profile tab %q", pkg.ErrBadRequest, tab)
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("type", string(tab))

	var resp apiProfileResponse
	path := "profile/user-memes/" + url.PathEscape(userID) + "/"
	if err := r.api.get(ctx, path, q, &resp); err != nil {
		return models.FeedPage{}, fmt.Errorf("failed to fetch %s tab of %s: %w", tab, userID, err)
	}

	items := make([]models.FeedItem, 0, len(resp.Memes))
	for _, m := range resp.Memes {
		items = append(items, m.toItem(false, false))
	}
	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return models.FeedPage{Items: items, HasNextPage: resp.HasNextPage, Total: resp.Total, Page: page}, nil
}

func (r *httpFeedRepo) FetchItem(ctx context.Context, itemID, viewerID string) (models.FeedItem, error) {
	q := url.Values{}
	q.Set("excludeComments", "true")
	if viewerID != "" {
		q.Set("userId", viewerID)
	}

	var resp apiMemeWithStatus
	if err := r.api.get(ctx, "memes/memepage/"+url.PathEscape(itemID), q, &resp); err != nil {
		return models.FeedItem{}, fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}
	if resp.Meme.ID == "" {
		return models.FeedItem{}, fmt.Errorf("%w: item %s", pkg.ErrNotFound, itemID)
	}
	return resp.Meme.toItem(resp.Liked, resp.Saved), nil
}

func (r *httpFeedRepo) FetchComments(ctx context.Context, itemID string, page, limit int) (models.CommentPage, error) {
	var resp apiCommentPage
	path := "memes/" + url.PathEscape(itemID) + "/comments"
	if err := r.api.get(ctx, path, pageQuery(page, limit), &resp); err != nil {
		return models.CommentPage{}, fmt.Errorf("failed to fetch comments of %s: %w", itemID, err)
	}

	out := models.CommentPage{
		Comments:    make([]models.Comment, 0, len(resp.Data)),
		CurrentPage: resp.CurrentPage,
		TotalPages:  resp.TotalPages,
		TotalItems:  resp.TotalItems,
	}
	for _, c := range resp.Data {
		out.Comments = append(out.Comments, c.toComment(itemID))
	}
	return out, nil
}

func (r *httpFeedRepo) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	body := struct {
		Username          string `json:"username"`
		Text              string `json:"text"`
		ProfilePictureURL string `json:"profilePictureUrl"`
		UserID            string `json:"userId"`
	}{comment.Username, comment.Text, comment.ProfilePictureURL, comment.UserID}

	var resp struct {
		ID string `json:"id"`
	}
	path := "memes/" + url.PathEscape(comment.ItemID) + "/comment"
	if err := r.api.post(ctx, path, body, &resp); err != nil {
		return models.Comment{}, fmt.Errorf("failed to create comment on %s: %w", comment.ItemID, err)
	}
	comment.ID = resp.ID
	return comment, nil
}

func (r *httpFeedRepo) DeleteItem(ctx context.Context, itemID string) error {
	if err := r.api.delete(ctx, "memes/"+url.PathEscape(itemID)); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", itemID, err)
	}
	return nil
}

func (r apiFeedResponse) toPage(page int) models.FeedPage {
	items := make([]models.FeedItem, 0, len(r.Memes))
	for _, m := range r.Memes {
		items = append(items, m.Meme.toItem(m.Liked, m.Saved))
	}
	return models.FeedPage{Items: items, HasNextPage: r.HasNextPage, Page: page}
}

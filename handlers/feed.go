package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/services"
)

// FeedHandler, Content Store collection'ları ve item aksiyonları.
type FeedHandler struct {
	content services.ContentService
}

// NewFeedHandler, constructor.
func NewFeedHandler(content services.ContentService) *FeedHandler {
	return &FeedHandler{content: content}
}

type feedResponse struct {
	Feed    services.Feed     `json:"feed"`
	Items   []models.FeedItem `json:"items"`
	HasMore bool              `json:"hasMore"`
	Query   string            `json:"query,omitempty"`
}

func (h *FeedHandler) parseFeed(w http.ResponseWriter, r *http.Request) (services.Feed, bool) {
	feed, err := services.ParseFeed(r.PathValue("feed"))
	if err != nil {
		pkg.Error(w, err)
		return "", false
	}
	// Oturumsuz sadece home okunabilir; store onu trending'e düşürür.
	if _, ok := UserFromContext(r.Context()); !ok && feed != services.FeedHome {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "login required")
		return "", false
	}
	return feed, true
}

// List godoc
// GET /api/feeds/{feed}
//
// Collection'ın mevcut hali. Network'e gitmez.
func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.parseFeed(w, r)
	if !ok {
		return
	}

	resp := feedResponse{
		Feed:    feed,
		Items:   h.content.Items(feed),
		HasMore: h.content.HasMore(feed),
	}
	if feed == services.FeedSearch {
		resp.Query = h.content.SearchQuery()
	}
	pkg.JSON(w, http.StatusOK, resp)
}

// FetchFirst godoc
// POST /api/feeds/{feed}/first
func (h *FeedHandler) FetchFirst(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.parseFeed(w, r)
	if !ok {
		return
	}

	info, ok := h.content.FetchFirstPage(r.Context(), feed)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, info)
}

// FetchNext godoc
// POST /api/feeds/{feed}/next
func (h *FeedHandler) FetchNext(w http.ResponseWriter, r *http.Request) {
	feed, ok := h.parseFeed(w, r)
	if !ok {
		return
	}

	info, ok := h.content.FetchNextPage(r.Context(), feed)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, info)
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	services.PageInfo
	Query string               `json:"query"`
	Users []models.UserSummary `json:"users"`
}

// Search godoc
// POST /api/search
//
// Body: { "query": "kedi" }. Boş sorgu aramayı temizler.
func (h *FeedHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, ok := h.content.Search(r.Context(), req.Query)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, searchResponse{
		PageInfo: info,
		Query:    h.content.SearchQuery(),
		Users:    h.content.SearchUsers(),
	})
}

// ClearSearch godoc
// DELETE /api/search
func (h *FeedHandler) ClearSearch(w http.ResponseWriter, r *http.Request) {
	h.content.ClearSearch()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "search cleared"})
}

// ToggleLike godoc
// POST /api/items/{id}/like
//
// Optimistic: yanıt, sunucu onayı beklenmeden item'ın yeni halini taşır.
func (h *FeedHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.content.ToggleLike)
}

// ToggleSave godoc
// POST /api/items/{id}/save
func (h *FeedHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.content.ToggleSave)
}

func (h *FeedHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(string) bool) {
	id := r.PathValue("id")
	if !fn(id) {
		writeFailure(w, h.content.Error())
		return
	}

	item, _ := h.content.Item(id)
	pkg.JSON(w, http.StatusOK, item)
}

// Delete godoc
// DELETE /api/items/{id}
//
// Optimistic değildir: item sadece sunucu onayından sonra kaldırılır.
func (h *FeedHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.content.DeleteItem(r.Context(), r.PathValue("id")) {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

type postResponse struct {
	Item     models.FeedItem  `json:"item"`
	Comments []models.Comment `json:"comments"`
}

// Open godoc
// POST /api/items/{id}/open
//
// Detay görünümünü açar ve post'un canlı yorumlarına abone olur.
func (h *FeedHandler) Open(w http.ResponseWriter, r *http.Request) {
	item, ok := h.content.OpenPost(r.Context(), r.PathValue("id"))
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, postResponse{Item: item, Comments: h.content.Comments()})
}

// Close godoc
// POST /api/items/close
func (h *FeedHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.content.ClosePost()
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "post closed"})
}

// Comments godoc
// GET /api/items/{id}/comments?page=1
func (h *FeedHandler) Comments(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}

	result, ok := h.content.FetchComments(r.Context(), r.PathValue("id"), page)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]any{
		"comments":    result.Comments,
		"currentPage": result.CurrentPage,
		"hasMore":     result.HasMore(),
	})
}

type commentRequest struct {
	Text string `json:"text"`
}

// AddComment godoc
// POST /api/items/{id}/comments
func (h *FeedHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, ok := h.content.AddComment(r.Context(), r.PathValue("id"), req.Text)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusCreated, comment)
}

// Profile godoc
// GET /api/profiles/{userId}/{tab}?next=true
//
// tab: UPLOAD | LIKE | SAVE (büyük/küçük harf fark etmez).
func (h *FeedHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	tab := models.ProfileTab(strings.ToUpper(r.PathValue("tab")))

	fetch := h.content.FetchProfile
	if r.URL.Query().Get("next") == "true" {
		fetch = h.content.FetchProfileNext
	}

	feed, ok := fetch(r.Context(), userID, tab)
	if !ok {
		writeFailure(w, h.content.Error())
		return
	}
	pkg.JSON(w, http.StatusOK, feed)
}

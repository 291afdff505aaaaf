package services

import (
	"context"
	"sync"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/repository"
	"github.com/akinalp/memesync/ws"
)

// ─── Identity ───

type fakeIdentity struct {
	mu   sync.Mutex
	user *models.SessionUser
}

func loggedIn(userID, username string) *fakeIdentity {
	return &fakeIdentity{user: &models.SessionUser{UserID: userID, Username: username}}
}

func (f *fakeIdentity) Current() (models.SessionUser, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.user == nil {
		return models.SessionUser{}, false
	}
	return *f.user, true
}

func (f *fakeIdentity) logout() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.user = nil
}

// ─── Realtime ───

type fakeRealtime struct {
	mu        sync.Mutex
	sent      []ws.Message
	offline   bool
	state     ws.State
	degraded  bool
	subs      map[string]int
	unsubs    []string
	listeners []func(ws.StateChange)
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{state: ws.StateConnected, subs: make(map[string]int)}
}

func (f *fakeRealtime) Send(msg ws.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.offline {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeRealtime) Subscribe(postID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subs[postID]++
	return !f.offline
}

func (f *fakeRealtime) Unsubscribe(postID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsubs = append(f.unsubs, postID)
	return !f.offline
}

func (f *fakeRealtime) State() ws.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.state
}

func (f *fakeRealtime) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.degraded
}

func (f *fakeRealtime) OnStateChange(fn func(ws.StateChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeRealtime) emit(change ws.StateChange) {
	f.mu.Lock()
	f.state = change.To
	listeners := append([]func(ws.StateChange){}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (f *fakeRealtime) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.offline = offline
}

func (f *fakeRealtime) messages() []ws.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]ws.Message(nil), f.sent...)
}

func (f *fakeRealtime) subscribeCount(postID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.subs[postID]
}

// ─── Feed repository ───

type fakeFeedRepo struct {
	mu sync.Mutex

	home      map[int]models.FeedPage
	trending  models.FeedPage
	discover  map[int]models.FeedPage
	search    map[string]repository.SearchResult
	profiles  map[models.ProfileTab][]models.FeedItem
	items     map[string]models.FeedItem
	comments  map[string][]models.Comment
	deleteErr error
	fetchErr  error

	calls map[string]int
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{
		home:     make(map[int]models.FeedPage),
		discover: make(map[int]models.FeedPage),
		search:   make(map[string]repository.SearchResult),
		profiles: make(map[models.ProfileTab][]models.FeedItem),
		items:    make(map[string]models.FeedItem),
		comments: make(map[string][]models.Comment),
		calls:    make(map[string]int),
	}
}

func (f *fakeFeedRepo) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[name]++
	return f.fetchErr
}

func (f *fakeFeedRepo) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[name]
}

func (f *fakeFeedRepo) FetchHome(_ context.Context, _ string, page, _ int) (models.FeedPage, error) {
	if err := f.record("home"); err != nil {
		return models.FeedPage{}, err
	}
	p := f.home[page]
	p.Page = page
	return p, nil
}

func (f *fakeFeedRepo) FetchTrending(context.Context) (models.FeedPage, error) {
	if err := f.record("trending"); err != nil {
		return models.FeedPage{}, err
	}
	return f.trending, nil
}

func (f *fakeFeedRepo) FetchDiscover(_ context.Context, _ string, page, _ int) (models.FeedPage, error) {
	if err := f.record("discover"); err != nil {
		return models.FeedPage{}, err
	}
	return f.discover[page], nil
}

func (f *fakeFeedRepo) Search(_ context.Context, query string) (repository.SearchResult, error) {
	if err := f.record("search"); err != nil {
		return repository.SearchResult{}, err
	}
	return f.search[query], nil
}

func (f *fakeFeedRepo) FetchProfile(_ context.Context, _ string, tab models.ProfileTab, offset, limit int) (models.FeedPage, error) {
	if err := f.record("profile"); err != nil {
		return models.FeedPage{}, err
	}
	all := f.profiles[tab]
	end := min(offset+limit, len(all))
	if offset > end {
		offset = end
	}
	return models.FeedPage{Items: all[offset:end], HasNextPage: end < len(all), Total: len(all)}, nil
}

func (f *fakeFeedRepo) FetchItem(_ context.Context, itemID, _ string) (models.FeedItem, error) {
	if err := f.record("item"); err != nil {
		return models.FeedItem{}, err
	}
	item, ok := f.items[itemID]
	if !ok {
		return models.FeedItem{}, pkg.ErrNotFound
	}
	return item, nil
}

func (f *fakeFeedRepo) FetchComments(_ context.Context, itemID string, page, _ int) (models.CommentPage, error) {
	if err := f.record("comments"); err != nil {
		return models.CommentPage{}, err
	}
	return models.CommentPage{Comments: f.comments[itemID], CurrentPage: page, TotalPages: 1}, nil
}

func (f *fakeFeedRepo) CreateComment(_ context.Context, c models.Comment) (models.Comment, error) {
	if err := f.record("create-comment"); err != nil {
		return models.Comment{}, err
	}
	c.ID = "c-new"
	return c, nil
}

func (f *fakeFeedRepo) DeleteItem(context.Context, string) error {
	f.record("delete")
	return f.deleteErr
}

// ─── Notification / user repositories ───

type fakeNotificationRepo struct {
	mu         sync.Mutex
	backlog    []models.Notification
	listErr    error
	readErr    error
	deleteErr  error
	readCalls  int
	deletedFor string
}

func (f *fakeNotificationRepo) List(context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]models.Notification(nil), f.backlog...), f.listErr
}

func (f *fakeNotificationRepo) MarkAllRead(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.readCalls++
	return f.readErr
}

func (f *fakeNotificationRepo) DeleteAll(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedFor = username
	return nil
}

type fakeUserRepo struct {
	users map[string]models.UserSummary
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username, _ string) (models.UserSummary, error) {
	user, ok := f.users[username]
	if !ok {
		return models.UserSummary{}, pkg.ErrNotFound
	}
	return user, nil
}

// ─── Fixtures ───

func item(id string, likes int, liked bool) models.FeedItem {
	return models.FeedItem{ID: id, Title: "meme " + id, UploaderID: "u2", Uploader: "mehmet", LikeCount: likes, Liked: liked}
}

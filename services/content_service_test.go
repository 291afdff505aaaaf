package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/akinalp/memesync/models"
	"github.com/akinalp/memesync/pkg"
	"github.com/akinalp/memesync/pkg/cache"
	"github.com/akinalp/memesync/repository"
	"github.com/akinalp/memesync/ws"
)

type contentFixture struct {
	svc      ContentService
	repo     *fakeFeedRepo
	rt       *fakeRealtime
	d        *ws.Dispatcher
	cache    *cache.FeedCache
	identity *fakeIdentity
}

func newContentFixture(t *testing.T, identity *fakeIdentity) *contentFixture {
	t.Helper()
	f := &contentFixture{
		repo:     newFakeFeedRepo(),
		rt:       newFakeRealtime(),
		d:        ws.NewDispatcher(),
		cache:    cache.NewFeedCache(time.Minute),
		identity: identity,
	}
	f.svc = NewContentService(f.repo, f.cache, identity, f.rt, f.d, ContentOptions{})
	t.Cleanup(f.svc.Close)
	return f
}

func (f *contentFixture) seedHome(t *testing.T, items ...models.FeedItem) {
	t.Helper()
	f.repo.home[1] = models.FeedPage{Items: items}
	_, ok := f.svc.FetchFirstPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
}

func TestToggleLikeIsOptimistic(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))

	assert.Equal(t, f.svc.ToggleLike("m1"), true)

	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.Liked, true)
	assert.Equal(t, got.LikeCount, 5)
	assert.Equal(t, len(f.svc.Items(FeedLiked)), 1)

	entry, ok := f.cache.Get(cache.FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, entry.Items[0].LikeCount, 5)
	assert.Equal(t, entry.Items[0].Liked, true)

	sent := f.rt.messages()
	assert.Equal(t, len(sent), 1)
	assert.Equal(t, sent[0], ws.Message(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, UserID: "u1", Username: "ayse"}))
}

func TestOwnOppositeEventConverges(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))
	f.svc.ToggleLike("m1")

	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionUnlike, UserID: "u1"})
	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.Liked, false)
	assert.Equal(t, got.LikeCount, 4)
	assert.Equal(t, len(f.svc.Items(FeedLiked)), 0)

	// Reconciliation hiçbir zaman isteği tekrar göndermez.
	assert.Equal(t, len(f.rt.messages()), 1)

	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, UserID: "u1", LikeCount: models.IntPtr(9)})
	got, _ = f.svc.Item("m1")
	assert.Equal(t, got.Liked, true)
	assert.Equal(t, got.LikeCount, 9)
}

func TestOwnAgreeingEventKeepsSingleChange(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))
	f.svc.ToggleLike("m1")

	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, UserID: "u1"})
	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.Liked, true)
	assert.Equal(t, got.LikeCount, 5)
}

func TestOtherUserEventOnlyOverwritesCount(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))

	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, UserID: "u9", LikeCount: models.IntPtr(7)})
	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.Liked, false)
	assert.Equal(t, got.LikeCount, 7)

	// Actor'ı olmayan event de başka kullanıcı sayılır.
	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, LikeCount: models.IntPtr(8)})
	got, _ = f.svc.Item("m1")
	assert.Equal(t, got.Liked, false)
	assert.Equal(t, got.LikeCount, 8)

	f.d.Dispatch(ws.SaveMessage{MemeID: "m1", Action: ws.ActionSave, UserID: "u9", SaveCount: models.IntPtr(3)})
	got, _ = f.svc.Item("m1")
	assert.Equal(t, got.Saved, false)
	assert.Equal(t, got.SaveCount, 3)
}

func TestCrossCollectionConsistency(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false), item("m2", 0, false))
	f.repo.search["kedi"] = repository.SearchResult{Items: []models.FeedItem{item("m1", 4, false)}}

	_, ok := f.svc.Search(context.Background(), "kedi")
	assert.Equal(t, ok, true)

	f.svc.ToggleLike("m1")
	f.d.Dispatch(ws.LikeMessage{MemeID: "m1", Action: ws.ActionLike, UserID: "u7", LikeCount: models.IntPtr(11)})

	home := f.svc.Items(FeedHome)[0]
	found := f.svc.Items(FeedSearch)[0]
	liked := f.svc.Items(FeedLiked)[0]
	assert.Equal(t, home, found)
	assert.Equal(t, home, liked)
	assert.Equal(t, home.LikeCount, 11)
	assert.Equal(t, home.Liked, true)

	entry, _ := f.cache.Get(cache.SearchKey("kedi"))
	assert.Equal(t, entry.Items[0].LikeCount, 11)
}

func TestToggleMissingItemIsAbandoned(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))

	assert.Equal(t, f.svc.ToggleSave("ghost"), false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrItemNotFound), true)
	assert.Equal(t, len(f.rt.messages()), 0)

	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.LikeCount, 4)
}

func TestToggleRevertsWhenNotConnected(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))
	f.rt.setOffline(true)

	assert.Equal(t, f.svc.ToggleLike("m1"), false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrNotConnected), true)

	got, _ := f.svc.Item("m1")
	assert.Equal(t, got.Liked, false)
	assert.Equal(t, got.LikeCount, 4)
	assert.Equal(t, len(f.svc.Items(FeedLiked)), 0)

	entry, _ := f.cache.Get(cache.FeedHome)
	assert.Equal(t, entry.Items[0].LikeCount, 4)
}

func TestToggleRequiresSession(t *testing.T) {
	f := newContentFixture(t, &fakeIdentity{})
	f.repo.trending = models.FeedPage{Items: []models.FeedItem{item("t1", 1, false)}}
	f.svc.FetchFirstPage(context.Background(), FeedHome)

	assert.Equal(t, f.svc.ToggleLike("t1"), false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrNotAuthenticated), true)
}

func TestDeleteIsNotOptimistic(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false), item("m2", 1, false))

	f.repo.deleteErr = pkg.ErrForbidden
	assert.Equal(t, f.svc.DeleteItem(context.Background(), "m1"), false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrForbidden), true)
	assert.Equal(t, len(f.svc.Items(FeedHome)), 2)

	f.repo.deleteErr = nil
	assert.Equal(t, f.svc.DeleteItem(context.Background(), "m1"), true)
	assert.Equal(t, f.svc.Error(), nil)

	items := f.svc.Items(FeedHome)
	assert.Equal(t, len(items), 1)
	assert.Equal(t, items[0].ID, "m2")

	_, ok := f.svc.Item("m1")
	assert.Equal(t, ok, false)
	_, ok = f.cache.Get(cache.FeedHome)
	assert.Equal(t, ok, false)
}

func TestFirstPageServedFromCache(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 4, false))

	info, ok := f.svc.FetchFirstPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.FromCache, true)
	assert.Equal(t, info.Count, 1)
	assert.Equal(t, f.repo.count("home"), 1)
}

func TestNextPageAppendsUntilExhausted(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.home[1] = models.FeedPage{Items: []models.FeedItem{item("m1", 0, false), item("m2", 0, false)}, HasNextPage: true}
	f.repo.home[2] = models.FeedPage{Items: []models.FeedItem{item("m3", 0, false)}}

	f.svc.FetchFirstPage(context.Background(), FeedHome)
	assert.Equal(t, f.svc.HasMore(FeedHome), true)

	info, ok := f.svc.FetchNextPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.Page, 2)
	assert.Equal(t, info.HasMore, false)

	items := f.svc.Items(FeedHome)
	assert.Equal(t, len(items), 3)
	assert.Equal(t, items[2].ID, "m3")

	f.svc.FetchNextPage(context.Background(), FeedHome)
	assert.Equal(t, f.repo.count("home"), 2)
}

func TestNextPageAfterExpiryKeepsEarlierPages(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.home[1] = models.FeedPage{Items: []models.FeedItem{item("m1", 0, false), item("m2", 0, false)}, HasNextPage: true}
	f.repo.home[2] = models.FeedPage{Items: []models.FeedItem{item("m3", 0, false)}, HasNextPage: true}
	f.svc.FetchFirstPage(context.Background(), FeedHome)

	// Sayfalama sırasında entry'nin ömrü doldu.
	f.cache.Invalidate(cache.FeedHome)

	info, ok := f.svc.FetchNextPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.Page, 2)

	items := f.svc.Items(FeedHome)
	assert.Equal(t, len(items), 3)
	assert.Equal(t, items[0].ID, "m1")
	assert.Equal(t, items[2].ID, "m3")

	_, cached := f.cache.Get(cache.FeedHome)
	assert.Equal(t, cached, false)

	// İlk sayfa cache'ten kısmi değil, network'ten tam olarak gelir.
	info, ok = f.svc.FetchFirstPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.FromCache, false)
	assert.Equal(t, info.Page, 1)
	assert.Equal(t, f.svc.Items(FeedHome)[0].ID, "m1")
	assert.Equal(t, f.repo.count("home"), 3)
}

func TestFetchFailureKeepsLastKnownGood(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.home[1] = models.FeedPage{Items: []models.FeedItem{item("m1", 0, false)}, HasNextPage: true}
	f.svc.FetchFirstPage(context.Background(), FeedHome)

	f.repo.fetchErr = pkg.ErrNetwork
	_, ok := f.svc.FetchNextPage(context.Background(), FeedHome)
	assert.Equal(t, ok, false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrNetwork), true)
	assert.Equal(t, len(f.svc.Items(FeedHome)), 1)
	assert.Equal(t, f.svc.HasMore(FeedHome), true)
}

func TestAnonymousHomeUsesTrending(t *testing.T) {
	f := newContentFixture(t, &fakeIdentity{})
	f.repo.trending = models.FeedPage{Items: []models.FeedItem{item("t1", 1, false), item("t2", 2, false)}}

	info, ok := f.svc.FetchFirstPage(context.Background(), FeedHome)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.Count, 2)
	assert.Equal(t, f.repo.count("trending"), 1)
	assert.Equal(t, f.repo.count("home"), 0)
	assert.Equal(t, f.svc.HasMore(FeedHome), false)
}

func TestSearchCachesPerNormalizedQuery(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.search["kedi"] = repository.SearchResult{
		Items: []models.FeedItem{item("m1", 0, false)},
		Users: []models.UserSummary{{UserID: "u5", Username: "kedici"}},
	}

	_, ok := f.svc.Search(context.Background(), "kedi")
	assert.Equal(t, ok, true)
	assert.Equal(t, f.svc.SearchQuery(), "kedi")

	f.svc.ClearSearch()
	assert.Equal(t, len(f.svc.Items(FeedSearch)), 0)
	assert.Equal(t, len(f.svc.SearchUsers()), 0)

	info, ok := f.svc.Search(context.Background(), "  KEDI ")
	assert.Equal(t, ok, true)
	assert.Equal(t, info.FromCache, true)
	assert.Equal(t, f.repo.count("search"), 1)
	assert.Equal(t, len(f.svc.Items(FeedSearch)), 1)
	assert.Equal(t, f.svc.SearchUsers()[0].Username, "kedici")

	_, ok = f.svc.Search(context.Background(), "   ")
	assert.Equal(t, ok, true)
	assert.Equal(t, f.svc.SearchQuery(), "")
}

func TestLikedFeedFromOwnProfileTab(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.profiles[models.ProfileTabLikes] = []models.FeedItem{item("m3", 2, false), item("m4", 1, false)}

	info, ok := f.svc.FetchFirstPage(context.Background(), FeedLiked)
	assert.Equal(t, ok, true)
	assert.Equal(t, info.Count, 2)

	liked := f.svc.Items(FeedLiked)
	assert.Equal(t, len(liked), 2)
	assert.Equal(t, liked[0].Liked, true)

	f.svc.ToggleLike("m3")
	liked = f.svc.Items(FeedLiked)
	assert.Equal(t, len(liked), 1)
	assert.Equal(t, liked[0].ID, "m4")

	got, _ := f.svc.Item("m3")
	assert.Equal(t, got.LikeCount, 1)
}

func TestProfileOffsetPaging(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	uploads := make([]models.FeedItem, 0, 12)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		uploads = append(uploads, item(id, 0, false))
	}
	f.repo.profiles[models.ProfileTabUploads] = uploads

	pf, ok := f.svc.FetchProfile(context.Background(), "u2", models.ProfileTabUploads)
	assert.Equal(t, ok, true)
	assert.Equal(t, len(pf.Items), 10)
	assert.Equal(t, pf.HasMore, true)
	assert.Equal(t, pf.Total, 12)

	pf, _ = f.svc.FetchProfileNext(context.Background(), "u2", models.ProfileTabUploads)
	assert.Equal(t, len(pf.Items), 12)
	assert.Equal(t, pf.HasMore, false)

	pf, _ = f.svc.FetchProfile(context.Background(), "u2", models.ProfileTabUploads)
	assert.Equal(t, len(pf.Items), 12)
	assert.Equal(t, f.repo.count("profile"), 2)

	f.svc.InvalidateProfile("u2")
	f.svc.FetchProfile(context.Background(), "u2", models.ProfileTabUploads)
	assert.Equal(t, f.repo.count("profile"), 3)

	_, ok = f.svc.FetchProfile(context.Background(), "u2", models.ProfileTab("STAR"))
	assert.Equal(t, ok, false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrBadRequest), true)
}

func TestResubscribeOnConnect(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.items["p1"] = item("p1", 0, false)

	_, ok := f.svc.OpenPost(context.Background(), "p1")
	assert.Equal(t, ok, true)
	assert.Equal(t, f.rt.subscribeCount("p1"), 1)

	f.rt.emit(ws.StateChange{From: ws.StateConnecting, To: ws.StateConnected})
	assert.Equal(t, f.rt.subscribeCount("p1"), 2)

	f.svc.ClosePost()
	assert.Equal(t, f.rt.unsubs, []string{"p1"})

	f.rt.emit(ws.StateChange{From: ws.StateConnecting, To: ws.StateConnected})
	assert.Equal(t, f.rt.subscribeCount("p1"), 2)

	_, open := f.svc.Selected()
	assert.Equal(t, open, false)
}

func TestLiveCommentsDedupeByID(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	p1 := item("p1", 0, false)
	p1.CommentCount = 2
	f.repo.items["p1"] = p1
	f.repo.comments["p1"] = []models.Comment{{ID: "c1", ItemID: "p1", Username: "ali", Text: "ilk"}}
	f.svc.OpenPost(context.Background(), "p1")

	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", ID: "c1", Username: "ali", Text: "ilk"})
	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", ID: "c5", Username: "veli", Text: "lol"})
	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", ID: "c5", Username: "veli", Text: "lol"})

	comments := f.svc.Comments()
	assert.Equal(t, len(comments), 2)
	assert.Equal(t, comments[0].ID, "c5")

	got, _ := f.svc.Item("p1")
	assert.Equal(t, got.CommentCount, 3)

	// Id'siz event'ler ayırt edilemez, her biri ayrı yorumdur.
	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", Username: "veli", Text: "tekrar"})
	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", Username: "veli", Text: "tekrar"})
	got, _ = f.svc.Item("p1")
	assert.Equal(t, got.CommentCount, 5)
	assert.Equal(t, f.svc.Comments()[0].ID != "", true)
}

func TestAddCommentThenEchoIsDeduped(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.repo.items["p1"] = item("p1", 0, false)
	f.svc.OpenPost(context.Background(), "p1")

	c, ok := f.svc.AddComment(context.Background(), "p1", "  harika ")
	assert.Equal(t, ok, true)
	assert.Equal(t, c.Text, "harika")
	assert.Equal(t, c.Username, "ayse")

	f.d.Dispatch(ws.CommentMessage{MemeID: "p1", ID: "c-new", Username: "ayse", Text: "harika"})
	got, _ := f.svc.Item("p1")
	assert.Equal(t, got.CommentCount, 1)
	assert.Equal(t, len(f.svc.Comments()), 1)

	_, ok = f.svc.AddComment(context.Background(), "p1", "   ")
	assert.Equal(t, ok, false)
	assert.Equal(t, errors.Is(f.svc.Error(), pkg.ErrBadRequest), true)
}

func TestPrependUploaded(t *testing.T) {
	f := newContentFixture(t, loggedIn("u1", "ayse"))
	f.seedHome(t, item("m1", 0, false))
	f.repo.search["kedi"] = repository.SearchResult{Items: []models.FeedItem{item("m1", 0, false)}}
	f.svc.Search(context.Background(), "kedi")

	f.svc.PrependUploaded(models.FeedItem{ID: "m9", UploaderID: "u1", Uploader: "ayse"})

	items := f.svc.Items(FeedHome)
	assert.Equal(t, items[0].ID, "m9")
	entry, _ := f.cache.Get(cache.FeedHome)
	assert.Equal(t, entry.Items[0].ID, "m9")

	_, ok := f.cache.Get(cache.SearchKey("kedi"))
	assert.Equal(t, ok, false)
	info, _ := f.svc.Search(context.Background(), "kedi")
	assert.Equal(t, info.FromCache, false)
	assert.Equal(t, f.repo.count("search"), 2)
}

func TestResetClearsEverything(t *testing.T) {
	id := loggedIn("u1", "ayse")
	f := newContentFixture(t, id)
	f.seedHome(t, item("m1", 0, false))
	f.svc.ToggleLike("m1")

	id.logout()
	f.svc.Reset()

	assert.Equal(t, len(f.svc.Items(FeedHome)), 0)
	assert.Equal(t, len(f.svc.Items(FeedLiked)), 0)
	assert.Equal(t, f.cache.Len(), 0)
	_, ok := f.svc.Item("m1")
	assert.Equal(t, ok, false)
}

func TestParseFeed(t *testing.T) {
	feed, err := ParseFeed("Liked")
	assert.Equal(t, err, nil)
	assert.Equal(t, feed, FeedLiked)

	_, err = ParseFeed("trending")
	assert.Equal(t, errors.Is(err, pkg.ErrBadRequest), true)
}

package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bitvia/bitvia/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Bitcoin Optech</title>
  <item>
    <title>Newsletter #300</title>
    <link>https://bitcoinops.org/en/newsletters/2026/08/28/</link>
    <description>This week's newsletter covers fee estimation changes.</description>
    <pubDate>Fri, 28 Aug 2026 12:00:00 +0000</pubDate>
  </item>
  <item>
    <title></title>
    <link>https://bitcoinops.org/en/untitled/</link>
  </item>
  <item>
    <title>No link, skipped</title>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>r/Bitcoin</title>
  <entry>
    <title>Hashrate hits new high</title>
    <link rel="self" href="https://www.reddit.com/r/Bitcoin/.rss"/>
    <link href="https://www.reddit.com/r/Bitcoin/comments/abc123/"/>
    <id>t3_abc123</id>
    <published>2026-08-29T08:30:00Z</published>
    <author><name>satoshi_fan</name></author>
    <summary>Seven-day average hashrate crossed another threshold.</summary>
  </entry>
</feed>`

func TestParseRSS(t *testing.T) {
	articles, err := parseFeed("https://bitcoinops.org/feed.xml", []byte(rssFixture))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2 (entry without link skipped)", len(articles))
	}

	a := articles[0]
	if a.Outlet != "Bitcoin Optech" {
		t.Errorf("outlet = %q", a.Outlet)
	}
	if a.Title != "Newsletter #300" {
		t.Errorf("title = %q", a.Title)
	}
	if a.PublishedAt == nil || a.PublishedAt.Day() != 28 {
		t.Errorf("published = %v", a.PublishedAt)
	}
	if articles[1].Title != "Untitled" {
		t.Errorf("empty title = %q, want Untitled", articles[1].Title)
	}
}

func TestParseAtom(t *testing.T) {
	articles, err := parseFeed("https://www.reddit.com/r/Bitcoin/.rss", []byte(atomFixture))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}

	a := articles[0]
	if a.URL != "https://www.reddit.com/r/Bitcoin/comments/abc123/" {
		t.Errorf("url = %q, want the non-self link", a.URL)
	}
	if a.Outlet != "r/Bitcoin" {
		t.Errorf("outlet = %q", a.Outlet)
	}
	if a.Author != "satoshi_fan" {
		t.Errorf("author = %q", a.Author)
	}
}

func TestParseFeedGarbage(t *testing.T) {
	if _, err := parseFeed("https://example.com/feed", []byte("<html>not a feed</html>")); err == nil {
		t.Error("expected error for non-feed input")
	}
}

func TestOutletFallsBackToHost(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title></title>
		<item><title>x</title><link>https://example.com/a</link></item></channel></rss>`
	articles, err := parseFeed("https://blog.example.com/rss", []byte(feed))
	if err != nil {
		t.Fatalf("parseFeed: %v", err)
	}
	if articles[0].Outlet != "blog.example.com" {
		t.Errorf("outlet = %q, want host fallback", articles[0].Outlet)
	}
}

func TestStoreUpsertDedup(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := Article{URL: "https://example.com/a", Title: "first", Outlet: "Example", Text: "body"}
	if err := store.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	a.Title = "updated"
	if err := store.Upsert(ctx, a); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1 after dedup by URL", n)
	}

	recent, err := store.LoadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "updated" {
		t.Errorf("recent = %+v, want the updated title", recent)
	}
}

func TestStoreLoadRecentSkipsOldPublished(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	old := time.Now().Add(-5 * 24 * time.Hour)
	fresh := time.Now().Add(-2 * time.Hour)
	if err := store.Upsert(ctx, Article{URL: "https://example.com/old", Title: "old", PublishedAt: &old, Text: "x"}); err != nil {
		t.Fatalf("Upsert old: %v", err)
	}
	if err := store.Upsert(ctx, Article{URL: "https://example.com/new", Title: "new", PublishedAt: &fresh, Text: "x"}); err != nil {
		t.Fatalf("Upsert new: %v", err)
	}

	recent, err := store.LoadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "new" {
		t.Errorf("recent = %+v, want only the fresh article", recent)
	}
}

func TestStoreLoadRecentWindowBoundary(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// Same calendar day as the three-day cutoff, but an hour outside it.
	// A lexically greater stored format would have slipped it through.
	outside := time.Now().UTC().Add(-3*24*time.Hour - time.Hour)
	inside := time.Now().UTC().Add(-3*24*time.Hour + time.Hour)
	if err := store.Upsert(ctx, Article{URL: "https://example.com/outside", Title: "outside", PublishedAt: &outside, Text: "x"}); err != nil {
		t.Fatalf("Upsert outside: %v", err)
	}
	if err := store.Upsert(ctx, Article{URL: "https://example.com/inside", Title: "inside", PublishedAt: &inside, Text: "x"}); err != nil {
		t.Fatalf("Upsert inside: %v", err)
	}

	recent, err := store.LoadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].Title != "inside" {
		t.Errorf("recent = %+v, want only the article inside the window", recent)
	}
}

func TestStoreLoadRecentOrdersAcrossMissingPublished(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	// published_at and fetched_at must share one format so the COALESCE
	// ordering compares them as the timestamps they are.
	earlier := time.Now().UTC().Add(-time.Hour)
	if err := store.Upsert(ctx, Article{URL: "https://example.com/dated", Title: "dated", PublishedAt: &earlier, Text: "x"}); err != nil {
		t.Fatalf("Upsert dated: %v", err)
	}
	if err := store.Upsert(ctx, Article{URL: "https://example.com/undated", Title: "undated", Text: "x"}); err != nil {
		t.Fatalf("Upsert undated: %v", err)
	}

	recent, err := store.LoadRecent(ctx, 10)
	if err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d articles, want 2", len(recent))
	}
	if recent[0].Title != "undated" || recent[1].Title != "dated" {
		t.Errorf("order = [%s, %s], want the just-fetched undated article first", recent[0].Title, recent[1].Title)
	}
}

func TestFetchAllSkipsStale(t *testing.T) {
	fresh := time.Now().UTC().Add(-time.Hour).Format(time.RFC1123Z)
	stale := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC1123Z)
	feed := fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
		<item><title>fresh</title><link>https://example.com/fresh</link><pubDate>%s</pubDate></item>
		<item><title>stale</title><link>https://example.com/stale</link><pubDate>%s</pubDate></item>
	</channel></rss>`, fresh, stale)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	}))
	t.Cleanup(srv.Close)

	store := setupStore(t)
	fetcher := NewFetcher(store, []string{srv.URL}, nil)

	stats, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if stats.Upserted != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 upserted / 1 skipped", stats)
	}
}

func TestFetchAllSurvivesBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	store := setupStore(t)
	fetcher := NewFetcher(store, []string{srv.URL}, nil)

	stats, err := fetcher.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("Failed = %d, want 1", stats.Failed)
	}
}

func TestNewsEndpoint(t *testing.T) {
	store := setupStore(t)
	now := time.Now()
	if err := store.Upsert(context.Background(), Article{URL: "https://example.com/a", Title: "a", PublishedAt: &now, Text: "x"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var articles []Article
	if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "a" {
		t.Errorf("articles = %+v", articles)
	}
}

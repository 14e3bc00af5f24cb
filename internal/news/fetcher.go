package news

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bitvia/bitvia/internal/progress"
)

const (
	fetchTimeout = 10 * time.Second
	userAgent    = "bitvia-news/0.1"
	maxFeedBody  = 4 << 20

	// Entries older than this are dropped even when a feed keeps
	// republishing them.
	maxArticleAge = 48 * time.Hour
)

// Fetcher downloads the configured feeds and stores fresh entries.
type Fetcher struct {
	client   *http.Client
	feeds    []string
	store    *Store
	reporter progress.Reporter
}

func NewFetcher(store *Store, feeds []string, reporter progress.Reporter) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		feeds:    feeds,
		store:    store,
		reporter: reporter,
	}
}

// Stats summarizes one fetch run.
type Stats struct {
	Upserted int
	Skipped  int
	Failed   int
	Pruned   int64
}

// FetchAll walks every feed, upserts fresh entries and prunes rows
// older than three days. Individual feed failures are logged and do
// not abort the run.
func (f *Fetcher) FetchAll(ctx context.Context) (Stats, error) {
	var stats Stats

	if f.reporter != nil {
		f.reporter.Start(len(f.feeds))
		defer f.reporter.Finish()
	}

	now := time.Now()
	for i, feedURL := range f.feeds {
		if f.reporter != nil {
			f.reporter.Update(i+1, feedURL)
		}

		articles, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			log.Printf("news: feed %s: %v", feedURL, err)
			stats.Failed++
			continue
		}

		for _, a := range articles {
			if a.PublishedAt != nil && now.Sub(*a.PublishedAt) > maxArticleAge {
				stats.Skipped++
				continue
			}
			if err := f.store.Upsert(ctx, a); err != nil {
				log.Printf("news: storing %s: %v", a.URL, err)
				continue
			}
			stats.Upserted++
		}
	}

	pruned, err := f.store.Prune(ctx, 3)
	if err != nil {
		return stats, err
	}
	stats.Pruned = pruned
	return stats, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return parseFeed(feedURL, body)
}

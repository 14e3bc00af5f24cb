package news

import "time"

// Article is one stored feed entry. Deduplication is by URL.
type Article struct {
	ID          int64      `json:"id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Outlet      string     `json:"outlet"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Text        string     `json:"-"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

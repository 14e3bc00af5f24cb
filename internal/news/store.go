package news

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bitvia/bitvia/internal/db"
)

// sqliteTime is the text format sqlite's datetime() produces. Stored
// timestamps use it so SQL comparisons against datetime('now', ...)
// and ordering across columns stay consistent.
const sqliteTime = "2006-01-02 15:04:05"

// Store persists fetched articles.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert inserts the article or refreshes the existing row with the
// same URL.
func (s *Store) Upsert(ctx context.Context, a Article) error {
	if a.URL == "" {
		return fmt.Errorf("article has no URL")
	}

	sum := sha256.Sum256([]byte(a.Text))

	var published any
	if a.PublishedAt != nil {
		published = a.PublishedAt.UTC().Format(sqliteTime)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news_sources (id, url, title, outlet, author, published_at, text, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			outlet = excluded.outlet,
			author = excluded.author,
			published_at = excluded.published_at,
			text = excluded.text,
			sha256 = excluded.sha256`,
		uuid.NewString(), a.URL, a.Title, a.Outlet, nullable(a.Author), published, a.Text, sum[:])
	if err != nil {
		return fmt.Errorf("upserting article %s: %w", a.URL, err)
	}
	return nil
}

// Prune deletes rows fetched more than the given number of days ago
// and returns how many were removed.
func (s *Store) Prune(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM news_sources WHERE fetched_at < datetime('now', ?)`,
		fmt.Sprintf("-%d days", days))
	if err != nil {
		return 0, fmt.Errorf("pruning news: %w", err)
	}
	return res.RowsAffected()
}

// LoadRecent returns up to limit articles fetched within the last day
// whose publication date, when known, is at most three days old.
// Newest first.
func (s *Store) LoadRecent(ctx context.Context, limit int) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, outlet, COALESCE(author, ''), published_at, text, fetched_at
		FROM news_sources
		WHERE fetched_at >= datetime('now', '-1 day')
		  AND (published_at IS NULL OR published_at >= datetime('now', '-3 day'))
		ORDER BY COALESCE(published_at, fetched_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading recent news: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var (
			a         Article
			published sql.NullString
			fetched   string
		)
		if err := rows.Scan(&a.URL, &a.Title, &a.Outlet, &a.Author, &published, &a.Text, &fetched); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		if published.Valid {
			if t, err := time.Parse(sqliteTime, published.String); err == nil {
				a.PublishedAt = &t
			}
		}
		if t, err := time.Parse(sqliteTime, fetched); err == nil {
			a.FetchedAt = t.UTC()
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of stored articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_sources`).Scan(&n)
	return n, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

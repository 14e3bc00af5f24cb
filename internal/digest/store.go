package digest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bitvia/bitvia/internal/db"
)

// Digest is one stored daily digest.
type Digest struct {
	ID        string `json:"id"`
	Date      string `json:"digest_date"`
	Title     string `json:"title"`
	BodyMD    string `json:"body_md"`
	CreatedAt string `json:"created_at"`
}

// Store persists digests, one per date.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert inserts or replaces the digest for the given date.
func (s *Store) Upsert(ctx context.Context, date, title, bodyMD string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO news_digests (id, digest_date, title, body_md)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest_date) DO UPDATE SET
			title = excluded.title,
			body_md = excluded.body_md`,
		uuid.NewString(), date, title, bodyMD)
	if err != nil {
		return fmt.Errorf("upserting digest for %s: %w", date, err)
	}
	return nil
}

// Latest returns the newest digest, or nil when none exist.
func (s *Store) Latest(ctx context.Context) (*Digest, error) {
	return s.get(ctx, `
		SELECT id, digest_date, title, body_md, created_at
		FROM news_digests
		ORDER BY digest_date DESC
		LIMIT 1`)
}

// ByDate returns the digest for a specific date, or nil.
func (s *Store) ByDate(ctx context.Context, date string) (*Digest, error) {
	return s.get(ctx, `
		SELECT id, digest_date, title, body_md, created_at
		FROM news_digests
		WHERE digest_date = ?`, date)
}

func (s *Store) get(ctx context.Context, query string, args ...any) (*Digest, error) {
	var d Digest
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&d.ID, &d.Date, &d.Title, &d.BodyMD, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading digest: %w", err)
	}
	return &d, nil
}

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/bitvia/bitvia/internal/db"
)

// Row is one day's network snapshot. Pointer fields are nullable so a
// partially-known day can still be recorded.
type Row struct {
	Date                string   `json:"metric_date"`
	MempoolTx           *int64   `json:"mempool_tx"`
	MempoolBytes        *int64   `json:"mempool_bytes"`
	AvgBlockIntervalSec *float64 `json:"avg_block_interval_sec"`
	MedianFeeSatPerVB   *float64 `json:"median_fee_sat_per_vb"`
	CreatedAt           string   `json:"created_at,omitempty"`
}

// Store persists daily metrics, one row per UTC date.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Upsert inserts or replaces the row for its date.
func (s *Store) Upsert(ctx context.Context, row Row) error {
	if row.Date == "" {
		return fmt.Errorf("metric row has no date")
	}
	if _, err := time.Parse("2006-01-02", row.Date); err != nil {
		return fmt.Errorf("metric date %q is not YYYY-MM-DD", row.Date)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (metric_date, mempool_tx, mempool_bytes, avg_block_interval_sec, median_fee_sat_per_vb)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(metric_date) DO UPDATE SET
			mempool_tx = excluded.mempool_tx,
			mempool_bytes = excluded.mempool_bytes,
			avg_block_interval_sec = excluded.avg_block_interval_sec,
			median_fee_sat_per_vb = excluded.median_fee_sat_per_vb`,
		row.Date, row.MempoolTx, row.MempoolBytes, row.AvgBlockIntervalSec, row.MedianFeeSatPerVB)
	if err != nil {
		return fmt.Errorf("upserting metrics for %s: %w", row.Date, err)
	}
	return nil
}

// Latest returns the most recent row, or nil when the table is empty.
func (s *Store) Latest(ctx context.Context) (*Row, error) {
	rows, err := s.Recent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Recent returns up to limit rows, newest date first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_date, mempool_tx, mempool_bytes, avg_block_interval_sec, median_fee_sat_per_vb, created_at
		FROM metrics
		ORDER BY metric_date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading metrics: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Date, &r.MempoolTx, &r.MempoolBytes, &r.AvgBlockIntervalSec, &r.MedianFeeSatPerVB, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

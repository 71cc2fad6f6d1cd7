// Package sqlite persists shelf events and serves the analytics
// aggregations over them. It is an adapter: the engine publishes events
// through the pipeline's consumer interface and imposes no storage schema.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aisleview/shelfwatch/internal/shelf"
)

// EventStore writes and queries shelf events in a SQLite database.
type EventStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the event database at path and applies
// pending schema migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*EventStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &EventStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}

// InsertEvent writes one event. Events are immutable; there is no update.
func (s *EventStore) InsertEvent(e shelf.Event) error {
	query := `
		INSERT INTO shelf_events (
			event_id, event_type, track_id,
			shelf_id, from_shelf, to_shelf,
			product_category, confidence,
			bbox_x1, bbox_y1, bbox_x2, bbox_y2,
			center_x, center_y, ts_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		e.ID,
		string(e.Kind),
		e.TrackID,
		e.ShelfID,
		e.FromShelf,
		e.ToShelf,
		e.ProductCategory,
		e.Confidence,
		e.Box.X1, e.Box.Y1, e.Box.X2, e.Box.Y2,
		e.Center.X, e.Center.Y,
		e.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *EventStore) RecentEvents(limit int) ([]shelf.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_id, event_type, track_id,
		       shelf_id, from_shelf, to_shelf,
		       product_category, confidence,
		       bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		       center_x, center_y, ts_unix_nanos
		FROM shelf_events
		ORDER BY ts_unix_nanos DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []shelf.Event
	for rows.Next() {
		var e shelf.Event
		var kind string
		var nanos int64
		err := rows.Scan(
			&e.ID, &kind, &e.TrackID,
			&e.ShelfID, &e.FromShelf, &e.ToShelf,
			&e.ProductCategory, &e.Confidence,
			&e.Box.X1, &e.Box.Y1, &e.Box.X2, &e.Box.Y2,
			&e.Center.X, &e.Center.Y, &nanos,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.Kind = shelf.Kind(kind)
		e.Time = time.Unix(0, nanos).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// CategoryCount is one slice of the event distribution.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"value"`
}

// Summary holds the total event count and the per-category distribution,
// largest categories first.
type Summary struct {
	TotalEvents  int64           `json:"total_events"`
	Distribution []CategoryCount `json:"distribution"`
}

// Summary aggregates all stored events.
func (s *EventStore) Summary() (*Summary, error) {
	out := &Summary{}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM shelf_events`).Scan(&out.TotalEvents); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT COALESCE(NULLIF(product_category, ''), 'unknown') AS category, COUNT(*) AS n
		FROM shelf_events
		GROUP BY category
		ORDER BY n DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query event distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		out.Distribution = append(out.Distribution, c)
	}
	return out, rows.Err()
}

// TimelineBucket is one day's event count.
type TimelineBucket struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int64  `json:"count"`
}

// Timeline returns daily event counts over the trailing window.
func (s *EventStore) Timeline(days int) ([]TimelineBucket, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days).UnixNano()

	rows, err := s.db.Query(`
		SELECT date(ts_unix_nanos/1000000000, 'unixepoch') AS day, COUNT(*)
		FROM shelf_events
		WHERE ts_unix_nanos >= ?
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query event timeline: %w", err)
	}
	defer rows.Close()

	var buckets []TimelineBucket
	for rows.Next() {
		var b TimelineBucket
		if err := rows.Scan(&b.Date, &b.Count); err != nil {
			return nil, fmt.Errorf("scan timeline row: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

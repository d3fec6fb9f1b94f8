// Package sink is a local development collector. It accepts the batch
// wire format produced by the SDK and stores events in SQLite.
package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite

	analytics "github.com/devshare/analytics-go"
)

// ErrInvalidEvent is returned for events missing required fields.
var ErrInvalidEvent = errors.New("sink: invalid event")

// StoredEvent is an event as persisted by the store.
type StoredEvent struct {
	ID         int64
	ReceivedAt time.Time
	analytics.WireEvent
}

// Store persists received events.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the SQLite database at path.
// Use ":memory:" for a throwaway store.
func OpenStore(path string) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sink: failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events(
	  id                INTEGER PRIMARY KEY,
	  received_at       TEXT    NOT NULL,
	  app_id            TEXT    NOT NULL,
	  event_name        TEXT    NOT NULL,
	  user_id           TEXT    NOT NULL DEFAULT '',
	  session_id        TEXT    NOT NULL DEFAULT '',
	  anonymous_id      TEXT    NOT NULL DEFAULT '',
	  page_url          TEXT    NOT NULL DEFAULT '',
	  page_title        TEXT    NOT NULL DEFAULT '',
	  referrer          TEXT    NOT NULL DEFAULT '',
	  utm_source        TEXT    NOT NULL DEFAULT '',
	  utm_medium        TEXT    NOT NULL DEFAULT '',
	  utm_campaign      TEXT    NOT NULL DEFAULT '',
	  utm_term          TEXT    NOT NULL DEFAULT '',
	  utm_content       TEXT    NOT NULL DEFAULT '',
	  user_agent        TEXT    NOT NULL DEFAULT '',
	  ip                TEXT    NOT NULL DEFAULT '',
	  language          TEXT    NOT NULL DEFAULT '',
	  screen_resolution TEXT    NOT NULL DEFAULT '',
	  properties_json   TEXT    NOT NULL CHECK (json_valid(properties_json)),
	  ts                TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_app_name ON events(app_id, event_name);
	CREATE INDEX IF NOT EXISTS idx_events_session  ON events(session_id);
	`)
	if err != nil {
		return fmt.Errorf("sink: failed to create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateEvent checks the fields a collector cannot do without.
func ValidateEvent(e analytics.WireEvent) error {
	if e.AppID == "" {
		return fmt.Errorf("%w: app_id is required", ErrInvalidEvent)
	}
	if e.EventName == "" {
		return fmt.Errorf("%w: event_name is required", ErrInvalidEvent)
	}
	if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
		return fmt.Errorf("%w: timestamp %q is not RFC 3339", ErrInvalidEvent, e.Timestamp)
	}
	return nil
}

// Insert stores a batch in one transaction. Either every event is stored
// or none is. The ip column is set to remoteIP.
func (s *Store) Insert(ctx context.Context, events []analytics.WireEvent, remoteIP string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink: failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events(
		received_at, app_id, event_name, user_id, session_id, anonymous_id,
		page_url, page_title, referrer,
		utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		user_agent, ip, language, screen_resolution, properties_json, ts
	) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,json(?),?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sink: failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	receivedAt := analytics.FormatTimestamp(s.now())
	for _, e := range events {
		if err := ValidateEvent(e); err != nil {
			_ = tx.Rollback()
			return err
		}

		props := e.Properties
		if props == nil {
			props = map[string]any{}
		}
		propsJSON, err := json.Marshal(props)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sink: failed to marshal properties: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			receivedAt, e.AppID, e.EventName, e.UserID, e.SessionID, e.AnonymousID,
			e.PageURL, e.PageTitle, e.Referrer,
			e.UTMSource, e.UTMMedium, e.UTMCampaign, e.UTMTerm, e.UTMContent,
			e.UserAgent, remoteIP, e.Language, e.ScreenResolution, string(propsJSON), e.Timestamp,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sink: failed to insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sink: failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sink: failed to count events: %w", err)
	}
	return n, nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, received_at, app_id, event_name, user_id, session_id, anonymous_id,
		page_url, page_title, referrer,
		utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		user_agent, ip, language, screen_resolution, properties_json, ts
	FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sink: failed to query events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			e          StoredEvent
			receivedAt string
			propsJSON  string
		)
		if err := rows.Scan(
			&e.ID, &receivedAt, &e.AppID, &e.EventName, &e.UserID, &e.SessionID, &e.AnonymousID,
			&e.PageURL, &e.PageTitle, &e.Referrer,
			&e.UTMSource, &e.UTMMedium, &e.UTMCampaign, &e.UTMTerm, &e.UTMContent,
			&e.UserAgent, &e.IP, &e.Language, &e.ScreenResolution, &propsJSON, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("sink: failed to scan event: %w", err)
		}
		if e.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, fmt.Errorf("sink: bad received_at %q: %w", receivedAt, err)
		}
		if err := json.Unmarshal([]byte(propsJSON), &e.Properties); err != nil {
			return nil, fmt.Errorf("sink: bad properties_json: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

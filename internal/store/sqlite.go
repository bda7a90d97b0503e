package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"backcast/internal/params"
)

// Compile-time interface checks.
var (
	_ EventStore       = (*SQLiteStore)(nil)
	_ ParamChangeStore = (*SQLiteStore)(nil)
	_ ReviewStore      = (*SQLiteStore)(nil)
)

// SQLiteStore implements EventStore, ParamChangeStore, and ReviewStore
// backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL,
	message    TEXT NOT NULL,
	details    TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type, created_at);

CREATE TABLE IF NOT EXISTS param_changes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	parameter  TEXT NOT NULL,
	old_value  TEXT,
	new_value  TEXT NOT NULL,
	reason     TEXT,
	confidence TEXT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS strategy_params (
	parameter  TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reviews (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	summary    TEXT NOT NULL,
	report     TEXT NOT NULL,
	regime     TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

// LogEvent inserts a structured event into the journal.
func (s *SQLiteStore) LogEvent(ctx context.Context, eventType, message string, details map[string]any) error {
	var detailsJSON []byte
	if details != nil {
		var err error
		detailsJSON, err = json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (type, message, details, created_at) VALUES (?, ?, ?, ?)`,
		eventType, message, string(detailsJSON), time.Now().UTC())
	return err
}

// ListEvents returns the most recent events of the given type, newest first.
// An empty eventType matches all types.
func (s *SQLiteStore) ListEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	query := `SELECT id, type, message, details, created_at FROM events`
	args := []any{}
	if eventType != "" {
		query += ` WHERE type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshalling details for event %d: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------------------------
// ParamChangeStore implementation
// ---------------------------------------------------------------------------

// SaveParamChange records the change in the audit table and upserts the
// current value, in one transaction.
func (s *SQLiteStore) SaveParamChange(ctx context.Context, change params.ChangeEvent) error {
	oldJSON, err := json.Marshal(change.OldValue)
	if err != nil {
		return fmt.Errorf("marshalling old value: %w", err)
	}
	newJSON, err := json.Marshal(change.NewValue)
	if err != nil {
		return fmt.Errorf("marshalling new value: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO param_changes (parameter, old_value, new_value, reason, confidence, applied_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		change.Parameter, string(oldJSON), string(newJSON), change.Reason, change.Confidence, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO strategy_params (parameter, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(parameter) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		change.Parameter, string(newJSON), now); err != nil {
		return err
	}
	return tx.Commit()
}

// CurrentParams returns the latest persisted value per parameter.
func (s *SQLiteStore) CurrentParams(ctx context.Context) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT parameter, value FROM strategy_params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var name, valueJSON string
		if err := rows.Scan(&name, &valueJSON); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(valueJSON), &value); err != nil {
			return nil, fmt.Errorf("unmarshalling %s: %w", name, err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// ReviewStore implementation
// ---------------------------------------------------------------------------

// SaveReview persists a review and returns its row ID.
func (s *SQLiteStore) SaveReview(ctx context.Context, review Review) (int64, error) {
	regimeJSON, err := json.Marshal(review.Regime)
	if err != nil {
		return 0, fmt.Errorf("marshalling regime: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (summary, report, regime, created_at) VALUES (?, ?, ?, ?)`,
		review.Summary, review.Report, string(regimeJSON), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PreviousReviews returns the most recent reviews, newest first.
func (s *SQLiteStore) PreviousReviews(ctx context.Context, limit int) ([]Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, summary, report, regime, created_at FROM reviews ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var r Review
		var regimeJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.Summary, &r.Report, &regimeJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		if regimeJSON.Valid && regimeJSON.String != "" {
			if err := json.Unmarshal([]byte(regimeJSON.String), &r.Regime); err != nil {
				return nil, fmt.Errorf("unmarshalling regime for review %d: %w", r.ID, err)
			}
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

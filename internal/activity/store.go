// Package activity records the console's audit trail: every relationship
// change and deletion, indexed by the entities it touched. One event
// produces one entry per affected entity.
package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one audit record, keyed by a referenced entity.
type Entry struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	EntityID   string          `json:"entity_id"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// QueryOptions narrow an audit query.
type QueryOptions struct {
	Since *time.Time
	Limit int
}

// Store is the interface for reading and writing audit entries.
type Store interface {
	// WriteEntries writes one or more entries (one event → many entries).
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByEntity returns entries touching a specific entity, newest
	// first.
	QueryByEntity(ctx context.Context, entityID string, opts QueryOptions) ([]Entry, error)
}

// SQLiteStore implements Store on the console's local database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the audit_entries table. Safe to run at startup.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			event_id    TEXT NOT NULL,
			event_type  TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			entity_id   TEXT NOT NULL,
			summary     TEXT NOT NULL,
			payload     TEXT,
			PRIMARY KEY (entity_id, occurred_at, event_id)
		);

		CREATE INDEX IF NOT EXISTS idx_audit_entity_time
			ON audit_entries (entity_id, occurred_at DESC);
	`)
	return err
}

// WriteEntries inserts audit entries.
func (s *SQLiteStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO audit_entries (event_id, event_type, occurred_at, entity_id, summary, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			e.EventID, e.EventType, e.OccurredAt, e.EntityID, e.Summary, string(e.Payload))
		if err != nil {
			return fmt.Errorf("writing audit entry %s: %w", e.EventID, err)
		}
	}
	return nil
}

// QueryByEntity returns entries for one entity, newest first.
func (s *SQLiteStore) QueryByEntity(ctx context.Context, entityID string, opts QueryOptions) ([]Entry, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}

	query := `SELECT event_id, event_type, occurred_at, entity_id, summary, payload
		FROM audit_entries WHERE entity_id = ?`
	args := []any{entityID}
	if opts.Since != nil {
		query += " AND occurred_at >= ?"
		args = append(args, *opts.Since)
	}
	query += " ORDER BY occurred_at DESC LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.EventType, &e.OccurredAt, &e.EntityID, &e.Summary, &payload); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

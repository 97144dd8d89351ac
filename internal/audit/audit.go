// Package audit keeps a local event log of lifecycle operations
// (provision, remove, backup, sync) in a SQLite database under the
// data root. The log answers "what did clawctl do to this instance,
// and when" without trawling daemon logs.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// EventType classifies an audit event.
type EventType string

const (
	EventProvision EventType = "provision"
	EventRemove    EventType = "remove"
	EventStart     EventType = "start"
	EventStop      EventType = "stop"
	EventRestart   EventType = "restart"
	EventBackup    EventType = "backup"
	EventSync      EventType = "sync"
	EventRebuild   EventType = "rebuild"
)

// Event is one recorded operation. Detail is the operation's JSON
// payload (ports, change flags, error text), opaque to the store.
type Event struct {
	Sequence  uint64
	Timestamp time.Time
	Type      EventType
	Username  string
	Detail    json.RawMessage
}

// Store is a SQLite-backed audit log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the audit database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			seq      INTEGER PRIMARY KEY AUTOINCREMENT,
			ts       TEXT NOT NULL,
			type     TEXT NOT NULL,
			username TEXT NOT NULL,
			detail   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_username ON events(username);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Record appends an event. detail may be nil.
func (s *Store) Record(eventType EventType, username string, detail any) error {
	payload := []byte("{}")
	if detail != nil {
		var err error
		if payload, err = json.Marshal(detail); err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO events (ts, type, username, detail) VALUES (?, ?, ?, ?)
	`, time.Now().UTC().Format(time.RFC3339Nano), string(eventType), username, string(payload))
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Recent returns the latest n events, newest first. A username filter
// of "" matches all users.
func (s *Store) Recent(username string, n int) ([]Event, error) {
	if n <= 0 {
		n = 50
	}

	query := `
		SELECT seq, ts, type, username, detail FROM events
		ORDER BY seq DESC LIMIT ?
	`
	args := []any{n}
	if username != "" {
		query = `
			SELECT seq, ts, type, username, detail FROM events
			WHERE username = ? ORDER BY seq DESC LIMIT ?
		`
		args = []any{username, n}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts, detail string
		if err := rows.Scan(&e.Sequence, &ts, (*string)(&e.Type), &e.Username, &detail); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		e.Detail = json.RawMessage(detail)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

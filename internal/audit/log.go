package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event types recorded by the launcher.
const (
	EventLaunchStarted      = "launch_started"
	EventEnvironmentMissing = "environment_missing"
	EventLaunchFailed       = "launch_failed"
	EventLaunchFinished     = "launch_finished"
)

// Logger writes launch events to a SQLite DB. A nil Logger drops events.
type Logger struct {
	DBPath string
}

// Event is one row of the events table.
type Event struct {
	ID          int64
	Time        time.Time
	Actor       string
	Type        string
	PayloadJSON string
}

// NewLogger returns a Logger bound to the provided DB path.
func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogEvent appends an event with a JSON-encoded payload.
func (l *Logger) LogEvent(actor string, eventType string, payload any) error {
	if l == nil || l.DBPath == "" {
		return nil
	}
	db, err := openDB(l.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO events (ts, actor, type, payload_json) VALUES (?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano),
		actor,
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *Logger) Recent(limit int) ([]Event, error) {
	if l == nil || l.DBPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(l.DBPath); os.IsNotExist(err) {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	db, err := openDB(l.DBPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query(`
		SELECT id, ts, actor, type, payload_json
		FROM events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts string
		if err := rows.Scan(&ev.ID, &ts, &ev.Actor, &ev.Type, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Time, _ = time.Parse(time.RFC3339Nano, ts)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit db dir: %w", err)
	}
	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			actor TEXT NOT NULL,
			type TEXT NOT NULL,
			payload_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

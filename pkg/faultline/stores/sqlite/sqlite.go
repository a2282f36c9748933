// Package sqlite provides a persistent store that groups events by
// checksum in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/faultline-io/faultline-go/pkg/faultline"
)

// Config configures the SQLite store.
type Config struct {
	// Path is the database file location.
	Path string

	// RetentionDays is how long idle groups are kept (0 = default 30).
	RetentionDays int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Path:          "faultline.db",
		RetentionDays: 30,
	}
}

// Store persists grouped events to SQLite.
type Store struct {
	db            *sql.DB
	path          string
	retentionDays int
}

// New opens or creates the database at cfg.Path and migrates the schema.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:            db,
		path:          cfg.Path,
		retentionDays: cfg.RetentionDays,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate creates or updates the database schema.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS groups (
			checksum     TEXT PRIMARY KEY,
			class_name   TEXT,
			logger       TEXT,
			level        INTEGER NOT NULL,
			message      TEXT NOT NULL,
			view         TEXT,
			server_name  TEXT,
			event_json   TEXT NOT NULL,
			first_seen   TIMESTAMP NOT NULL,
			last_seen    TIMESTAMP NOT NULL,
			occurrences  INTEGER DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_groups_logger ON groups(logger);
		CREATE INDEX IF NOT EXISTS idx_groups_level ON groups(level);
		CREATE INDEX IF NOT EXISTS idx_groups_last_seen ON groups(last_seen);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save ingests an event: a new checksum inserts a group, a repeat updates
// the group's last-seen state and occurrence count.
func (s *Store) Save(ctx context.Context, event *faultline.Event) (*faultline.StoredEvent, error) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO groups (checksum, class_name, logger, level, message, view, server_name, event_json, first_seen, last_seen, occurrences)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(checksum) DO UPDATE SET
			message     = excluded.message,
			event_json  = excluded.event_json,
			last_seen   = excluded.last_seen,
			occurrences = occurrences + 1
	`,
		event.Checksum,
		event.ClassName,
		event.Logger,
		int(event.Level),
		event.Message,
		event.View,
		event.ServerName,
		string(eventJSON),
		event.Timestamp,
		event.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save event: %w", err)
	}

	var handle faultline.StoredEvent
	handle.GroupID = event.Checksum
	handle.EventID = event.EventID
	err = s.db.QueryRowContext(ctx,
		"SELECT occurrences, first_seen, last_seen FROM groups WHERE checksum = ?",
		event.Checksum,
	).Scan(&handle.Occurrences, &handle.FirstSeen, &handle.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to read group: %w", err)
	}

	return &handle, nil
}

// StoredGroup is a grouped error retrieved from the store.
type StoredGroup struct {
	Checksum    string           `json:"checksum"`
	ClassName   string           `json:"class_name,omitempty"`
	Logger      string           `json:"logger,omitempty"`
	Level       faultline.Level  `json:"level"`
	Message     string           `json:"message"`
	View        string           `json:"view,omitempty"`
	ServerName  string           `json:"server_name,omitempty"`
	LastEvent   *faultline.Event `json:"last_event,omitempty"`
	FirstSeen   time.Time        `json:"first_seen"`
	LastSeen    time.Time        `json:"last_seen"`
	Occurrences int              `json:"occurrences"`
}

// GroupQuery defines parameters for querying groups.
type GroupQuery struct {
	Checksum string          // filter by exact checksum
	Logger   string          // filter by logger name
	MinLevel faultline.Level // only groups at or above this level
	Since    time.Time       // only groups last seen after this time
	Limit    int             // max results (default 20, max 1000)
	Offset   int             // pagination offset
}

// Query retrieves groups matching q, most recently seen first.
func (s *Store) Query(ctx context.Context, q GroupQuery) ([]StoredGroup, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}

	query := "SELECT checksum, class_name, logger, level, message, view, server_name, event_json, first_seen, last_seen, occurrences FROM groups WHERE 1=1"
	args := []any{}

	if q.Checksum != "" {
		query += " AND checksum = ?"
		args = append(args, q.Checksum)
	}
	if q.Logger != "" {
		query += " AND logger = ?"
		args = append(args, q.Logger)
	}
	if q.MinLevel > 0 {
		query += " AND level >= ?"
		args = append(args, int(q.MinLevel))
	}
	if !q.Since.IsZero() {
		query += " AND last_seen >= ?"
		args = append(args, q.Since)
	}

	query += " ORDER BY last_seen DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []StoredGroup
	for rows.Next() {
		var g StoredGroup
		var classname, logger, view, serverName sql.NullString
		var level int
		var eventJSON string

		err := rows.Scan(
			&g.Checksum,
			&classname,
			&logger,
			&level,
			&g.Message,
			&view,
			&serverName,
			&eventJSON,
			&g.FirstSeen,
			&g.LastSeen,
			&g.Occurrences,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		g.ClassName = classname.String
		g.Logger = logger.String
		g.View = view.String
		g.ServerName = serverName.String
		g.Level = faultline.Level(level)

		var last faultline.Event
		if json.Unmarshal([]byte(eventJSON), &last) == nil {
			g.LastEvent = &last
		}

		results = append(results, g)
	}

	return results, rows.Err()
}

// Cleanup removes groups not seen within the retention window and returns
// how many were deleted.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM groups WHERE last_seen < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup failed: %w", err)
	}
	return result.RowsAffected()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

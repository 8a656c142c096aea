package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	task_id    TEXT    NOT NULL,
	step_index INTEGER NOT NULL,
	pipeline   TEXT    NOT NULL,
	step       TEXT    NOT NULL,
	version    INTEGER NOT NULL,
	timestamp  TEXT    NOT NULL,
	state      BLOB    NOT NULL,
	PRIMARY KEY (task_id, step_index)
)`

// SQLiteStore keeps snapshots in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a snapshot database at path.
// Use ":memory:" for a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (task_id, step_index, pipeline, step, version, timestamp, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, step_index) DO UPDATE SET
			pipeline = excluded.pipeline,
			step = excluded.step,
			version = excluded.version,
			timestamp = excluded.timestamp,
			state = excluded.state
	`, snap.TaskID, snap.Index, snap.Pipeline, snap.Step, snap.Version,
		snap.Timestamp.UTC().Format(time.RFC3339Nano), []byte(snap.State))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, taskID string, index int) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, step_index, pipeline, step, version, timestamp, state
		FROM snapshots
		WHERE task_id = ? AND step_index = ?
	`, taskID, index)
	return scanSnapshot(row)
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, taskID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, step_index, pipeline, step, version, timestamp, state
		FROM snapshots
		WHERE task_id = ?
		ORDER BY step_index DESC
		LIMIT 1
	`, taskID)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var (
		snap      Snapshot
		timestamp string
		state     []byte
	)
	err := row.Scan(&snap.TaskID, &snap.Index, &snap.Pipeline, &snap.Step,
		&snap.Version, &timestamp, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	snap.State = state
	return &snap, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, taskID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_index, pipeline, step, timestamp, LENGTH(state)
		FROM snapshots
		WHERE task_id = ?
		ORDER BY step_index
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{TaskID: taskID}
		var timestamp string
		if err := rows.Scan(&info.Index, &info.Pipeline, &info.Step, &timestamp, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// DeleteTask implements Store.
func (s *SQLiteStore) DeleteTask(ctx context.Context, taskID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("delete task snapshots: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

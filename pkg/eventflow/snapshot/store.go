package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
)

// Store keeps the snapshots of pipeline runs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores s, replacing any snapshot for the same task and index.
	Save(ctx context.Context, s *Snapshot) error

	// Load returns the snapshot taken after step index of a task.
	// Returns ErrNotFound if there is none.
	Load(ctx context.Context, taskID string, index int) (*Snapshot, error)

	// Latest returns the most recent snapshot of a task.
	// Returns ErrNotFound if the task has none.
	Latest(ctx context.Context, taskID string) (*Snapshot, error)

	// List returns metadata for every snapshot of a task, ordered by index.
	// Returns an empty slice, not an error, for an unknown task.
	List(ctx context.Context, taskID string) ([]Info, error)

	// DeleteTask removes every snapshot of a task.
	DeleteTask(ctx context.Context, taskID string) error

	// Close releases resources. Later calls return ErrStoreClosed.
	Close() error
}

// Info describes a snapshot without its state.
type Info struct {
	TaskID    string
	Pipeline  string
	Step      string
	Index     int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")

	// ErrEncode indicates the pipeline state could not be encoded.
	ErrEncode = errors.New("encode snapshot state")
)

// Open builds a store from a config section:
//
//	driver: sqlite          # or memory (default)
//	path: ./snapshots.db    # sqlite only; default ":memory:"
func Open(cfg config.Config) (Store, error) {
	switch driver := cfg.String("driver", "memory"); driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.String("path", ":memory:"))
	default:
		return nil, fmt.Errorf("unknown snapshot driver %q", driver)
	}
}

// Package state persists the last confirmed change token per disk between
// sync cycles.
package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// Backend names.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Entry is one persisted disk record.
type Entry struct {
	DiskID string
	Token  types.ChangeToken
}

// Store is a tracker.StateStore that can also enumerate and reset records.
type Store interface {
	tracker.StateStore
	// Delete resets diskID to Uninitialized. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, diskID string) error
	// List returns all records ordered by disk identifier.
	List(ctx context.Context) ([]Entry, error)
	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*LevelStore)(nil)
)

// Open opens the store for backend at path.
func Open(backend, path string) (Store, error) {
	if path == "" {
		return nil, types.Errorf(types.ErrKindConfig, "state path is required")
	}
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendLevelDB:
		return OpenLevelStore(path)
	default:
		return nil, types.Errorf(types.ErrKindConfig, "unknown state backend %q (want %s or %s)",
			backend, BackendFile, BackendLevelDB)
	}
}

func checkDiskID(diskID string) error {
	if diskID == "" {
		return fmt.Errorf("empty disk identifier")
	}
	return nil
}

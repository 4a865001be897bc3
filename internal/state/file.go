package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/jonboulle/clockwork"
	"github.com/natefinch/atomic"

	"github.com/joshuapare/cbtkit/pkg/types"
)

const lockRetry = 50 * time.Millisecond

type fileRecord struct {
	ChangeID  types.ChangeToken `json:"change_id"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type fileDocument struct {
	Disks map[string]fileRecord `json:"disks"`
}

// FileStore keeps all records in one JSON file. Writes replace the file
// atomically; concurrent writers are serialised through <path>.lock.
type FileStore struct {
	path  string
	lock  *flock.Flock
	clock clockwork.Clock
}

// NewFileStore returns a FileStore at path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:  path,
		lock:  flock.New(path + ".lock"),
		clock: clockwork.NewRealClock(),
	}
}

// Load implements tracker.StateStore.
func (s *FileStore) Load(_ context.Context, diskID string) (types.ChangeToken, bool, error) {
	doc, err := s.read()
	if err != nil {
		return "", false, err
	}
	rec, ok := doc.Disks[diskID]
	if !ok || rec.ChangeID.IsZero() {
		return "", false, nil
	}
	return rec.ChangeID, true, nil
}

// Save implements tracker.StateStore.
func (s *FileStore) Save(ctx context.Context, diskID string, token types.ChangeToken) error {
	if err := checkDiskID(diskID); err != nil {
		return types.Wrap(types.ErrKindFormat, err, "save state")
	}
	if token.IsZero() {
		return types.Errorf(types.ErrKindFormat, "save state for %s: empty change token", diskID)
	}
	return s.update(ctx, func(doc *fileDocument) {
		doc.Disks[diskID] = fileRecord{ChangeID: token, UpdatedAt: s.clock.Now().UTC()}
	})
}

// Delete implements Store.
func (s *FileStore) Delete(ctx context.Context, diskID string) error {
	return s.update(ctx, func(doc *fileDocument) {
		delete(doc.Disks, diskID)
	})
}

// List implements Store.
func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(doc.Disks))
	for id, rec := range doc.Disks {
		entries = append(entries, Entry{DiskID: id, Token: rec.ChangeID})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DiskID < entries[j].DiskID })
	return entries, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) update(ctx context.Context, fn func(*fileDocument)) error {
	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("lock %s", s.lock.Path()))
	}
	if !locked {
		return types.Errorf(types.ErrKindIO, "lock %s: not acquired", s.lock.Path())
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(doc)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return types.Wrap(types.ErrKindFormat, err, "encode state")
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(append(data, '\n'))); err != nil {
		return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("write state %s", s.path))
	}
	return nil
}

func (s *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{Disks: map[string]fileRecord{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("read state %s", s.path))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, types.Wrap(types.ErrKindFormat, err, fmt.Sprintf("decode state %s", s.path))
	}
	if doc.Disks == nil {
		doc.Disks = map[string]fileRecord{}
	}
	return doc, nil
}

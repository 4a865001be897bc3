package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/joshuapare/cbtkit/pkg/types"
)

const tokenPrefix = "token/"

// LevelStore keeps records in a goleveldb database under token/<disk id>.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens or creates the database directory at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("open state database %s", path))
	}
	return &LevelStore{db: db}, nil
}

func tokenKey(diskID string) []byte { return []byte(tokenPrefix + diskID) }

// Load implements tracker.StateStore.
func (s *LevelStore) Load(_ context.Context, diskID string) (types.ChangeToken, bool, error) {
	v, err := s.db.Get(tokenKey(diskID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("load state for %s", diskID))
	}
	return types.ChangeToken(v), true, nil
}

// Save implements tracker.StateStore. The write is synced before returning.
func (s *LevelStore) Save(_ context.Context, diskID string, token types.ChangeToken) error {
	if err := checkDiskID(diskID); err != nil {
		return types.Wrap(types.ErrKindFormat, err, "save state")
	}
	if token.IsZero() {
		return types.Errorf(types.ErrKindFormat, "save state for %s: empty change token", diskID)
	}
	if err := s.db.Put(tokenKey(diskID), []byte(token), &opt.WriteOptions{Sync: true}); err != nil {
		return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("save state for %s", diskID))
	}
	return nil
}

// Delete implements Store.
func (s *LevelStore) Delete(_ context.Context, diskID string) error {
	if err := s.db.Delete(tokenKey(diskID), &opt.WriteOptions{Sync: true}); err != nil {
		return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("delete state for %s", diskID))
	}
	return nil
}

// List implements Store. Keys iterate in byte order, which is disk
// identifier order.
func (s *LevelStore) List(_ context.Context) ([]Entry, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(tokenPrefix)), nil)
	defer it.Release()

	var entries []Entry
	for it.Next() {
		entries = append(entries, Entry{
			DiskID: strings.TrimPrefix(string(it.Key()), tokenPrefix),
			Token:  types.ChangeToken(append([]byte(nil), it.Value()...)),
		})
	}
	if err := it.Error(); err != nil {
		return nil, types.Wrap(types.ErrKindIO, err, "list state")
	}
	return entries, nil
}

// Close implements Store.
func (s *LevelStore) Close() error {
	return s.db.Close()
}

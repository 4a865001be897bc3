package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cbtkit/pkg/types"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]Store{}
	for _, backend := range []string{BackendFile, BackendLevelDB} {
		s, err := Open(backend, filepath.Join(dir, backend))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		stores[backend] = s
	}
	return stores
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Load(ctx, "vm01/scsi0:0")
			require.NoError(t, err)
			assert.False(t, ok, "unknown disk is Uninitialized")

			require.NoError(t, s.Save(ctx, "vm01/scsi0:0", "52"))
			require.NoError(t, s.Save(ctx, "vm01/scsi0:1", "7"))
			require.NoError(t, s.Save(ctx, "vm01/scsi0:0", "53"))

			tok, ok, err := s.Load(ctx, "vm01/scsi0:0")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, types.ChangeToken("53"), tok)

			entries, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Entry{
				{DiskID: "vm01/scsi0:0", Token: "53"},
				{DiskID: "vm01/scsi0:1", Token: "7"},
			}, entries)

			require.NoError(t, s.Delete(ctx, "vm01/scsi0:0"))
			require.NoError(t, s.Delete(ctx, "never-saved"))
			_, ok, err = s.Load(ctx, "vm01/scsi0:0")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_RejectsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Save(ctx, "scsi0:0", "")
			assert.True(t, types.IsKind(err, types.ErrKindFormat))
			err = s.Save(ctx, "", "52")
			assert.True(t, types.IsKind(err, types.ErrKindFormat))
		})
	}
}

func TestFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewFileStore(path)
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC))
	require.NoError(t, s.Save(ctx, "scsi1:3", "52/abc"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"change_id": "52/abc"`)
	assert.Contains(t, string(data), `"updated_at": "2026-05-04T03:02:01Z"`)

	tok, ok, err := NewFileStore(path).Load(ctx, "scsi1:3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ChangeToken("52/abc"), tok)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Load(context.Background(), "scsi0:0")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindFormat))
}

func TestLevelStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := OpenLevelStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "scsi0:0", "99"))
	require.NoError(t, s.Close())

	s, err = OpenLevelStore(path)
	require.NoError(t, err)
	defer s.Close()
	tok, ok, err := s.Load(ctx, "scsi0:0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ChangeToken("99"), tok)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(BackendFile, "")
	assert.True(t, types.IsKind(err, types.ErrKindConfig))

	_, err = Open("etcd", filepath.Join(t.TempDir(), "x"))
	assert.True(t, types.IsKind(err, types.ErrKindConfig))
}

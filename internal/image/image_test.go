package image

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cbtkit/pkg/types"
)

func TestOpen_MissingPathsFailBeforeWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "target.img", []byte("keep"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "source.img", []byte("data"), 0o644))

	tests := []struct {
		name, source, target string
		kind                 types.ErrKind
	}{
		{"missing source", "nope.img", "target.img", types.ErrKindIO},
		{"missing target", "source.img", "nope.img", types.ErrKindIO},
		{"empty", "", "target.img", types.ErrKindConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(fs, tt.source, tt.target, Options{})
			require.Error(t, err)
			assert.True(t, types.IsKind(err, tt.kind), "got %v", err)

			data, err := afero.ReadFile(fs, "target.img")
			require.NoError(t, err)
			assert.Equal(t, "keep", string(data))
			exists, _ := afero.Exists(fs, "nope.img")
			assert.False(t, exists, "a missing target must not be created")
		})
	}
}

func TestOpen_ReadWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "source.img", []byte("abcdef"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "target.img", []byte("xxxxxx"), 0o644))

	p, err := Open(fs, "source.img", "target.img", Options{})
	require.NoError(t, err)

	buf := make([]byte, 3)
	_, err = p.Source.ReadAt(buf, 2)
	require.NoError(t, err)
	_, err = p.Target.WriteAt(buf, 1)
	require.NoError(t, err)
	require.NoError(t, p.Flush())
	require.NoError(t, p.Close())

	data, err := afero.ReadFile(fs, "target.img")
	require.NoError(t, err)
	assert.Equal(t, "xcdexx", string(data))
}

func TestOpen_LockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.img")
	dst := filepath.Join(dir, "target.img")
	require.NoError(t, os.WriteFile(src, []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("xyz"), 0o644))

	fs := afero.NewOsFs()
	first, err := Open(fs, src, dst, Options{Lock: true})
	require.NoError(t, err)

	_, err = Open(fs, src, dst, Options{Lock: true})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindIO))

	_, err = io.Copy(first.Target, first.Source)
	require.NoError(t, err)
	require.NoError(t, first.Flush())
	require.NoError(t, first.Close())

	second, err := Open(fs, src, dst, Options{Lock: true})
	require.NoError(t, err)
	require.NoError(t, second.Close())

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestOpen_LockNeedsOsFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a", nil, 0o644))
	require.NoError(t, afero.WriteFile(fs, "b", nil, 0o644))

	_, err := Open(fs, "a", "b", Options{Lock: true})
	assert.True(t, types.IsKind(err, types.ErrKindConfig))
}

func TestPair_Sink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.img")
	dst := filepath.Join(dir, "target.img")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old!"), 0o644))

	p, err := Open(afero.NewOsFs(), src, dst, Options{})
	require.NoError(t, err)
	defer p.Close()

	sink := p.Sink()
	_, err = sink.Seek(1, io.SeekStart)
	require.NoError(t, err)
	_, err = sink.Write([]byte("ne"))
	require.NoError(t, err)
	require.NoError(t, sink.Flush())

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "one!", string(data))
}

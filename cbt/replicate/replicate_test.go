package replicate

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cbtkit/internal/metrics"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// pattern returns n bytes where byte i is a function of i, so misplaced
// copies are detectable.
func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

// newTarget creates an in-memory target image of size zeroed bytes.
func newTarget(t *testing.T, size int) afero.File {
	t.Helper()
	fs := afero.NewMemMapFs()
	f, err := fs.Create("target.img")
	require.NoError(t, err)
	_, err = f.Write(make([]byte, size))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func readAll(t *testing.T, f afero.File) []byte {
	t.Helper()
	_, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

func TestReplicate_ByteExactWithPartialChunk(t *testing.T) {
	src := pattern(64 * 1024)
	dst := newTarget(t, len(src))

	// 10000 is not a multiple of the 4096 chunk: two full chunks plus 1808.
	regions := []types.Range{{Offset: 1000, Length: 10000}, {Offset: 30000, Length: 4096}}

	r := New(WithChunkSize(4096))
	stats, err := r.Replicate(bytes.NewReader(src), dst, regions)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Regions)
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, uint64(14096), stats.Bytes)

	got := readAll(t, dst)
	for _, region := range regions {
		assert.Equal(t, src[region.Offset:region.End()], got[region.Offset:region.End()],
			"region %v differs", region)
	}
	// Bytes outside the regions stay untouched.
	assert.Equal(t, make([]byte, 1000), got[:1000])
	assert.Equal(t, make([]byte, 30000-11000), got[11000:30000])
}

func TestReplicate_SinglePass(t *testing.T) {
	src := pattern(2000)
	dst := newTarget(t, 2000)

	r := New()
	stats, err := r.Replicate(bytes.NewReader(src), dst, []types.Range{{Offset: 0, Length: 2000}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chunks, "a region smaller than the chunk is one read/write pass")
	assert.Equal(t, src, readAll(t, dst))
}

func TestReplicate_ExtendsTarget(t *testing.T) {
	src := pattern(8192)
	dst := newTarget(t, 0)

	_, err := New(WithChunkSize(1024)).Replicate(bytes.NewReader(src), dst,
		[]types.Range{{Offset: 4096, Length: 4096}})
	require.NoError(t, err)

	got := readAll(t, dst)
	require.Len(t, got, 8192)
	assert.Equal(t, src[4096:], got[4096:])
}

func TestReplicate_ShortReadAbortsAndKeepsPrefix(t *testing.T) {
	src := pattern(10000)
	dst := newTarget(t, 20000)
	m := metrics.New()

	regions := []types.Range{
		{Offset: 0, Length: 2000},    // completes
		{Offset: 8000, Length: 4000}, // source ends at 10000
	}

	r := New(WithChunkSize(1000), WithMetrics(m))
	stats, err := r.Replicate(bytes.NewReader(src), dst, regions)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindIO), "got %v", err)

	var sre *types.ShortReadError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, uint64(10000), sre.Offset)
	assert.Equal(t, uint64(1000), sre.Want)
	assert.Equal(t, uint64(0), sre.Got)

	assert.Equal(t, 1, stats.Regions)
	assert.Equal(t, 4, stats.Chunks)
	assert.Equal(t, uint64(4000), stats.Bytes)

	got := readAll(t, dst)
	assert.Equal(t, src[:2000], got[:2000], "completed region stays in target")
	assert.Equal(t, src[8000:10000], got[8000:10000], "completed chunks of the failed region stay")
	assert.Equal(t, make([]byte, 2000), got[10000:12000])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ShortReads))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReplicatedRegions))
	assert.Equal(t, float64(4000), testutil.ToFloat64(m.ReplicatedBytes))
}

func TestReplicate_ShortReadMidChunk(t *testing.T) {
	src := pattern(1500)
	dst := newTarget(t, 0)

	_, err := New(WithChunkSize(1000)).Replicate(bytes.NewReader(src), dst,
		[]types.Range{{Offset: 0, Length: 2000}})

	var sre *types.ShortReadError
	require.ErrorAs(t, err, &sre)
	assert.Equal(t, uint64(1000), sre.Offset)
	assert.Equal(t, uint64(500), sre.Got)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// trickleReader returns at most 3 bytes per Read call.
type trickleReader struct {
	*bytes.Reader
}

func (r trickleReader) Read(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return r.Reader.Read(p)
}

func TestReplicate_PartialReadsAreNotShort(t *testing.T) {
	src := pattern(5000)
	dst := newTarget(t, 5000)

	_, err := New(WithChunkSize(1024)).Replicate(trickleReader{bytes.NewReader(src)}, dst,
		[]types.Range{{Offset: 0, Length: 5000}})
	require.NoError(t, err)
	assert.Equal(t, src, readAll(t, dst))
}

// opRecorder records the offset of every write and fails if a write is not
// preceded by its own seek.
type opRecorder struct {
	t       *testing.T
	pos     int64
	seeked  bool
	writes  []types.Range
	buf     []byte
	failAt  int // fail the write with this index; -1 disables
	written int
}

func (w *opRecorder) Seek(offset int64, whence int) (int64, error) {
	require.Equal(w.t, io.SeekStart, whence)
	w.pos = offset
	w.seeked = true
	return offset, nil
}

func (w *opRecorder) Write(p []byte) (int, error) {
	require.True(w.t, w.seeked, "write at %d without a preceding seek", w.pos)
	w.seeked = false
	if w.failAt == w.written {
		return 0, errors.New("disk full")
	}
	w.written++
	w.writes = append(w.writes, types.Range{Offset: uint64(w.pos), Length: uint64(len(p))})
	w.pos += int64(len(p))
	return len(p), nil
}

func TestReplicate_SeeksBeforeEveryWriteInOrder(t *testing.T) {
	src := pattern(100000)
	rec := &opRecorder{t: t, failAt: -1}

	regions := []types.Range{{Offset: 10, Length: 25}, {Offset: 50000, Length: 10}}
	_, err := New(WithChunkSize(10)).Replicate(bytes.NewReader(src), rec, regions)
	require.NoError(t, err)

	want := []types.Range{
		{Offset: 10, Length: 10},
		{Offset: 20, Length: 10},
		{Offset: 30, Length: 5},
		{Offset: 50000, Length: 10},
	}
	assert.Equal(t, want, rec.writes)
}

func TestReplicate_WriteFailure(t *testing.T) {
	rec := &opRecorder{t: t, failAt: 1}

	stats, err := New(WithChunkSize(10)).Replicate(bytes.NewReader(pattern(100)), rec,
		[]types.Range{{Offset: 0, Length: 50}})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindIO))
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, stats.Chunks)
}

func TestReplicate_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		chunk    uint64
		regions  []types.Range
		wantKind types.ErrKind
	}{
		{
			name:     "zero chunk",
			chunk:    0,
			regions:  []types.Range{{Offset: 0, Length: 10}},
			wantKind: types.ErrKindConfig,
		},
		{
			name:     "descending",
			chunk:    10,
			regions:  []types.Range{{Offset: 100, Length: 10}, {Offset: 0, Length: 10}},
			wantKind: types.ErrKindFormat,
		},
		{
			name:     "overlapping",
			chunk:    10,
			regions:  []types.Range{{Offset: 0, Length: 100}, {Offset: 50, Length: 100}},
			wantKind: types.ErrKindFormat,
		},
		{
			name:     "zero length",
			chunk:    10,
			regions:  []types.Range{{Offset: 0, Length: 0}},
			wantKind: types.ErrKindFormat,
		},
		{
			name:     "beyond int64",
			chunk:    10,
			regions:  []types.Range{{Offset: math.MaxInt64, Length: 10}},
			wantKind: types.ErrKindFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &opRecorder{t: t, failAt: -1}
			_, err := New(WithChunkSize(tt.chunk)).Replicate(bytes.NewReader(pattern(10)), rec, tt.regions)
			require.Error(t, err)
			assert.True(t, types.IsKind(err, tt.wantKind), "got %v", err)
			assert.Empty(t, rec.writes, "no write may happen before validation passes")
		})
	}
}

func TestReplicate_Idempotent(t *testing.T) {
	src := pattern(4096)
	dst := newTarget(t, 4096)
	regions := []types.Range{{Offset: 0, Length: 1000}, {Offset: 2000, Length: 2096}}

	r := New(WithChunkSize(333))
	_, err := r.Replicate(bytes.NewReader(src), dst, regions)
	require.NoError(t, err)
	first := readAll(t, dst)

	_, err = r.Replicate(bytes.NewReader(src), dst, regions)
	require.NoError(t, err)
	assert.Equal(t, first, readAll(t, dst))
}

// tickingReader advances a fake clock on every read.
type tickingReader struct {
	io.ReadSeeker
	clock clockwork.FakeClock
}

func (r tickingReader) Read(p []byte) (int, error) {
	r.clock.Advance(time.Second)
	return r.ReadSeeker.Read(p)
}

func TestReplicate_Duration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	dst := newTarget(t, 0)

	stats, err := New(WithChunkSize(10), WithClock(clock)).Replicate(
		tickingReader{ReadSeeker: bytes.NewReader(pattern(30)), clock: clock}, dst,
		[]types.Range{{Offset: 0, Length: 30}})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, stats.Duration)
}

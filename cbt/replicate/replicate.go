// Package replicate copies consolidated regions from a source image to a
// target image in bounded chunks.
//
// Regions are processed strictly in ascending offset order. Every chunk is
// read at an explicitly seeked absolute offset and written to the same offset
// in the target, so a run that aborts leaves a well-defined copied prefix and
// can be replayed region by region.
package replicate

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/internal/metrics"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// DefaultChunkSize is the largest single read/write issued per chunk.
const DefaultChunkSize uint64 = 4 << 20

// Stats describes the work completed by a Replicate call. When Replicate
// fails, Stats covers the chunks and regions finished before the failure.
type Stats struct {
	Regions  int           // regions copied to completion
	Chunks   int           // read/write pairs issued
	Bytes    uint64        // bytes written to the target
	Duration time.Duration // wall time of the call
}

// Replicator copies regions chunk by chunk. It holds no per-call state and
// may be reused, but a single call is not safe for concurrent use of the
// same streams.
type Replicator struct {
	chunkSize uint64
	logger    *zap.Logger
	metrics   *metrics.Metrics
	clock     clockwork.Clock
}

// Opt configures a Replicator.
type Opt func(*Replicator)

// WithChunkSize sets the chunk size. Zero is rejected when Replicate runs.
func WithChunkSize(n uint64) Opt {
	return func(r *Replicator) {
		r.chunkSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(r *Replicator) {
		r.logger = logger
	}
}

// WithMetrics records chunk, region and short-read counters on m.
func WithMetrics(m *metrics.Metrics) Opt {
	return func(r *Replicator) {
		r.metrics = m
	}
}

// WithClock sets the clock used for Stats.Duration.
func WithClock(c clockwork.Clock) Opt {
	return func(r *Replicator) {
		r.clock = c
	}
}

// New returns a Replicator with DefaultChunkSize unless overridden.
func New(opts ...Opt) *Replicator {
	r := &Replicator{
		chunkSize: DefaultChunkSize,
		logger:    zap.NewNop(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ChunkSize returns the configured chunk size.
func (r *Replicator) ChunkSize() uint64 { return r.chunkSize }

// Replicate copies every region from src to dst.
//
// regions must be ascending and non-overlapping (as produced by
// areas.Coalesce) and must end at or below math.MaxInt64; otherwise an
// ErrKindFormat error is returned before any I/O. A source that yields fewer
// bytes than requested aborts the call with a *types.ShortReadError wrapped as
// ErrKindIO. Bytes already written stay in dst.
func (r *Replicator) Replicate(src io.ReadSeeker, dst io.WriteSeeker, regions []types.Range) (Stats, error) {
	start := r.clock.Now()
	var stats Stats

	if r.chunkSize == 0 {
		return stats, types.Errorf(types.ErrKindConfig, "chunk size must be positive")
	}
	if err := checkRegions(regions); err != nil {
		return stats, err
	}

	buf := make([]byte, bufferSize(r.chunkSize, regions))
	for i, region := range regions {
		if err := r.copyRegion(src, dst, region, buf, &stats); err != nil {
			stats.Duration = r.clock.Since(start)
			r.logger.Warn("replication aborted",
				zap.Int("region", i),
				zap.Uint64("offset", region.Offset),
				zap.Uint64("length", region.Length),
				zap.Int("regions_completed", stats.Regions),
				zap.Uint64("bytes_copied", stats.Bytes),
				zap.Error(err),
			)
			return stats, fmt.Errorf("region %d %v: %w", i, region, err)
		}
		stats.Regions++
		r.metrics.RegionCopied()
		r.logger.Debug("region copied",
			zap.Int("region", i),
			zap.Uint64("offset", region.Offset),
			zap.Uint64("length", region.Length),
		)
	}

	stats.Duration = r.clock.Since(start)
	return stats, nil
}

// copyRegion copies one region, seeking both streams before every chunk.
func (r *Replicator) copyRegion(src io.ReadSeeker, dst io.WriteSeeker, region types.Range, buf []byte, stats *Stats) error {
	pos := region.Offset
	remaining := region.Length

	for remaining > 0 {
		n := min(r.chunkSize, remaining)

		if _, err := src.Seek(int64(pos), io.SeekStart); err != nil {
			return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("seek source to %d", pos))
		}
		got, err := io.ReadFull(src, buf[:n])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("read source at %d", pos))
		}
		if uint64(got) < n {
			r.metrics.ShortRead()
			return types.NewShortReadError(pos, n, uint64(got), err)
		}

		if _, err := dst.Seek(int64(pos), io.SeekStart); err != nil {
			return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("seek target to %d", pos))
		}
		written, err := dst.Write(buf[:got])
		if err != nil {
			return types.Wrap(types.ErrKindIO, err, fmt.Sprintf("write target at %d", pos))
		}
		if written != got {
			return types.Wrap(types.ErrKindIO, io.ErrShortWrite,
				fmt.Sprintf("write target at %d: wrote %d of %d bytes", pos, written, got))
		}

		stats.Chunks++
		stats.Bytes += uint64(got)
		r.metrics.ChunkCopied(got)

		pos += n
		remaining -= n
	}
	return nil
}

// checkRegions enforces the ordering and addressability preconditions.
func checkRegions(regions []types.Range) error {
	for i, region := range regions {
		if !region.Valid() {
			return types.Errorf(types.ErrKindFormat, "region %d %v is not a valid range", i, region)
		}
		if region.End() > math.MaxInt64 {
			return types.Errorf(types.ErrKindFormat, "region %d %v ends beyond the addressable offset range", i, region)
		}
		if i > 0 && region.Offset < regions[i-1].End() {
			return types.Errorf(types.ErrKindFormat,
				"region %d %v is not ascending after region %d %v", i, region, i-1, regions[i-1])
		}
	}
	return nil
}

// bufferSize is the chunk size capped by the largest region, so a huge chunk
// setting does not allocate more than a single read can use.
func bufferSize(chunkSize uint64, regions []types.Range) uint64 {
	var largest uint64
	for _, region := range regions {
		largest = max(largest, region.Length)
	}
	return min(chunkSize, largest)
}

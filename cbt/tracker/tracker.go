package tracker

import (
	"context"
	"fmt"
	"io"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/cbt/areas"
	"github.com/joshuapare/cbtkit/cbt/replicate"
	"github.com/joshuapare/cbtkit/internal/metrics"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// DefaultGap is the default coalescing gap tolerance (1 MiB).
const DefaultGap uint64 = 1 << 20

const (
	hintRetry = "the stored change token was not advanced: re-run the cycle to retry from the same " +
		"baseline, or reset the disk state to force a full copy with the wildcard token"
	hintResume = "regions before the failure were copied; re-running the cycle replays the same " +
		"baseline and is safe"
)

// DiskHandle identifies a resolved disk to the DiskAreaQuery that produced it.
type DiskHandle struct {
	ID            string // "scsi<bus>:<unit>"
	VM            string
	Snapshot      string
	Key           int32
	CapacityBytes uint64
	BackingFile   string
	// Ref carries collaborator-private resolution data. The tracker never
	// inspects it.
	Ref any
}

// Response is a DiskAreaQuery result.
type Response struct {
	Areas    []types.Range
	NewToken types.ChangeToken
	// BaselineToken is a secondary token-typed identifier the collaborator
	// may offer when NewToken is absent. A backing file path is not a token
	// and must never be returned here.
	BaselineToken types.ChangeToken
	BackingFile   string
}

// SyncState is the per-disk protocol state persisted between invocations.
type SyncState struct {
	DiskID        string
	PreviousToken types.ChangeToken
}

// NewSyncState returns the Uninitialized state for diskID.
func NewSyncState(diskID string) SyncState {
	return SyncState{DiskID: diskID}
}

// Tracking reports whether s holds a previous token.
func (s SyncState) Tracking() bool { return !s.PreviousToken.IsZero() }

// QueryToken is the token the next query must use: the stored token when
// Tracking, the wildcard otherwise.
func (s SyncState) QueryToken() types.ChangeToken {
	if !s.Tracking() {
		return types.WildcardToken
	}
	return s.PreviousToken
}

// TokenSource names where an epoch's token came from.
type TokenSource string

const (
	TokenFromResponse   TokenSource = "response"
	TokenFromBaseline   TokenSource = "baseline"
	TokenUnresolved     TokenSource = "unresolved"
	tokenSourceNotKnown TokenSource = ""
)

// Epoch is the outcome of one changed-area query.
type Epoch struct {
	Previous    types.ChangeToken // token the query was issued with
	Token       types.ChangeToken // token to adopt; empty when unresolved
	Source      TokenSource
	Raw         []types.Range // areas as returned by the collaborator
	Regions     []types.Range // consolidated regions
	BackingFile string
}

// Resolved reports whether the epoch produced a token that may be persisted.
func (e Epoch) Resolved() bool { return !e.Token.IsZero() }

// Flusher is implemented by targets that can force written data to stable
// storage. Sync flushes such a target before it reports a new state.
type Flusher interface {
	Flush() error
}

// Result is the outcome of Sync.
type Result struct {
	Epoch Epoch
	// Next is the candidate state. It equals the input state unless the cycle
	// fully succeeded with a resolved token.
	Next  SyncState
	Stats replicate.Stats
}

// Tracker runs sync cycles for one disk at a time.
type Tracker struct {
	query      DiskAreaQuery
	replicator *replicate.Replicator
	gap        uint64
	logger     *zap.Logger
	metrics    *metrics.Metrics
	clock      clockwork.Clock
}

// Opt configures a Tracker.
type Opt func(*Tracker)

// WithGap sets the coalescing gap tolerance.
func WithGap(gap uint64) Opt {
	return func(t *Tracker) {
		t.gap = gap
	}
}

// WithReplicator sets the replicator used by Sync.
func WithReplicator(r *replicate.Replicator) Opt {
	return func(t *Tracker) {
		t.replicator = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics records cycle outcomes on m.
func WithMetrics(m *metrics.Metrics) Opt {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithClock sets the clock used for the last-sync timestamp.
func WithClock(c clockwork.Clock) Opt {
	return func(t *Tracker) {
		t.clock = c
	}
}

// New returns a Tracker querying through query.
func New(query DiskAreaQuery, opts ...Opt) *Tracker {
	t := &Tracker{
		query:  query,
		gap:    DefaultGap,
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.replicator == nil {
		t.replicator = replicate.New(replicate.WithLogger(t.logger), replicate.WithMetrics(t.metrics))
	}
	return t
}

// Query issues the changed-area query for state and consolidates the result.
// It does not copy anything and does not change state.
func (t *Tracker) Query(ctx context.Context, state SyncState, disk DiskHandle) (Epoch, error) {
	previous := state.QueryToken()
	epoch := Epoch{Previous: previous, Source: tokenSourceNotKnown}

	resp, err := t.query.QueryChangedAreas(ctx, disk, previous)
	if err != nil {
		return epoch, crdberrors.WithHint(classifyQueryError(disk, previous, err), hintRetry)
	}

	for i, a := range resp.Areas {
		if _, err := types.NewRange(a.Offset, a.Length); err != nil {
			return epoch, crdberrors.WithHint(
				types.Wrap(types.ErrKindQuery, err, fmt.Sprintf("query %s: unusable area %d", disk.ID, i)),
				hintRetry)
		}
	}

	epoch.Raw = resp.Areas
	epoch.Regions = areas.Coalesce(resp.Areas, t.gap)
	epoch.BackingFile = resp.BackingFile
	switch {
	case !resp.NewToken.IsZero():
		epoch.Token, epoch.Source = resp.NewToken, TokenFromResponse
	case !resp.BaselineToken.IsZero():
		epoch.Token, epoch.Source = resp.BaselineToken, TokenFromBaseline
	default:
		epoch.Source = TokenUnresolved
	}

	t.logger.Info("changed areas queried",
		zap.String("disk", disk.ID),
		zap.String("previous_token", string(previous)),
		zap.String("new_token", string(epoch.Token)),
		zap.String("token_source", string(epoch.Source)),
		zap.Int("areas", len(epoch.Raw)),
		zap.Int("regions", len(epoch.Regions)),
		zap.Uint64("bytes", areas.TotalBytes(epoch.Regions)),
	)
	return epoch, nil
}

// Sync runs one cycle: query, coalesce, replicate. On any failure the
// returned Result.Next equals state.
func (t *Tracker) Sync(ctx context.Context, state SyncState, disk DiskHandle, src io.ReadSeeker, dst io.WriteSeeker) (Result, error) {
	result := Result{Next: state}

	epoch, err := t.Query(ctx, state, disk)
	result.Epoch = epoch
	if err != nil {
		t.metrics.CycleFinished(metrics.ResultQueryError, 0)
		return result, err
	}

	stats, err := t.replicator.Replicate(src, dst, epoch.Regions)
	result.Stats = stats
	if err != nil {
		t.metrics.CycleFinished(metrics.ResultCopyError, 0)
		return result, crdberrors.WithHint(fmt.Errorf("replicate %s: %w", disk.ID, err), hintResume)
	}

	if f, ok := dst.(Flusher); ok {
		if err := f.Flush(); err != nil {
			t.metrics.CycleFinished(metrics.ResultCopyError, 0)
			return result, crdberrors.WithHint(types.Wrap(types.ErrKindIO, err, "flush "+disk.ID), hintResume)
		}
	}

	if !epoch.Resolved() {
		t.metrics.CycleFinished(metrics.ResultUnresolved, 0)
		t.logger.Warn("change token unresolved, state not advanced",
			zap.String("disk", disk.ID),
			zap.String("previous_token", string(epoch.Previous)),
		)
		return result, nil
	}

	result.Next = SyncState{DiskID: state.DiskID, PreviousToken: epoch.Token}
	t.metrics.CycleFinished(metrics.ResultSuccess, float64(t.clock.Now().Unix()))
	t.logger.Info("sync cycle complete",
		zap.String("disk", disk.ID),
		zap.String("token", string(epoch.Token)),
		zap.Int("regions", stats.Regions),
		zap.Uint64("bytes", stats.Bytes),
		zap.Duration("duration", stats.Duration),
	)
	return result, nil
}

// RunCycle loads the state for key from store, runs Sync, and saves the new
// token only after a fully successful cycle with a resolved token.
func (t *Tracker) RunCycle(ctx context.Context, store StateStore, key string, disk DiskHandle, src io.ReadSeeker, dst io.WriteSeeker) (Result, error) {
	token, ok, err := store.Load(ctx, key)
	if err != nil {
		return Result{}, types.Wrap(types.ErrKindIO, err, fmt.Sprintf("load sync state for %s", key))
	}
	state := NewSyncState(key)
	if ok {
		state.PreviousToken = token
	}

	result, err := t.Sync(ctx, state, disk, src, dst)
	if err != nil {
		return result, err
	}
	if result.Next == state {
		return result, nil
	}

	if err := store.Save(ctx, key, result.Next.PreviousToken); err != nil {
		result.Next = state
		return result, crdberrors.WithHint(
			types.Wrap(types.ErrKindIO, err, fmt.Sprintf("save sync state for %s", key)),
			"the target is current but the new token was not recorded; the next cycle re-copies "+
				"from the previous baseline, which is safe")
	}
	return result, nil
}

// classifyQueryError keeps lookup and configuration failures as they are and
// reports everything else as ErrKindQuery.
func classifyQueryError(disk DiskHandle, previous types.ChangeToken, err error) error {
	if kind, ok := types.KindOf(err); ok && (kind == types.ErrKindLookup || kind == types.ErrKindConfig) {
		return err
	}
	return types.Wrap(types.ErrKindQuery, err,
		fmt.Sprintf("query changed areas of %s since %q", disk.ID, previous))
}

package tracker

import (
	"context"

	"github.com/joshuapare/cbtkit/pkg/types"
)

//go:generate mockgen -typed -package=tracker -destination=./mocks.go -source=./interface.go

// DiskAreaQuery is the hypervisor capability the tracker depends on.
//
// QueryChangedAreas returns every range of disk that changed since previous,
// which may be types.WildcardToken for a full-coverage query, together with
// the token that marks the end of this epoch.
type DiskAreaQuery interface {
	QueryChangedAreas(ctx context.Context, disk DiskHandle, previous types.ChangeToken) (Response, error)
}

// StateStore persists the last confirmed token per disk identifier.
//
// Load reports ok == false for a disk that has never completed a cycle.
type StateStore interface {
	Load(ctx context.Context, diskID string) (token types.ChangeToken, ok bool, err error)
	Save(ctx context.Context, diskID string, token types.ChangeToken) error
}

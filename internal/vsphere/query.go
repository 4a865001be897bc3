package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/vim25/methods"
	vim "github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/cbt/device"
	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/pkg/types"
)

var _ tracker.DiskAreaQuery = (*Client)(nil)

type pageFunc func(ctx context.Context, start int64) (vim.DiskChangeInfo, error)

// QueryChangedAreas implements tracker.DiskAreaQuery for a handle produced
// by ResolveDisk.
//
// The new token is the change id of the disk as captured by the snapshot.
// A disk resolved from the live configuration yields no token: the live
// change id may already cover writes made after the snapshot.
func (c *Client) QueryChangedAreas(ctx context.Context, disk tracker.DiskHandle, previous types.ChangeToken) (tracker.Response, error) {
	ref, ok := disk.Ref.(diskRef)
	if !ok {
		return tracker.Response{}, types.Errorf(types.ErrKindConfig, "disk %s was not resolved by a vCenter client", disk.ID)
	}

	page := func(ctx context.Context, start int64) (vim.DiskChangeInfo, error) {
		snap := ref.snapshot
		res, err := methods.QueryChangedDiskAreas(ctx, c.vc, &vim.QueryChangedDiskAreas{
			This:        ref.vm,
			Snapshot:    &snap,
			DeviceKey:   disk.Key,
			StartOffset: start,
			ChangeId:    string(previous),
		})
		if err != nil {
			return vim.DiskChangeInfo{}, err
		}
		return res.Returnval, nil
	}

	areas, err := collectAreas(ctx, disk.CapacityBytes, page)
	if err != nil {
		return tracker.Response{}, types.Wrap(types.ErrKindQuery, err,
			fmt.Sprintf("QueryChangedDiskAreas %s since %q", disk.ID, previous))
	}

	resp := tracker.Response{Areas: areas, BackingFile: disk.BackingFile}
	if ref.scope == device.ScopeSnapshot {
		resp.NewToken = ref.changeID
	}
	c.logger.Debug("changed disk areas",
		zap.String("disk", disk.ID),
		zap.String("change_id", string(previous)),
		zap.Int("extents", len(areas)),
		zap.String("new_change_id", string(resp.NewToken)),
	)
	return resp, nil
}

// collectAreas pages through the disk from offset 0 until capacity is
// covered. Each page reports the span it examined; the next page starts at
// its end.
func collectAreas(ctx context.Context, capacity uint64, page pageFunc) ([]types.Range, error) {
	var out []types.Range
	var offset uint64
	for offset < capacity {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := page(ctx, int64(offset))
		if err != nil {
			return nil, err
		}
		for _, e := range info.ChangedArea {
			if e.Start < 0 || e.Length < 0 {
				return nil, types.Errorf(types.ErrKindFormat, "negative extent start=%d length=%d", e.Start, e.Length)
			}
			r, err := types.NewRange(uint64(e.Start), uint64(e.Length))
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		next := info.StartOffset + info.Length
		if info.Length <= 0 || next <= int64(offset) {
			return nil, types.Errorf(types.ErrKindFormat, "query made no progress at offset %d", offset)
		}
		offset = uint64(next)
	}
	return out, nil
}

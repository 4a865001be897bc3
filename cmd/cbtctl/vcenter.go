package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cbtkit/cbt/device"
	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/internal/config"
	"github.com/joshuapare/cbtkit/internal/vsphere"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// diskSource resolves disks and answers changed-area queries for them.
type diskSource interface {
	tracker.DiskAreaQuery
	Lookup(ctx context.Context, vm, snapshot string, id device.DiskID) (tracker.DiskHandle, error)
	Close(ctx context.Context) error
}

// connect opens the disk source. Tests replace it.
var connect = func(ctx context.Context, envFile string) (diskSource, error) {
	cfg, err := config.LoadVSphere(envFile)
	if err != nil {
		return nil, err
	}
	c, err := vsphere.Dial(ctx, cfg, vsphere.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// diskRef names a disk on a VM as captured by a snapshot.
type diskRef struct {
	vm       string
	snapshot string
	diskID   string
	envFile  string
}

func addDiskFlags(cmd *cobra.Command, ref *diskRef) {
	cmd.Flags().StringVar(&ref.vm, "vm", "", "Virtual machine name")
	cmd.Flags().StringVar(&ref.snapshot, "snapshot", "", "Snapshot name")
	cmd.Flags().StringVar(&ref.diskID, "disk-id", "", "Disk identifier, e.g. scsi0:0")
	cmd.Flags().StringVar(&ref.envFile, "env-file", ".env", "Optional dotenv file with VCENTER_* settings")
}

func (r diskRef) validate() (device.DiskID, error) {
	if r.vm == "" || r.snapshot == "" || r.diskID == "" {
		return device.DiskID{}, types.Errorf(types.ErrKindConfig, "--vm, --snapshot and --disk-id are required")
	}
	return device.ParseDiskID(r.diskID)
}

// open connects and resolves the disk. The caller closes the source.
func (r diskRef) open(ctx context.Context, id device.DiskID) (diskSource, tracker.DiskHandle, error) {
	src, err := connect(ctx, r.envFile)
	if err != nil {
		return nil, tracker.DiskHandle{}, err
	}
	handle, err := src.Lookup(ctx, r.vm, r.snapshot, id)
	if err != nil {
		_ = src.Close(ctx)
		return nil, tracker.DiskHandle{}, err
	}
	printVerbose("Resolved %s on %s@%s: key %d, %d bytes, %s\n",
		handle.ID, r.vm, r.snapshot, handle.Key, handle.CapacityBytes, handle.BackingFile)
	return src, handle, nil
}

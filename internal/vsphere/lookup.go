package vsphere

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/view"
	"github.com/vmware/govmomi/vim25/mo"
	vim "github.com/vmware/govmomi/vim25/types"
	"go.uber.org/zap"

	"github.com/joshuapare/cbtkit/cbt/device"
	"github.com/joshuapare/cbtkit/cbt/tracker"
	"github.com/joshuapare/cbtkit/pkg/types"
)

// VM is a virtual machine as seen at lookup time.
type VM struct {
	Ref       vim.ManagedObjectReference
	Name      string
	snapshots []vim.VirtualMachineSnapshotTree
	devices   []vim.BaseVirtualDevice
}

// diskRef is the private part of a tracker.DiskHandle produced by this
// package.
type diskRef struct {
	vm       vim.ManagedObjectReference
	snapshot vim.ManagedObjectReference
	scope    device.Scope
	changeID types.ChangeToken
}

// FindVM returns the virtual machine called name.
func (c *Client) FindVM(ctx context.Context, name string) (*VM, error) {
	m := view.NewManager(c.vc)
	v, err := m.CreateContainerView(ctx, c.vc.ServiceContent.RootFolder, []string{"VirtualMachine"}, true)
	if err != nil {
		return nil, types.Wrap(types.ErrKindQuery, err, "create container view")
	}
	defer func() { _ = v.Destroy(ctx) }()

	var vms []mo.VirtualMachine
	if err := v.Retrieve(ctx, []string{"VirtualMachine"}, []string{"name", "snapshot", "config.hardware.device"}, &vms); err != nil {
		return nil, types.Wrap(types.ErrKindQuery, err, "list virtual machines")
	}
	for _, vm := range vms {
		if vm.Name != name {
			continue
		}
		found := &VM{Ref: vm.Self, Name: vm.Name}
		if vm.Snapshot != nil {
			found.snapshots = vm.Snapshot.RootSnapshotList
		}
		if vm.Config != nil {
			found.devices = vm.Config.Hardware.Device
		}
		return found, nil
	}
	return nil, types.Errorf(types.ErrKindLookup, "VM %q not found", name)
}

// FindSnapshot returns the first snapshot called name in a depth-first walk
// of the VM's snapshot tree.
func (vm *VM) FindSnapshot(name string) (vim.ManagedObjectReference, error) {
	if ref, ok := findSnapshot(vm.snapshots, name); ok {
		return ref, nil
	}
	return vim.ManagedObjectReference{}, types.Errorf(types.ErrKindLookup, "snapshot %q not found on VM %q", name, vm.Name)
}

func findSnapshot(trees []vim.VirtualMachineSnapshotTree, name string) (vim.ManagedObjectReference, bool) {
	for _, t := range trees {
		if t.Name == name {
			return t.Snapshot, true
		}
		if ref, ok := findSnapshot(t.ChildSnapshotList, name); ok {
			return ref, true
		}
	}
	return vim.ManagedObjectReference{}, false
}

// ResolveDisk resolves id on vm as captured by the named snapshot. The live
// configuration is used only when the snapshot configuration cannot be
// read.
func (c *Client) ResolveDisk(ctx context.Context, vm *VM, snapshot string, id device.DiskID) (tracker.DiskHandle, error) {
	snapRef, err := vm.FindSnapshot(snapshot)
	if err != nil {
		return tracker.DiskHandle{}, err
	}

	var snapDevices []device.Device
	var snap mo.VirtualMachineSnapshot
	if err := property.DefaultCollector(c.vc).RetrieveOne(ctx, snapRef, []string{"config.hardware.device"}, &snap); err != nil {
		c.logger.Warn("snapshot configuration unavailable, using live configuration",
			zap.String("vm", vm.Name), zap.String("snapshot", snapshot), zap.Error(err))
	} else {
		snapDevices = convertDevices(snap.Config.Hardware.Device)
		if snapDevices == nil {
			snapDevices = []device.Device{}
		}
	}

	match, err := device.Resolve(id, snapDevices, convertDevices(vm.devices))
	if err != nil {
		return tracker.DiskHandle{}, fmt.Errorf("resolve %s on VM %q: %w", id, vm.Name, err)
	}
	c.logger.Debug("disk resolved",
		zap.String("disk", id.String()),
		zap.Int32("key", match.Disk.Key),
		zap.String("scope", string(match.Scope)),
		zap.String("backing", match.Disk.BackingFile),
	)

	return tracker.DiskHandle{
		ID:            id.String(),
		VM:            vm.Name,
		Snapshot:      snapshot,
		Key:           match.Disk.Key,
		CapacityBytes: match.Disk.CapacityBytes,
		BackingFile:   match.Disk.BackingFile,
		Ref: diskRef{
			vm:       vm.Ref,
			snapshot: snapRef,
			scope:    match.Scope,
			changeID: match.Disk.ChangeID,
		},
	}, nil
}

// convertDevices maps a hardware device list onto device.Device. A nil list
// stays nil so callers can tell "unavailable" from "empty".
func convertDevices(devs []vim.BaseVirtualDevice) []device.Device {
	if devs == nil {
		return nil
	}
	out := make([]device.Device, 0, len(devs))
	for _, d := range devs {
		switch v := d.(type) {
		case vim.BaseVirtualSCSIController:
			sc := v.GetVirtualSCSIController()
			out = append(out, device.SCSIController{Key: sc.Key, Bus: int(sc.BusNumber)})
		case *vim.VirtualDisk:
			out = append(out, convertDisk(v))
		default:
			vd := d.GetVirtualDevice()
			var label string
			if vd.DeviceInfo != nil {
				label = vd.DeviceInfo.GetDescription().Label
			}
			out = append(out, device.Other{Key: vd.Key, Label: label})
		}
	}
	return out
}

func convertDisk(d *vim.VirtualDisk) device.VirtualDisk {
	disk := device.VirtualDisk{
		Key:           d.Key,
		ControllerKey: d.ControllerKey,
		Unit:          -1,
	}
	if d.UnitNumber != nil {
		disk.Unit = int(*d.UnitNumber)
	}
	switch {
	case d.CapacityInBytes > 0:
		disk.CapacityBytes = uint64(d.CapacityInBytes)
	case d.CapacityInKB > 0:
		disk.CapacityBytes = uint64(d.CapacityInKB) * 1024
	}

	if fb, ok := d.Backing.(vim.BaseVirtualDeviceFileBackingInfo); ok {
		disk.BackingFile = fb.GetVirtualDeviceFileBackingInfo().FileName
	}
	switch b := d.Backing.(type) {
	case *vim.VirtualDiskFlatVer2BackingInfo:
		disk.ChangeID = types.ChangeToken(b.ChangeId)
	case *vim.VirtualDiskSeSparseBackingInfo:
		disk.ChangeID = types.ChangeToken(b.ChangeId)
	case *vim.VirtualDiskSparseVer2BackingInfo:
		disk.ChangeID = types.ChangeToken(b.ChangeId)
	case *vim.VirtualDiskRawDiskMappingVer1BackingInfo:
		disk.ChangeID = types.ChangeToken(b.ChangeId)
	}
	return disk
}

// Lookup finds vmName and resolves id as captured by snapshot.
func (c *Client) Lookup(ctx context.Context, vmName, snapshot string, id device.DiskID) (tracker.DiskHandle, error) {
	vm, err := c.FindVM(ctx, vmName)
	if err != nil {
		return tracker.DiskHandle{}, err
	}
	return c.ResolveDisk(ctx, vm, snapshot, id)
}

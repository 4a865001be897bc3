// Package device resolves a "scsi<bus>:<unit>" identifier to a virtual disk
// within a virtual machine's device list.
//
// Hypervisor configurations are reduced to a closed set of device records
// (SCSIController, VirtualDisk, Other). FindDisk is the only lookup over
// those records; Resolve layers the snapshot-before-live preference on top.
package device

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/joshuapare/cbtkit/pkg/types"
)

var diskIDPattern = regexp.MustCompile(`^scsi(\d+):(\d+)$`)

// DiskID addresses a disk by SCSI bus number and unit number.
type DiskID struct {
	Bus  int
	Unit int
}

// ParseDiskID parses "scsi<bus>:<unit>". Anything else, including numbers
// that do not fit in 32 bits, is an ErrKindFormat error.
func ParseDiskID(s string) (DiskID, error) {
	m := diskIDPattern.FindStringSubmatch(s)
	if m == nil {
		return DiskID{}, types.Errorf(types.ErrKindFormat, "unsupported disk id %q: want scsi<bus>:<unit>", s)
	}
	bus, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return DiskID{}, types.Wrap(types.ErrKindFormat, err, fmt.Sprintf("disk id %q: bus number", s))
	}
	unit, err := strconv.ParseInt(m[2], 10, 32)
	if err != nil {
		return DiskID{}, types.Wrap(types.ErrKindFormat, err, fmt.Sprintf("disk id %q: unit number", s))
	}
	return DiskID{Bus: int(bus), Unit: int(unit)}, nil
}

func (id DiskID) String() string {
	return fmt.Sprintf("scsi%d:%d", id.Bus, id.Unit)
}

// Device is one entry of a virtual machine's hardware list. The set of
// implementations is closed: SCSIController, VirtualDisk and Other.
type Device interface {
	DeviceKey() int32
	device()
}

// SCSIController is a SCSI host adapter.
type SCSIController struct {
	Key int32
	Bus int
}

// VirtualDisk is a disk attached to a controller.
type VirtualDisk struct {
	Key           int32
	ControllerKey int32
	Unit          int // -1 when the hypervisor reports no unit number
	CapacityBytes uint64
	BackingFile   string            // e.g. "[datastore1] vm/vm-000001.vmdk"
	ChangeID      types.ChangeToken // CBT change id of the backing, if tracking is enabled
}

// Other is any device that plays no part in disk resolution.
type Other struct {
	Key   int32
	Label string
}

func (c SCSIController) DeviceKey() int32 { return c.Key }
func (d VirtualDisk) DeviceKey() int32    { return d.Key }
func (o Other) DeviceKey() int32          { return o.Key }

func (SCSIController) device() {}
func (VirtualDisk) device()    {}
func (Other) device()          {}

// FindDisk returns the disk attached at id.Unit to the SCSI controller on
// id.Bus. A missing disk is an ErrKindLookup error.
func FindDisk(devices []Device, id DiskID) (VirtualDisk, error) {
	busByController := make(map[int32]int)
	for _, dev := range devices {
		if c, ok := dev.(SCSIController); ok {
			busByController[c.Key] = c.Bus
		}
	}

	for _, dev := range devices {
		d, ok := dev.(VirtualDisk)
		if !ok {
			continue
		}
		bus, ok := busByController[d.ControllerKey]
		if ok && bus == id.Bus && d.Unit == id.Unit {
			return d, nil
		}
	}
	return VirtualDisk{}, types.Errorf(types.ErrKindLookup, "virtual disk not found for %s", id)
}

// Scope names the configuration a disk was resolved from.
type Scope string

const (
	ScopeSnapshot Scope = "snapshot"
	ScopeLive     Scope = "live"
)

// Match is a resolved disk and the configuration it came from.
type Match struct {
	Disk  VirtualDisk
	Scope Scope
}

// Resolve looks id up in the snapshot's point-in-time configuration. The live
// configuration is consulted only when the snapshot configuration is
// unavailable (nil); a disk missing from an available snapshot configuration
// is an ErrKindLookup error, never a reason to fall back, because the live
// backing file may differ from the one captured by the snapshot.
func Resolve(id DiskID, snapshot, live []Device) (Match, error) {
	if snapshot != nil {
		d, err := FindDisk(snapshot, id)
		if err != nil {
			return Match{}, fmt.Errorf("snapshot configuration: %w", err)
		}
		return Match{Disk: d, Scope: ScopeSnapshot}, nil
	}
	if live == nil {
		return Match{}, types.Errorf(types.ErrKindLookup, "no device configuration available for %s", id)
	}
	d, err := FindDisk(live, id)
	if err != nil {
		return Match{}, fmt.Errorf("live configuration: %w", err)
	}
	return Match{Disk: d, Scope: ScopeLive}, nil
}

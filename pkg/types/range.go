package types

import (
	"fmt"
	"math"
)

// Range is the half-open byte interval [Offset, Offset+Length) on a disk.
//
// A valid Range has Length > 0 and an End that fits in a uint64. Build ranges
// with NewRange at every ingestion boundary; the zero value is not valid.
type Range struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// NewRange validates and returns a Range. Zero-length and overflowing ranges
// are rejected with ErrKindFormat.
func NewRange(offset, length uint64) (Range, error) {
	if length == 0 {
		return Range{}, Errorf(ErrKindFormat, "range at offset %d has zero length", offset)
	}
	if offset > math.MaxUint64-length {
		return Range{}, Errorf(ErrKindFormat, "range at offset %d with length %d overflows", offset, length)
	}
	return Range{Offset: offset, Length: length}, nil
}

// End returns the exclusive end offset.
func (r Range) End() uint64 { return r.Offset + r.Length }

// Valid reports whether r satisfies the NewRange invariants.
func (r Range) Valid() bool {
	return r.Length > 0 && r.Offset <= math.MaxUint64-r.Length
}

// Overlaps reports whether r and o share at least one byte.
func (r Range) Overlaps(o Range) bool {
	return r.Offset < o.End() && o.Offset < r.End()
}

// Contains reports whether o lies entirely inside r.
func (r Range) Contains(o Range) bool {
	return o.Offset >= r.Offset && o.End() <= r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Offset, r.End())
}

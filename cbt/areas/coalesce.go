package areas

import (
	"math"
	"sort"

	"github.com/joshuapare/cbtkit/pkg/types"
)

// Coalesce sorts ranges by offset and merges every range whose offset lies
// within gap bytes of the current region's end.
//
// The result is strictly increasing by offset, pairwise disjoint, and
// consecutive regions are more than gap bytes apart. Its coverage is a
// superset of the input coverage. Zero-length entries cover nothing and are
// skipped. The input slice is not modified.
func Coalesce(ranges []types.Range, gap uint64) []types.Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]types.Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Length == 0 {
			continue
		}
		sorted = append(sorted, r)
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	merged := make([]types.Range, 0, len(sorted))
	start := sorted[0].Offset
	end := sorted[0].End()

	for _, next := range sorted[1:] {
		if next.Offset <= saturatingAdd(end, gap) {
			if e := next.End(); e > end {
				end = e
			}
			continue
		}
		merged = append(merged, types.Range{Offset: start, Length: end - start})
		start, end = next.Offset, next.End()
	}

	merged = append(merged, types.Range{Offset: start, Length: end - start})
	return merged
}

// Validate checks that regions form a consolidated set for gap: every region
// valid, strictly ascending, and separated by more than gap bytes.
func Validate(regions []types.Range, gap uint64) error {
	for i, r := range regions {
		if !r.Valid() {
			return types.Errorf(types.ErrKindFormat, "region %d %v is not a valid range", i, r)
		}
		if i == 0 {
			continue
		}
		prev := regions[i-1]
		if r.Offset <= saturatingAdd(prev.End(), gap) {
			return types.Errorf(types.ErrKindFormat,
				"region %d %v is within %d bytes of region %d %v", i, r, gap, i-1, prev)
		}
	}
	return nil
}

// Covers reports whether every byte of inner lies inside some region of
// outer. outer must be consolidated (sorted and disjoint).
func Covers(outer, inner []types.Range) bool {
	for _, r := range inner {
		if r.Length == 0 {
			continue
		}
		// First region whose end is past r.Offset.
		i := sort.Search(len(outer), func(i int) bool {
			return outer[i].End() > r.Offset
		})
		if i == len(outer) || !outer[i].Contains(r) {
			return false
		}
	}
	return true
}

// TotalBytes sums the lengths of ranges.
func TotalBytes(ranges []types.Range) uint64 {
	var total uint64
	for _, r := range ranges {
		total += r.Length
	}
	return total
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// Package areas consolidates changed-block-tracking extents into the regions
// that are actually replicated.
//
// # Coalescing
//
// A changed-area query returns an unordered list of byte ranges. Copying them
// one by one issues many small I/O operations, so Coalesce sorts the ranges
// and merges every range that starts within gap bytes of the end of the
// current region:
//
//	in:  [0,1000) [1500,2000)        gap = 1 MiB
//	out: [0,2000)
//
// Merging never drops bytes. It may widen coverage across tolerated gaps,
// which costs a few extra bytes of copying in exchange for fewer seeks.
//
// # Documents
//
// The areas document is the JSON exchanged between the query and apply
// stages:
//
//	{"areas": [{"offset": 0, "length": 65536}, ...], "change_id": "52/..."}
//
// ParseDocument validates it against an embedded JSON schema before decoding
// so malformed input is reported as a format error rather than a panic deep in
// the copy loop.
package areas

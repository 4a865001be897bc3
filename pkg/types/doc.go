// Package types defines the small value types shared by every cbtkit
// package: byte ranges on a virtual disk, change-tracking tokens, and the
// typed error taxonomy.
//
// Design goals:
//   - Ranges are plain values; validity is enforced at construction.
//   - Tokens are opaque and only ever handed back to the collaborator that
//     issued them.
//   - Errors carry a stable Kind so callers branch on intent rather than text.
//
// This package has no dependencies beyond the standard library.
package types

// Package tracker implements the change-tracking epoch protocol that ties one
// sync cycle's output token to the next cycle's input token.
//
// # States
//
// A disk is either Uninitialized (no token recorded, queries use the wildcard
// "*" and return full coverage) or Tracking (the token returned by the last
// fully successful cycle). SyncState models both.
//
// # Cycle
//
//	previous := state.QueryToken()              // "*" when Uninitialized
//	resp := query.QueryChangedAreas(disk, previous)
//	regions := areas.Coalesce(resp.Areas, gap)
//	replicator.Replicate(src, dst, regions)
//	next := Tracking(resp.NewToken)             // only if resolved and copied
//
// A token is adopted only together with a confirmed, complete area list that
// has been fully copied. Any failure leaves the caller's state at the previous
// token so the next attempt re-queries the same baseline. The tracker never
// guesses a different baseline: copying "changes since T" is only correct if
// the target already reflects T.
//
// # Persistence
//
// The tracker does not own durable storage. Sync returns the candidate next
// state; RunCycle reads a StateStore before the cycle and writes it only after
// the cycle fully succeeded with a resolved token.
package tracker

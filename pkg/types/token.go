package types

// ChangeToken is an opaque change-tracking epoch marker issued by the
// hypervisor. Tokens have no client-side ordering; they are only passed back
// to the collaborator that issued them.
type ChangeToken string

// WildcardToken requests changes relative to no prior baseline, i.e. a
// full-coverage query.
const WildcardToken ChangeToken = "*"

// IsWildcard reports whether t is the full-baseline sentinel.
func (t ChangeToken) IsWildcard() bool { return t == WildcardToken }

// IsZero reports whether t is absent.
func (t ChangeToken) IsZero() bool { return t == "" }

func (t ChangeToken) String() string { return string(t) }

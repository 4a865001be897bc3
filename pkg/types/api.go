package types

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Typed Errors (stable categories for programmatic handling)
// -----------------------------------------------------------------------------

// ErrKind classifies errors so callers can branch on intent rather than text.
type ErrKind int

const (
	ErrKindConfig ErrKind = iota // required connection/identifier input missing or malformed
	ErrKindLookup                // named VM, snapshot or disk device could not be resolved
	ErrKindQuery                 // changed-area query failed or returned an unusable response
	ErrKindIO                    // missing file, short read, or write failure
	ErrKindFormat                // malformed areas document, range, or disk identifier
)

// String implements the Stringer interface for ErrKind.
func (k ErrKind) String() string {
	switch k {
	case ErrKindConfig:
		return "ConfigError"
	case ErrKindLookup:
		return "LookupError"
	case ErrKindQuery:
		return "QueryError"
	case ErrKindIO:
		return "IOError"
	case ErrKindFormat:
		return "FormatError"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is a typed error with an optional underlying cause.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error // optional underlying cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrKind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and msg to err. A nil err yields nil.
func Wrap(kind ErrKind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) (ErrKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ShortReadError reports that the source stream yielded fewer bytes than were
// requested while more data remained to be copied.
type ShortReadError struct {
	Offset uint64 // absolute offset of the failed read
	Want   uint64
	Got    uint64
	Cause  error // io.EOF / io.ErrUnexpectedEOF or the reader's own error
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read at %d: expected %d, got %d", e.Offset, e.Want, e.Got)
}

func (e *ShortReadError) Unwrap() error { return e.Cause }

// NewShortReadError returns an ErrKindIO error wrapping a *ShortReadError.
func NewShortReadError(offset, want, got uint64, cause error) error {
	return &Error{
		Kind: ErrKindIO,
		Msg:  "replicate",
		Err:  &ShortReadError{Offset: offset, Want: want, Got: got, Cause: cause},
	}
}

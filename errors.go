package monument

import (
	"errors"
	"fmt"
)

// Kind classifies the error taxonomy of the pipeline (see spec §7).
type Kind int

const (
	// KindUnknown is the zero value; never constructed deliberately.
	KindUnknown Kind = iota
	// KindBadFormat indicates unparseable mapping text or jar entry.
	KindBadFormat
	// KindInconsistentMappings indicates a merge found conflicting name vectors.
	KindInconsistentMappings
	// KindMissingClass indicates a mapping referenced a class absent from the jar.
	KindMissingClass
	// KindIO indicates a transient or permanent disk/network failure.
	KindIO
	// KindIntegrityFailure indicates a jar integrity check failed.
	KindIntegrityFailure
	// KindUnsupported indicates an operation the implementation declines to perform.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindBadFormat:
		return "BadFormat"
	case KindInconsistentMappings:
		return "InconsistentMappings"
	case KindMissingClass:
		return "MissingClass"
	case KindIO:
		return "IO"
	case KindIntegrityFailure:
		return "IntegrityFailure"
	case KindUnsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// Error carries a Kind alongside the operation that failed and the
// underlying cause, in the spirit of the teacher's mixed use of
// github.com/pkg/errors wrapping and stdlib %w.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so that
// errors.Is(err, &Error{Kind: KindBadFormat}) matches any BadFormat
// error; KindOf extracts the Kind directly.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// NewError constructs a taxonomy error for op, wrapping cause.
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// NewErrorIfNotNil wraps cause in a KindIO *Error unless cause is nil,
// in which case it returns nil — a small helper for "return the wrapped
// error from this last call" call sites.
func NewErrorIfNotNil(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return NewError(KindIO, op, cause)
}

// KindOf extracts the Kind of err if it (or something it wraps) is a
// *Error, and KindUnknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

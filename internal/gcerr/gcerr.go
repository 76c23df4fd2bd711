// Package gcerr defines the fatal error kinds shared by the type store and
// the collector: a collector that keeps running after detecting an
// invariant violation only corrupts the embedding program further, so these
// are always raised by panicking rather than returned.
package gcerr

import "fmt"

// Kind identifies one of the fatal error conditions this module can raise.
type Kind string

const (
	// OutOfMemoryFatal: a new segment could not be obtained from the
	// platform allocator.
	OutOfMemoryFatal Kind = "OutOfMemoryFatal"
	// UnknownTypeCategory: an object header's type tag does not match any
	// known category during mark or sweep — heap corruption.
	UnknownTypeCategory Kind = "UnknownTypeCategory"
	// ClassNotFound: a class-by-name lookup missed.
	ClassNotFound Kind = "ClassNotFound"
	// MalformedField: a field or array-content type is not recognized by
	// the layout engine.
	MalformedField Kind = "MalformedField"
	// MissingPayload: an array's content payload has no owning segment
	// during sweep, which would otherwise mean dereferencing garbage; this
	// is raised as a fatal invariant violation instead.
	MissingPayload Kind = "MissingPayload"
)

// Error is the panic value used for every fatal condition in this module.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gctest: %s: %s", e.Kind, e.Message)
}

// Fatal panics with an *Error of the given kind, formatting Message like
// fmt.Sprintf.
func Fatal(kind Kind, format string, args ...interface{}) {
	panic(&Error{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

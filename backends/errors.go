package backends

import "errors"

// Common storage errors
var (
	// ErrNotFound is returned by read and delete operations on names with no
	// backing file or object. Listing operations return empty results
	// instead of this error.
	ErrNotFound = errors.New("file not found")

	// ErrSuspiciousOperation is returned when a name fails validation or a
	// resolved path escapes the storage root. It signals a potential attack
	// or programming bug, never a transient condition, and must not be
	// retried or swallowed.
	ErrSuspiciousOperation = errors.New("suspicious operation")

	// ErrInvalidMode is returned when an operation is attempted on a handle
	// whose open mode does not allow it.
	ErrInvalidMode = errors.New("invalid file mode")
)

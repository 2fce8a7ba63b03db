// Package backends provides storage backend adapters and interfaces for
// nondjango-storages. It includes implementations for the local filesystem
// and S3-compatible object storage, all addressed through caller-supplied
// logical names that are validated against the backend's root before any
// I/O happens.
package backends

import (
	"bytes"
	"context"
	"io"
)

// Entry is a single result of enumerating a storage path: a backend-chosen
// content fingerprint (MD5 digest for the filesystem, ETag for object
// storage) and a path relative to the enumerated root. Listing a single
// existing file produces exactly one Entry with an empty Path.
type Entry struct {
	Fingerprint string
	Path        string
}

// Storage defines the interface for backend storage operations.
// Implementations resolve every name against their root and reject names
// that would escape it with ErrSuspiciousOperation before touching the
// backend.
type Storage interface {
	// ValidName maps a logical name into backend-native addressing, or
	// rejects it. The filesystem backend returns the validated relative
	// path; the object storage backend returns a fully qualified
	// "s3://bucket/prefix/name" string.
	ValidName(name string) (string, error)

	// Open validates the name and binds it to a File handle in the given
	// mode. No I/O is performed until the handle is used.
	Open(name, mode string) (*File, error)

	// ReadIntoStream reads the full contents of the named file into an
	// in-memory buffer, rewound to the start.
	ReadIntoStream(ctx context.Context, name string) (*bytes.Reader, error)

	// Write overwrites the named file with the full contents of r, creating
	// any missing parents (or the bucket) on the way.
	Write(ctx context.Context, r io.Reader, name string) error

	// Delete removes the named file.
	Delete(ctx context.Context, name string) error

	// List enumerates every file under path, depth first, as
	// (fingerprint, relative path) pairs. A path naming a single existing
	// file yields one Entry with an empty relative path; a path naming
	// nothing yields an empty result, not an error.
	List(ctx context.Context, path string) ([]Entry, error)

	// ListDir returns the immediate directories and files under path, one
	// level only. A missing path yields two empty lists.
	ListDir(ctx context.Context, path string) (dirs []string, files []string, err error)

	// Exists reports whether the name's basename appears among the files of
	// its parent directory.
	Exists(ctx context.Context, name string) (bool, error)

	// Close releases backend resources held on behalf of the handle. A
	// no-op for both current backends, kept as an extension point.
	Close(f *File) error
}

// Package pathutil provides secure path handling for nondjango-storages.
// All functions operate on forward-slash separated paths, regardless of the
// host OS: logical names are POSIX-style by contract, and object-storage
// keys always use '/'.
package pathutil

import (
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotContained is returned by SafeJoin when the joined path resolves
	// outside the base path component.
	ErrNotContained = errors.New("joined path is located outside of the base path")

	// ErrUnsafeName is returned by ValidName for names that are absolute,
	// contain NUL bytes, or normalize to a parent-directory escape.
	ErrUnsafeName = errors.New("unsafe path name")
)

// SafeJoin joins one or more path components to the base path component and
// returns a normalized version of the final path. The final path must be
// located inside of the base path component, otherwise ErrNotContained is
// returned. Paths outside the base path indicate a possible security
// sensitive operation.
//
// The result preserves whether base is absolute, preserves a trailing
// separator when the last element demands one, and is never ambiguous with a
// sibling path that merely shares base as a string prefix: joining nothing
// but empty elements yields base plus a trailing separator.
func SafeJoin(base string, elems ...string) (string, error) {
	startsOnRoot := strings.HasPrefix(base, "/")
	basePath := strings.TrimRight(base, "/")

	finalPath := basePath + "/"
	for _, elem := range elems {
		next := path.Clean(joinPosix(finalPath, elem))
		// path.Clean strips the trailing separator. Add it back when the
		// element asked for one, or when the element collapsed away entirely.
		if strings.HasSuffix(elem, "/") || next+"/" == finalPath {
			next += "/"
		}
		finalPath = next
	}
	if finalPath == basePath {
		finalPath += "/"
	}

	// Ensure finalPath starts with basePath and that the next character after
	// the base path is the separator, so "/base" never matches "/base-evil".
	if !strings.HasPrefix(finalPath, basePath) ||
		len(finalPath) <= len(basePath) || finalPath[len(basePath)] != '/' {
		return "", ErrNotContained
	}

	if startsOnRoot {
		return finalPath, nil
	}
	return strings.TrimLeft(finalPath, "/"), nil
}

// ValidName computes the relative form of a caller-supplied name without
// touching the filesystem and rejects names that could escape a storage
// root. This is a pre-check: backends still run the full containment check
// in SafeJoin before any I/O, and neither check may be removed.
func ValidName(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	// NUL bytes can be used to truncate paths at lower layers.
	if strings.ContainsRune(name, 0) {
		return "", ErrUnsafeName
	}
	if strings.HasPrefix(name, "/") {
		return "", ErrUnsafeName
	}
	walked := path.Clean(name)
	if walked == ".." || strings.HasPrefix(walked, "../") {
		return "", ErrUnsafeName
	}
	return walked, nil
}

// CollapseSlashes folds any run of repeated separators into a single one.
// It must only be applied after a URI scheme has been stripped.
func CollapseSlashes(s string) string {
	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}
	return s
}

// joinPosix is posixpath.join for exactly two components: an absolute second
// component replaces the first.
func joinPosix(a, b string) string {
	if strings.HasPrefix(b, "/") {
		return b
	}
	if a == "" || strings.HasSuffix(a, "/") {
		return a + b
	}
	return a + "/" + b
}

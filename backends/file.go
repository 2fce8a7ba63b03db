package backends

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// File is a thin, backend-agnostic handle binding a validated name to its
// owning storage and an open mode. Handles are cheap: they hold no open
// resources and defer all I/O to the backend, which re-resolves the name on
// every operation.
//
// Mode strings follow the stdio convention: "r", "rb", "w", "wb", "a", and
// "+" combinations. Reading requires 'r' or '+'; writing requires 'w', 'a'
// or '+'. Writes always replace the full contents; append mode is accepted
// but behaves as overwrite.
type File struct {
	name    string
	mode    string
	storage Storage
}

// NewFile binds an already-validated name to a storage backend. Callers
// normally go through Storage.Open instead.
func NewFile(name string, storage Storage, mode string) *File {
	return &File{name: name, mode: mode, storage: storage}
}

// Name returns the backend-native name the handle is bound to.
func (f *File) Name() string {
	return f.name
}

// Mode returns the open mode.
func (f *File) Mode() string {
	return f.mode
}

func (f *File) readable() bool {
	return strings.ContainsAny(f.mode, "r+")
}

func (f *File) writable() bool {
	return strings.ContainsAny(f.mode, "wa+")
}

// Read returns the full contents of the file.
func (f *File) Read(ctx context.Context) ([]byte, error) {
	if !f.readable() {
		return nil, fmt.Errorf("%w: file not open for reading", ErrInvalidMode)
	}
	stream, err := f.storage.ReadIntoStream(ctx, f.name)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(stream)
}

// ReadString returns the full contents of the file decoded as UTF-8 text.
func (f *File) ReadString(ctx context.Context) (string, error) {
	data, err := f.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the contents of the file with data.
func (f *File) Write(ctx context.Context, data []byte) error {
	if !f.writable() {
		return fmt.Errorf("%w: file not open for writing", ErrInvalidMode)
	}
	return f.storage.Write(ctx, bytes.NewReader(data), f.name)
}

// WriteString replaces the contents of the file with the UTF-8 encoding of s.
func (f *File) WriteString(ctx context.Context, s string) error {
	return f.Write(ctx, []byte(s))
}

// Exists reports whether the file has at least one listing entry.
func (f *File) Exists(ctx context.Context) (bool, error) {
	entries, err := f.storage.List(ctx, f.name)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// MD5 returns the content fingerprint of the file from its single listing
// entry. When the file does not exist it returns ErrNotFound if required is
// true, or an empty fingerprint otherwise.
func (f *File) MD5(ctx context.Context, required bool) (string, error) {
	entries, err := f.storage.List(ctx, f.name)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		if required {
			return "", fmt.Errorf("%w: %s", ErrNotFound, f.name)
		}
		return "", nil
	}
	return entries[0].Fingerprint, nil
}

// Close invokes the backend's release hook. Both current backends hold no
// per-handle resources, but callers should still defer Close so future
// backends can.
func (f *File) Close() error {
	return f.storage.Close(f)
}

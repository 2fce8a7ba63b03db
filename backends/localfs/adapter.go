// Package localfs implements the backends.Storage interface against a local
// filesystem working directory.
package localfs

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/getninjas/nondjango-storages/backends"
	"github.com/getninjas/nondjango-storages/internal/pathutil"
	"github.com/getninjas/nondjango-storages/metrics"
)

const backendType = "localfs"

// Adapter implements the backends.Storage interface for the local
// filesystem. All names are resolved against the working directory and
// rejected when they would escape it.
type Adapter struct {
	workdir string
	temp    bool
	once    sync.Once
	initErr error
	logger  *zap.Logger
}

// NewAdapter creates a filesystem adapter rooted at workdir. An empty
// workdir defaults to the process working directory. A nil logger disables
// logging.
func NewAdapter(workdir string, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workdir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workdir = wd
	}
	return &Adapter{workdir: workdir, logger: logger}, nil
}

// NewTempAdapter creates a filesystem adapter rooted at a temporary scratch
// directory, materialized lazily on first use.
func NewTempAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{temp: true, logger: logger}
}

// Workdir returns the adapter's root directory, creating the temporary
// scratch directory if it has not been materialized yet.
func (a *Adapter) Workdir() (string, error) {
	if a.temp {
		a.once.Do(func() {
			dir, err := os.MkdirTemp("", "storages-")
			if err != nil {
				a.initErr = fmt.Errorf("failed to create temporary workdir: %w", err)
				return
			}
			a.logger.Debug("created temporary workdir", zap.String("workdir", dir))
			a.workdir = dir
		})
		if a.initErr != nil {
			return "", a.initErr
		}
	}
	return a.workdir, nil
}

// ValidName returns the validated relative form of name. Resolution against
// the working directory happens later, inside each operation.
func (a *Adapter) ValidName(name string) (string, error) {
	valid, err := pathutil.ValidName(name)
	if err != nil {
		metrics.SuspiciousOperationsTotal.WithLabelValues(backendType).Inc()
		return "", fmt.Errorf("%w: attempted access to %q denied", backends.ErrSuspiciousOperation, name)
	}
	return valid, nil
}

// normalizeName resolves name against the working directory with a full
// containment check. This runs on every operation even though ValidName has
// already vetted the name.
func (a *Adapter) normalizeName(name string) (string, error) {
	root, err := a.Workdir()
	if err != nil {
		return "", err
	}
	full, err := pathutil.SafeJoin(root, name)
	if err != nil {
		metrics.SuspiciousOperationsTotal.WithLabelValues(backendType).Inc()
		return "", fmt.Errorf("%w: attempted access to %q denied", backends.ErrSuspiciousOperation, name)
	}
	return full, nil
}

// Open validates the name and binds it to a handle. The disk is not touched.
func (a *Adapter) Open(name, mode string) (*backends.File, error) {
	valid, err := a.ValidName(name)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("opening file", zap.String("name", valid))
	return backends.NewFile(valid, a, mode), nil
}

// ReadIntoStream reads the full contents of the named file into memory.
func (a *Adapter) ReadIntoStream(ctx context.Context, name string) (_ *bytes.Reader, err error) {
	defer metrics.ObserveBackendOp(backendType, "read", time.Now(), &err)

	fullPath, err := a.normalizeName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", backends.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}

// Write overwrites the named file with the contents of r, creating any
// missing parent directories.
func (a *Adapter) Write(ctx context.Context, r io.Reader, name string) (err error) {
	defer metrics.ObserveBackendOp(backendType, "write", time.Now(), &err)

	fullPath, err := a.normalizeName(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for writing: %w", name, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("failed to write file content: %w", err)
	}
	a.logger.Info("wrote file", zap.String("path", fullPath))
	return nil
}

// Delete removes the named file.
func (a *Adapter) Delete(ctx context.Context, name string) (err error) {
	defer metrics.ObserveBackendOp(backendType, "delete", time.Now(), &err)

	fullPath, err := a.normalizeName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", backends.ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// List enumerates files under path as (MD5, relative path) pairs. A path
// naming a single file yields one entry with an empty relative path; a path
// naming nothing yields an empty result.
func (a *Adapter) List(ctx context.Context, path string) (_ []backends.Entry, err error) {
	defer metrics.ObserveBackendOp(backendType, "list", time.Now(), &err)

	fullPath, err := a.normalizeName(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		sum, err := fileMD5(fullPath)
		if err != nil {
			return nil, err
		}
		// The relative path of a file to itself is empty, matching the
		// object storage backend's behavior.
		return []backends.Entry{{Fingerprint: sum, Path: ""}}, nil
	}

	base := strings.TrimSuffix(fullPath, "/")
	var entries []backends.Entry
	walkErr := filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		sum, err := fileMD5(p)
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, base), "/")
		entries = append(entries, backends.Entry{Fingerprint: sum, Path: rel})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, walkErr)
	}
	return entries, nil
}

// ListDir returns the immediate directories and files under path, one level
// only. A path naming nothing, or not naming a directory, yields two empty
// lists.
func (a *Adapter) ListDir(ctx context.Context, path string) (dirs []string, files []string, err error) {
	defer metrics.ObserveBackendOp(backendType, "listdir", time.Now(), &err)

	fullPath, err := a.normalizeName(path)
	if err != nil {
		return nil, nil, err
	}

	if info, statErr := os.Stat(fullPath); statErr != nil || !info.IsDir() {
		return nil, nil, nil
	}

	dirEntries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}
	return dirs, files, nil
}

// Exists reports whether name's basename appears among the files of its
// parent directory.
func (a *Adapter) Exists(ctx context.Context, name string) (bool, error) {
	dirname, filename := splitName(name)
	_, files, err := a.ListDir(ctx, dirname)
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f == filename {
			return true, nil
		}
	}
	return false, nil
}

// Close releases per-handle resources. Nothing to release for local files.
func (a *Adapter) Close(f *backends.File) error {
	return nil
}

func splitName(name string) (dir, base string) {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

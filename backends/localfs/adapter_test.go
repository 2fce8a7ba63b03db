package localfs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getninjas/nondjango-storages/backends"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(t.TempDir(), nil)
	require.NoError(t, err)
	return a
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("test_file.txt", "w")
	require.NoError(t, err)
	require.NoError(t, f.WriteString(ctx, "test payload"))
	require.NoError(t, f.Close())

	f, err = adapter.Open("test_file.txt", "r")
	require.NoError(t, err)
	defer f.Close()

	exists, err := f.Exists(ctx)
	require.NoError(t, err)
	require.True(t, exists)

	content, err := f.ReadString(ctx)
	require.NoError(t, err)
	require.Equal(t, "test payload", content)
}

func TestWriteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("repeat.txt", "r+")
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Write(ctx, []byte("same bytes")))
	require.NoError(t, f.Write(ctx, []byte("same bytes")))

	content, err := f.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("same bytes"), content)

	exists, err := adapter.Exists(ctx, "repeat.txt")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("deep/nested/dir/file.txt", "w")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteString(ctx, "nested"))

	content, err := f.ReadString(ctx)
	require.NoError(t, err)
	require.Equal(t, "nested", content)
}

func TestOpenRejectsTraversal(t *testing.T) {
	adapter := newTestAdapter(t)

	_, err := adapter.Open("../evil.txt", "r")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)

	_, err = adapter.Open("../../../../etc/passwd", "r")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)

	_, err = adapter.Open("/etc/passwd", "r")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)
}

func TestOperationsRejectTraversal(t *testing.T) {
	// The containment check runs inside every operation, independently of
	// the ValidName pre-check used by Open.
	ctx := context.Background()
	adapter := newTestAdapter(t)

	_, err := adapter.ReadIntoStream(ctx, "../escape.txt")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)

	err = adapter.Delete(ctx, "dir/../../escape.txt")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)

	_, err = adapter.List(ctx, "../..")
	require.ErrorIs(t, err, backends.ErrSuspiciousOperation)
}

func TestReadMissingFile(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	_, err := adapter.ReadIntoStream(ctx, "never_written.txt")
	require.ErrorIs(t, err, backends.ErrNotFound)
}

func TestDeleteMissingFile(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	err := adapter.Delete(ctx, "never_written.txt")
	require.ErrorIs(t, err, backends.ErrNotFound)
}

func TestDeleteRemovesFile(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("doomed.txt", "w")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteString(ctx, "bye"))

	require.NoError(t, adapter.Delete(ctx, "doomed.txt"))

	exists, err := adapter.Exists(ctx, "doomed.txt")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListDirectory(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	for name, content := range map[string]string{
		"dir/a.txt":     "alpha",
		"dir/b.txt":     "beta",
		"dir/sub/c.txt": "gamma",
	} {
		f, err := adapter.Open(name, "w")
		require.NoError(t, err)
		require.NoError(t, f.WriteString(ctx, content))
		require.NoError(t, f.Close())
	}

	entries, err := adapter.List(ctx, "dir")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	require.Equal(t, []string{"a.txt", "b.txt", "sub/c.txt"}, paths)

	wantSum := md5.Sum([]byte("alpha"))
	for _, e := range entries {
		if e.Path == "a.txt" {
			require.Equal(t, hex.EncodeToString(wantSum[:]), e.Fingerprint)
		}
	}
}

func TestListSingleFile(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("single.txt", "w")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteString(ctx, "solo"))

	entries, err := adapter.List(ctx, "single.txt")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// The relative path of a file to itself is empty.
	require.Empty(t, entries[0].Path)

	wantSum := md5.Sum([]byte("solo"))
	require.Equal(t, hex.EncodeToString(wantSum[:]), entries[0].Fingerprint)
}

func TestListMissingPath(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	entries, err := adapter.List(ctx, "no/such/path")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListDir(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	for _, name := range []string{"top.txt", "dir/nested.txt", "other/deep/leaf.txt"} {
		f, err := adapter.Open(name, "w")
		require.NoError(t, err)
		require.NoError(t, f.WriteString(ctx, "x"))
		require.NoError(t, f.Close())
	}

	dirs, files, err := adapter.ListDir(ctx, "")
	require.NoError(t, err)
	sort.Strings(dirs)
	require.Equal(t, []string{"dir", "other"}, dirs)
	require.Equal(t, []string{"top.txt"}, files)
}

func TestListDirMissingPath(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	dirs, files, err := adapter.ListDir(ctx, "nowhere")
	require.NoError(t, err)
	require.Empty(t, dirs)
	require.Empty(t, files)
}

func TestMD5OnHandle(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)

	f, err := adapter.Open("hashed.txt", "r+")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.MD5(ctx, true)
	require.ErrorIs(t, err, backends.ErrNotFound)

	require.NoError(t, f.WriteString(ctx, "fingerprint me"))
	wantSum := md5.Sum([]byte("fingerprint me"))
	sum, err := f.MD5(ctx, true)
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(wantSum[:]), sum)
}

func TestTempAdapterLazyWorkdir(t *testing.T) {
	ctx := context.Background()
	adapter := NewTempAdapter(nil)

	workdir, err := adapter.Workdir()
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(workdir) })

	// Repeated calls return the same materialized root.
	again, err := adapter.Workdir()
	require.NoError(t, err)
	require.Equal(t, workdir, again)

	f, err := adapter.Open("scratch.txt", "w")
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteString(ctx, "scratch"))

	_, err = os.Stat(filepath.Join(workdir, "scratch.txt"))
	require.NoError(t, err)
}

func TestDefaultWorkdirIsProcessCwd(t *testing.T) {
	adapter, err := NewAdapter("", nil)
	require.NoError(t, err)

	cwd, err := os.Getwd()
	require.NoError(t, err)

	workdir, err := adapter.Workdir()
	require.NoError(t, err)
	require.Equal(t, cwd, workdir)
}

// Package fsutil wraps go-billy filesystems with the handful of operations the
// batch services need: sorted listings, existence checks and copies that keep
// file metadata.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// osFS is the OS filesystem rooted at "/". go-billy's osfs does not expose
// billy.Change, so metadata changes go straight to the os package.
type osFS struct {
	billy.Filesystem
}

// NewOSFS returns a filesystem rooted at "/" so callers can pass absolute
// paths straight through.
func NewOSFS() billy.Filesystem {
	return &osFS{Filesystem: osfs.New("/")}
}

func (o *osFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(name, mode)
}

func (o *osFS) Lchown(name string, uid, gid int) error {
	return os.Lchown(name, uid, gid)
}

func (o *osFS) Chown(name string, uid, gid int) error {
	return os.Chown(name, uid, gid)
}

func (o *osFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

// NewMemoryFS returns an empty in-memory filesystem for tests.
func NewMemoryFS() billy.Filesystem {
	return memfs.New()
}

// Abs resolves path against the working directory for use with NewOSFS.
func Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}
	return abs, nil
}

// ReadDirSorted lists dir ordered by name.
func ReadDirSorted(fs billy.Filesystem, dir string) ([]os.FileInfo, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	return entries, nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// returned to the caller.
func Exists(fs billy.Filesystem, path string) (bool, error) {
	_, err := fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("billy: stat %q: %w", path, err)
	}
}

// IsDir reports whether path exists and is a directory.
func IsDir(fs billy.Filesystem, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// CopyFile copies src to dst, truncating dst if it exists. Mode and
// modification time are carried over when the filesystem supports it.
// It returns the number of bytes copied.
func CopyFile(fs billy.Filesystem, src, dst string) (int64, error) {
	info, err := fs.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("billy: stat %q: %w", src, err)
	}

	in, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("billy: open %q: %w", src, err)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("billy: mkdirall %q: %w", filepath.Dir(dst), err)
	}

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("billy: create %q: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("copy %q to %q: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("billy: close %q: %w", dst, err)
	}

	if change, ok := fs.(billy.Change); ok {
		// metadata is best effort, the content is already in place
		_ = change.Chmod(dst, info.Mode().Perm())
		_ = change.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return n, nil
}

// CreateFile opens path for writing, creating parent directories first.
func CreateFile(fs billy.Filesystem, path string) (billy.File, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("billy: mkdirall %q: %w", filepath.Dir(path), err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("billy: create %q: %w", path, err)
	}
	return f, nil
}

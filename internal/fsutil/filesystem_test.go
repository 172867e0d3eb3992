package fsutil

import (
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDirSorted(t *testing.T) {
	fs := NewMemoryFS()
	for _, name := range []string{"root/b.txt", "root/a.txt", "root/c/x.txt"} {
		require.NoError(t, util.WriteFile(fs, name, []byte(name), 0o644))
	}

	entries, err := ReadDirSorted(fs, "root")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "c"}, names)
}

func TestReadDirSortedMissing(t *testing.T) {
	_, err := ReadDirSorted(NewMemoryFS(), "nope")
	assert.Error(t, err)
}

func TestExistsAndIsDir(t *testing.T) {
	fs := NewMemoryFS()
	require.NoError(t, util.WriteFile(fs, "d/file", []byte("x"), 0o644))

	ok, err := Exists(fs, "d/file")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(fs, "d/other")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, IsDir(fs, "d"))
	assert.False(t, IsDir(fs, "d/file"))
	assert.False(t, IsDir(fs, "missing"))
}

func TestCopyFileOverwrites(t *testing.T) {
	fs := NewMemoryFS()
	require.NoError(t, util.WriteFile(fs, "src/a.nrrd", []byte("new content"), 0o640))
	require.NoError(t, util.WriteFile(fs, "dst/p/scan.nrrd", []byte("old content that is longer"), 0o644))

	n, err := CopyFile(fs, "src/a.nrrd", "dst/p/scan.nrrd")
	require.NoError(t, err)
	assert.Equal(t, int64(len("new content")), n)

	data, err := util.ReadFile(fs, "dst/p/scan.nrrd")
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))

	// source is untouched
	data, err = util.ReadFile(fs, "src/a.nrrd")
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
}

func TestCopyFileCreatesParents(t *testing.T) {
	fs := NewMemoryFS()
	require.NoError(t, util.WriteFile(fs, "a", []byte("1"), 0o644))

	_, err := CopyFile(fs, "a", "x/y/z/b")
	require.NoError(t, err)
	assert.True(t, IsDir(fs, "x/y/z"))
}

func TestCopyFileMissingSource(t *testing.T) {
	_, err := CopyFile(NewMemoryFS(), "missing", "dst")
	assert.Error(t, err)
}

func TestCopyFilePreservesModTimeOnDisk(t *testing.T) {
	dir := t.TempDir()
	fs := NewOSFS()

	src := dir + "/src.csv"
	require.NoError(t, os.WriteFile(src, []byte("PatientID,a\nP1,1\n"), 0o644))
	info, err := os.Stat(src)
	require.NoError(t, err)

	_, err = CopyFile(fs, src, dir+"/out/dst.csv")
	require.NoError(t, err)

	copied, err := os.Stat(dir + "/out/dst.csv")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(copied.ModTime()))
}

func TestCreateFile(t *testing.T) {
	fs := NewMemoryFS()
	f, err := CreateFile(fs, "deep/dir/out.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := util.ReadFile(fs, "deep/dir/out.csv")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
}

package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/volume"
)

func writeFile(t *testing.T, fs billy.Filesystem, path string, data []byte) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, data, 0o644))
}

func readFile(t *testing.T, fs billy.Filesystem, path string) []byte {
	t.Helper()
	data, err := util.ReadFile(fs, path)
	require.NoError(t, err)
	return data
}

func writeVolume(t *testing.T, fs billy.Filesystem, path string, v *volume.Volume) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, volume.Encode(&buf, v, volume.EncodingGzip))
	writeFile(t, fs, path, buf.Bytes())
}

func readCSV(t *testing.T, fs billy.Filesystem, path string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(readFile(t, fs, path))).ReadAll()
	require.NoError(t, err)
	return rows
}

// cube returns a 4x4x4 scan and a mask labelling its central 2x2x2 cube.
func cube(t *testing.T, components int) (*volume.Volume, *volume.Volume) {
	t.Helper()
	scan, err := volume.New(4, 4, 4, components, volume.Int16)
	require.NoError(t, err)
	for i := range scan.Data {
		scan.Data[i] = float64(i % 50)
	}
	mask, err := volume.New(4, 4, 4, 1, volume.Uint8)
	require.NoError(t, err)
	for z := 1; z <= 2; z++ {
		for y := 1; y <= 2; y++ {
			for x := 1; x <= 2; x++ {
				mask.Set(x, y, z, 0, 1)
			}
		}
	}
	return scan, mask
}

func testLogger() logger.Logger {
	return logger.NewNop()
}

func TestCheckRoot(t *testing.T) {
	fs := fsutil.NewMemoryFS()
	writeFile(t, fs, "file.txt", []byte("x"))
	require.NoError(t, fs.MkdirAll("dir", 0o755))

	assert.NoError(t, checkRoot(fs, "dir"))
	assert.ErrorIs(t, checkRoot(fs, "file.txt"), ErrNotDirectory)
	assert.Error(t, checkRoot(fs, "missing"))
}

func TestPatientDirsSkipsFiles(t *testing.T) {
	fs := fsutil.NewMemoryFS()
	writeFile(t, fs, "root/B/x", nil)
	writeFile(t, fs, "root/A/x", nil)
	writeFile(t, fs, "root/notes.txt", nil)

	dirs, err := patientDirs(fs, "root")
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "A", dirs[0].ID)
	assert.Equal(t, filepath.Join("root", "B"), dirs[1].Path)
}

func TestSafelyRecoversPanic(t *testing.T) {
	err := safely(func() error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.Equal(t, want, safely(func() error { return want }))
}

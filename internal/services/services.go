// Package services implements the batch operations over a tree of patient
// directories (reorganizing raw exports, collecting feature CSVs, extracting
// features) and loads scan/mask pairs for the viewer.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/models"
	"radiomics-toolkit/internal/volume"
)

var ErrNotDirectory = errors.New("not a directory")

// checkRoot fails when root is missing or is not a directory.
func checkRoot(fs billy.Filesystem, root string) error {
	info, err := fs.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to access root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}
	return nil
}

// patientDirs lists the subdirectories of root in name order. Plain files are
// left out.
func patientDirs(fs billy.Filesystem, root string) ([]models.PatientDir, error) {
	entries, err := fsutil.ReadDirSorted(fs, root)
	if err != nil {
		return nil, err
	}
	dirs := make([]models.PatientDir, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, models.PatientDir{ID: e.Name(), Path: filepath.Join(root, e.Name())})
		}
	}
	return dirs, nil
}

func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// safely runs fn and turns a panic into an error so one bad patient cannot
// stop a batch.
func safely(fn func() error) (err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("panic: %v", panicErr)
		}
	}()
	return fn()
}

func readVolume(fs billy.Filesystem, path string) (*volume.Volume, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", path, err)
	}
	defer f.Close()

	v, err := volume.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

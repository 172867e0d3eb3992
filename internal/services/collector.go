package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/models"
)

// CollectorService gathers per-patient feature CSVs and the aggregate CSV
// into a separate tree.
type CollectorService struct {
	fs     billy.Filesystem
	cfg    config.CollectConfig
	logger logger.Logger
}

// NewCollectorService creates a new collector service
func NewCollectorService(fs billy.Filesystem, cfg config.CollectConfig, log logger.Logger) *CollectorService {
	return &CollectorService{fs: fs, cfg: cfg, logger: log}
}

// Collect copies the first CSV of every subdirectory of src into
// dst/<subdirectory>/, and the aggregate CSV at the top of src into dst.
func (cs *CollectorService) Collect(ctx context.Context, src, dst string) (*models.BatchSummary, error) {
	if err := checkRoot(cs.fs, src); err != nil {
		return nil, err
	}
	if err := cs.fs.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination %q: %w", dst, err)
	}

	entries, err := fsutil.ReadDirSorted(cs.fs, src)
	if err != nil {
		return nil, err
	}

	summary := models.NewBatchSummary("collect", src, dst)
	aggregate := strings.ToLower(cs.cfg.AggregateName)

	for _, e := range entries {
		if cancelled(ctx) {
			summary.Cancelled = true
			break
		}

		path := filepath.Join(src, e.Name())
		switch {
		case e.IsDir():
			outcome := cs.collectDir(models.PatientDir{ID: e.Name(), Path: path}, filepath.Join(dst, e.Name()))
			summary.Add(outcome)
		case strings.ToLower(e.Name()) == aggregate:
			target := filepath.Join(dst, e.Name())
			if _, err := fsutil.CopyFile(cs.fs, path, target); err != nil {
				return summary, fmt.Errorf("failed to copy aggregate: %w", err)
			}
			summary.AggregatePath = target
			cs.logger.Info("Collector", "aggregate CSV copied", map[string]interface{}{
				"file": e.Name(),
			})
		}
	}

	summary.Finish()
	cs.logger.Info("Collector", "collect finished", summary.Fields())
	return summary, nil
}

func (cs *CollectorService) collectDir(p models.PatientDir, dst string) models.Outcome {
	outcome := models.Outcome{PatientID: p.ID}

	files, err := fsutil.ReadDirSorted(cs.fs, p.Path)
	if err != nil {
		outcome.Status = models.StatusFailed
		outcome.Err = err
		outcome.Reason = err.Error()
		cs.logger.Error("Collector", "failed to list directory", err, map[string]interface{}{"directory": p.ID})
		return outcome
	}

	ext := strings.ToLower(cs.cfg.Extension)
	var matches []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ext) {
			matches = append(matches, f.Name())
		}
	}

	if len(matches) == 0 {
		outcome.Status = models.StatusSkippedNoCandidate
		outcome.Reason = "no CSV file"
		return outcome
	}
	if len(matches) > 1 {
		cs.logger.Debug("Collector", "several CSV files, copying the first", map[string]interface{}{
			"directory": p.ID,
			"ignored":   matches[1:],
		})
	}

	target := filepath.Join(dst, matches[0])
	if _, err := fsutil.CopyFile(cs.fs, filepath.Join(p.Path, matches[0]), target); err != nil {
		outcome.Status = models.StatusFailed
		outcome.Err = err
		outcome.Reason = err.Error()
		cs.logger.Error("Collector", "failed to copy CSV", err, map[string]interface{}{"directory": p.ID})
		return outcome
	}

	cs.logger.Info("Collector", "CSV copied", map[string]interface{}{
		"directory": p.ID,
		"file":      matches[0],
	})
	outcome.Status = models.StatusSucceeded
	outcome.Outputs = []string{target}
	return outcome
}

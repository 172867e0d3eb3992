package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/models"
)

// OrganizerService copies the largest scan and the segmentation of each
// patient into a canonical layout.
type OrganizerService struct {
	fs     billy.Filesystem
	cfg    config.OrganizeConfig
	logger logger.Logger
}

// NewOrganizerService creates a new organizer service
func NewOrganizerService(fs billy.Filesystem, cfg config.OrganizeConfig, log logger.Logger) *OrganizerService {
	return &OrganizerService{fs: fs, cfg: cfg, logger: log}
}

type scanCandidate struct {
	path string
	size int64
}

// Organize processes every patient directory under src. The source tree is
// only read; files under dst are overwritten.
func (org *OrganizerService) Organize(ctx context.Context, src, dst string) (*models.BatchSummary, error) {
	if err := checkRoot(org.fs, src); err != nil {
		return nil, err
	}
	if err := org.fs.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination %q: %w", dst, err)
	}

	patients, err := patientDirs(org.fs, src)
	if err != nil {
		return nil, err
	}

	summary := models.NewBatchSummary("organize", src, dst)
	org.logger.Info("Organizer", "organizing patients", map[string]interface{}{
		"source":      src,
		"destination": dst,
		"patients":    len(patients),
	})

	for _, p := range patients {
		if cancelled(ctx) {
			summary.Cancelled = true
			break
		}
		outcome := org.organizePatient(p, filepath.Join(dst, p.ID))
		org.report(outcome)
		summary.Add(outcome)
	}

	summary.Finish()
	org.logger.Info("Organizer", "organize finished", summary.Fields())
	return summary, nil
}

func (org *OrganizerService) organizePatient(p models.PatientDir, dst string) (outcome models.Outcome) {
	start := time.Now()
	outcome = models.Outcome{PatientID: p.ID}
	defer func() {
		outcome.Duration = time.Since(start)
	}()

	entries, err := fsutil.ReadDirSorted(org.fs, p.Path)
	if err != nil {
		outcome.Status = models.StatusFailed
		outcome.Err = err
		outcome.Reason = err.Error()
		return outcome
	}

	segSuffix := strings.ToLower(org.cfg.SegmentationSuffix)
	volExt := strings.ToLower(org.cfg.VolumeExtension)

	var segmentations []string
	var candidates []scanCandidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		switch {
		case strings.HasSuffix(name, segSuffix):
			segmentations = append(segmentations, filepath.Join(p.Path, e.Name()))
		case strings.HasSuffix(name, volExt):
			candidates = append(candidates, scanCandidate{path: filepath.Join(p.Path, e.Name()), size: e.Size()})
		}
	}

	if len(candidates) == 0 {
		outcome.Status = models.StatusSkippedNoCandidate
		outcome.Reason = fmt.Sprintf("no %s scan file found", org.cfg.VolumeExtension)
		return outcome
	}

	// strictly larger wins, so ties keep the first in name order
	largest := candidates[0]
	for _, c := range candidates[1:] {
		if c.size > largest.size {
			largest = c
		}
	}

	if len(segmentations) == 0 {
		outcome.Status = models.StatusSkippedMissingFiles
		outcome.Reason = fmt.Sprintf("no %s segmentation file found", org.cfg.SegmentationSuffix)
		return outcome
	}
	if len(segmentations) > 1 {
		org.logger.Warning("Organizer", "several segmentation files, using the first", map[string]interface{}{
			"patient": p.ID,
			"used":    filepath.Base(segmentations[0]),
			"ignored": baseNames(segmentations[1:]),
		})
	}

	org.logger.Debug("Organizer", "largest scan selected", map[string]interface{}{
		"patient": p.ID,
		"scan":    filepath.Base(largest.path),
		"size_mb": float64(largest.size) / (1024 * 1024),
	})

	scanDst := filepath.Join(dst, org.cfg.ScanName)
	segDst := filepath.Join(dst, org.cfg.SegmentationName)
	for _, pair := range [][2]string{{largest.path, scanDst}, {segmentations[0], segDst}} {
		if _, err := fsutil.CopyFile(org.fs, pair[0], pair[1]); err != nil {
			outcome.Status = models.StatusFailed
			outcome.Err = err
			outcome.Reason = err.Error()
			return outcome
		}
		outcome.Outputs = append(outcome.Outputs, pair[1])
	}

	outcome.Status = models.StatusSucceeded
	return outcome
}

func (org *OrganizerService) report(o models.Outcome) {
	fields := map[string]interface{}{"patient": o.PatientID}
	switch o.Status {
	case models.StatusSucceeded:
		fields["outputs"] = o.Outputs
		org.logger.Info("Organizer", "patient organized", fields)
	case models.StatusFailed:
		org.logger.Error("Organizer", "patient failed", o.Err, fields)
	default:
		fields["reason"] = o.Reason
		org.logger.Warning("Organizer", "patient skipped", fields)
	}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"radiomics-toolkit/internal/config"
	"radiomics-toolkit/internal/fsutil"
	"radiomics-toolkit/internal/logger"
	"radiomics-toolkit/internal/models"
	"radiomics-toolkit/internal/radiomics"
	"radiomics-toolkit/internal/table"
	"radiomics-toolkit/internal/timing"
	"radiomics-toolkit/internal/volume"
)

// RecordSink receives the feature records of an extraction run.
type RecordSink interface {
	StartRun(ctx context.Context, runID, root, engine string) error
	SaveRecord(ctx context.Context, runID string, record models.FeatureRecord) error
	EndRun(ctx context.Context, runID string, summary *models.BatchSummary) error
}

// ExtractionService runs the feature engine over every patient directory and
// writes per-patient and aggregate feature tables.
type ExtractionService struct {
	fs         billy.Filesystem
	engine     radiomics.Engine
	engineName string
	cfg        config.ExtractConfig
	logger     logger.Logger
	tracker    *timing.Tracker
	sink       RecordSink
}

// NewExtractionService creates a new extraction service
func NewExtractionService(fs billy.Filesystem, engine radiomics.Engine, cfg config.ExtractConfig, log logger.Logger) *ExtractionService {
	return &ExtractionService{
		fs:         fs,
		engine:     engine,
		engineName: cfg.Engine,
		cfg:        cfg,
		logger:     log,
		tracker:    timing.NewTracker(log),
	}
}

// SetSink stores every successful record in sink as well. Sink failures are
// logged and never fail a patient.
func (es *ExtractionService) SetSink(sink RecordSink) {
	es.sink = sink
}

// Tracker exposes the per-patient timings of the latest run.
func (es *ExtractionService) Tracker() *timing.Tracker {
	return es.tracker
}

// Extract processes the patient directories of root in name order. Patients
// that are skipped or fail are reported in the summary; the error return is
// reserved for problems with root itself.
func (es *ExtractionService) Extract(ctx context.Context, root string) (*models.BatchSummary, error) {
	if err := checkRoot(es.fs, root); err != nil {
		return nil, err
	}

	patients, err := patientDirs(es.fs, root)
	if err != nil {
		return nil, err
	}

	summary := models.NewBatchSummary("extract", root, root)
	summary.RunID = uuid.NewString()
	es.tracker.Reset("patient")

	es.logger.Info("Extractor", "extracting features", map[string]interface{}{
		"root":     root,
		"patients": len(patients),
		"engine":   es.engineName,
		"run_id":   summary.RunID,
	})

	sink := es.sink
	if sink != nil {
		if err := sink.StartRun(ctx, summary.RunID, root, es.engineName); err != nil {
			es.logger.Warning("Extractor", "feature store unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
			sink = nil
		}
	}

	for _, p := range patients {
		if cancelled(ctx) {
			summary.Cancelled = true
			es.logger.Warning("Extractor", "extraction interrupted", map[string]interface{}{
				"processed": len(summary.Outcomes),
				"remaining": len(patients) - len(summary.Outcomes),
			})
			break
		}

		outcome := es.extractPatient(ctx, p)
		if outcome.Succeeded() && sink != nil {
			// the context may be cancelled by now, the record is still wanted
			if err := sink.SaveRecord(context.WithoutCancel(ctx), summary.RunID, *outcome.Record); err != nil {
				es.logger.Warning("Extractor", "failed to store record", map[string]interface{}{
					"patient": p.ID,
					"error":   err.Error(),
				})
			}
		}
		summary.Add(outcome)
	}

	records := summary.Records()
	if len(records) == 0 {
		es.logger.Info("Extractor", "no patient succeeded, aggregate CSV not written", nil)
	} else {
		path := filepath.Join(root, es.cfg.AggregateName)
		if err := es.writeTable(path, records); err != nil {
			return summary, fmt.Errorf("failed to write aggregate CSV: %w", err)
		}
		summary.AggregatePath = path
		es.logger.Info("Extractor", "aggregate CSV written", map[string]interface{}{
			"path":     path,
			"patients": len(records),
		})
	}

	summary.Finish()
	if sink != nil {
		if err := sink.EndRun(context.WithoutCancel(ctx), summary.RunID, summary); err != nil {
			es.logger.Warning("Extractor", "failed to close run in feature store", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	fields := summary.Fields()
	fields["avg_patient_ms"] = es.tracker.AverageTime("patient").Milliseconds()
	es.logger.Info("Extractor", "extraction finished", fields)
	return summary, nil
}

func (es *ExtractionService) extractPatient(ctx context.Context, p models.PatientDir) (outcome models.Outcome) {
	tctx := es.tracker.StartTiming(ctx, "patient")
	outcome = models.Outcome{PatientID: p.ID}
	defer func() {
		outcome.Duration = es.tracker.EndTiming(tctx)
	}()

	es.logger.Info("Extractor", "processing patient", map[string]interface{}{"patient": p.ID})

	scanPath := filepath.Join(p.Path, es.cfg.ScanName)
	maskPath := filepath.Join(p.Path, es.cfg.SegmentationName)
	for _, path := range []string{scanPath, maskPath} {
		ok, err := fsutil.Exists(es.fs, path)
		if err != nil {
			return es.failed(outcome, err)
		}
		if !ok {
			outcome.Status = models.StatusSkippedMissingFiles
			outcome.Reason = fmt.Sprintf("missing %s", filepath.Base(path))
			es.logger.Warning("Extractor", "required volume files not found, skipping patient", map[string]interface{}{
				"patient": p.ID,
				"missing": filepath.Base(path),
			})
			return outcome
		}
	}

	var record models.FeatureRecord
	err := safely(func() error {
		var err error
		record, err = es.computeRecord(ctx, p.ID, scanPath, maskPath)
		return err
	})
	if err != nil {
		return es.failed(outcome, err)
	}

	csvPath := filepath.Join(p.Path, p.ID+es.cfg.FeatureSuffix)
	if err := es.writeTable(csvPath, []models.FeatureRecord{record}); err != nil {
		return es.failed(outcome, fmt.Errorf("failed to write patient CSV: %w", err))
	}

	es.logger.Info("Extractor", "features extracted", map[string]interface{}{
		"patient":  p.ID,
		"features": record.Len(),
		"csv":      csvPath,
	})

	outcome.Status = models.StatusSucceeded
	outcome.Record = &record
	outcome.Outputs = []string{csvPath}
	return outcome
}

func (es *ExtractionService) failed(outcome models.Outcome, err error) models.Outcome {
	outcome.Status = models.StatusFailed
	outcome.Err = err
	outcome.Reason = err.Error()
	es.logger.Error("Extractor", "patient failed", err, map[string]interface{}{
		"patient": outcome.PatientID,
	})
	return outcome
}

func (es *ExtractionService) computeRecord(ctx context.Context, patientID, scanPath, maskPath string) (models.FeatureRecord, error) {
	image, err := readVolume(es.fs, scanPath)
	if err != nil {
		return models.FeatureRecord{}, err
	}
	mask, err := readVolume(es.fs, maskPath)
	if err != nil {
		return models.FeatureRecord{}, err
	}

	if image.Components > 1 {
		es.logger.Info("Extractor", "scan is multi-channel, using the first channel as int16", map[string]interface{}{
			"patient":    patientID,
			"components": image.Components,
		})
		image, err = volume.SelectComponent(image, 0, volume.Int16)
		if err != nil {
			return models.FeatureRecord{}, err
		}
	}

	start := time.Now()
	result, err := es.engine.Execute(ctx, image, mask)
	if err != nil {
		return models.FeatureRecord{}, fmt.Errorf("feature extraction failed: %w", err)
	}
	es.logger.Debug("Extractor", "engine finished", map[string]interface{}{
		"patient":     patientID,
		"entries":     len(result),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	features := radiomics.FilterDiagnostics(result)
	record := models.FeatureRecord{PatientID: patientID, Features: make([]models.Feature, 0, len(features))}
	for _, e := range features {
		if e.Key == es.cfg.IDColumn {
			continue
		}
		record.Features = append(record.Features, models.Feature{Name: e.Key, Value: e.Value})
	}
	return record, nil
}

func (es *ExtractionService) writeTable(path string, records []models.FeatureRecord) error {
	f, err := fsutil.CreateFile(es.fs, path)
	if err != nil {
		return err
	}
	if err := table.FromRecords(es.cfg.IDColumn, records).WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

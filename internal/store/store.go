// Package store keeps feature records in SQLite, one row per run, patient and
// feature.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"radiomics-toolkit/internal/models"
)

// schema.sql defines the run and feature tables.
//
//go:embed schema.sql
var schemaSQL string

type FeatureStore struct {
	*sql.DB
}

// NewFeatureStore opens or creates the database at path and applies the schema.
func NewFeatureStore(path string) (*FeatureStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feature store: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &FeatureStore{db}, nil
}

// StartRun records a new extraction run.
func (fs *FeatureStore) StartRun(ctx context.Context, runID, root, engine string) error {
	query := `
		INSERT INTO extraction_runs (run_id, root, engine, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := fs.ExecContext(ctx, query, runID, root, engine, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to start run %s: %w", runID, err)
	}
	return nil
}

// SaveRecord stores every feature of record in one transaction. Numeric
// values go to value, anything else to text_value.
func (fs *FeatureStore) SaveRecord(ctx context.Context, runID string, record models.FeatureRecord) error {
	tx, err := fs.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO patient_features (run_id, patient_id, position, feature, value, text_value)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range record.Features {
		var value sql.NullFloat64
		var text sql.NullString
		switch v := f.Value.(type) {
		case float64:
			value = sql.NullFloat64{Float64: v, Valid: true}
		case nil:
		default:
			text = sql.NullString{String: fmt.Sprint(v), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, record.PatientID, i, f.Name, value, text); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", record.PatientID, f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record %s: %w", record.PatientID, err)
	}
	return nil
}

// EndRun stores the outcome counters of a finished run.
func (fs *FeatureStore) EndRun(ctx context.Context, runID string, summary *models.BatchSummary) error {
	query := `
		UPDATE extraction_runs
		SET finished_at = ?, succeeded = ?, skipped = ?, failed = ?
		WHERE run_id = ?
	`
	skipped := summary.Count(models.StatusSkippedMissingFiles) + summary.Count(models.StatusSkippedNoCandidate)
	_, err := fs.ExecContext(ctx, query,
		time.Now().UnixNano(),
		summary.Count(models.StatusSucceeded),
		skipped,
		summary.Count(models.StatusFailed),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to end run %s: %w", runID, err)
	}
	return nil
}

// Record reads back the features of one patient in their original order.
func (fs *FeatureStore) Record(ctx context.Context, runID, patientID string) (models.FeatureRecord, error) {
	rows, err := fs.QueryContext(ctx, `
		SELECT feature, value, text_value FROM patient_features
		WHERE run_id = ? AND patient_id = ?
		ORDER BY position
	`, runID, patientID)
	if err != nil {
		return models.FeatureRecord{}, fmt.Errorf("failed to query record: %w", err)
	}
	defer rows.Close()

	record := models.FeatureRecord{PatientID: patientID}
	for rows.Next() {
		var name string
		var value sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&name, &value, &text); err != nil {
			return models.FeatureRecord{}, fmt.Errorf("failed to scan feature: %w", err)
		}
		f := models.Feature{Name: name}
		switch {
		case value.Valid:
			f.Value = value.Float64
		case text.Valid:
			f.Value = text.String
		}
		record.Features = append(record.Features, f)
	}
	if err := rows.Err(); err != nil {
		return models.FeatureRecord{}, err
	}
	return record, nil
}

// RunCounts returns the stored outcome counters of a run.
func (fs *FeatureStore) RunCounts(ctx context.Context, runID string) (succeeded, skipped, failed int, err error) {
	row := fs.QueryRowContext(ctx, `
		SELECT succeeded, skipped, failed FROM extraction_runs WHERE run_id = ?
	`, runID)
	if err = row.Scan(&succeeded, &skipped, &failed); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read run %s: %w", runID, err)
	}
	return succeeded, skipped, failed, nil
}

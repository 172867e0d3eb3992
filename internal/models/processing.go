package models

import (
	"time"
)

// OutcomeStatus classifies how a single patient was handled by a batch.
type OutcomeStatus string

const (
	StatusSucceeded           OutcomeStatus = "succeeded"
	StatusSkippedMissingFiles OutcomeStatus = "skipped_missing_files"
	StatusSkippedNoCandidate  OutcomeStatus = "skipped_no_candidate"
	StatusFailed              OutcomeStatus = "failed"
)

// Outcome is the per-patient result of a batch step. Failures are values,
// not errors: a batch keeps going and reports them in its summary.
type Outcome struct {
	PatientID string
	Status    OutcomeStatus
	Reason    string
	Err       error
	Record    *FeatureRecord
	Outputs   []string
	Duration  time.Duration
}

// Succeeded reports whether the patient was processed.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Skipped reports whether the patient was left out for a known, non-fatal reason.
func (o Outcome) Skipped() bool {
	return o.Status == StatusSkippedMissingFiles || o.Status == StatusSkippedNoCandidate
}

// BatchSummary collects every outcome of one batch run.
type BatchSummary struct {
	Operation     string
	RunID         string
	Source        string
	Destination   string
	Outcomes      []Outcome
	AggregatePath string
	StartTime     time.Time
	Duration      time.Duration
	Cancelled     bool
}

// NewBatchSummary starts a summary for the named operation.
func NewBatchSummary(operation, source, destination string) *BatchSummary {
	return &BatchSummary{
		Operation:   operation,
		Source:      source,
		Destination: destination,
		Outcomes:    make([]Outcome, 0),
		StartTime:   time.Now(),
	}
}

// Add appends an outcome.
func (s *BatchSummary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Finish records the elapsed time.
func (s *BatchSummary) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// Count returns how many outcomes have the given status.
func (s *BatchSummary) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Records returns the feature records of succeeded outcomes in batch order.
func (s *BatchSummary) Records() []FeatureRecord {
	records := make([]FeatureRecord, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.Succeeded() && o.Record != nil {
			records = append(records, *o.Record)
		}
	}
	return records
}

// Find returns the outcome for a patient.
func (s *BatchSummary) Find(patientID string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.PatientID == patientID {
			return o, true
		}
	}
	return Outcome{}, false
}

// Fields renders the summary counters for structured logging.
func (s *BatchSummary) Fields() map[string]interface{} {
	return map[string]interface{}{
		"operation":   s.Operation,
		"patients":    len(s.Outcomes),
		"succeeded":   s.Count(StatusSucceeded),
		"skipped":     s.Count(StatusSkippedMissingFiles) + s.Count(StatusSkippedNoCandidate),
		"failed":      s.Count(StatusFailed),
		"duration_ms": s.Duration.Milliseconds(),
		"cancelled":   s.Cancelled,
	}
}

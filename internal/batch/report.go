package batch

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"shotsync/internal/fileutil"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

// Status is the outcome of one record.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// RecordResult is the outcome of one record.
type RecordResult struct {
	Index     int                `json:"index"`
	Source    string             `json:"source,omitempty"`
	Show      string             `json:"show"`
	RawCode   string             `json:"raw_code"`
	Status    Status             `json:"status"`
	Stage     string             `json:"stage,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
	Identity  *shotcode.Identity `json:"identity,omitempty"`
	ProjectID string             `json:"project_id,omitempty"`
	ShotID    string             `json:"shot_id,omitempty"`
	// ShotAction is found, created, or updated.
	ShotAction         string   `json:"shot_action,omitempty"`
	Ambiguous          bool     `json:"ambiguous,omitempty"`
	Folder             string   `json:"folder,omitempty"`
	WorkingFile        string   `json:"working_file,omitempty"`
	WorkingFileCreated bool     `json:"working_file_created,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

// OK reports whether the record succeeded.
func (r RecordResult) OK() bool { return r.Status == StatusOK }

func (r *RecordResult) fail(stage string, err error) {
	r.Status = StatusFailed
	r.Stage = services.StageOf(err)
	if r.Stage == "" {
		r.Stage = stage
	}
	r.ErrorKind = services.Kind(err)
	r.Error = err.Error()
	r.Retryable = services.Retryable(err)
}

// RunReport is the structured result of one batch run.
type RunReport struct {
	RunID        string         `json:"run_id"`
	Show         string         `json:"show,omitempty"`
	Source       string         `json:"source,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Total        int            `json:"total"`
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Records      []RecordResult `json:"records"`
}

// OK reports whether every record succeeded.
func (r RunReport) OK() bool {
	return r.FailureCount == 0
}

// Duration returns the wall time of the run.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failures returns the failed records in input order.
func (r RunReport) Failures() []RecordResult {
	var out []RecordResult
	for _, rec := range r.Records {
		if !rec.OK() {
			out = append(out, rec)
		}
	}
	return out
}

func (r *RunReport) add(result RecordResult) {
	r.Records = append(r.Records, result)
	r.Total++
	if result.OK() {
		r.SuccessCount++
	} else {
		r.FailureCount++
	}
}

// FileName is the report's file name inside the report directory.
func (r RunReport) FileName() string {
	return fmt.Sprintf("ingest_%s.json", r.RunID)
}

// WriteJSON writes the report into dir and returns the file path.
func (r RunReport) WriteJSON(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run report: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	if err := fileutil.WriteAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}
	return path, nil
}

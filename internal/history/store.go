package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shotsync/internal/batch"
)

// ErrNotFound is returned when no run matches the requested identifier.
var ErrNotFound = errors.New("run not found")

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID        string    `json:"run_id"`
	Show         string    `json:"show,omitempty"`
	Source       string    `json:"source,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Total        int       `json:"total"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	ReportPath   string    `json:"report_path,omitempty"`
}

// Open initializes or connects to the history database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Connection-scoped pragmas must hold for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores report and its records. Saving the same run again replaces it.
func (s *Store) SaveRun(ctx context.Context, report batch.RunReport, reportPath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{
		"DELETE FROM run_records WHERE run_id = ?",
		"DELETE FROM runs WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, report.RunID); err != nil {
			return fmt.Errorf("replace run: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, show, source, started_at, finished_at,
            total, success_count, failure_count, report_path
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		nullableString(report.Show),
		nullableString(report.Source),
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.Total,
		report.SuccessCount,
		report.FailureCount,
		nullableString(reportPath),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, rec := range report.Records {
		warnings, err := json.Marshal(rec.Warnings)
		if err != nil {
			return fmt.Errorf("encode warnings: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_records (
                run_id, record_index, source, show, raw_code, status, stage,
                error_kind, error_message, retryable, project_id, shot_id,
                shot_action, folder, working_file, warnings_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			rec.Index,
			nullableString(rec.Source),
			nullableString(rec.Show),
			nullableString(rec.RawCode),
			string(rec.Status),
			nullableString(rec.Stage),
			nullableString(rec.ErrorKind),
			nullableString(rec.Error),
			boolToInt(rec.Retryable),
			nullableString(rec.ProjectID),
			nullableString(rec.ShotID),
			nullableString(rec.ShotAction),
			nullableString(rec.Folder),
			nullableString(rec.WorkingFile),
			string(warnings),
		); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = "run_id, show, source, started_at, finished_at, total, success_count, failure_count, report_path"

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, run_id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its records. id may be a unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (RunSummary, []batch.RecordResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RunSummary{}, nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE run_id = ? OR run_id LIKE ? ESCAPE '\\' ORDER BY run_id = ? DESC LIMIT 2",
		id, escapeLike(id)+"%", id)
	if err != nil {
		return RunSummary{}, nil, fmt.Errorf("get run: %w", err)
	}
	var matches []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return RunSummary{}, nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return RunSummary{}, nil, fmt.Errorf("get run: %w", err)
	}
	rows.Close()

	switch {
	case len(matches) == 0:
		return RunSummary{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].RunID != id:
		return RunSummary{}, nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
	run := matches[0]

	records, err := s.records(ctx, run.RunID)
	if err != nil {
		return RunSummary{}, nil, err
	}
	return run, records, nil
}

func (s *Store) records(ctx context.Context, runID string) ([]batch.RecordResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_index, source, show, raw_code, status, stage, error_kind,
            error_message, retryable, project_id, shot_id, shot_action, folder,
            working_file, warnings_json
        FROM run_records WHERE run_id = ? ORDER BY record_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []batch.RecordResult
	for rows.Next() {
		var (
			rec         batch.RecordResult
			status      string
			retryable   int
			source      sql.NullString
			show        sql.NullString
			rawCode     sql.NullString
			stage       sql.NullString
			errorKind   sql.NullString
			errorMsg    sql.NullString
			projectID   sql.NullString
			shotID      sql.NullString
			shotAction  sql.NullString
			folder      sql.NullString
			workingFile sql.NullString
			warnings    sql.NullString
		)
		if err := rows.Scan(&rec.Index, &source, &show, &rawCode, &status, &stage, &errorKind,
			&errorMsg, &retryable, &projectID, &shotID, &shotAction, &folder, &workingFile, &warnings); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Status = batch.Status(status)
		rec.Retryable = retryable != 0
		rec.Source = source.String
		rec.Show = show.String
		rec.RawCode = rawCode.String
		rec.Stage = stage.String
		rec.ErrorKind = errorKind.String
		rec.Error = errorMsg.String
		rec.ProjectID = projectID.String
		rec.ShotID = shotID.String
		rec.ShotAction = shotAction.String
		rec.Folder = folder.String
		rec.WorkingFile = workingFile.String
		if warnings.Valid && warnings.String != "" && warnings.String != "null" {
			if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
				return nil, fmt.Errorf("decode warnings for record %d: %w", rec.Index, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (RunSummary, error) {
	var (
		run        RunSummary
		show       sql.NullString
		source     sql.NullString
		started    string
		finished   string
		reportPath sql.NullString
	)
	if err := scanner.Scan(&run.RunID, &show, &source, &started, &finished,
		&run.Total, &run.SuccessCount, &run.FailureCount, &reportPath); err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	run.Show = show.String
	run.Source = source.String
	run.ReportPath = reportPath.String
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shotsync/internal/layout"
	"shotsync/internal/logging"
	"shotsync/internal/reconcile"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

// ErrRunLocked is returned when another process holds the run lock.
var ErrRunLocked = errors.New("another shotsync run is in progress")

// Runner processes records sequentially.
type Runner struct {
	reconciler *reconcile.Reconciler
	layout     *layout.Builder
	logger     *slog.Logger
	lockPath   string
	progress   func(RecordResult)
	now        func() time.Time
	newRunID   func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLockPath guards runs with a file lock at path.
func WithLockPath(path string) Option {
	return func(r *Runner) { r.lockPath = path }
}

// WithProgress registers a callback invoked after each record.
func WithProgress(fn func(RecordResult)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDFunc overrides run identifier generation.
func WithRunIDFunc(fn func() string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.newRunID = fn
		}
	}
}

// NewRunner constructs a Runner.
func NewRunner(reconciler *reconcile.Reconciler, builder *layout.Builder, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		reconciler: reconciler,
		layout:     builder,
		logger:     logging.NewComponentLogger(logger, "batch"),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes records in order. show is the default for records that do
// not name one. The returned error covers run-level problems only (such as
// the run lock); record failures are reported in the RunReport.
func (r *Runner) Run(ctx context.Context, show string, records []Record) (RunReport, error) {
	report := RunReport{
		RunID:     r.newRunID(),
		Show:      show,
		StartedAt: r.now(),
		Records:   make([]RecordResult, 0, len(records)),
	}

	if r.lockPath != "" {
		lock := flock.New(r.lockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return report, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return report, fmt.Errorf("%w (lock %s)", ErrRunLocked, r.lockPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				r.logger.Warn("failed to release run lock", logging.Error(err))
			}
		}()
	}

	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch run started",
		logging.String(logging.FieldShow, show),
		logging.Int("records", len(records)))

	for i, rec := range records {
		var result RecordResult
		if err := ctx.Err(); err != nil {
			result = RecordResult{Index: i + 1, Source: rec.Source, Show: rec.ShowOr(show), RawCode: rec.Fields.Summary()}
			result.fail("", fmt.Errorf("run cancelled before record: %w", err))
		} else {
			result = r.runRecord(services.WithRecordIndex(ctx, i+1), i+1, show, rec)
		}
		report.add(result)
		if r.progress != nil {
			r.progress(result)
		}
	}

	report.FinishedAt = r.now()
	logger.Info("batch run finished",
		logging.Int("total", report.Total),
		logging.Int("succeeded", report.SuccessCount),
		logging.Int("failed", report.FailureCount),
		logging.Duration("duration", report.Duration()))
	return report, nil
}

func (r *Runner) runRecord(ctx context.Context, index int, defaultShow string, rec Record) RecordResult {
	show := rec.ShowOr(defaultShow)
	result := RecordResult{
		Index:   index,
		Source:  rec.Source,
		Show:    show,
		RawCode: rec.Fields.Summary(),
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldShow, show))

	fail := func(stage string, err error) RecordResult {
		result.fail(stage, err)
		logging.WarnWithContext(logger, "record failed", "record_failed",
			logging.String(logging.FieldShotCode, result.RawCode),
			logging.String(logging.FieldStage, result.Stage),
			logging.String("error_kind", result.ErrorKind),
			logging.Bool("retryable", result.Retryable),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.String(logging.FieldImpact, "record skipped; remaining records continue"),
		)
		return result
	}

	code, err := shotcode.Normalize(rec.Fields)
	if err != nil {
		return fail(services.StageParse, err)
	}
	result.RawCode = code

	id, err := shotcode.ParseForShow(show, code)
	if err != nil {
		return fail(services.StageParse, err)
	}
	result.Identity = &id

	if show == "" {
		return fail(services.StageLookup, services.Wrap(services.ErrProjectNotFound, services.StageLookup, "find project", "record has no show", nil))
	}
	project, err := r.reconciler.ResolveProject(ctx, show)
	if err != nil {
		return fail(services.StageLookup, err)
	}
	result.ProjectID = project.ID

	res, err := r.reconciler.Reconcile(ctx, project.ID, id, reconcile.Metadata{
		Description: rec.Description,
		FrameCount:  rec.FrameCount,
	})
	if err != nil {
		return fail(services.StageLookup, err)
	}
	result.ShotID = res.Shot.ID
	result.ShotAction = string(res.ShotAction())
	result.Ambiguous = res.Ambiguous()
	if result.Ambiguous {
		result.Warnings = append(result.Warnings, "ambiguous tracker match; first entity used")
	}

	local, err := r.layout.Prepare(ctx, id)
	if err != nil {
		return fail(services.StageFilesystem, err)
	}
	result.Folder = local.Folder
	result.WorkingFile = local.Seed.Path
	result.WorkingFileCreated = local.Seed.Created
	result.Warnings = append(result.Warnings, local.Warnings...)

	result.Status = StatusOK
	logger.Info("record reconciled",
		logging.String(logging.FieldShotCode, code),
		logging.String(logging.FieldEntityID, result.ShotID),
		logging.String("shot_action", result.ShotAction),
		logging.String("folder", result.Folder))
	return result
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrMalformedShotCode), errors.Is(err, services.ErrMissingShotIdentity):
		return "fix the shot code in the source sheet"
	case errors.Is(err, services.ErrProjectNotFound):
		return "create the project in the tracker or correct the show name"
	case errors.Is(err, services.ErrEntityTypeNotFound):
		return "enable the missing entity types on the tracker"
	case errors.Is(err, services.ErrRemoteUnavailable):
		return "check tracker connectivity and rerun; the record is safe to retry"
	case errors.Is(err, services.ErrRemoteRejected):
		return "check tracker permissions and the request details in the error"
	case errors.Is(err, services.ErrAmbiguousMatch):
		return "merge duplicate tracker entities or disable tracker.strict_matching"
	case errors.Is(err, services.ErrFilesystem):
		return "check permissions under paths.shows_dir"
	default:
		return "check logs for details"
	}
}

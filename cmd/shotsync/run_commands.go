package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shotsync/internal/batch"
	"shotsync/internal/batchsource"
	"shotsync/internal/logging"
	"shotsync/internal/notifications"
	"shotsync/internal/shotcode"
)

var errRecordsFailed = errors.New("records failed")

type runOptions struct {
	show    string
	source  string
	json    bool
	records []batch.Record
}

func newSetupCommand(ctx *commandContext) *cobra.Command {
	var show, shot, description string
	var duration int

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register one shot with the tracker and lay out its folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			show = strings.TrimSpace(show)
			if show == "" {
				return errors.New("--show is required")
			}
			if strings.TrimSpace(shot) == "" {
				return errors.New("--shot is required")
			}
			if duration < 0 {
				return fmt.Errorf("--duration must be positive, got %d", duration)
			}
			record := batch.Record{
				Show:        show,
				Fields:      shotcode.Fields{Code: shot},
				Description: strings.TrimSpace(description),
				Source:      "cli",
			}
			if duration > 0 {
				frames := duration
				record.FrameCount = &frames
			}
			return executeRun(cmd, ctx, runOptions{
				show:    show,
				source:  "cli",
				records: []batch.Record{record},
			})
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Show (tracker project) name")
	cmd.Flags().StringVar(&shot, "shot", "", "Shot code, e.g. EP04_S003_0010")
	cmd.Flags().StringVar(&description, "description", "", "Shot description")
	cmd.Flags().IntVar(&duration, "duration", 0, "Shot length in frames")
	return cmd
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var show string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Register every shot listed in a spreadsheet (.xlsx or .csv)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			records, err := batchsource.Read(path)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("no shot records found in %s", path)
			}
			return executeRun(cmd, ctx, runOptions{
				show:    strings.TrimSpace(show),
				source:  path,
				json:    jsonOut,
				records: records,
			})
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Show for rows without a SHOW column value")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run report as JSON")
	return cmd
}

// executeRun runs records through the pipeline, persists the report, and
// prints it. A non-nil error is returned when any record failed.
func executeRun(cmd *cobra.Command, ctx *commandContext, opts runOptions) error {
	p, err := ctx.newPipeline()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	palette := newStatusPalette(shouldColorize(out))

	var runnerOpts []batch.Option
	if !opts.json && len(opts.records) > 1 {
		total := len(opts.records)
		runnerOpts = append(runnerOpts, batch.WithProgress(func(result batch.RecordResult) {
			renderRecordLine(out, palette, total, result)
		}))
	}

	report, err := p.runner(runnerOpts...).Run(cmd.Context(), opts.show, opts.records)
	if err != nil {
		p.notify(p.notifier.NotifyError(cmd.Context(), err, "shotsync run"))
		return err
	}
	report.Source = opts.source
	p.notify(p.notifier.NotifyRunCompleted(cmd.Context(), notifications.RunSummary{
		RunID:     report.RunID,
		Show:      report.Show,
		Source:    report.Source,
		Succeeded: report.SuccessCount,
		Failed:    report.FailureCount,
		Duration:  report.Duration(),
	}))

	reportPath, err := report.WriteJSON(p.cfg.Paths.ReportDir)
	if err != nil {
		logging.WarnWithContext(p.logger, "run report not written", "report_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.report_dir permissions"),
			logging.String(logging.FieldImpact, "run is missing from the report directory"),
		)
		reportPath = ""
	}
	if err := saveHistory(cmd, ctx, report, reportPath); err != nil {
		logging.WarnWithContext(p.logger, "run history not updated", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "run is missing from runs list"),
		)
	}

	switch {
	case opts.json:
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	case len(report.Records) == 1:
		renderRecordDetail(out, palette, report.Records[0])
	default:
		renderRunSummary(out, palette, report, reportPath)
	}

	if !report.OK() {
		return fmt.Errorf("%d of %d %w", report.FailureCount, report.Total, errRecordsFailed)
	}
	return nil
}

func (p *pipeline) notify(err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(p.logger, "notification not delivered", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "run summary was not pushed"),
	)
}

func saveHistory(cmd *cobra.Command, ctx *commandContext, report batch.RunReport, reportPath string) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveRun(cmd.Context(), report, reportPath)
}

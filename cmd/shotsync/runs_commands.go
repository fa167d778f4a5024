package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"shotsync/internal/batch"
	"shotsync/internal/history"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past batch runs",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.RunID),
					formatTime(run.StartedAt),
					displayValue(run.Show),
					strconv.Itoa(run.Total),
					strconv.Itoa(run.SuccessCount),
					strconv.Itoa(run.FailureCount),
					displayValue(run.Source),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Show", "Total", "OK", "Failed", "Source"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the per-record results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, records, err := store.GetRun(cmd.Context(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return fmt.Errorf("no run matches %q", args[0])
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Run     history.RunSummary   `json:"run"`
					Records []batch.RecordResult `json:"records"`
				}{run, records})
			}

			out := cmd.OutOrStdout()
			palette := newStatusPalette(shouldColorize(out))
			fmt.Fprintf(out, "Run:      %s\n", run.RunID)
			fmt.Fprintf(out, "Show:     %s\n", displayValue(run.Show))
			fmt.Fprintf(out, "Source:   %s\n", displayValue(run.Source))
			fmt.Fprintf(out, "Started:  %s\n", formatTime(run.StartedAt))
			fmt.Fprintf(out, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
			fmt.Fprintf(out, "Records:  %d total, %d succeeded, %d failed\n", run.Total, run.SuccessCount, run.FailureCount)
			if run.ReportPath != "" {
				fmt.Fprintf(out, "Report:   %s\n", run.ReportPath)
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				detail := rec.Folder
				if !rec.OK() {
					detail = rec.Stage + ": " + rec.ErrorKind
				}
				rows = append(rows, []string{
					strconv.Itoa(rec.Index),
					palette.status(rec),
					displayValue(rec.Show),
					displayValue(rec.RawCode),
					displayValue(rec.ShotAction),
					displayValue(detail),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Status", "Show", "Code", "Action", "Folder / Error"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

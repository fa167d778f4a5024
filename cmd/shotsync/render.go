package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"shotsync/internal/batch"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type statusPalette struct {
	ok     *color.Color
	failed *color.Color
	warn   *color.Color
}

func newStatusPalette(colorize bool) statusPalette {
	p := statusPalette{
		ok:     color.New(color.FgGreen, color.Bold),
		failed: color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.ok, p.failed, p.warn} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p statusPalette) status(result batch.RecordResult) string {
	if result.OK() {
		return p.ok.Sprint("OK")
	}
	return p.failed.Sprint("FAILED")
}

// renderRecordLine is the one-line progress form used while a run is active.
func renderRecordLine(out io.Writer, p statusPalette, total int, result batch.RecordResult) {
	prefix := fmt.Sprintf("[%d/%d]", result.Index, total)
	if result.OK() {
		fmt.Fprintf(out, "%s %s %s %s (%s)\n", prefix, p.status(result), result.Show, result.RawCode, result.ShotAction)
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "    %s %s\n", p.warn.Sprint("warning:"), warning)
		}
		return
	}
	fmt.Fprintf(out, "%s %s %s %s: %s stage: %s\n", prefix, p.status(result), result.Show, result.RawCode, result.Stage, result.Error)
}

func renderRunSummary(out io.Writer, p statusPalette, report batch.RunReport, reportPath string) {
	fmt.Fprintf(out, "Run %s: %d total, %d succeeded, %d failed\n",
		report.RunID, report.Total, report.SuccessCount, report.FailureCount)
	if failures := report.Failures(); len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, f := range failures {
			retry := ""
			if f.Retryable {
				retry = "yes"
			}
			rows = append(rows, []string{
				strconv.Itoa(f.Index),
				f.Source,
				f.RawCode,
				f.Stage,
				f.ErrorKind,
				retry,
			})
		}
		fmt.Fprintln(out, p.failed.Sprint("Failures:"))
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Source", "Code", "Stage", "Kind", "Retry"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}
	if reportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", reportPath)
	}
}

func renderRecordDetail(out io.Writer, p statusPalette, result batch.RecordResult) {
	fmt.Fprintf(out, "%s %s\n", p.status(result), displayValue(result.RawCode))
	fmt.Fprintf(out, "  Show:         %s\n", displayValue(result.Show))
	if result.OK() {
		fmt.Fprintf(out, "  Shot entity:  %s (%s)\n", displayValue(result.ShotID), result.ShotAction)
		fmt.Fprintf(out, "  Folder:       %s\n", displayValue(result.Folder))
		created := "existing, left untouched"
		if result.WorkingFileCreated {
			created = "created"
		}
		fmt.Fprintf(out, "  Working file: %s (%s)\n", displayValue(result.WorkingFile), created)
		if result.Ambiguous {
			fmt.Fprintf(out, "  %s more than one tracker entity matched; the first was used\n", p.warn.Sprint("warning:"))
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(out, "  %s %s\n", p.warn.Sprint("warning:"), warning)
		}
		return
	}
	fmt.Fprintf(out, "  Stage:        %s\n", displayValue(result.Stage))
	fmt.Fprintf(out, "  Error:        %s\n", result.Error)
	if result.Retryable {
		fmt.Fprintln(out, "  The tracker was unreachable; rerun once it is back.")
	}
}

func displayValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

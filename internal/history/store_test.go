package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"shotsync/internal/batch"
	"shotsync/internal/history"
	"shotsync/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(id string, started time.Time) batch.RunReport {
	return batch.RunReport{
		RunID:        id,
		Show:         "DEMO",
		Source:       "shots.xlsx",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		Total:        2,
		SuccessCount: 1,
		FailureCount: 1,
		Records: []batch.RecordResult{
			{
				Index:       1,
				Source:      "row 2",
				Show:        "DEMO",
				RawCode:     "EP04_S003_0010",
				Status:      batch.StatusOK,
				ProjectID:   "proj-1",
				ShotID:      "ent-3",
				ShotAction:  "created",
				Folder:      "/shows/DEMO/EP04/S003/0010",
				WorkingFile: "/shows/DEMO/EP04/S003/0010/comp/nk/EP04_S003_0010_comp_v001.nk",
				Warnings:    []string{"template missing"},
			},
			{
				Index:     2,
				Source:    "row 3",
				Show:      "DEMO",
				RawCode:   "A_B_C_D",
				Status:    batch.StatusFailed,
				Stage:     "parse",
				ErrorKind: "malformed_shot_code",
				Error:     "malformed shot code: parse: parse shot code",
			},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	report := sampleReport("4f1c2d3e-0000-4000-8000-000000000001", started)

	if err := store.SaveRun(ctx, report, "/reports/ingest_x.json"); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	run, records, err := store.GetRun(ctx, report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Show != "DEMO" || run.Total != 2 || run.FailureCount != 1 || run.ReportPath != "/reports/ingest_x.json" {
		t.Fatalf("unexpected run %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("started=%v, want %v", run.StartedAt, started)
	}
	if diff := cmp.Diff(report.Records, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	// Saving again replaces rather than duplicates.
	if err := store.SaveRun(ctx, report, ""); err != nil {
		t.Fatalf("SaveRun again: %v", err)
	}
	_, records, err = store.GetRun(ctx, report.RunID)
	if err != nil {
		t.Fatalf("GetRun again: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
}

func TestGetRunByPrefix(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"abc123", "abd456"} {
		if err := store.SaveRun(ctx, sampleReport(id, now), ""); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	run, _, err := store.GetRun(ctx, "abc")
	if err != nil || run.RunID != "abc123" {
		t.Fatalf("GetRun prefix: run=%+v err=%v", run, err)
	}
	if _, _, err := store.GetRun(ctx, "ab"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, _, err := store.GetRun(ctx, "zzz"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.SaveRun(ctx, sampleReport(id, base.Add(time.Duration(i)*time.Hour)), ""); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Fatalf("unexpected runs %+v", runs)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("runs=%d, want 3", len(all))
	}
}

func TestOpenIsReentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")
	for i := 0; i < 2; i++ {
		store, err := history.Open(path)
		if err != nil {
			t.Fatalf("Open pass %d: %v", i+1, err)
		}
		store.Close()
	}
}

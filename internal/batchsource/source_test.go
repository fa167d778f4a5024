package batchsource_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"shotsync/internal/batch"
	"shotsync/internal/batchsource"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
	"shotsync/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func TestFromRows(t *testing.T) {
	rows := [][]string{
		{},
		{"Show", "shot_code", "Description", "Duration"},
		{"DEMO", "EP04_S003_0010", "  paint out rig\n\n  fix edge  ", "96"},
		{"", "", "", ""},
		{" DE MO ", "S003-0020", "", "abc"},
		{"DEMO", "0030", "", "48.0"},
		{"DEMO", "0040"},
	}
	got, err := batchsource.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	want := []batch.Record{
		{Show: "DEMO", Fields: shotcode.Fields{Code: "EP04_S003_0010"}, Description: "paint out rig\nfix edge", FrameCount: intPtr(96), Source: "row 3"},
		{Show: "DE_MO", Fields: shotcode.Fields{Code: "S003-0020"}, Source: "row 5"},
		{Show: "DEMO", Fields: shotcode.Fields{Code: "0030"}, FrameCount: intPtr(48), Source: "row 6"},
		{Show: "DEMO", Fields: shotcode.Fields{Code: "0040"}, Source: "row 7"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestFromRowsSplitColumns(t *testing.T) {
	rows := [][]string{
		{"EP", "SEQ", "SHOT"},
		{"EP04", "S003", "0010"},
		{"", "S003", "0020"},
	}
	got, err := batchsource.FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records=%d, want 2", len(got))
	}
	code, err := shotcode.Normalize(got[1].Fields)
	if err != nil || code != "S003_0020" {
		t.Fatalf("Normalize=%q err=%v", code, err)
	}
}

func TestFromRowsRequiresShotColumn(t *testing.T) {
	_, err := batchsource.FromRows([][]string{{"SHOW", "DESCRIPTION"}, {"DEMO", "x"}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots.csv")
	testsupport.WriteFile(t, path, "SHOW,SHOT CODE,DESCRIPTION,DURATION\nDEMO,EP04_S003_0010,\"line one\nline two\",120\n\nDEMO,S003_0020,,\n")

	got, err := batchsource.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records=%d, want 2", len(got))
	}
	if got[0].Description != "line one\nline two" || got[0].FrameCount == nil || *got[0].FrameCount != 120 {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].FrameCount != nil {
		t.Fatalf("blank duration should be absent")
	}
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shots.xlsx")
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	rows := [][]interface{}{
		{"SHOW", "SHOT CODE", "DESCRIPTION", "DURATION"},
		{"DEMO", "EP04_S003_0010", "plate", 96},
		{"DEMO", "S003_0020", "", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	_ = file.Close()

	got, err := batchsource.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records=%d, want 2", len(got))
	}
	if got[0].Fields.Code != "EP04_S003_0010" || got[0].FrameCount == nil || *got[0].FrameCount != 96 {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if got[1].Source != "row 3" {
		t.Fatalf("source=%q", got[1].Source)
	}
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	if _, err := batchsource.Read("shots.txt"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

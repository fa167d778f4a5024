package batchsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"shotsync/internal/batch"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
)

type column int

const (
	colShow column = iota
	colCode
	colEpisode
	colSequence
	colShot
	colDescription
	colDuration
)

var headerAliases = map[string]column{
	"SHOW":        colShow,
	"SHOT CODE":   colCode,
	"SHOTCODE":    colCode,
	"CODE":        colCode,
	"EP":          colEpisode,
	"EPISODE":     colEpisode,
	"SEQ":         colSequence,
	"SEQUENCE":    colSequence,
	"SHOT":        colShot,
	"DESCRIPTION": colDescription,
	"DESC":        colDescription,
	"DURATION":    colDuration,
	"FRAMES":      colDuration,
	"FRAME COUNT": colDuration,
}

// Read loads records from an .xlsx or .csv file.
func Read(path string) ([]batch.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "read batch source",
			fmt.Sprintf("unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path)), nil)
	}
}

func readXLSX(path string) ([]batch.Record, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", path)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return FromRows(rows)
}

func readCSV(path string) ([]batch.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, row)
	}
	return FromRows(rows)
}

// FromRows converts raw rows, header first, into records. Blank rows are
// skipped; Source carries the 1-based row number.
func FromRows(rows [][]string) ([]batch.Record, error) {
	headerRow := -1
	for i, row := range rows {
		if !blank(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, nil
	}

	columns := make(map[column]int)
	for i, cell := range rows[headerRow] {
		key := headerKey(cell)
		if col, ok := headerAliases[key]; ok {
			if _, dup := columns[col]; !dup {
				columns[col] = i
			}
		}
	}
	_, hasCode := columns[colCode]
	_, hasShot := columns[colShot]
	if !hasCode && !hasShot {
		return nil, services.Wrap(services.ErrConfiguration, "", "read batch source",
			"header needs a SHOT CODE or SHOT column", nil)
	}

	var records []batch.Record
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		if blank(row) {
			continue
		}
		get := func(col column) string {
			idx, ok := columns[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}
		records = append(records, batch.Record{
			Show: shotcode.Clean(get(colShow)),
			Fields: shotcode.Fields{
				Code:     get(colCode),
				Episode:  get(colEpisode),
				Sequence: get(colSequence),
				Shot:     get(colShot),
			},
			Description: description(get(colDescription)),
			FrameCount:  duration(get(colDuration)),
			Source:      fmt.Sprintf("row %d", i+1),
		})
	}
	return records, nil
}

func headerKey(cell string) string {
	cell = strings.ToUpper(strings.TrimSpace(cell))
	cell = strings.ReplaceAll(cell, "_", " ")
	return strings.Join(strings.Fields(cell), " ")
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// description trims each line and drops blank ones.
func description(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	lines := strings.Split(value, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// duration parses a frame count; anything unparsable or non-positive is absent.
func duration(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n <= 0 {
			return nil
		}
		return &n
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

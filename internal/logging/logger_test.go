package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotsync/internal/config"
	"shotsync/internal/logging"
	"shotsync/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	logger, err := logging.New(logging.Options{Format: format, Level: level, Outputs: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, func() string {
		t.Helper()
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log file: %v", err)
		}
		return string(content)
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from config")

	content, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from config") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	logger, read := newFileLogger(t, "console", "info")

	component := logging.NewComponentLogger(logger, "reconcile").With(logging.String(logging.FieldShow, "DEMO"))
	component.Info("entity created", logging.String(logging.FieldShotCode, "S003_0010"), logging.String("note", "two words"))
	logger.Debug("hidden")

	line := read()
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if strings.Contains(line, "hidden") {
		t.Fatalf("debug record written at info level: %q", line)
	}
	if !strings.Contains(line, "INFO reconcile: entity created show=DEMO shot_code=S003_0010") {
		t.Fatalf("expected component prefix and ordered attrs, got %q", line)
	}
	if !strings.Contains(line, `note="two words"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
}

func TestConsoleLoggerGroupsAndSource(t *testing.T) {
	logger, read := newFileLogger(t, "console", "debug")

	logger.WithGroup("http").Debug("request", logging.Int("status", 503))

	line := read()
	if !strings.Contains(line, "http.status=503") {
		t.Fatalf("expected grouped key, got %q", line)
	}
	if !strings.Contains(line, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", line)
	}
}

func TestJSONLoggerRenamesKeys(t *testing.T) {
	logger, read := newFileLogger(t, "json", "info")
	logger.Info("json message", logging.String("k", "v"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(read())), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["msg"] != "json message" || entry["level"] != "info" || entry["k"] != "v" {
		t.Fatalf("unexpected json entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-xyz")
	ctx = services.WithRecordIndex(ctx, 4)
	ctx = services.WithStage(ctx, services.StageCreate)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WithContext(ctx, logger).Info("contextual log")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry[logging.FieldRunID] != "run-xyz" {
		t.Fatalf("run_id = %v", entry[logging.FieldRunID])
	}
	if entry[logging.FieldRecordIndex] != float64(4) {
		t.Fatalf("record_index = %v", entry[logging.FieldRecordIndex])
	}
	if entry[logging.FieldStage] != services.StageCreate {
		t.Fatalf("stage = %v", entry[logging.FieldStage])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "ambiguous", "ambiguous_match",
		logging.Alert("ambiguous_match"),
		logging.String(logging.FieldImpact, "first match used"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldAlert} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected %s in warning, got %v", key, entry)
		}
	}
	if entry[logging.FieldImpact] != "first match used" {
		t.Fatalf("caller impact overwritten: %v", entry[logging.FieldImpact])
	}
}

package logging

import (
	"context"
	"log/slog"

	"shotsync/internal/services"
)

// Standard structured logging keys.
const (
	FieldComponent   = "component"
	FieldRunID       = "run_id"
	FieldRecordIndex = "record_index" // 1-based position in the batch
	FieldStage       = "stage"
	FieldShow        = "show"
	FieldShotCode    = "shot_code"
	FieldEntityType  = "entity_type"
	FieldEntityID    = "entity_id"
	FieldEventType   = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact states what the user loses because of a warning.
	FieldImpact = "impact"
	FieldAlert  = "alert"
)

// ContextFields returns the run, record, and stage attributes stored in ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if idx, ok := services.RecordIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldRecordIndex, idx))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns logger with the fields from ctx attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return logger.With(args...)
}

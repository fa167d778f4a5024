package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	recordIndexKey contextKey = "record_index"
	stageKey       contextKey = "stage"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordIndex annotates context with the 1-based batch record index.
func WithRecordIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, recordIndexKey, index)
}

// RecordIndexFromContext extracts the batch record index if present.
func RecordIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(recordIndexKey).(int)
	return v, ok
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

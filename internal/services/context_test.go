package services

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithRecordIndex(ctx, 3)
	ctx = WithStage(ctx, StageLookup)

	if id, ok := RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %q %v", id, ok)
	}
	if idx, ok := RecordIndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected record index: %d %v", idx, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != StageLookup {
		t.Fatalf("unexpected stage: %q %v", stage, ok)
	}
	if WithStage(ctx, "") != ctx {
		t.Fatal("expected empty stage to leave context untouched")
	}
	if _, ok := RunIDFromContext(context.Background()); ok {
		t.Fatal("expected missing run id")
	}
}

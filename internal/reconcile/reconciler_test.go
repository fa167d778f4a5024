package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"shotsync/internal/logging"
	"shotsync/internal/reconcile"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
	"shotsync/internal/testsupport"
	"shotsync/internal/tracker"
)

func mustParse(t *testing.T, code string) shotcode.Identity {
	t.Helper()
	id, err := shotcode.ParseForShow("DEMO", code)
	if err != nil {
		t.Fatalf("parse %q: %v", code, err)
	}
	return id
}

func setup(t *testing.T, opts reconcile.Options) (*testsupport.FakeDirectory, *reconcile.Reconciler, string) {
	t.Helper()
	dir := testsupport.NewFakeDirectory()
	project := dir.AddProject("DEMO")
	return dir, reconcile.New(dir, logging.NewNop(), opts), project.ID
}

func TestReconcileCreatesHierarchy(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	ctx := context.Background()

	res, err := r.Reconcile(ctx, projectID, mustParse(t, "EP04_S003_0010"), reconcile.Metadata{
		Description: "plate cleanup",
		FrameCount:  tracker.IntPtr(96),
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Episode == nil || res.Sequence == nil {
		t.Fatalf("expected episode and sequence, got %+v", res)
	}
	if res.Episode.ParentID != "" {
		t.Fatalf("episode should be top-level, parent=%q", res.Episode.ParentID)
	}
	if res.Sequence.ParentID != res.Episode.ID {
		t.Fatalf("sequence parent=%q, want %q", res.Sequence.ParentID, res.Episode.ID)
	}
	if res.Shot.ParentID != res.Sequence.ID {
		t.Fatalf("shot parent=%q, want %q", res.Shot.ParentID, res.Sequence.ID)
	}
	if res.Shot.Name != "0010" {
		t.Fatalf("shot name=%q, want final component 0010", res.Shot.Name)
	}
	if res.Shot.Description != "plate cleanup" || res.Shot.FrameCount == nil || *res.Shot.FrameCount != 96 {
		t.Fatalf("shot metadata not set on create: %+v", res.Shot)
	}
	if res.ShotAction() != reconcile.ActionCreated {
		t.Fatalf("shot action=%q, want created", res.ShotAction())
	}
	if dir.Calls.CreateEntity != 3 || dir.Calls.UpdateEntity != 0 {
		t.Fatalf("calls=%+v, want 3 creates and no updates", dir.Calls)
	}
	if res.Episode.Description != "" || res.Sequence.Description != "" {
		t.Fatalf("episode and sequence should carry no metadata")
	}
}

func TestReconcileParentingByDepth(t *testing.T) {
	tests := []struct {
		code         string
		wantEpisode  bool
		wantSequence bool
	}{
		{code: "S003_0010", wantSequence: true},
		{code: "0010"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, r, projectID := setup(t, reconcile.Options{})
			res, err := r.Reconcile(context.Background(), projectID, mustParse(t, tt.code), reconcile.Metadata{})
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if (res.Episode != nil) != tt.wantEpisode || (res.Sequence != nil) != tt.wantSequence {
				t.Fatalf("unexpected levels: %+v", res)
			}
			wantParent := ""
			if res.Sequence != nil {
				if res.Sequence.ParentID != "" {
					t.Fatalf("sequence without episode should be top-level")
				}
				wantParent = res.Sequence.ID
			}
			if res.Shot.ParentID != wantParent {
				t.Fatalf("shot parent=%q, want %q", res.Shot.ParentID, wantParent)
			}
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	ctx := context.Background()
	id := mustParse(t, "EP04_S003_0010")
	meta := reconcile.Metadata{Description: "plate", FrameCount: tracker.IntPtr(48)}

	first, err := r.Reconcile(ctx, projectID, id, meta)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	before := dir.Calls

	second, err := r.Reconcile(ctx, projectID, id, meta)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if first.Shot.ID != second.Shot.ID {
		t.Fatalf("shot id changed: %q vs %q", first.Shot.ID, second.Shot.ID)
	}
	if dir.Calls.Writes() != before.Writes() {
		t.Fatalf("second run wrote: before=%+v after=%+v", before, dir.Calls)
	}
	for _, step := range second.Steps {
		if step.Action != reconcile.ActionFound {
			t.Fatalf("step %s action=%q, want found", step.Kind, step.Action)
		}
	}
}

func TestReconcileSharesSequenceAcrossRecords(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	ctx := context.Background()

	a, err := r.Reconcile(ctx, projectID, mustParse(t, "EP04_S003_0010"), reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile a: %v", err)
	}
	b, err := r.Reconcile(ctx, projectID, mustParse(t, "EP04_S003_0020"), reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile b: %v", err)
	}
	if a.Sequence.ID != b.Sequence.ID {
		t.Fatalf("sequence duplicated: %q vs %q", a.Sequence.ID, b.Sequence.ID)
	}
	if got := len(dir.Entities(tracker.KindSequence)); got != 1 {
		t.Fatalf("sequences=%d, want 1", got)
	}
	if got := len(dir.Entities(tracker.KindShot)); got != 2 {
		t.Fatalf("shots=%d, want 2", got)
	}
}

func TestSameNameUnderDifferentParentsIsDistinct(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	ctx := context.Background()

	a, err := r.Reconcile(ctx, projectID, mustParse(t, "EP01_S001_0010"), reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile a: %v", err)
	}
	b, err := r.Reconcile(ctx, projectID, mustParse(t, "EP02_S001_0010"), reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile b: %v", err)
	}
	if a.Sequence.ID == b.Sequence.ID || a.Shot.ID == b.Shot.ID {
		t.Fatalf("entities under different episodes must be distinct")
	}
	if got := len(dir.Entities(tracker.KindSequence)); got != 2 {
		t.Fatalf("sequences=%d, want 2", got)
	}
}

func TestReconcileUpdatesOnDrift(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	ctx := context.Background()
	id := mustParse(t, "S003_0010")

	if _, err := r.Reconcile(ctx, projectID, id, reconcile.Metadata{Description: "old"}); err != nil {
		t.Fatalf("seed Reconcile: %v", err)
	}

	res, err := r.Reconcile(ctx, projectID, id, reconcile.Metadata{Description: "new"})
	if err != nil {
		t.Fatalf("drift Reconcile: %v", err)
	}
	if res.Shot.Description != "new" {
		t.Fatalf("description=%q, want new", res.Shot.Description)
	}
	if res.ShotAction() != reconcile.ActionUpdated {
		t.Fatalf("action=%q, want updated", res.ShotAction())
	}
	if dir.Calls.UpdateEntity != 1 {
		t.Fatalf("updates=%d, want 1", dir.Calls.UpdateEntity)
	}

	if _, err := r.Reconcile(ctx, projectID, id, reconcile.Metadata{Description: "new"}); err != nil {
		t.Fatalf("repeat Reconcile: %v", err)
	}
	if dir.Calls.UpdateEntity != 1 {
		t.Fatalf("updates=%d after repeat, want 1", dir.Calls.UpdateEntity)
	}
}

func TestReconcileDriftRules(t *testing.T) {
	tests := []struct {
		name        string
		meta        reconcile.Metadata
		wantUpdates int
	}{
		{name: "empty description ignored", meta: reconcile.Metadata{Description: ""}, wantUpdates: 0},
		{name: "same frame count", meta: reconcile.Metadata{FrameCount: tracker.IntPtr(24)}, wantUpdates: 0},
		{name: "new frame count", meta: reconcile.Metadata{FrameCount: tracker.IntPtr(25)}, wantUpdates: 1},
		{name: "both changed", meta: reconcile.Metadata{Description: "other", FrameCount: tracker.IntPtr(30)}, wantUpdates: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, r, projectID := setup(t, reconcile.Options{})
			dir.Seed(tracker.Entity{ProjectID: projectID, Type: tracker.KindShot, Name: "0010", Description: "plate", FrameCount: tracker.IntPtr(24)})

			if _, err := r.Reconcile(context.Background(), projectID, mustParse(t, "0010"), tt.meta); err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if dir.Calls.UpdateEntity != tt.wantUpdates {
				t.Fatalf("updates=%d, want %d", dir.Calls.UpdateEntity, tt.wantUpdates)
			}
			if dir.Calls.CreateEntity != 0 {
				t.Fatalf("existing shot must not be recreated")
			}
		})
	}
}

func TestAmbiguousMatchPicksFirst(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	first := dir.Seed(tracker.Entity{ProjectID: projectID, Type: tracker.KindSequence, Name: "S003"})
	dir.Seed(tracker.Entity{ProjectID: projectID, Type: tracker.KindSequence, Name: "S003"})

	res, err := r.Reconcile(context.Background(), projectID, mustParse(t, "S003_0010"), reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Sequence.ID != first.ID {
		t.Fatalf("sequence=%q, want first match %q", res.Sequence.ID, first.ID)
	}
	if !res.Ambiguous() {
		t.Fatalf("expected resolution to be flagged ambiguous")
	}
	if res.Shot.ParentID != first.ID {
		t.Fatalf("shot parented to %q, want %q", res.Shot.ParentID, first.ID)
	}
}

func TestAmbiguousMatchStrict(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{StrictMatching: true})
	dir.Seed(tracker.Entity{ProjectID: projectID, Type: tracker.KindSequence, Name: "S003"})
	dir.Seed(tracker.Entity{ProjectID: projectID, Type: tracker.KindSequence, Name: "S003"})

	_, err := r.Reconcile(context.Background(), projectID, mustParse(t, "S003_0010"), reconcile.Metadata{})
	if !errors.Is(err, services.ErrAmbiguousMatch) {
		t.Fatalf("expected ErrAmbiguousMatch, got %v", err)
	}
	if services.StageOf(err) != services.StageLookup {
		t.Fatalf("stage=%q, want lookup", services.StageOf(err))
	}
	if dir.Calls.Writes() != 0 {
		t.Fatalf("strict ambiguity must not write, calls=%+v", dir.Calls)
	}
}

func TestMissingEntityTypeWritesNothing(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	dir.RemoveType(tracker.KindEpisode)

	_, err := r.Reconcile(context.Background(), projectID, mustParse(t, "EP04_S003_0010"), reconcile.Metadata{})
	if !errors.Is(err, services.ErrEntityTypeNotFound) {
		t.Fatalf("expected ErrEntityTypeNotFound, got %v", err)
	}
	if dir.Calls.Writes() != 0 || dir.Calls.FindEntities != 0 {
		t.Fatalf("preflight failure must stop before any lookup, calls=%+v", dir.Calls)
	}

	// Two-part codes never need the episode type.
	if _, err := r.Reconcile(context.Background(), projectID, mustParse(t, "S003_0010"), reconcile.Metadata{}); err != nil {
		t.Fatalf("two-part Reconcile: %v", err)
	}
}

func TestReconcileRejectsInvalidIdentity(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})

	_, err := r.Reconcile(context.Background(), projectID, shotcode.Identity{Episode: "EP04", Shot: "0010"}, reconcile.Metadata{})
	if !errors.Is(err, services.ErrMalformedShotCode) {
		t.Fatalf("expected ErrMalformedShotCode, got %v", err)
	}
	if dir.Calls.ListEntityTypes != 0 || dir.Calls.Writes() != 0 {
		t.Fatalf("invalid identity must not reach the tracker, calls=%+v", dir.Calls)
	}
}

func TestPartialFailureKeepsCreatedLevels(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	rejected := errors.Join(services.ErrRemoteRejected, errors.New("name taken"))
	dir.FailOn("create", func(arg any) bool {
		req, ok := arg.(tracker.NewEntity)
		return ok && req.Type == tracker.KindShot
	}, rejected)

	_, err := r.Reconcile(context.Background(), projectID, mustParse(t, "EP04_S003_0010"), reconcile.Metadata{})
	if !errors.Is(err, services.ErrRemoteRejected) {
		t.Fatalf("expected ErrRemoteRejected, got %v", err)
	}
	if services.StageOf(err) != services.StageCreate {
		t.Fatalf("stage=%q, want create", services.StageOf(err))
	}
	if len(dir.Entities(tracker.KindEpisode)) != 1 || len(dir.Entities(tracker.KindSequence)) != 1 {
		t.Fatalf("created levels should remain after a later failure")
	}
}

func TestRemoteUnavailableIsRetryable(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{})
	dir.Fail("find", services.ErrRemoteUnavailable)

	_, err := r.Reconcile(context.Background(), projectID, mustParse(t, "0010"), reconcile.Metadata{})
	if !services.Retryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if services.StageOf(err) != services.StageLookup {
		t.Fatalf("stage=%q, want lookup", services.StageOf(err))
	}
}

func TestTaskSeeding(t *testing.T) {
	dir, r, projectID := setup(t, reconcile.Options{TaskTypes: []string{"Compositing", "Roto"}})
	ctx := context.Background()
	id := mustParse(t, "S003_0010")

	res, err := r.Reconcile(ctx, projectID, id, reconcile.Metadata{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := dir.Tasks(res.Shot.ID); len(got) != 2 {
		t.Fatalf("tasks=%v, want 2", got)
	}

	if _, err := r.Reconcile(ctx, projectID, id, reconcile.Metadata{}); err != nil {
		t.Fatalf("repeat Reconcile: %v", err)
	}
	if dir.Calls.CreateTasks != 1 {
		t.Fatalf("tasks seeded %d times, want 1", dir.Calls.CreateTasks)
	}
}

func TestResolveProject(t *testing.T) {
	_, r, projectID := setup(t, reconcile.Options{})

	project, err := r.ResolveProject(context.Background(), "DEMO")
	if err != nil {
		t.Fatalf("ResolveProject: %v", err)
	}
	if project.ID != projectID {
		t.Fatalf("project=%q, want %q", project.ID, projectID)
	}

	_, err = r.ResolveProject(context.Background(), "NOPE")
	if !errors.Is(err, services.ErrProjectNotFound) || services.StageOf(err) != services.StageLookup {
		t.Fatalf("expected lookup-stage ErrProjectNotFound, got %v", err)
	}
}

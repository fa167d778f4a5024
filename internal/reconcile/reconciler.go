package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"shotsync/internal/logging"
	"shotsync/internal/services"
	"shotsync/internal/shotcode"
	"shotsync/internal/tracker"
)

// Options tune reconciliation policy.
type Options struct {
	// StrictMatching fails a lookup that matches more than one entity instead
	// of proceeding with the first match.
	StrictMatching bool
	// TaskTypes are seeded on newly created shots when the directory supports it.
	TaskTypes []string
}

// Metadata is the mutable shot data supplied with a record. An empty
// Description or nil FrameCount means "not supplied".
type Metadata struct {
	Description string
	FrameCount  *int
}

func (m Metadata) newEntity(q tracker.Query) tracker.NewEntity {
	return tracker.NewEntity{
		ProjectID:   q.ProjectID,
		Type:        q.Type,
		Name:        q.Name,
		ParentID:    q.ParentID,
		Description: m.Description,
		FrameCount:  m.FrameCount,
	}
}

// drift returns the fields of m that differ from what existing holds.
func (m Metadata) drift(existing tracker.Entity) tracker.Fields {
	var fields tracker.Fields
	if m.Description != "" && m.Description != existing.Description {
		fields.Description = tracker.StringPtr(m.Description)
	}
	if m.FrameCount != nil && (existing.FrameCount == nil || *existing.FrameCount != *m.FrameCount) {
		fields.FrameCount = tracker.IntPtr(*m.FrameCount)
	}
	return fields
}

// Action records what reconciliation did at one level.
type Action string

const (
	ActionFound   Action = "found"
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Step is the outcome for one hierarchy level.
type Step struct {
	Kind    tracker.Kind   `json:"kind"`
	Entity  tracker.Entity `json:"entity"`
	Action  Action         `json:"action"`
	Matches int            `json:"matches"`
}

// Resolution is the result of a successful reconciliation.
type Resolution struct {
	ProjectID string          `json:"project_id"`
	Episode   *tracker.Entity `json:"episode,omitempty"`
	Sequence  *tracker.Entity `json:"sequence,omitempty"`
	Shot      tracker.Entity  `json:"shot"`
	Steps     []Step          `json:"steps"`
	Tasks     []string        `json:"tasks,omitempty"`
}

// ShotAction returns what happened to the shot entity.
func (r Resolution) ShotAction() Action {
	if len(r.Steps) == 0 {
		return ""
	}
	return r.Steps[len(r.Steps)-1].Action
}

// Ambiguous reports whether any level matched more than one entity.
func (r Resolution) Ambiguous() bool {
	for _, step := range r.Steps {
		if step.Matches > 1 {
			return true
		}
	}
	return false
}

// Reconciler resolves identities against a tracker.Directory. It is not safe
// for concurrent use on overlapping identities; callers serialize records.
type Reconciler struct {
	dir    tracker.Directory
	logger *slog.Logger
	opts   Options
}

// New constructs a Reconciler.
func New(dir tracker.Directory, logger *slog.Logger, opts Options) *Reconciler {
	return &Reconciler{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "reconcile"),
		opts:   opts,
	}
}

// Reconcile fetches or creates every level of id under projectID and returns
// the resolved shot. The shot is named by its final code component.
func (r *Reconciler) Reconcile(ctx context.Context, projectID string, id shotcode.Identity, meta Metadata) (Resolution, error) {
	if err := id.Validate(); err != nil {
		return Resolution{}, err
	}
	if strings.TrimSpace(projectID) == "" {
		return Resolution{}, services.Wrap(services.ErrProjectNotFound, services.StageLookup, "reconcile", "project id is empty", nil)
	}
	if r.dir == nil {
		return Resolution{}, services.Wrap(services.ErrConfiguration, services.StageLookup, "reconcile", "no tracker directory configured", nil)
	}

	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldShow, id.Show),
		logging.String(logging.FieldShotCode, id.Code()),
	)

	if err := r.preflight(ctx, id); err != nil {
		return Resolution{}, err
	}

	res := Resolution{ProjectID: projectID}
	parentID := ""

	if id.Episode != "" {
		step, err := r.fetchOrCreate(ctx, logger, tracker.Query{
			ProjectID: projectID,
			Type:      tracker.KindEpisode,
			Name:      id.Episode,
		}, Metadata{})
		if err != nil {
			return res, err
		}
		res.Steps = append(res.Steps, step)
		episode := step.Entity
		res.Episode = &episode
		parentID = episode.ID
	}

	if id.Sequence != "" {
		step, err := r.fetchOrCreate(ctx, logger, tracker.Query{
			ProjectID: projectID,
			Type:      tracker.KindSequence,
			Name:      id.Sequence,
			ParentID:  parentID,
		}, Metadata{})
		if err != nil {
			return res, err
		}
		res.Steps = append(res.Steps, step)
		sequence := step.Entity
		res.Sequence = &sequence
		parentID = sequence.ID
	}

	step, err := r.fetchOrCreate(ctx, logger, tracker.Query{
		ProjectID: projectID,
		Type:      tracker.KindShot,
		Name:      id.Shot,
		ParentID:  parentID,
	}, meta)
	if err != nil {
		return res, err
	}
	res.Steps = append(res.Steps, step)
	res.Shot = step.Entity

	if step.Action == ActionCreated {
		tasks, err := r.seedTasks(ctx, logger, projectID, res.Shot)
		if err != nil {
			return res, err
		}
		res.Tasks = tasks
	}
	return res, nil
}

// preflight confirms every entity type the walk needs exists before anything
// is written.
func (r *Reconciler) preflight(ctx context.Context, id shotcode.Identity) error {
	types, err := r.dir.ListEntityTypes(ctx)
	if err != nil {
		return services.AtStage(services.StageLookup, "list entity types", err)
	}
	needed := []tracker.Kind{tracker.KindShot}
	if id.Sequence != "" {
		needed = append(needed, tracker.KindSequence)
	}
	if id.Episode != "" {
		needed = append(needed, tracker.KindEpisode)
	}
	var missing []string
	for _, kind := range needed {
		if !tracker.HasType(types, kind) {
			missing = append(missing, string(kind))
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrEntityTypeNotFound, services.StageLookup, "list entity types",
			"tracker is missing entity types: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

func (r *Reconciler) fetchOrCreate(ctx context.Context, logger *slog.Logger, q tracker.Query, meta Metadata) (Step, error) {
	op := strings.ToLower(string(q.Type))
	step := Step{Kind: q.Type}

	matches, err := r.dir.FindEntities(ctx, q)
	if err != nil {
		return step, services.AtStage(services.StageLookup, "find "+op, err)
	}
	step.Matches = len(matches)

	if len(matches) == 0 {
		created, err := r.dir.CreateEntity(ctx, meta.newEntity(q))
		if err != nil {
			return step, services.AtStage(services.StageCreate, "create "+op, err)
		}
		if created.ID == "" {
			return step, services.Wrap(services.ErrRemoteRejected, services.StageCreate, "create "+op, "tracker returned an entity without an id", nil)
		}
		logger.Info("tracker entity created",
			logging.String(logging.FieldEntityType, string(q.Type)),
			logging.String(logging.FieldEntityID, created.ID),
			logging.String("name", q.Name),
			logging.String("parent_id", q.ParentID))
		step.Entity = created
		step.Action = ActionCreated
		return step, nil
	}

	if len(matches) > 1 {
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		if r.opts.StrictMatching {
			return step, services.Wrap(services.ErrAmbiguousMatch, services.StageLookup, "find "+op,
				fmt.Sprintf("%d %s entities named %q share parent %q: %s", len(matches), q.Type, q.Name, q.ParentID, strings.Join(ids, ", ")), nil)
		}
		logging.WarnWithContext(logger, "ambiguous tracker match; using first entity", "ambiguous_match",
			logging.Alert("ambiguous_match"),
			logging.String(logging.FieldEntityType, string(q.Type)),
			logging.String(logging.FieldEntityID, matches[0].ID),
			logging.String("name", q.Name),
			logging.String("parent_id", q.ParentID),
			logging.Int("matches", len(matches)),
			logging.String("candidates", strings.Join(ids, ",")),
			logging.String(logging.FieldErrorHint, "merge the duplicate entities in the tracker"),
			logging.String(logging.FieldImpact, "metadata is written to the first match only"),
		)
	}

	existing := matches[0]
	fields := meta.drift(existing)
	if fields.IsEmpty() {
		logger.Debug("tracker entity up to date",
			logging.String(logging.FieldEntityType, string(q.Type)),
			logging.String(logging.FieldEntityID, existing.ID))
		step.Entity = existing
		step.Action = ActionFound
		return step, nil
	}

	updated, err := r.dir.UpdateEntity(ctx, existing.ID, fields)
	if err != nil {
		return step, services.AtStage(services.StageUpdate, "update "+op, err)
	}
	step.Entity = mergeUpdate(existing, updated, fields)
	step.Action = ActionUpdated
	logger.Info("tracker entity updated",
		logging.String(logging.FieldEntityType, string(q.Type)),
		logging.String(logging.FieldEntityID, existing.ID),
		logging.Bool("description_changed", fields.Description != nil),
		logging.Bool("frame_count_changed", fields.FrameCount != nil))
	return step, nil
}

// mergeUpdate overlays the patched fields on existing so the result is
// complete even when the server echoes a partial entity.
func mergeUpdate(existing, updated tracker.Entity, fields tracker.Fields) tracker.Entity {
	merged := existing
	if updated.ID != "" && updated.ID == existing.ID {
		merged = updated
		if merged.Type == "" {
			merged.Type = existing.Type
		}
		if merged.ProjectID == "" {
			merged.ProjectID = existing.ProjectID
		}
		if merged.ParentID == "" {
			merged.ParentID = existing.ParentID
		}
		if merged.Name == "" {
			merged.Name = existing.Name
		}
	}
	if fields.Description != nil {
		merged.Description = *fields.Description
	}
	if fields.FrameCount != nil {
		merged.FrameCount = tracker.IntPtr(*fields.FrameCount)
	}
	return merged
}

func (r *Reconciler) seedTasks(ctx context.Context, logger *slog.Logger, projectID string, shot tracker.Entity) ([]string, error) {
	if len(r.opts.TaskTypes) == 0 {
		return nil, nil
	}
	creator, ok := r.dir.(tracker.TaskCreator)
	if !ok {
		logger.Debug("tracker directory cannot create tasks; skipping task seeding")
		return nil, nil
	}
	if err := creator.CreateTasks(ctx, projectID, shot.ID, r.opts.TaskTypes); err != nil {
		return nil, services.AtStage(services.StageCreate, "create shot tasks", err)
	}
	logger.Info("shot tasks created",
		logging.String(logging.FieldEntityID, shot.ID),
		logging.String("task_types", strings.Join(r.opts.TaskTypes, ",")))
	return append([]string(nil), r.opts.TaskTypes...), nil
}

// ResolveProject looks up the project named show.
func (r *Reconciler) ResolveProject(ctx context.Context, show string) (tracker.Entity, error) {
	if r.dir == nil {
		return tracker.Entity{}, services.Wrap(services.ErrConfiguration, services.StageLookup, "find project", "no tracker directory configured", nil)
	}
	project, err := r.dir.FindProject(ctx, show)
	if err != nil {
		return tracker.Entity{}, services.AtStage(services.StageLookup, "find project", err)
	}
	return project, nil
}

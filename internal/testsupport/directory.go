package testsupport

import (
	"context"
	"fmt"
	"sync"

	"shotsync/internal/services"
	"shotsync/internal/tracker"
)

// FakeDirectory is an in-memory tracker.Directory and tracker.TaskCreator.
// IDs are assigned sequentially; entities are returned in creation order.
type FakeDirectory struct {
	mu       sync.Mutex
	types    []tracker.EntityType
	projects []tracker.Entity
	entities []tracker.Entity
	tasks    map[string][]string
	nextID   int

	// Failure injection, keyed by operation: "find", "create", "update",
	// "types", "project", "tasks". FailOn fires only when the predicate matches.
	failures map[string]failure

	Calls CallCounts
}

// CallCounts tracks how many times each directory operation was invoked.
type CallCounts struct {
	ListEntityTypes int
	FindProject     int
	FindEntities    int
	CreateEntity    int
	UpdateEntity    int
	CreateTasks     int
}

// Writes returns the number of mutating calls.
func (c CallCounts) Writes() int {
	return c.CreateEntity + c.UpdateEntity + c.CreateTasks
}

type failure struct {
	match func(any) bool
	err   error
}

var (
	_ tracker.Directory   = (*FakeDirectory)(nil)
	_ tracker.TaskCreator = (*FakeDirectory)(nil)
)

// NewFakeDirectory returns a directory holding the standard entity types and
// the named projects.
func NewFakeDirectory(projects ...string) *FakeDirectory {
	d := &FakeDirectory{
		types: []tracker.EntityType{
			{ID: "type-episode", Name: string(tracker.KindEpisode)},
			{ID: "type-sequence", Name: string(tracker.KindSequence)},
			{ID: "type-shot", Name: string(tracker.KindShot)},
		},
		tasks:    make(map[string][]string),
		failures: make(map[string]failure),
	}
	for _, name := range projects {
		d.AddProject(name)
	}
	return d
}

// AddProject registers a project and returns it.
func (d *FakeDirectory) AddProject(name string) tracker.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	project := tracker.Entity{ID: d.newIDLocked("proj"), Type: tracker.KindProject, Name: name}
	d.projects = append(d.projects, project)
	return project
}

// Projects returns the registered projects.
func (d *FakeDirectory) Projects() []tracker.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]tracker.Entity(nil), d.projects...)
}

// RemoveType drops an entity type so preflight checks can be exercised.
func (d *FakeDirectory) RemoveType(kind tracker.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.types[:0]
	for _, t := range d.types {
		if t.Name != string(kind) {
			kept = append(kept, t)
		}
	}
	d.types = kept
}

// Seed stores an entity directly without counting a create call. Used to
// model pre-existing or duplicated remote state.
func (d *FakeDirectory) Seed(entity tracker.Entity) tracker.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entity.ID == "" {
		entity.ID = d.newIDLocked("ent")
	}
	d.entities = append(d.entities, entity)
	return entity
}

// Fail makes every call of op return err.
func (d *FakeDirectory) Fail(op string, err error) {
	d.FailOn(op, nil, err)
}

// FailOn makes calls of op return err when match reports true for the call's
// argument (tracker.Query, tracker.NewEntity, tracker.Fields, or a name).
func (d *FakeDirectory) FailOn(op string, match func(any) bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = failure{match: match, err: err}
}

// Entities returns a snapshot of all stored entities of kind.
func (d *FakeDirectory) Entities(kind tracker.Kind) []tracker.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []tracker.Entity
	for _, e := range d.entities {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// Tasks returns the task types created for entityID.
func (d *FakeDirectory) Tasks(entityID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tasks[entityID]...)
}

func (d *FakeDirectory) ListEntityTypes(ctx context.Context) ([]tracker.EntityType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.ListEntityTypes++
	if err := d.failLocked("types", nil); err != nil {
		return nil, err
	}
	return append([]tracker.EntityType(nil), d.types...), nil
}

func (d *FakeDirectory) FindProject(ctx context.Context, name string) (tracker.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.FindProject++
	if err := d.failLocked("project", name); err != nil {
		return tracker.Entity{}, err
	}
	for _, p := range d.projects {
		if p.Name == name {
			return p, nil
		}
	}
	return tracker.Entity{}, services.Wrap(services.ErrProjectNotFound, "", "find project", fmt.Sprintf("no project named %q", name), nil)
}

func (d *FakeDirectory) FindEntities(ctx context.Context, q tracker.Query) ([]tracker.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.FindEntities++
	if err := d.failLocked("find", q); err != nil {
		return nil, err
	}
	var out []tracker.Entity
	for _, e := range d.entities {
		if e.ProjectID == q.ProjectID && e.Type == q.Type && e.Name == q.Name && e.ParentID == q.ParentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *FakeDirectory) CreateEntity(ctx context.Context, req tracker.NewEntity) (tracker.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.CreateEntity++
	if err := d.failLocked("create", req); err != nil {
		return tracker.Entity{}, err
	}
	entity := tracker.Entity{
		ID:          d.newIDLocked("ent"),
		Type:        req.Type,
		Name:        req.Name,
		ProjectID:   req.ProjectID,
		ParentID:    req.ParentID,
		Description: req.Description,
	}
	if req.FrameCount != nil {
		entity.FrameCount = tracker.IntPtr(*req.FrameCount)
	}
	d.entities = append(d.entities, entity)
	return entity, nil
}

func (d *FakeDirectory) UpdateEntity(ctx context.Context, id string, fields tracker.Fields) (tracker.Entity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.UpdateEntity++
	if err := d.failLocked("update", fields); err != nil {
		return tracker.Entity{}, err
	}
	for i := range d.entities {
		if d.entities[i].ID != id {
			continue
		}
		if fields.Description != nil {
			d.entities[i].Description = *fields.Description
		}
		if fields.FrameCount != nil {
			d.entities[i].FrameCount = tracker.IntPtr(*fields.FrameCount)
		}
		return d.entities[i], nil
	}
	return tracker.Entity{}, fmt.Errorf("%w: entity %s not found", services.ErrRemoteRejected, id)
}

func (d *FakeDirectory) CreateTasks(ctx context.Context, projectID, entityID string, taskTypes []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls.CreateTasks++
	if err := d.failLocked("tasks", entityID); err != nil {
		return err
	}
	d.tasks[entityID] = append(d.tasks[entityID], taskTypes...)
	return nil
}

func (d *FakeDirectory) failLocked(op string, arg any) error {
	f, ok := d.failures[op]
	if !ok {
		return nil
	}
	if f.match != nil && !f.match(arg) {
		return nil
	}
	return f.err
}

func (d *FakeDirectory) newIDLocked(prefix string) string {
	d.nextID++
	return fmt.Sprintf("%s-%03d", prefix, d.nextID)
}

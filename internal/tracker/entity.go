package tracker

import (
	"context"
	"strings"
)

// Kind names an entity type in the tracking graph.
type Kind string

const (
	KindProject  Kind = "Project"
	KindEpisode  Kind = "Episode"
	KindSequence Kind = "Sequence"
	KindShot     Kind = "Shot"
)

func (k Kind) String() string { return string(k) }

// Entity is one node in the tracking graph. IDs are assigned by the remote
// system. ParentID is empty for projects and for top-level episodes or
// sequences.
type Entity struct {
	ID          string `json:"id"`
	Type        Kind   `json:"type"`
	Name        string `json:"name"`
	ProjectID   string `json:"project_id,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Description string `json:"description,omitempty"`
	FrameCount  *int   `json:"frame_count,omitempty"`
}

// EntityType is a named type registered on the remote server.
type EntityType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewEntity describes an entity to create.
type NewEntity struct {
	ProjectID   string
	Type        Kind
	Name        string
	ParentID    string
	Description string
	FrameCount  *int
}

// Fields holds the mutable metadata sent with an update. Nil pointers are
// left untouched on the remote side.
type Fields struct {
	Description *string
	FrameCount  *int
}

// IsEmpty reports whether the update would change nothing.
func (f Fields) IsEmpty() bool {
	return f.Description == nil && f.FrameCount == nil
}

// Query identifies the unique key an entity is searched by.
type Query struct {
	ProjectID string
	Type      Kind
	Name      string
	ParentID  string
}

// Directory is the capability set over the remote graph consumed by the
// reconciler.
type Directory interface {
	ListEntityTypes(ctx context.Context) ([]EntityType, error)
	FindProject(ctx context.Context, name string) (Entity, error)
	FindEntities(ctx context.Context, q Query) ([]Entity, error)
	CreateEntity(ctx context.Context, req NewEntity) (Entity, error)
	UpdateEntity(ctx context.Context, id string, fields Fields) (Entity, error)
}

// TaskCreator is implemented by directories that can seed tasks on a newly
// created shot.
type TaskCreator interface {
	CreateTasks(ctx context.Context, projectID, entityID string, taskTypes []string) error
}

// HasType reports whether kind is present in types.
func HasType(types []EntityType, kind Kind) bool {
	for _, t := range types {
		if strings.EqualFold(strings.TrimSpace(t.Name), string(kind)) {
			return true
		}
	}
	return false
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

package testsupport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shotsync/internal/services"
	"shotsync/internal/tracker"
)

// KitsuServer serves the subset of the Kitsu REST API shotsync uses on top
// of a FakeDirectory.
type KitsuServer struct {
	*httptest.Server
	Dir   *FakeDirectory
	Token string
}

// TaskTypeNames are the task types the fake server knows.
var TaskTypeNames = []string{"Compositing", "Roto", "Paint"}

type kitsuEntity struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	EntityTypeID string  `json:"entity_type_id,omitempty"`
	ProjectID    string  `json:"project_id,omitempty"`
	ParentID     *string `json:"parent_id"`
	Description  *string `json:"description"`
	NbFrames     *int    `json:"nb_frames"`
}

// NewKitsuServer starts a fake Kitsu API backed by dir. The server is closed
// when the test ends.
func NewKitsuServer(t testing.TB, dir *FakeDirectory) *KitsuServer {
	t.Helper()
	ks := &KitsuServer{Dir: dir, Token: "test-token"}
	ks.Server = httptest.NewServer(ks.routes())
	t.Cleanup(ks.Server.Close)
	return ks
}

// APIURL is the base URL to configure the client with.
func (ks *KitsuServer) APIURL() string {
	return ks.Server.URL + "/api"
}

func (ks *KitsuServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/data/projects", func(w http.ResponseWriter, r *http.Request) {
		var out []kitsuEntity
		for _, p := range ks.Dir.Projects() {
			if name := r.URL.Query().Get("name"); name != "" && name != p.Name {
				continue
			}
			out = append(out, kitsuEntity{ID: p.ID, Name: p.Name})
		}
		writeKitsu(w, out, nil)
	})
	mux.HandleFunc("GET /api/data/entity-types", func(w http.ResponseWriter, r *http.Request) {
		types, err := ks.Dir.ListEntityTypes(r.Context())
		writeKitsu(w, types, err)
	})
	mux.HandleFunc("GET /api/data/task-types", func(w http.ResponseWriter, r *http.Request) {
		out := make([]tracker.EntityType, 0, len(TaskTypeNames))
		for _, name := range TaskTypeNames {
			out = append(out, tracker.EntityType{ID: "task-" + name, Name: name})
		}
		writeKitsu(w, out, nil)
	})
	mux.HandleFunc("GET /api/data/entities", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		kind, ok := ks.kindFor(r, q.Get("entity_type_id"))
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}
		found, err := ks.Dir.FindEntities(r.Context(), tracker.Query{
			ProjectID: q.Get("project_id"),
			Type:      kind,
			Name:      q.Get("name"),
			ParentID:  q.Get("parent_id"),
		})
		if err != nil {
			writeKitsu(w, nil, err)
			return
		}
		out := make([]kitsuEntity, 0, len(found))
		for _, e := range found {
			out = append(out, ks.toWire(r, e))
		}
		writeKitsu(w, out, nil)
	})
	mux.HandleFunc("POST /api/data/entities", func(w http.ResponseWriter, r *http.Request) {
		if !ks.authorized(w, r) {
			return
		}
		var body kitsuEntity
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kind, ok := ks.kindFor(r, body.EntityTypeID)
		if !ok {
			http.Error(w, "unknown entity type", http.StatusBadRequest)
			return
		}
		req := tracker.NewEntity{ProjectID: body.ProjectID, Type: kind, Name: body.Name, FrameCount: body.NbFrames}
		if body.ParentID != nil {
			req.ParentID = *body.ParentID
		}
		if body.Description != nil {
			req.Description = *body.Description
		}
		created, err := ks.Dir.CreateEntity(r.Context(), req)
		if err != nil {
			writeKitsu(w, nil, err)
			return
		}
		writeKitsu(w, ks.toWire(r, created), nil)
	})
	mux.HandleFunc("PUT /api/data/entities/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !ks.authorized(w, r) {
			return
		}
		var body struct {
			Description *string `json:"description"`
			NbFrames    *int    `json:"nb_frames"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		updated, err := ks.Dir.UpdateEntity(r.Context(), r.PathValue("id"), tracker.Fields{Description: body.Description, FrameCount: body.NbFrames})
		if err != nil {
			writeKitsu(w, nil, err)
			return
		}
		writeKitsu(w, ks.toWire(r, updated), nil)
	})
	mux.HandleFunc("POST /api/data/tasks", func(w http.ResponseWriter, r *http.Request) {
		if !ks.authorized(w, r) {
			return
		}
		var body struct {
			ProjectID  string `json:"project_id"`
			EntityID   string `json:"entity_id"`
			TaskTypeID string `json:"task_type_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := strings.TrimPrefix(body.TaskTypeID, "task-")
		err := ks.Dir.CreateTasks(r.Context(), body.ProjectID, body.EntityID, []string{name})
		writeKitsu(w, body, err)
	})
	return mux
}

func (ks *KitsuServer) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+ks.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (ks *KitsuServer) kindFor(r *http.Request, typeID string) (tracker.Kind, bool) {
	types, err := ks.Dir.ListEntityTypes(r.Context())
	if err != nil {
		return "", false
	}
	for _, t := range types {
		if t.ID == typeID {
			return tracker.Kind(t.Name), true
		}
	}
	return "", false
}

func (ks *KitsuServer) toWire(r *http.Request, e tracker.Entity) kitsuEntity {
	out := kitsuEntity{ID: e.ID, Name: e.Name, ProjectID: e.ProjectID, NbFrames: e.FrameCount}
	if types, err := ks.Dir.ListEntityTypes(r.Context()); err == nil {
		for _, t := range types {
			if t.Name == string(e.Type) {
				out.EntityTypeID = t.ID
			}
		}
	}
	if e.ParentID != "" {
		out.ParentID = &e.ParentID
	}
	if e.Description != "" {
		out.Description = &e.Description
	}
	return out
}

func writeKitsu(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrRemoteUnavailable) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

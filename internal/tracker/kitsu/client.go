package kitsu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"shotsync/internal/logging"
	"shotsync/internal/services"
	"shotsync/internal/tracker"
)

const (
	defaultTimeout = 10 * time.Second
	errorBodyLimit = 512
)

// HTTPDoer describes the HTTP client used by the Kitsu directory.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Kitsu server rooted at baseURL (the API root, e.g.
// http://kitsu.local/api).
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient HTTPDoer
	logger     *slog.Logger

	mu          sync.Mutex
	typeIDs     map[string]string // lower-case name → id
	typeKinds   map[string]tracker.Kind
	taskTypeIDs map[string]string
}

var (
	_ tracker.Directory   = (*Client)(nil)
	_ tracker.TaskCreator = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "kitsu")
		}
	}
}

// New creates a Kitsu directory client. timeout bounds every individual call;
// zero selects the default.
func New(baseURL, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "kitsu client", "base url required", nil)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "kitsu client", "api token required", nil)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		baseURL:    baseURL,
		token:      token,
		timeout:    timeout,
		httpClient: http.DefaultClient,
		logger:     logging.NewComponentLogger(nil, "kitsu"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type wireEntity struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	EntityTypeID string  `json:"entity_type_id,omitempty"`
	ProjectID    string  `json:"project_id,omitempty"`
	ParentID     *string `json:"parent_id,omitempty"`
	Description  *string `json:"description,omitempty"`
	NbFrames     *int    `json:"nb_frames,omitempty"`
}

type wireNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListEntityTypes returns every entity type registered on the server and
// refreshes the type cache.
func (c *Client) ListEntityTypes(ctx context.Context) ([]tracker.EntityType, error) {
	var payload []wireNamed
	if err := c.do(ctx, http.MethodGet, "/data/entity-types", nil, nil, &payload); err != nil {
		return nil, err
	}
	types := make([]tracker.EntityType, 0, len(payload))
	ids := make(map[string]string, len(payload))
	kinds := make(map[string]tracker.Kind, len(payload))
	for _, p := range payload {
		types = append(types, tracker.EntityType{ID: p.ID, Name: p.Name})
		ids[strings.ToLower(strings.TrimSpace(p.Name))] = p.ID
		kinds[p.ID] = tracker.Kind(strings.TrimSpace(p.Name))
	}
	c.mu.Lock()
	c.typeIDs = ids
	c.typeKinds = kinds
	c.mu.Unlock()
	return types, nil
}

// FindProject returns the project whose name matches exactly.
func (c *Client) FindProject(ctx context.Context, name string) (tracker.Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return tracker.Entity{}, services.Wrap(services.ErrProjectNotFound, "", "find project", "project name is empty", nil)
	}
	var payload []wireEntity
	if err := c.do(ctx, http.MethodGet, "/data/projects", url.Values{"name": {name}}, nil, &payload); err != nil {
		return tracker.Entity{}, err
	}
	for _, p := range payload {
		if p.Name == name {
			return tracker.Entity{ID: p.ID, Type: tracker.KindProject, Name: p.Name}, nil
		}
	}
	return tracker.Entity{}, services.Wrap(services.ErrProjectNotFound, "", "find project", fmt.Sprintf("no project named %q", name), nil)
}

// FindEntities returns entities matching the full (project, type, name,
// parent) key in server order.
func (c *Client) FindEntities(ctx context.Context, q tracker.Query) ([]tracker.Entity, error) {
	typeID, err := c.entityTypeID(ctx, q.Type)
	if err != nil {
		return nil, err
	}
	params := url.Values{
		"project_id":     {q.ProjectID},
		"entity_type_id": {typeID},
		"name":           {q.Name},
	}
	if q.ParentID != "" {
		params.Set("parent_id", q.ParentID)
	}
	var payload []wireEntity
	if err := c.do(ctx, http.MethodGet, "/data/entities", params, nil, &payload); err != nil {
		return nil, err
	}

	matches := make([]tracker.Entity, 0, len(payload))
	for _, p := range payload {
		entity := c.toEntity(p, q.Type)
		// The server ignores an absent parent filter, so top-level lookups
		// must drop parented namesakes here.
		if entity.Name != q.Name || entity.ParentID != q.ParentID {
			continue
		}
		if entity.ProjectID != "" && entity.ProjectID != q.ProjectID {
			continue
		}
		matches = append(matches, entity)
	}
	return matches, nil
}

// CreateEntity creates one entity with its initial metadata.
func (c *Client) CreateEntity(ctx context.Context, req tracker.NewEntity) (tracker.Entity, error) {
	typeID, err := c.entityTypeID(ctx, req.Type)
	if err != nil {
		return tracker.Entity{}, err
	}
	body := wireEntity{
		Name:         req.Name,
		EntityTypeID: typeID,
		ProjectID:    req.ProjectID,
		NbFrames:     req.FrameCount,
	}
	if req.ParentID != "" {
		body.ParentID = &req.ParentID
	}
	if req.Description != "" {
		body.Description = &req.Description
	}
	var created wireEntity
	if err := c.do(ctx, http.MethodPost, "/data/entities", nil, body, &created); err != nil {
		return tracker.Entity{}, err
	}
	if created.ID == "" {
		return tracker.Entity{}, fmt.Errorf("%w: POST /data/entities: response carried no id", services.ErrRemoteRejected)
	}
	return c.toEntity(created, req.Type), nil
}

// UpdateEntity patches the mutable metadata of an existing entity.
func (c *Client) UpdateEntity(ctx context.Context, id string, fields tracker.Fields) (tracker.Entity, error) {
	if strings.TrimSpace(id) == "" {
		return tracker.Entity{}, fmt.Errorf("%w: update entity: id is empty", services.ErrRemoteRejected)
	}
	body := map[string]any{}
	if fields.Description != nil {
		body["description"] = *fields.Description
	}
	if fields.FrameCount != nil {
		body["nb_frames"] = *fields.FrameCount
	}
	var updated wireEntity
	if err := c.do(ctx, http.MethodPut, "/data/entities/"+url.PathEscape(id), nil, body, &updated); err != nil {
		return tracker.Entity{}, err
	}
	return c.toEntity(updated, ""), nil
}

// CreateTasks adds one task per named task type to entityID.
func (c *Client) CreateTasks(ctx context.Context, projectID, entityID string, taskTypes []string) error {
	for _, name := range taskTypes {
		typeID, err := c.taskTypeID(ctx, name)
		if err != nil {
			return err
		}
		body := map[string]string{
			"project_id":   projectID,
			"entity_id":    entityID,
			"task_type_id": typeID,
		}
		if err := c.do(ctx, http.MethodPost, "/data/tasks", nil, body, nil); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) entityTypeID(ctx context.Context, kind tracker.Kind) (string, error) {
	key := strings.ToLower(string(kind))
	c.mu.Lock()
	id, ok := c.typeIDs[key]
	loaded := c.typeIDs != nil
	c.mu.Unlock()
	if ok {
		return id, nil
	}
	if !loaded {
		if _, err := c.ListEntityTypes(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		id, ok = c.typeIDs[key]
		c.mu.Unlock()
		if ok {
			return id, nil
		}
	}
	return "", services.Wrap(services.ErrEntityTypeNotFound, "", "resolve entity type", fmt.Sprintf("server has no %q entity type", kind), nil)
}

func (c *Client) taskTypeID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	c.mu.Lock()
	cache := c.taskTypeIDs
	c.mu.Unlock()
	if cache == nil {
		var payload []wireNamed
		if err := c.do(ctx, http.MethodGet, "/data/task-types", nil, nil, &payload); err != nil {
			return "", err
		}
		cache = make(map[string]string, len(payload))
		for _, p := range payload {
			cache[strings.ToLower(strings.TrimSpace(p.Name))] = p.ID
		}
		c.mu.Lock()
		c.taskTypeIDs = cache
		c.mu.Unlock()
	}
	id, ok := cache[key]
	if !ok {
		return "", services.Wrap(services.ErrConfiguration, "", "resolve task type", fmt.Sprintf("server has no task type %q", name), nil)
	}
	return id, nil
}

func (c *Client) toEntity(p wireEntity, fallback tracker.Kind) tracker.Entity {
	kind := fallback
	c.mu.Lock()
	if k, ok := c.typeKinds[p.EntityTypeID]; ok {
		kind = k
	}
	c.mu.Unlock()
	entity := tracker.Entity{
		ID:         p.ID,
		Type:       kind,
		Name:       p.Name,
		ProjectID:  p.ProjectID,
		FrameCount: p.NbFrames,
	}
	if p.ParentID != nil {
		entity.ParentID = *p.ParentID
	}
	if p.Description != nil {
		entity.Description = *p.Description
	}
	return entity
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s payload: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s timed out after %v: %w", services.ErrRemoteUnavailable, method, path, c.timeout, err)
		}
		return fmt.Errorf("%w: %s %s (latency=%v): %w", services.ErrRemoteUnavailable, method, path, latency, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("kitsu request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency))

	switch {
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s %s returned %d", services.ErrRemoteUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= http.StatusMultipleChoices:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("%w: %s %s returned %d: %s", services.ErrRemoteRejected, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s timed out reading response: %w", services.ErrRemoteUnavailable, method, path, err)
		}
		return fmt.Errorf("%w: decode %s %s response: %w", services.ErrRemoteRejected, method, path, err)
	}
	return nil
}

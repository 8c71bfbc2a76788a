// Package client is a Go client for the todo service that keeps an optimistic
// local view: every mutation shows immediately and the server catches up in
// the background.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"teamtodo/internal/grouping"
	"teamtodo/internal/models"
	"teamtodo/internal/mutation"
	"teamtodo/internal/reconcile"
)

// Client talks to one team's todo API on behalf of one session.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	store   *reconcile.Store
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// New returns a client for the given service, bearer token and team.
func New(baseURL, token, teamID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	c.store = reconcile.New(teamID, (*backend)(c))
	return c
}

// Store exposes the underlying optimistic store: selection, single and bulk
// entry points, the displayed fold.
func (c *Client) Store() *reconcile.Store {
	return c.store
}

// Refresh fetches the server snapshot and reconciles it under any still
// pending local edits.
func (c *Client) Refresh(ctx context.Context) error {
	var todos []models.Todo
	if err := c.get(ctx, "/todos", &todos); err != nil {
		return err
	}
	c.store.SetBase(todos)
	return nil
}

// Displayed returns the current optimistic view.
func (c *Client) Displayed() []models.Todo {
	return c.store.Displayed()
}

// Grouped returns the optimistic view bucketed by due date.
func (c *Client) Grouped(now time.Time) []grouping.Group {
	return grouping.GroupByDueDate(c.store.Displayed(), now)
}

// Projects fetches the team's projects.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.get(ctx, "/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject adds a project and returns it.
func (c *Client) CreateProject(ctx context.Context, name, color string) (*models.Project, error) {
	var project models.Project
	if err := c.send(ctx, http.MethodPost, "/projects", map[string]string{
		"name": name, "color": color,
	}, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project; the server nulls all references first.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/projects/"+id, nil, nil)
}

// backend carries the store's mutations over HTTP.
type backend Client

func (b *backend) CreateTodo(ctx context.Context, todo models.Todo) error {
	return (*Client)(b).send(ctx, http.MethodPost, "/todos", map[string]interface{}{
		"text":             todo.Text,
		"due_date":         todo.DueDate,
		"project_id":       todo.ProjectID,
		"assigned_user_id": todo.AssignedUserID,
	}, nil)
}

func (b *backend) ApplyOne(ctx context.Context, task mutation.Bulk) error {
	c := (*Client)(b)
	id := task.IDs[0]
	switch task.Kind {
	case mutation.KindDelete:
		return c.send(ctx, http.MethodDelete, "/todos/"+id, nil, nil)
	case mutation.KindSetCompleted:
		return c.patch(ctx, id, map[string]interface{}{"completed": task.Completed})
	case mutation.KindSetDueDate:
		if task.DueDate == nil {
			return c.patch(ctx, id, map[string]interface{}{"clear_due_date": true})
		}
		return c.patch(ctx, id, map[string]interface{}{"due_date": task.DueDate})
	case mutation.KindSetProject:
		if task.ProjectID == nil {
			return c.patch(ctx, id, map[string]interface{}{"clear_project": true})
		}
		return c.patch(ctx, id, map[string]interface{}{"project_id": task.ProjectID})
	case mutation.KindSetAssignee:
		if task.UserID == nil {
			return c.patch(ctx, id, map[string]interface{}{"clear_assignee": true})
		}
		return c.patch(ctx, id, map[string]interface{}{"assigned_user_id": task.UserID})
	}
	return fmt.Errorf("%w: %q", mutation.ErrUnknownKind, task.Kind)
}

func (b *backend) SubmitBulk(ctx context.Context, task mutation.Bulk) error {
	return (*Client)(b).send(ctx, http.MethodPost, "/todos/bulk", map[string]interface{}{
		"action":     string(task.Kind),
		"ids":        task.IDs,
		"completed":  task.Completed,
		"due_date":   task.DueDate,
		"project_id": task.ProjectID,
		"user_id":    task.UserID,
	}, nil)
}

func (c *Client) patch(ctx context.Context, id string, body interface{}) error {
	return c.send(ctx, http.MethodPatch, "/todos/"+id, body, nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("client: %s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

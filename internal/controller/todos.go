package controller

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"teamtodo/internal/cache"
	"teamtodo/internal/dispatch"
	"teamtodo/internal/grouping"
	"teamtodo/internal/middleware"
	"teamtodo/internal/models"
	"teamtodo/internal/mutation"
	"teamtodo/internal/processor"
	"teamtodo/internal/repository"
	"teamtodo/pkg/logger"
)

// Controller holds the HTTP handlers and their dependencies, wired once by
// the composition root.
type Controller struct {
	repo  *repository.Repository
	procs *processor.Store
	cache *cache.Cache
	disp  *dispatch.Dispatcher
	db    *sql.DB
	rdb   *redis.Client
	group singleflight.Group
}

// New wires a Controller.
func New(repo *repository.Repository, procs *processor.Store, c *cache.Cache,
	disp *dispatch.Dispatcher, db *sql.DB, rdb *redis.Client) *Controller {
	return &Controller{repo: repo, procs: procs, cache: c, disp: disp, db: db, rdb: rdb}
}

// Health returns 200 if the process is alive. Used by load balancers.
func (ct *Controller) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if DB and Redis are reachable.
func (ct *Controller) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := ct.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
		return
	}
	if err := ct.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis ping failed"})
		return
	}
	c.String(http.StatusOK, "OK")
}

// fetchTodos reads a team's list cache-first; concurrent misses for the same
// team collapse into one DB query.
func (ct *Controller) fetchTodos(ctx context.Context, teamID string) ([]models.Todo, error) {
	if todos, ok := ct.cache.GetTodos(ctx, teamID); ok {
		return todos, nil
	}
	v, err, _ := ct.group.Do(teamID, func() (interface{}, error) {
		todos, err := ct.repo.ListTodos(context.Background(), teamID)
		if err != nil {
			return nil, err
		}
		ct.cache.SetTodos(context.Background(), teamID, todos)
		return todos, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Todo), nil
}

// ListTodos returns the team's todos, newest first.
func (ct *Controller) ListTodos(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	todos, err := ct.fetchTodos(ctx, teamID)
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			return
		}
		logger.Error(ctx, "ListTodos failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get todos"})
		return
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	c.JSON(http.StatusOK, todos)
}

// GroupedTodos returns the team's todos bucketed by due date for display.
func (ct *Controller) GroupedTodos(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	todos, err := ct.fetchTodos(ctx, teamID)
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			return
		}
		logger.Error(ctx, "GroupedTodos failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get todos"})
		return
	}
	c.JSON(http.StatusOK, grouping.GroupByDueDate(todos, time.Now()))
}

// CreateTodo persists a new todo on the synchronous path and returns it with
// its server-assigned id.
func (ct *Controller) CreateTodo(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	var body struct {
		Text           string     `json:"text" binding:"required"`
		DueDate        *time.Time `json:"due_date"`
		ProjectID      *string    `json:"project_id"`
		AssignedUserID *string    `json:"assigned_user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	todo := &models.Todo{
		Text:           body.Text,
		DueDate:        body.DueDate,
		ProjectID:      body.ProjectID,
		TeamID:         teamID,
		AssignedUserID: body.AssignedUserID,
	}
	if err := ct.repo.CreateTodo(ctx, todo); err != nil {
		logger.Error(ctx, "CreateTodo failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create todo"})
		return
	}
	ct.cache.InvalidateTodos(ctx, teamID)
	c.JSON(http.StatusCreated, todo)
}

// UpdateTodo patches one todo on the synchronous path. Absent fields are left
// alone; the clear flags null out the corresponding optional field.
func (ct *Controller) UpdateTodo(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	id := c.Param("id")
	if models.IsClientID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unconfirmed todo id"})
		return
	}
	var body struct {
		Completed      *bool      `json:"completed"`
		DueDate        *time.Time `json:"due_date"`
		ClearDueDate   bool       `json:"clear_due_date"`
		ProjectID      *string    `json:"project_id"`
		ClearProject   bool       `json:"clear_project"`
		AssignedUserID *string    `json:"assigned_user_id"`
		ClearAssignee  bool       `json:"clear_assignee"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ids := []string{id}
	if body.Completed != nil {
		if err := ct.procs.SetCompleted(ctx, teamID, ids, *body.Completed); err != nil {
			ct.fail(c, err, "Failed to update todo")
			return
		}
	}
	if body.DueDate != nil || body.ClearDueDate {
		due := body.DueDate
		if body.ClearDueDate {
			due = nil
		}
		if err := ct.procs.SetDueDate(ctx, teamID, ids, due); err != nil {
			ct.fail(c, err, "Failed to update todo")
			return
		}
	}
	if body.ProjectID != nil || body.ClearProject {
		project := body.ProjectID
		if body.ClearProject {
			project = nil
		}
		if err := ct.procs.SetProject(ctx, teamID, ids, project); err != nil {
			ct.fail(c, err, "Failed to update todo")
			return
		}
	}
	if body.AssignedUserID != nil || body.ClearAssignee {
		user := body.AssignedUserID
		if body.ClearAssignee {
			user = nil
		}
		if err := ct.procs.SetAssignee(ctx, teamID, ids, user); err != nil {
			ct.fail(c, err, "Failed to update todo")
			return
		}
	}
	ct.cache.InvalidateTodos(ctx, teamID)
	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Todo updated"})
}

// DeleteTodo removes one todo on the synchronous path.
func (ct *Controller) DeleteTodo(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	id := c.Param("id")
	if models.IsClientID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unconfirmed todo id"})
		return
	}
	if err := ct.procs.Delete(ctx, teamID, []string{id}); err != nil {
		ct.fail(c, err, "Failed to delete todo")
		return
	}
	ct.cache.InvalidateTodos(ctx, teamID)
	c.JSON(http.StatusOK, gin.H{"id": id, "message": "Todo deleted"})
}

// BulkMutate queues one batch mutation. Identical resubmissions collapse by
// dedup key; the response carries the key as the submission handle.
func (ct *Controller) BulkMutate(c *gin.Context) {
	ctx := c.Request.Context()
	teamID := middleware.Team(c)
	var body struct {
		Action    string     `json:"action" binding:"required"`
		IDs       []string   `json:"ids"`
		Completed bool       `json:"completed"`
		DueDate   *time.Time `json:"due_date"`
		ProjectID *string    `json:"project_id"`
		UserID    *string    `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	kind := mutation.Kind(body.Action)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action", "action": body.Action})
		return
	}
	for _, id := range body.IDs {
		if models.IsClientID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": mutation.ErrClientID.Error(), "id": id})
			return
		}
	}
	task := mutation.Bulk{
		Kind:      kind,
		TeamID:    teamID,
		IDs:       body.IDs,
		Completed: body.Completed,
		DueDate:   body.DueDate,
		ProjectID: body.ProjectID,
		UserID:    body.UserID,
	}
	res, err := ct.disp.Publish(ctx, task)
	if err != nil {
		if errors.Is(err, mutation.ErrUnknownKind) || errors.Is(err, mutation.ErrEmptyIDSet) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(ctx, "BulkMutate publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue mutation"})
		return
	}
	if !res.Submitted {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (ct *Controller) fail(c *gin.Context, err error, msg string) {
	ctx := c.Request.Context()
	if isContextErr(err) || ctx.Err() != nil {
		return
	}
	logger.Error(ctx, msg, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

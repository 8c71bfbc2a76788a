package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"teamtodo/internal/models"
	"teamtodo/pkg/logger"
)

// ErrEmptyText rejects todo creation with no text.
var ErrEmptyText = errors.New("repository: todo text must not be empty")

// Repository reads and creates team-scoped todos and projects. Batch
// mutations live in the processor package.
type Repository struct {
	db *sql.DB
}

// New returns a Repository over the given pool.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListTodos returns all of a team's todos, newest first.
func (r *Repository) ListTodos(ctx context.Context, teamID string) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, text, completed, due_date, project_id, team_id, assigned_user_id, created_at, updated_at
		 FROM todos WHERE team_id = $1 ORDER BY created_at DESC`, teamID)
	if err != nil {
		logger.Error(ctx, "Repository ListTodos failed", "error", err, "team_id", teamID)
		return nil, err
	}
	defer rows.Close()
	var todos []models.Todo
	for rows.Next() {
		var t models.Todo
		if err := rows.Scan(&t.ID, &t.Text, &t.Completed, &t.DueDate, &t.ProjectID,
			&t.TeamID, &t.AssignedUserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// CreateTodo inserts a new todo, assigning a server id and timestamps.
func (r *Repository) CreateTodo(ctx context.Context, todo *models.Todo) error {
	if todo.Text == "" {
		return ErrEmptyText
	}
	if todo.ID == "" || models.IsClientID(todo.ID) {
		todo.ID = uuid.New().String()
	}
	now := time.Now()
	todo.CreatedAt = now
	todo.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, text, completed, due_date, project_id, team_id, assigned_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		todo.ID, todo.Text, todo.Completed, todo.DueDate, todo.ProjectID,
		todo.TeamID, todo.AssignedUserID, todo.CreatedAt, todo.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository CreateTodo failed", "error", err)
		return err
	}
	return nil
}

// ListProjects returns all of a team's projects, by name.
func (r *Repository) ListProjects(ctx context.Context, teamID string) ([]models.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color, team_id, created_at, updated_at
		 FROM projects WHERE team_id = $1 ORDER BY name`, teamID)
	if err != nil {
		logger.Error(ctx, "Repository ListProjects failed", "error", err, "team_id", teamID)
		return nil, err
	}
	defer rows.Close()
	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.TeamID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateProject inserts a new project.
func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, color, team_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Color, p.TeamID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository CreateProject failed", "error", err)
		return err
	}
	return nil
}

// DeleteProject removes a project after nulling project_id on every todo that
// references it, in one transaction, so no todo is ever left with a dangling
// non-null reference.
func (r *Repository) DeleteProject(ctx context.Context, teamID, projectID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE todos SET project_id = NULL, updated_at = NOW()
		 WHERE team_id = $1 AND project_id = $2`, teamID, projectID); err != nil {
		logger.Error(ctx, "Repository project cascade failed", "error", err, "project_id", projectID)
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM projects WHERE team_id = $1 AND id = $2`, teamID, projectID); err != nil {
		logger.Error(ctx, "Repository DeleteProject failed", "error", err, "project_id", projectID)
		return err
	}
	return tx.Commit()
}

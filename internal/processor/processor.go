// Package processor applies batch mutations to the canonical store. Each
// processor has pure set semantics: re-applying the same ids and value is a
// no-op, and ids no longer present are silently skipped — by the time a
// queued task is delivered, a newer action may have deleted its targets.
package processor

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"teamtodo/pkg/logger"
)

// Store runs the batch mutation statements.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store over the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Delete removes the given todos. Empty id sets are a local no-op.
func (s *Store) Delete(ctx context.Context, teamID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM todos WHERE team_id = $1 AND id = ANY($2)`,
		teamID, pq.Array(ids))
	if err != nil {
		logger.Error(ctx, "Processor delete failed", "error", err, "count", len(ids))
	}
	return err
}

// SetCompleted sets completion on the given todos.
func (s *Store) SetCompleted(ctx context.Context, teamID string, ids []string, completed bool) error {
	return s.set(ctx, teamID, ids, `completed = $3`, completed)
}

// SetDueDate sets or clears the due date on the given todos.
func (s *Store) SetDueDate(ctx context.Context, teamID string, ids []string, due *time.Time) error {
	return s.set(ctx, teamID, ids, `due_date = $3`, due)
}

// SetProject moves the given todos to a project; nil clears the reference.
func (s *Store) SetProject(ctx context.Context, teamID string, ids []string, projectID *string) error {
	return s.set(ctx, teamID, ids, `project_id = $3`, projectID)
}

// SetAssignee reassigns the given todos; nil unassigns.
func (s *Store) SetAssignee(ctx context.Context, teamID string, ids []string, userID *string) error {
	return s.set(ctx, teamID, ids, `assigned_user_id = $3`, userID)
}

func (s *Store) set(ctx context.Context, teamID string, ids []string, assign string, value interface{}) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE todos SET `+assign+`, updated_at = NOW() WHERE team_id = $1 AND id = ANY($2)`,
		teamID, pq.Array(ids), value)
	if err != nil {
		logger.Error(ctx, "Processor update failed", "error", err, "count", len(ids))
	}
	return err
}

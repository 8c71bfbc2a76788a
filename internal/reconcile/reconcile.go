// Package reconcile keeps a locally-consistent view of a team's todos: the
// last server snapshot plus an ordered log of unconfirmed edits, folded
// together into the list the UI shows. Edits are never acknowledged per-item;
// they ride along until a fresh snapshot makes re-applying them a no-op.
package reconcile

import (
	"context"

	"github.com/google/uuid"

	"teamtodo/internal/models"
	"teamtodo/internal/mutation"
)

// Backend carries mutations to the server. The store invokes it on background
// goroutines, so entry points return as soon as their optimistic effect is
// applied; it never rolls an edit back on error, it only logs the failure and
// waits for the next snapshot to correct the view.
type Backend interface {
	// CreateTodo persists a new todo. The optimistic entry keeps its client
	// id until the next snapshot carries the server-assigned one.
	CreateTodo(ctx context.Context, todo models.Todo) error
	// ApplyOne applies a single-todo mutation on the direct, synchronous path.
	ApplyOne(ctx context.Context, task mutation.Bulk) error
	// SubmitBulk enqueues a batch mutation for asynchronous delivery.
	SubmitBulk(ctx context.Context, task mutation.Bulk) error
}

// ClientID returns a fresh optimistic id for a todo the server has not seen.
func ClientID() string {
	return models.ClientIDPrefix + uuid.New().String()
}

// ApplyPending folds the pending-edit log over a base snapshot, in submission
// order. A delete removes the todo and ends its fold; field edits overwrite
// the matching field, so a later edit of the same kind wins while edits of
// different kinds compose.
func ApplyPending(base []models.Todo, edits []mutation.Bulk) []models.Todo {
	out := make([]models.Todo, 0, len(base))
	for _, t := range base {
		todo := t
		deleted := false
		for _, e := range edits {
			if !targets(e, todo.ID) {
				continue
			}
			switch e.Kind {
			case mutation.KindDelete:
				deleted = true
			case mutation.KindSetCompleted:
				todo.Completed = e.Completed
			case mutation.KindSetDueDate:
				todo.DueDate = e.DueDate
			case mutation.KindSetProject:
				todo.ProjectID = e.ProjectID
			case mutation.KindSetAssignee:
				todo.AssignedUserID = e.UserID
			}
			if deleted {
				break
			}
		}
		if !deleted {
			out = append(out, todo)
		}
	}
	return out
}

func targets(e mutation.Bulk, id string) bool {
	for _, x := range e.IDs {
		if x == id {
			return true
		}
	}
	return false
}

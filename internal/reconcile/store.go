package reconcile

import (
	"context"
	"sync"
	"time"

	"teamtodo/internal/models"
	"teamtodo/internal/mutation"
	"teamtodo/pkg/logger"
)

// Store owns one session's view of a team's todos: the last confirmed server
// snapshot, the ordered pending-edit log, and the current bulk selection.
// Every entry point applies its optimistic effect before the backend call so
// the next Displayed() already reflects it.
type Store struct {
	mu         sync.Mutex
	wg         sync.WaitGroup
	teamID     string
	backend    Backend
	base       []models.Todo
	pending    []mutation.Bulk
	selection  map[string]struct{}
	maxPending int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxPending caps the pending-edit log; once full, the oldest edits are
// dropped. Zero (the default) means unbounded, matching a session that relies
// on snapshot refreshes to retire edits.
func WithMaxPending(n int) Option {
	return func(s *Store) { s.maxPending = n }
}

// New returns an empty store for one team session.
func New(teamID string, backend Backend, opts ...Option) *Store {
	s := &Store{
		teamID:    teamID,
		backend:   backend,
		selection: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetBase replaces the server snapshot wholesale. The pending log is retained
// and re-applied on top: edits the snapshot already reflects re-apply as
// no-ops, edits still in flight stay visible. Selected ids that vanished from
// the snapshot are dropped from the selection.
func (s *Store) SetBase(todos []models.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = make([]models.Todo, len(todos))
	copy(s.base, todos)

	present := make(map[string]struct{}, len(todos))
	for _, t := range todos {
		present[t.ID] = struct{}{}
	}
	for id := range s.selection {
		if _, ok := present[id]; !ok {
			delete(s.selection, id)
		}
	}
}

// Displayed returns the folded view: base snapshot plus pending edits in
// submission order.
func (s *Store) Displayed() []models.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ApplyPending(s.base, s.pending)
}

// PendingEdits returns a copy of the pending-edit log, oldest first.
func (s *Store) PendingEdits() []mutation.Bulk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mutation.Bulk, len(s.pending))
	copy(out, s.pending)
	return out
}

// Select adds a confirmed todo id to the bulk selection. Client-only ids are
// refused: the server has never seen them, so no bulk action may target them.
func (s *Store) Select(id string) bool {
	if models.IsClientID(id) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection[id] = struct{}{}
	return true
}

// Deselect removes an id from the bulk selection.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, id)
}

// ClearSelection empties the bulk selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{})
}

// Selected returns the currently selected ids, unordered.
func (s *Store) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Store) selectedLocked() []string {
	out := make([]string, 0, len(s.selection))
	for id := range s.selection {
		if models.IsClientID(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// AddTodo inserts an optimistic todo with a client id and fires the create.
// The entry lives in the base list directly (not the edit overlay) and is
// superseded by the next snapshot, which carries the server id.
func (s *Store) AddTodo(ctx context.Context, text string, due *time.Time, projectID *string) models.Todo {
	now := time.Now()
	todo := models.Todo{
		ID:        ClientID(),
		Text:      text,
		DueDate:   due,
		ProjectID: projectID,
		TeamID:    s.teamID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.base = append(s.base, todo)
	s.mu.Unlock()

	s.fire(ctx, func(ctx context.Context) {
		if err := s.backend.CreateTodo(ctx, todo); err != nil {
			logger.Warn(ctx, "Optimistic create submit failed", "error", err, "todo_id", todo.ID)
		}
	})
	return todo
}

// DeleteTodo removes one todo optimistically. A client-only entry is dropped
// locally without a server call; a confirmed one goes through the direct path.
func (s *Store) DeleteTodo(ctx context.Context, id string) {
	if models.IsClientID(id) {
		s.mu.Lock()
		for i, t := range s.base {
			if t.ID == id {
				s.base = append(s.base[:i], s.base[i+1:]...)
				break
			}
		}
		delete(s.selection, id)
		s.mu.Unlock()
		return
	}
	s.applyOne(ctx, mutation.Delete(s.teamID, []string{id}))
}

// ToggleCompleted flips one todo's completion optimistically.
func (s *Store) ToggleCompleted(ctx context.Context, id string, completed bool) {
	s.applyOne(ctx, mutation.SetCompleted(s.teamID, []string{id}, completed))
}

// Reschedule sets or clears one todo's due date optimistically.
func (s *Store) Reschedule(ctx context.Context, id string, due *time.Time) {
	s.applyOne(ctx, mutation.SetDueDate(s.teamID, []string{id}, due))
}

// MoveToProject moves one todo to a project (nil clears it) optimistically.
func (s *Store) MoveToProject(ctx context.Context, id string, projectID *string) {
	s.applyOne(ctx, mutation.SetProject(s.teamID, []string{id}, projectID))
}

// AssignUser assigns one todo (nil unassigns) optimistically.
func (s *Store) AssignUser(ctx context.Context, id string, userID *string) {
	s.applyOne(ctx, mutation.SetAssignee(s.teamID, []string{id}, userID))
}

func (s *Store) applyOne(ctx context.Context, task mutation.Bulk) {
	s.mu.Lock()
	s.appendEditLocked(task)
	s.mu.Unlock()

	if models.IsClientID(task.IDs[0]) {
		// Unconfirmed entry: the edit shows locally, nothing to tell the server.
		return
	}
	s.fire(ctx, func(ctx context.Context) {
		if err := s.backend.ApplyOne(ctx, task); err != nil {
			logger.Warn(ctx, "Optimistic mutation submit failed", "error", err, "kind", string(task.Kind), "todo_id", task.IDs[0])
		}
	})
}

// BulkDelete deletes the selection as one background batch.
func (s *Store) BulkDelete(ctx context.Context) {
	s.bulk(ctx, func(ids []string) mutation.Bulk { return mutation.Delete(s.teamID, ids) })
}

// BulkSetCompleted sets completion on the selection as one background batch.
func (s *Store) BulkSetCompleted(ctx context.Context, completed bool) {
	s.bulk(ctx, func(ids []string) mutation.Bulk { return mutation.SetCompleted(s.teamID, ids, completed) })
}

// BulkReschedule sets the due date on the selection as one background batch.
func (s *Store) BulkReschedule(ctx context.Context, due *time.Time) {
	s.bulk(ctx, func(ids []string) mutation.Bulk { return mutation.SetDueDate(s.teamID, ids, due) })
}

// BulkMoveToProject moves the selection to a project as one background batch.
func (s *Store) BulkMoveToProject(ctx context.Context, projectID *string) {
	s.bulk(ctx, func(ids []string) mutation.Bulk { return mutation.SetProject(s.teamID, ids, projectID) })
}

// BulkAssignUser reassigns the selection as one background batch.
func (s *Store) BulkAssignUser(ctx context.Context, userID *string) {
	s.bulk(ctx, func(ids []string) mutation.Bulk { return mutation.SetAssignee(s.teamID, ids, userID) })
}

// bulk runs the shared entry-point sequence: snapshot the selection (client
// ids filtered), apply the edit locally, clear the selection, then submit.
// An empty filtered selection submits nothing.
func (s *Store) bulk(ctx context.Context, build func(ids []string) mutation.Bulk) {
	s.mu.Lock()
	ids := s.selectedLocked()
	if len(ids) == 0 {
		s.mu.Unlock()
		return
	}
	task := build(ids)
	s.appendEditLocked(task)
	s.selection = make(map[string]struct{})
	s.mu.Unlock()

	s.fire(ctx, func(ctx context.Context) {
		if err := s.backend.SubmitBulk(ctx, task); err != nil {
			logger.Warn(ctx, "Bulk mutation submit failed", "error", err, "kind", string(task.Kind), "count", len(ids))
		}
	})
}

// fire runs a backend call in the background: the optimistic append is the
// only work an entry point does before returning control. The context is
// detached from the caller's cancellation so a finished UI action cannot
// abort its own submission.
func (s *Store) fire(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(ctx)
	}()
}

// Wait blocks until every in-flight backend submission has returned. For
// session teardown and tests; the UI path never waits.
func (s *Store) Wait() {
	s.wg.Wait()
}

// appendEditLocked appends to the pending log, compacting away any earlier
// edit of the same kind over the exact same id set: a later same-kind edit
// fully overwrites that field for every id it covers, so the fold result is
// unchanged and the log stays bounded under repeated re-edits.
func (s *Store) appendEditLocked(e mutation.Bulk) {
	for i, p := range s.pending {
		if p.Kind == e.Kind && mutation.SameIDSet(p, e) {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.pending = append(s.pending, e)
	if s.maxPending > 0 && len(s.pending) > s.maxPending {
		s.pending = append([]mutation.Bulk(nil), s.pending[len(s.pending)-s.maxPending:]...)
	}
}

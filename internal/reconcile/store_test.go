package reconcile_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamtodo/internal/models"
	"teamtodo/internal/mutation"
	"teamtodo/internal/reconcile"
)

type fakeBackend struct {
	mu      sync.Mutex
	created []models.Todo
	direct  []mutation.Bulk
	bulk    []mutation.Bulk
	fail    bool
}

func (f *fakeBackend) CreateTodo(_ context.Context, t models.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeBackend) ApplyOne(_ context.Context, task mutation.Bulk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	f.direct = append(f.direct, task)
	return nil
}

func (f *fakeBackend) SubmitBulk(_ context.Context, task mutation.Bulk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend down")
	}
	f.bulk = append(f.bulk, task)
	return nil
}

func newStore(opts ...reconcile.Option) (*reconcile.Store, *fakeBackend) {
	b := &fakeBackend{}
	return reconcile.New("team-1", b, opts...), b
}

func serverTodo(id string) models.Todo {
	return models.Todo{ID: id, Text: "todo " + id, TeamID: "team-1"}
}

func displayedByID(s *reconcile.Store) map[string]models.Todo {
	out := map[string]models.Todo{}
	for _, t := range s.Displayed() {
		out[t.ID] = t
	}
	return out
}

func TestLaterSameKindEditWins(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1")})

	ctx := context.Background()
	s.ToggleCompleted(ctx, "1", true)
	s.ToggleCompleted(ctx, "1", false)

	got := displayedByID(s)
	assert.False(got["1"].Completed)
}

func TestCrossKindEditsCompose(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1")})

	ctx := context.Background()
	due := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	project := "proj-1"
	s.Reschedule(ctx, "1", &due)
	s.MoveToProject(ctx, "1", &project)

	got := displayedByID(s)["1"]
	if assert.NotNil(got.DueDate) {
		assert.True(got.DueDate.Equal(due))
	}
	if assert.NotNil(got.ProjectID) {
		assert.Equal("proj-1", *got.ProjectID)
	}
}

func TestDeleteShortCircuitsLaterEdits(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1"), serverTodo("2")})

	ctx := context.Background()
	s.DeleteTodo(ctx, "1")
	s.ToggleCompleted(ctx, "1", true)

	got := displayedByID(s)
	_, ok := got["1"]
	assert.False(ok, "deleted todo must not reappear")
	assert.Len(got, 1)
}

func TestRefreshRetainsPendingEdits(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1")})

	ctx := context.Background()
	s.ToggleCompleted(ctx, "1", true)

	// A refresh that does not yet reflect the edit: overlay still shows it.
	s.SetBase([]models.Todo{serverTodo("1")})
	assert.True(displayedByID(s)["1"].Completed)

	// A refresh that already reflects it: re-applying is a harmless no-op.
	confirmed := serverTodo("1")
	confirmed.Completed = true
	s.SetBase([]models.Todo{confirmed})
	assert.True(displayedByID(s)["1"].Completed)
	assert.Len(s.PendingEdits(), 1)
}

func TestAddTodoVisibleImmediately(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	ctx := context.Background()

	todo := s.AddTodo(ctx, "write the report", nil, nil)
	assert.True(models.IsClientID(todo.ID))
	assert.Len(s.Displayed(), 1)
	s.Wait()
	assert.Len(b.created, 1)

	// The next snapshot carries the server id and supersedes the local entry.
	s.SetBase([]models.Todo{serverTodo("srv-1")})
	got := s.Displayed()
	assert.Len(got, 1)
	assert.Equal("srv-1", got[0].ID)
}

func TestDeleteClientOnlyTodoStaysLocal(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	ctx := context.Background()

	todo := s.AddTodo(ctx, "scratch note", nil, nil)
	s.DeleteTodo(ctx, todo.ID)
	s.Wait()

	assert.Empty(s.Displayed())
	assert.Empty(b.direct, "server must not be told about an id it never saw")
	assert.Empty(s.PendingEdits())
}

func TestEditClientOnlyTodoStaysLocal(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	ctx := context.Background()

	todo := s.AddTodo(ctx, "scratch note", nil, nil)
	s.ToggleCompleted(ctx, todo.ID, true)
	s.Wait()

	assert.True(displayedByID(s)[todo.ID].Completed)
	assert.Empty(b.direct)
}

func TestSelectRefusesClientIDs(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	ctx := context.Background()

	s.SetBase([]models.Todo{serverTodo("1"), serverTodo("2")})
	optimistic := s.AddTodo(ctx, "new one", nil, nil)

	assert.True(s.Select("1"))
	assert.True(s.Select("2"))
	assert.False(s.Select(optimistic.ID))

	s.BulkSetCompleted(ctx, true)
	s.Wait()
	if assert.Len(b.bulk, 1) {
		for _, id := range b.bulk[0].IDs {
			assert.False(models.IsClientID(id))
		}
		assert.ElementsMatch([]string{"1", "2"}, b.bulk[0].IDs)
	}
}

func TestBulkClearsSelectionAndAppliesOptimistically(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	ctx := context.Background()

	s.SetBase([]models.Todo{serverTodo("1"), serverTodo("2"), serverTodo("3")})
	s.Select("1")
	s.Select("3")
	s.BulkSetCompleted(ctx, true)
	s.Wait()

	assert.Empty(s.Selected())
	got := displayedByID(s)
	assert.True(got["1"].Completed)
	assert.False(got["2"].Completed)
	assert.True(got["3"].Completed)
	assert.Len(b.bulk, 1)
}

func TestEmptySelectionSubmitsNothing(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, b := newStore()
	s.BulkDelete(context.Background())
	s.Wait()
	assert.Empty(b.bulk)
	assert.Empty(s.PendingEdits())
}

// blockingBackend parks every call until released.
type blockingBackend struct {
	fakeBackend
	release chan struct{}
}

func (b *blockingBackend) ApplyOne(ctx context.Context, task mutation.Bulk) error {
	<-b.release
	return b.fakeBackend.ApplyOne(ctx, task)
}

func TestEntryPointReturnsBeforeBackend(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := &blockingBackend{release: make(chan struct{})}
	s := reconcile.New("team-1", b)
	s.SetBase([]models.Todo{serverTodo("1")})

	done := make(chan struct{})
	go func() {
		s.ToggleCompleted(context.Background(), "1", true)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("entry point blocked on the backend call")
	}

	// The optimistic effect is visible while the submission is still parked.
	assert.True(displayedByID(s)["1"].Completed)

	close(b.release)
	s.Wait()
	assert.Len(b.direct, 1)
}

func TestBackendFailureLeavesOverlayInPlace(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	b := &fakeBackend{fail: true}
	s := reconcile.New("team-1", b)
	s.SetBase([]models.Todo{serverTodo("1")})

	ctx := context.Background()
	s.ToggleCompleted(ctx, "1", true)
	s.Wait()

	// No rollback on submit failure; the next refresh corrects the view.
	assert.True(displayedByID(s)["1"].Completed)
	assert.Len(s.PendingEdits(), 1)
}

func TestCompactionDropsSupersededSameKindEdits(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1")})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		s.ToggleCompleted(ctx, "1", i%2 == 0)
	}
	assert.Len(s.PendingEdits(), 1)
	assert.False(displayedByID(s)["1"].Completed, "last of 50 toggles sets completed=false")
}

func TestCompactionPreservesFoldResult(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	base := []models.Todo{serverTodo("1"), serverTodo("2")}
	s.SetBase(base)

	ctx := context.Background()
	due := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	s.ToggleCompleted(ctx, "1", true)
	s.Reschedule(ctx, "1", &due)
	s.ToggleCompleted(ctx, "1", false)

	// The compacted log and the uncompacted history fold identically.
	uncompacted := []mutation.Bulk{
		mutation.SetCompleted("team-1", []string{"1"}, true),
		mutation.SetDueDate("team-1", []string{"1"}, &due),
		mutation.SetCompleted("team-1", []string{"1"}, false),
	}
	assert.Equal(reconcile.ApplyPending(base, uncompacted), s.Displayed())
	assert.Len(s.PendingEdits(), 2)
}

func TestMaxPendingCapsLog(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore(reconcile.WithMaxPending(3))
	var base []models.Todo
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		base = append(base, serverTodo(id))
	}
	s.SetBase(base)

	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		s.ToggleCompleted(ctx, id, true)
	}
	assert.Len(s.PendingEdits(), 3)
}

func TestSnapshotDropsVanishedSelection(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s, _ := newStore()
	s.SetBase([]models.Todo{serverTodo("1"), serverTodo("2")})
	s.Select("1")
	s.Select("2")

	s.SetBase([]models.Todo{serverTodo("2")})
	assert.Equal([]string{"2"}, s.Selected())
}

func TestApplyPendingDoesNotMutateBase(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	base := []models.Todo{serverTodo("1")}
	edits := []mutation.Bulk{mutation.SetCompleted("team-1", []string{"1"}, true)}
	out := reconcile.ApplyPending(base, edits)

	assert.True(out[0].Completed)
	assert.False(base[0].Completed)
}

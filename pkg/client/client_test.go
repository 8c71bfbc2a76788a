package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamtodo/internal/models"
	"teamtodo/pkg/client"
)

// fakeServer is a minimal stand-in for the service: it records mutation
// requests and serves a fixed snapshot.
type fakeServer struct {
	mu       sync.Mutex
	snapshot []models.Todo
	bulks    []map[string]interface{}
	patches  []string
	creates  int
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.snapshot)
	})
	mux.HandleFunc("POST /todos", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.creates++
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("PATCH /todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.patches = append(f.patches, r.PathValue("id"))
		f.mu.Unlock()
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc("POST /todos/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bulks = append(f.bulks, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"submitted":true,"key":"k"}`))
	})
	return mux
}

func TestRefreshThenOptimisticToggle(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	f := &fakeServer{snapshot: []models.Todo{
		{ID: "1", Text: "ship it", TeamID: "team-1"},
	}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := client.New(srv.URL, "token", "team-1")
	ctx := context.Background()
	assert.Nil(c.Refresh(ctx))
	assert.Len(c.Displayed(), 1)

	c.Store().ToggleCompleted(ctx, "1", true)
	assert.True(c.Displayed()[0].Completed, "toggle must be visible before the server confirms")
	c.Store().Wait()
	assert.Equal([]string{"1"}, f.patches)

	// A refresh that does not yet reflect the toggle keeps it visible.
	assert.Nil(c.Refresh(ctx))
	assert.True(c.Displayed()[0].Completed)
}

func TestBulkSubmitCarriesOnlyServerIDs(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	f := &fakeServer{snapshot: []models.Todo{
		{ID: "1", TeamID: "team-1"}, {ID: "2", TeamID: "team-1"},
	}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := client.New(srv.URL, "token", "team-1")
	ctx := context.Background()
	assert.Nil(c.Refresh(ctx))

	optimistic := c.Store().AddTodo(ctx, "local only", nil, nil)
	assert.True(c.Store().Select("1"))
	assert.True(c.Store().Select("2"))
	assert.False(c.Store().Select(optimistic.ID))

	c.Store().BulkSetCompleted(ctx, true)
	c.Store().Wait()
	if assert.Len(f.bulks, 1) {
		ids := f.bulks[0]["ids"].([]interface{})
		assert.Len(ids, 2)
		for _, id := range ids {
			assert.False(models.IsClientID(id.(string)))
		}
		assert.Equal("set_completed", f.bulks[0]["action"])
	}
}

func TestGroupedViewFromOptimisticState(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)
	f := &fakeServer{snapshot: []models.Todo{
		{ID: "1", Text: "tomorrow", TeamID: "team-1", DueDate: &due},
	}}
	srv := httptest.NewServer(f.handler())
	defer srv.Close()

	c := client.New(srv.URL, "token", "team-1")
	assert.Nil(c.Refresh(context.Background()))

	groups := c.Grouped(now)
	assert.Len(groups, 2)
	assert.Equal("Today", groups[0].Label)
	assert.Equal("Tomorrow", groups[1].Label)
}

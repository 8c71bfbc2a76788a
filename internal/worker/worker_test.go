package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamtodo/internal/config"
	"teamtodo/internal/dispatch"
	"teamtodo/internal/mutation"
)

type recordingProcs struct {
	deleted [][]string
}

func (p *recordingProcs) Delete(_ context.Context, _ string, ids []string) error {
	p.deleted = append(p.deleted, ids)
	return nil
}

func (p *recordingProcs) SetCompleted(context.Context, string, []string, bool) error { return nil }

func (p *recordingProcs) SetDueDate(context.Context, string, []string, *time.Time) error { return nil }

func (p *recordingProcs) SetProject(context.Context, string, []string, *string) error { return nil }

func (p *recordingProcs) SetAssignee(context.Context, string, []string, *string) error { return nil }

func TestHandleDeliversDecodedTask(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	procs := &recordingProcs{}
	w := New(&config.Config{}, dispatch.New(nil, nil, procs), nil)

	payload, err := json.Marshal(mutation.Delete("team-1", []string{"a", "b"}))
	assert.Nil(err)
	assert.Nil(w.handle(context.Background(), payload))
	assert.Equal([][]string{{"a", "b"}}, procs.deleted)
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	w := New(&config.Config{}, dispatch.New(nil, nil, &recordingProcs{}), nil)
	assert.NotNil(w.handle(context.Background(), []byte("{not json")))
}

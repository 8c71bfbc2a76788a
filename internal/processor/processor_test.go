package processor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamtodo/internal/processor"
)

// Empty id sets must short-circuit before any statement runs; a nil pool
// would panic if one did.
func TestEmptyIDSetIsNoOp(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	s := processor.NewStore(nil)
	ctx := context.Background()
	now := time.Now()
	p := "proj-1"

	assert.Nil(s.Delete(ctx, "team-1", nil))
	assert.Nil(s.SetCompleted(ctx, "team-1", []string{}, true))
	assert.Nil(s.SetDueDate(ctx, "team-1", nil, &now))
	assert.Nil(s.SetProject(ctx, "team-1", nil, &p))
	assert.Nil(s.SetAssignee(ctx, "team-1", nil, nil))
}

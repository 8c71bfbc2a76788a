// Package dispatch turns bulk mutation requests into deduplicated queue tasks
// and routes delivered tasks to the matching processor.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"teamtodo/internal/mutation"
	"teamtodo/pkg/logger"
)

// Writer is the queue producer. Satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Claims holds dedup-key claims across submissions. Satisfied by *cache.Cache.
type Claims interface {
	ClaimKey(ctx context.Context, key string) (bool, error)
	ReleaseKey(ctx context.Context, key string) error
}

// Processors are the five batch mutation appliers. Satisfied by
// *processor.Store.
type Processors interface {
	Delete(ctx context.Context, teamID string, ids []string) error
	SetCompleted(ctx context.Context, teamID string, ids []string, completed bool) error
	SetDueDate(ctx context.Context, teamID string, ids []string, due *time.Time) error
	SetProject(ctx context.Context, teamID string, ids []string, projectID *string) error
	SetAssignee(ctx context.Context, teamID string, ids []string, userID *string) error
}

// PublishResult reports what happened to a submission.
type PublishResult struct {
	// Submitted is false only for the empty-id-set local no-op.
	Submitted bool `json:"submitted"`
	// Deduped is true when an identical task was already queued and this
	// submission collapsed into it.
	Deduped bool `json:"deduped"`
	// Key is the task's dedup key, the caller's handle on the submission.
	Key string `json:"key,omitempty"`
}

// Dispatcher publishes bulk tasks and routes delivered ones.
type Dispatcher struct {
	writer Writer
	claims Claims
	procs  Processors
}

// New wires a Dispatcher. claims may be nil, which disables dedup (every
// submission enqueues; delivery stays idempotent).
func New(writer Writer, claims Claims, procs Processors) *Dispatcher {
	return &Dispatcher{writer: writer, claims: claims, procs: procs}
}

// Publish validates a bulk task, collapses duplicates by dedup key, and
// enqueues it. It returns without waiting for execution. No ordering is
// promised between distinct tasks, even over overlapping id sets: delivery
// order is the broker's.
func (d *Dispatcher) Publish(ctx context.Context, task mutation.Bulk) (PublishResult, error) {
	if len(task.IDs) == 0 {
		return PublishResult{Submitted: false}, nil
	}
	if err := task.Validate(); err != nil {
		return PublishResult{}, err
	}
	task.Key = task.DedupKey()

	claimed := false
	if d.claims != nil {
		fresh, err := d.claims.ClaimKey(ctx, task.Key)
		if err == nil && !fresh {
			logger.Debug(ctx, "Bulk task deduplicated", "key", task.Key, "kind", string(task.Kind))
			return PublishResult{Submitted: true, Deduped: true, Key: task.Key}, nil
		}
		claimed = err == nil
	}

	payload, err := json.Marshal(task)
	if err != nil {
		d.releaseClaim(ctx, task.Key, claimed)
		return PublishResult{}, err
	}
	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key),
		Value: payload,
	}); err != nil {
		// The claim must not outlive a task that never reached the queue, or
		// an identical retry inside the dedup TTL would collapse into nothing.
		d.releaseClaim(ctx, task.Key, claimed)
		logger.Error(ctx, "Bulk task publish failed", "error", err, "kind", string(task.Kind))
		return PublishResult{}, err
	}
	return PublishResult{Submitted: true, Key: task.Key}, nil
}

// Deliver routes one delivered task to its processor. Exactly one processor
// runs per task; an empty id set is a no-op; an unknown kind is an error that
// should be impossible while the kind switch stays exhaustive. Retrying a
// failed delivery is the broker's job, not the dispatcher's.
func (d *Dispatcher) Deliver(ctx context.Context, task mutation.Bulk) error {
	if len(task.IDs) == 0 {
		return nil
	}
	var err error
	switch task.Kind {
	case mutation.KindDelete:
		err = d.procs.Delete(ctx, task.TeamID, task.IDs)
	case mutation.KindSetCompleted:
		err = d.procs.SetCompleted(ctx, task.TeamID, task.IDs, task.Completed)
	case mutation.KindSetDueDate:
		err = d.procs.SetDueDate(ctx, task.TeamID, task.IDs, task.DueDate)
	case mutation.KindSetProject:
		err = d.procs.SetProject(ctx, task.TeamID, task.IDs, task.ProjectID)
	case mutation.KindSetAssignee:
		err = d.procs.SetAssignee(ctx, task.TeamID, task.IDs, task.UserID)
	default:
		logger.Error(ctx, "Unknown task kind at delivery", "kind", string(task.Kind))
		return fmt.Errorf("%w: %q", mutation.ErrUnknownKind, task.Kind)
	}

	if task.Key != "" {
		d.releaseClaim(ctx, task.Key, d.claims != nil)
	}
	return err
}

func (d *Dispatcher) releaseClaim(ctx context.Context, key string, claimed bool) {
	if !claimed || d.claims == nil {
		return
	}
	if err := d.claims.ReleaseKey(ctx, key); err != nil {
		logger.Debug(ctx, "Dedup release failed", "error", err, "key", key)
	}
}

// Package mutation defines the batch-mutation task that flows from the UI
// through the queue to the processors, and the dedup key that collapses
// identical resubmissions.
package mutation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"
)

// Kind identifies one batch mutation variant. Every consumer switches over
// Kind exhaustively; adding a variant means touching each switch.
type Kind string

const (
	KindDelete       Kind = "delete"
	KindSetCompleted Kind = "set_completed"
	KindSetDueDate   Kind = "set_due_date"
	KindSetProject   Kind = "set_project"
	KindSetAssignee  Kind = "set_assignee"
)

// Valid reports whether k is a known mutation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDelete, KindSetCompleted, KindSetDueDate, KindSetProject, KindSetAssignee:
		return true
	}
	return false
}

var (
	// ErrEmptyIDSet is returned when a mutation carries no target ids.
	ErrEmptyIDSet = errors.New("mutation: empty id set")
	// ErrUnknownKind is returned when a mutation carries an unrecognized kind.
	ErrUnknownKind = errors.New("mutation: unknown kind")
	// ErrClientID is returned when a mutation targets an unconfirmed client id.
	ErrClientID = errors.New("mutation: client-only id in target set")
)

// Bulk is one batch mutation: the queue task payload and, minus Key, the
// pending-edit overlay entry. Only the field matching Kind is meaningful;
// the rest stay at their zero values.
type Bulk struct {
	Kind      Kind       `json:"type"`
	Key       string     `json:"key,omitempty"`
	TeamID    string     `json:"team_id"`
	IDs       []string   `json:"ids"`
	Completed bool       `json:"completed,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	ProjectID *string    `json:"project_id,omitempty"`
	UserID    *string    `json:"user_id,omitempty"`
}

// Validate checks the task shape before it goes anywhere near the queue.
func (b Bulk) Validate() error {
	if !b.Kind.Valid() {
		return ErrUnknownKind
	}
	if len(b.IDs) == 0 {
		return ErrEmptyIDSet
	}
	return nil
}

// DedupKey derives the deterministic key that collapses identical
// resubmissions: same kind, same id set (order-insensitive), same target
// value. Distinct values, including nil vs. present-but-zero, yield distinct
// keys.
func (b Bulk) DedupKey() string {
	ids := make([]string, len(b.IDs))
	copy(ids, b.IDs)
	sort.Strings(ids)

	h := sha256.New()
	writeField(h, string(b.Kind))
	writeField(h, b.TeamID)
	for _, id := range ids {
		writeField(h, id)
	}
	switch b.Kind {
	case KindSetCompleted:
		if b.Completed {
			writeField(h, "1")
		} else {
			writeField(h, "0")
		}
	case KindSetDueDate:
		writeOptField(h, formatTime(b.DueDate))
	case KindSetProject:
		writeOptField(h, b.ProjectID)
	case KindSetAssignee:
		writeOptField(h, b.UserID)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

type hashWriter interface {
	Write(p []byte) (int, error)
}

func writeField(h hashWriter, s string) {
	h.Write([]byte(s))
	h.Write([]byte{0})
}

func writeOptField(h hashWriter, s *string) {
	if s == nil {
		h.Write([]byte{0xff, 0})
		return
	}
	h.Write([]byte{1})
	writeField(h, *s)
}

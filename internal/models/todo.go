package models

import (
	"strings"
	"time"
)

// ClientIDPrefix marks ids generated client-side for optimistic entries that
// the server has not confirmed yet. Such ids must never reach the queue.
const ClientIDPrefix = "tmp-"

// IsClientID reports whether id is a client-generated optimistic id.
func IsClientID(id string) bool {
	return strings.HasPrefix(id, ClientIDPrefix)
}

// Todo represents a todo item. Every todo belongs to exactly one team;
// ProjectID and AssignedUserID may dangle after the referenced entity is
// deleted and consumers must tolerate that.
type Todo struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Completed      bool       `json:"completed"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ProjectID      *string    `json:"project_id,omitempty"`
	TeamID         string     `json:"team_id"`
	AssignedUserID *string    `json:"assigned_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Project groups todos within a team.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Package grouping derives the date-bucketed presentation of a todo list.
package grouping

import (
	"sort"
	"time"

	"teamtodo/internal/models"
)

// Labels for the relative-day buckets. Other days get a full date string.
const (
	LabelToday     = "Today"
	LabelTomorrow  = "Tomorrow"
	LabelYesterday = "Yesterday"
	LabelNoDueDate = "No Due Date"
)

const dateLabelLayout = "Monday, January 2, 2006"

// Group is one display bucket: all todos due the same calendar day, or the
// trailing no-due-date bucket (Date nil).
type Group struct {
	Label  string        `json:"label"`
	Date   *time.Time    `json:"date,omitempty"`
	IsPast bool          `json:"is_past"`
	Todos  []models.Todo `json:"todos"`
}

// GroupByDueDate buckets todos by calendar day relative to now. Dated groups
// come first in ascending date order; a Today group is always present, empty
// if necessary; todos without a due date form a final group only when there
// are any. Within a group, todos keep their input order (stable sort).
func GroupByDueDate(todos []models.Todo, now time.Time) []Group {
	loc := now.Location()
	today := dayOf(now, loc)

	var dated, undated []models.Todo
	for _, t := range todos {
		if t.DueDate != nil {
			dated = append(dated, t)
		} else {
			undated = append(undated, t)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].DueDate.Before(*dated[j].DueDate)
	})

	var groups []Group
	for _, t := range dated {
		day := dayOf(*t.DueDate, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Todos = append(groups[n-1].Todos, t)
			continue
		}
		d := day
		groups = append(groups, Group{
			Label:  labelFor(day, today),
			Date:   &d,
			IsPast: day.Before(today),
			Todos:  []models.Todo{t},
		})
	}

	groups = ensureToday(groups, today)

	if len(undated) > 0 {
		groups = append(groups, Group{Label: LabelNoDueDate, Todos: undated})
	}
	return groups
}

// ensureToday inserts an empty Today group at its date-sorted position when no
// todo is due today, so the view always has a today anchor.
func ensureToday(groups []Group, today time.Time) []Group {
	idx := len(groups)
	for i, g := range groups {
		if g.Date.Equal(today) {
			return groups
		}
		if g.Date.After(today) {
			idx = i
			break
		}
	}
	d := today
	anchor := Group{Label: LabelToday, Date: &d, Todos: []models.Todo{}}
	groups = append(groups, Group{})
	copy(groups[idx+1:], groups[idx:])
	groups[idx] = anchor
	return groups
}

func labelFor(day, today time.Time) string {
	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(today.AddDate(0, 0, 1)):
		return LabelTomorrow
	case day.Equal(today.AddDate(0, 0, -1)):
		return LabelYesterday
	}
	return day.Format(dateLabelLayout)
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

package mutation

import "time"

// Delete builds a batch delete task.
func Delete(teamID string, ids []string) Bulk {
	return Bulk{Kind: KindDelete, TeamID: teamID, IDs: ids}
}

// SetCompleted builds a batch completion toggle task.
func SetCompleted(teamID string, ids []string, completed bool) Bulk {
	return Bulk{Kind: KindSetCompleted, TeamID: teamID, IDs: ids, Completed: completed}
}

// SetDueDate builds a batch reschedule task. A nil due date clears it.
func SetDueDate(teamID string, ids []string, due *time.Time) Bulk {
	return Bulk{Kind: KindSetDueDate, TeamID: teamID, IDs: ids, DueDate: due}
}

// SetProject builds a batch project move task. A nil project id clears it.
func SetProject(teamID string, ids []string, projectID *string) Bulk {
	return Bulk{Kind: KindSetProject, TeamID: teamID, IDs: ids, ProjectID: projectID}
}

// SetAssignee builds a batch reassignment task. A nil user id unassigns.
func SetAssignee(teamID string, ids []string, userID *string) Bulk {
	return Bulk{Kind: KindSetAssignee, TeamID: teamID, IDs: ids, UserID: userID}
}

// SameIDSet reports whether a and b target exactly the same id set,
// ignoring order.
func SameIDSet(a, b Bulk) bool {
	if len(a.IDs) != len(b.IDs) {
		return false
	}
	seen := make(map[string]int, len(a.IDs))
	for _, id := range a.IDs {
		seen[id]++
	}
	for _, id := range b.IDs {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

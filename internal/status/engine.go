// Package status derives a task's status from the completion state of its
// checklist.
package status

import "github.com/nhle/task-tracker/internal/model"

// Count returns how many items are completed and how many there are.
func Count(items []model.ChecklistItem) (done, total int) {
	for _, item := range items {
		if item.Completed {
			done++
		}
	}
	return done, len(items)
}

// Derive computes the status a task must hold given its checklist. With no
// items the current status is kept, so a status set directly by a user
// survives until a checklist is added and toggled.
func Derive(current model.TaskStatus, items []model.ChecklistItem) model.TaskStatus {
	done, total := Count(items)
	return FromCounts(current, done, total)
}

// FromCounts is Derive over precomputed counts.
func FromCounts(current model.TaskStatus, done, total int) model.TaskStatus {
	switch {
	case total == 0:
		return current
	case done == 0:
		return model.StatusPending
	case done == total:
		return model.StatusCompleted
	default:
		return model.StatusInProgress
	}
}

// Progress returns the completed share as a whole percentage, truncated
// toward zero. It is 0 when there are no items.
func Progress(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

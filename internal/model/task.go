package model

import "time"

// TaskStatus is the lifecycle state of a task. After creation it is derived
// from checklist completion or set directly through a status update.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Statuses lists every status in display order.
var Statuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label returns the human-readable name of the status.
func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority in display order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Label returns the human-readable name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	default:
		return string(p)
	}
}

// MaxTitleLength is the maximum number of characters in a task title.
const MaxTitleLength = 100

// Task is a unit of work created by an administrator and assigned to users.
type Task struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueDate     time.Time  `json:"due_date" db:"due_date"`
	Priority    Priority   `json:"priority" db:"priority"`
	Status      TaskStatus `json:"status" db:"status"`

	// Attachment is the opaque stored name of the task's file, empty when
	// the task has none.
	Attachment string `json:"attachment,omitempty" db:"attachment"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ChecklistTotal and ChecklistDone are populated by list queries.
	ChecklistTotal int `json:"checklist_total" db:"checklist_total"`
	ChecklistDone  int `json:"checklist_done" db:"checklist_done"`

	// AssigneeIDs is populated when the task is loaded with its assignments.
	AssigneeIDs []string `json:"assignee_ids,omitempty" db:"-"`
}

// HasAttachment reports whether a file is stored for the task.
func (t Task) HasAttachment() bool { return t.Attachment != "" }

// IsOverdue reports whether the due date has passed on an unfinished task.
func (t Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusCompleted && t.DueDate.Before(now)
}

// IsAssignedTo reports whether userID is among the loaded assignees.
func (t Task) IsAssignedTo(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChecklistItem is a sub-step of a task. Its lifecycle is bound to the
// parent task (CASCADE delete) and it is replaced wholesale on edit.
type ChecklistItem struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	Description string    `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

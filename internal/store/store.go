package store

import (
	"context"
	"errors"

	"github.com/nhle/task-tracker/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user email is already taken.
var ErrDuplicateEmail = errors.New("email already in use")

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	AssigneeID *string // only tasks assigned to this user, nil for all
	Status     *string // "pending", "in_progress", "completed", or nil (all)
	Priority   *string // "low", "medium", "high", or nil (all)
	Query      *string // search title + description
	SortBy     string  // "created_at", "due_date", "priority", "status", "title", "updated_at"
	SortDesc   bool
	Limit      int
	Offset     int
}

// TaskWrite is a task together with the checklist descriptions and
// assignee ids written alongside it in one transaction.
type TaskWrite struct {
	Task        model.Task
	Checklist   []string
	AssigneeIDs []string
}

// ToggleResult reports the outcome of flipping a checklist item.
type ToggleResult struct {
	ItemID    string           `json:"item_id"`
	TaskID    string           `json:"task_id"`
	Completed bool             `json:"completed"`
	Status    model.TaskStatus `json:"status"`
	Done      int              `json:"done"`
	Total     int              `json:"total"`
	Progress  int              `json:"progress"`
}

// Store defines the persistence interface for users, tasks, their
// checklists and assignments, and assignment notices.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, user model.User) error
	UpdateUser(ctx context.Context, user model.User) error
	DeleteUser(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUsers(ctx context.Context) ([]model.User, error)
	CountUsersByRole(ctx context.Context, role model.Role) (int, error)
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)

	// === Tasks ===

	CreateTask(ctx context.Context, w TaskWrite) (*model.Task, error)
	UpdateTask(ctx context.Context, w TaskWrite) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) error
	GetAssigneeIDs(ctx context.Context, taskID string) ([]string, error)

	// === Checklist ===

	GetChecklistItems(ctx context.Context, taskID string) ([]model.ChecklistItem, error)
	ToggleChecklistItem(ctx context.Context, id string) (*ToggleResult, error)

	// === Notices ===

	GetPendingNotices(ctx context.Context, limit int) ([]model.Notice, error)
	MarkNoticeDelivered(ctx context.Context, id string) error
	GetUnreadNotices(ctx context.Context, userID string) ([]model.Notice, error)
	MarkNoticesRead(ctx context.Context, userID string) error
}

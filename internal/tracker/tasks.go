package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/attachment"
	"github.com/nhle/task-tracker/internal/dashboard"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/status"
	"github.com/nhle/task-tracker/internal/store"
)

// Upload is a file supplied with a task write.
type Upload struct {
	Name    string
	Content io.Reader
}

// TaskInput holds the admin-editable fields of a task.
type TaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    model.Priority
	Checklist   []string
	AssigneeIDs []string
	Attachment  *Upload
}

// ListOptions narrows and orders ListVisibleTasks. Zero values mean no
// filter. With SortBy empty, admins get newest first and users get latest
// due date first.
type ListOptions struct {
	Status   model.TaskStatus
	Priority model.Priority
	Query    string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// TaskDetail is a task with its checklist, assignees, and progress.
type TaskDetail struct {
	Task      model.Task            `json:"task"`
	Checklist []model.ChecklistItem `json:"checklist"`
	Assignees []model.User          `json:"assignees"`
	Progress  int                   `json:"progress"`
}

// ToggleResult reports the outcome of a checklist toggle.
type ToggleResult = store.ToggleResult

// validate checks in and returns the task fields it describes.
func (in TaskInput) validate() (model.Task, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return model.Task{}, invalid("title", "is required")
	case utf8.RuneCountInString(title) > model.MaxTitleLength:
		return model.Task{}, invalid("title",
			fmt.Sprintf("must be at most %d characters", model.MaxTitleLength))
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return model.Task{}, invalid("description", "is required")
	}
	if in.DueDate.IsZero() {
		return model.Task{}, invalid("due_date", "is required")
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityLow
	}
	if !priority.Valid() {
		return model.Task{}, invalid("priority", fmt.Sprintf("unknown priority %q", in.Priority))
	}

	return model.Task{
		Title:       title,
		Description: desc,
		DueDate:     in.DueDate,
		Priority:    priority,
	}, nil
}

// saveUpload stores the upload, if any, and returns its stored name.
func (s *Service) saveUpload(up *Upload) (string, error) {
	if up == nil || up.Content == nil {
		return "", nil
	}
	name, err := s.files.Save(up.Content, up.Name)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) {
			return "", invalid("attachment", err.Error())
		}
		return "", fmt.Errorf("%w: saving %s: %w", ErrStorage, up.Name, err)
	}
	return name, nil
}

// discardUpload removes a stored file whose database write did not commit.
func (s *Service) discardUpload(name string) {
	if name == "" {
		return
	}
	if err := s.files.Delete(name); err != nil {
		s.log.WithError(err).WithField("attachment", name).Warn("removing orphaned attachment")
	}
}

// CreateTask validates and persists a new pending task with its checklist
// and assignments. The attachment is stored first, so a storage failure
// leaves nothing behind. Returns the new task id.
func (s *Service) CreateTask(ctx context.Context, caller access.Caller, in TaskInput) (string, error) {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return "", err
	}
	task, err := in.validate()
	if err != nil {
		return "", err
	}

	task.ID = uuid.New().String()
	task.Status = model.StatusPending
	task.CreatedAt = s.now()

	task.Attachment, err = s.saveUpload(in.Attachment)
	if err != nil {
		return "", err
	}

	created, err := s.store.CreateTask(ctx, store.TaskWrite{
		Task:        task,
		Checklist:   in.Checklist,
		AssigneeIDs: in.AssigneeIDs,
	})
	if err != nil {
		s.discardUpload(task.Attachment)
		return "", fmt.Errorf("creating task: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"task_id":   created.ID,
		"user_id":   caller.UserID,
		"checklist": created.ChecklistTotal,
		"assignees": len(created.AssigneeIDs),
	}).Info("task created")

	return created.ID, nil
}

// EditTask replaces the fields, checklist, and assignments of a task. A new
// attachment replaces the old one, which is removed only after the edit
// commits.
func (s *Service) EditTask(ctx context.Context, caller access.Caller, id string, in TaskInput) error {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return err
	}
	task, err := in.validate()
	if err != nil {
		return err
	}

	current, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return fmt.Errorf("editing task: %w", err)
	}

	newName, err := s.saveUpload(in.Attachment)
	if err != nil {
		return err
	}

	task.ID = id
	task.Attachment = current.Attachment
	if newName != "" {
		task.Attachment = newName
	}

	updated, err := s.store.UpdateTask(ctx, store.TaskWrite{
		Task:        task,
		Checklist:   in.Checklist,
		AssigneeIDs: in.AssigneeIDs,
	})
	if err != nil {
		s.discardUpload(newName)
		return fmt.Errorf("editing task: %w", err)
	}

	if newName != "" && current.HasAttachment() {
		s.discardUpload(current.Attachment)
	}

	s.log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": caller.UserID,
		"status":  updated.Status,
	}).Info("task edited")

	return nil
}

// DeleteTask removes a task together with its checklist, assignments, and
// attachment. Deleting an unknown task is a no-op.
func (s *Service) DeleteTask(ctx context.Context, caller access.Caller, id string) error {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return err
	}

	current, err := s.store.GetTaskByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting task: %w", err)
	}

	if current.HasAttachment() {
		s.discardUpload(current.Attachment)
	}

	s.log.WithFields(logrus.Fields{
		"task_id": id,
		"user_id": caller.UserID,
	}).Info("task deleted")

	return nil
}

// ListVisibleTasks returns every task for admins and the assigned tasks
// for everyone else.
func (s *Service) ListVisibleTasks(
	ctx context.Context,
	caller access.Caller,
	opts ListOptions,
) ([]model.Task, error) {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return nil, err
	}

	filter := store.TaskFilter{
		SortBy:   opts.SortBy,
		SortDesc: opts.SortDesc,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	}
	if filter.SortBy == "" {
		filter.SortBy = "due_date"
		if caller.IsAdmin() {
			filter.SortBy = "created_at"
		}
		filter.SortDesc = true
	}
	if !store.IsTaskSortKey(filter.SortBy) {
		return nil, invalid("sort", fmt.Sprintf("unknown sort key %q", opts.SortBy))
	}
	if !caller.IsAdmin() {
		filter.AssigneeID = &caller.UserID
	}
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, invalid("status", fmt.Sprintf("unknown status %q", opts.Status))
		}
		st := string(opts.Status)
		filter.Status = &st
	}
	if opts.Priority != "" {
		if !opts.Priority.Valid() {
			return nil, invalid("priority", fmt.Sprintf("unknown priority %q", opts.Priority))
		}
		p := string(opts.Priority)
		filter.Priority = &p
	}
	if q := strings.TrimSpace(opts.Query); q != "" {
		filter.Query = &q
	}

	tasks, err := s.store.GetTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Dashboard summarizes the tasks visible to caller.
func (s *Service) Dashboard(ctx context.Context, caller access.Caller) (dashboard.Summary, error) {
	tasks, err := s.ListVisibleTasks(ctx, caller, ListOptions{})
	if err != nil {
		return dashboard.Summary{}, err
	}
	return dashboard.Summarize(tasks), nil
}

// GetTask returns a task with its checklist and assignees. Non-admins may
// only read tasks assigned to them.
func (s *Service) GetTask(ctx context.Context, caller access.Caller, id string) (*TaskDetail, error) {
	task, err := s.visibleTask(ctx, caller, id)
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}

	items, err := s.store.GetChecklistItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}

	assignees := make([]model.User, 0, len(task.AssigneeIDs))
	for _, uid := range task.AssigneeIDs {
		u, err := s.store.GetUserByID(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("getting task assignee: %w", err)
		}
		assignees = append(assignees, *u)
	}

	done, total := status.Count(items)
	return &TaskDetail{
		Task:      *task,
		Checklist: items,
		Assignees: assignees,
		Progress:  status.Progress(done, total),
	}, nil
}

// ToggleChecklistItem flips a checklist item and persists the recomputed
// task status atomically. Any signed-in user may toggle any item.
func (s *Service) ToggleChecklistItem(
	ctx context.Context,
	caller access.Caller,
	itemID string,
) (*ToggleResult, error) {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return nil, err
	}

	res, err := s.store.ToggleChecklistItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("toggling checklist item: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"task_id":   res.TaskID,
		"item_id":   itemID,
		"user_id":   caller.UserID,
		"completed": res.Completed,
		"status":    res.Status,
	}).Info("checklist item toggled")

	return res, nil
}

// UpdateTaskStatus sets a task's status directly, independent of its
// checklist. An unknown task is ignored.
func (s *Service) UpdateTaskStatus(
	ctx context.Context,
	caller access.Caller,
	taskID string,
	st model.TaskStatus,
) error {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return err
	}
	if !st.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", st))
	}

	if err := s.store.SetTaskStatus(ctx, taskID, st); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.WithField("task_id", taskID).Debug("status update for unknown task ignored")
			return nil
		}
		return fmt.Errorf("updating task status: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"task_id": taskID,
		"user_id": caller.UserID,
		"status":  st,
	}).Info("task status updated")

	return nil
}

// OpenAttachment opens the file stored on a task. The caller must close
// the returned reader.
func (s *Service) OpenAttachment(
	ctx context.Context,
	caller access.Caller,
	taskID string,
) (io.ReadCloser, string, error) {
	task, err := s.visibleTask(ctx, caller, taskID)
	if err != nil {
		return nil, "", fmt.Errorf("opening attachment: %w", err)
	}
	if !task.HasAttachment() {
		return nil, "", fmt.Errorf("task %s has no attachment: %w", taskID, ErrNotFound)
	}

	f, err := s.files.Open(task.Attachment)
	if err != nil {
		if errors.Is(err, attachment.ErrNotFound) {
			return nil, "", fmt.Errorf("attachment of task %s: %w", taskID, ErrNotFound)
		}
		return nil, "", fmt.Errorf("%w: opening %s: %w", ErrStorage, task.Attachment, err)
	}
	return f, attachment.DisplayName(task.Attachment), nil
}

// visibleTask loads a task the caller may read. A task the caller is not
// assigned to is reported as not found, the same as a missing one.
func (s *Service) visibleTask(ctx context.Context, caller access.Caller, id string) (*model.Task, error) {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return nil, err
	}
	task, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(caller, access.SelfOrAdmin, task.AssigneeIDs...); err != nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

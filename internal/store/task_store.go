package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/status"
)

// taskSelect reads tasks together with their checklist counts.
const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
		t.attachment, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM checklist_items c WHERE c.task_id = t.id) AS checklist_total,
		(SELECT COUNT(*) FROM checklist_items c WHERE c.task_id = t.id AND c.completed = 1) AS checklist_done
	FROM tasks t`

// taskSortColumns maps allowed sort keys to ORDER BY expressions.
var taskSortColumns = map[string]string{
	"created_at": "t.created_at",
	"updated_at": "t.updated_at",
	"due_date":   "t.due_date",
	"title":      "LOWER(t.title)",
	"priority":   "CASE t.priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
	"status":     "CASE t.status WHEN 'pending' THEN 1 WHEN 'in_progress' THEN 2 WHEN 'completed' THEN 3 ELSE 0 END",
}

// IsTaskSortKey reports whether key is accepted as TaskFilter.SortBy.
func IsTaskSortKey(key string) bool {
	_, ok := taskSortColumns[key]
	return ok
}

// CreateTask inserts a task with its checklist items, assignments, and
// assignment notices in one transaction. Generates a UUID if the task ID is
// empty. Blank checklist descriptions are skipped and duplicate assignee ids
// collapse. Returns ErrNotFound, writing nothing, when an assignee does not
// exist.
func (s *SQLStore) CreateTask(ctx context.Context, w TaskWrite) (*model.Task, error) {
	task := w.Task
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = normalizeTime(task.CreatedAt)
	task.UpdatedAt = task.CreatedAt
	task.DueDate = task.DueDate.UTC()
	if task.Priority == "" {
		task.Priority = model.PriorityLow
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	assignees := uniqueNonBlank(w.AssigneeIDs)

	var items []model.ChecklistItem
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkUsersExist(ctx, tx, assignees); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO tasks (
				id, title, description, due_date, priority, status,
				attachment, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			task.ID, task.Title, task.Description, task.DueDate,
			string(task.Priority), string(task.Status),
			task.Attachment, task.CreatedAt, task.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		items, err = insertChecklist(ctx, tx, task.ID, w.Checklist, task.CreatedAt)
		if err != nil {
			return err
		}

		return insertAssignments(ctx, tx, task, assignees, nil)
	})
	if err != nil {
		return nil, err
	}

	task.ChecklistTotal = len(items)
	task.ChecklistDone = 0
	task.AssigneeIDs = assignees
	return &task, nil
}

// UpdateTask updates the scalar fields of an existing task and replaces its
// checklist and assignments wholesale. The status is recomputed over the new
// checklist. Notices are queued only for assignees that were not assigned
// before. Returns ErrNotFound when the task or an assignee does not exist.
func (s *SQLStore) UpdateTask(ctx context.Context, w TaskWrite) (*model.Task, error) {
	task := w.Task
	task.UpdatedAt = now()
	task.DueDate = task.DueDate.UTC()
	if task.Priority == "" {
		task.Priority = model.PriorityLow
	}
	assignees := uniqueNonBlank(w.AssigneeIDs)

	var items []model.ChecklistItem
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var current model.Task
		err := tx.GetContext(ctx, &current, tx.Rebind(taskSelect+" WHERE t.id = ?"), task.ID)
		if err != nil {
			return fmt.Errorf("getting task %s: %w", task.ID, notFound(err))
		}

		if err := checkUsersExist(ctx, tx, assignees); err != nil {
			return err
		}

		previous, err := selectAssigneeIDs(ctx, tx, task.ID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM checklist_items WHERE task_id = ?"), task.ID); err != nil {
			return fmt.Errorf("clearing checklist of task %s: %w", task.ID, err)
		}
		items, err = insertChecklist(ctx, tx, task.ID, w.Checklist, task.UpdatedAt)
		if err != nil {
			return err
		}

		task.CreatedAt = current.CreatedAt
		task.Status = status.Derive(current.Status, items)

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE tasks SET
				title = ?, description = ?, due_date = ?, priority = ?,
				status = ?, attachment = ?, updated_at = ?
			WHERE id = ?`),
			task.Title, task.Description, task.DueDate, string(task.Priority),
			string(task.Status), task.Attachment, task.UpdatedAt,
			task.ID,
		)
		if err != nil {
			return fmt.Errorf("updating task %s: %w", task.ID, err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM assignments WHERE task_id = ?"), task.ID); err != nil {
			return fmt.Errorf("clearing assignments of task %s: %w", task.ID, err)
		}
		return insertAssignments(ctx, tx, task, assignees, previous)
	})
	if err != nil {
		return nil, err
	}

	task.ChecklistDone, task.ChecklistTotal = status.Count(items)
	task.AssigneeIDs = assignees
	return &task, nil
}

// checkUsersExist returns ErrNotFound naming the first id in ids that has no
// user row.
func checkUsersExist(ctx context.Context, tx *sqlx.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In("SELECT id FROM users WHERE id IN (?)", ids)
	if err != nil {
		return fmt.Errorf("building user lookup: %w", err)
	}
	var found []string
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("looking up assignees: %w", err)
	}

	known := make(map[string]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	for _, id := range ids {
		if !known[id] {
			return fmt.Errorf("assignee %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

// insertChecklist inserts one undone item per non-blank description, in order.
func insertChecklist(
	ctx context.Context,
	tx *sqlx.Tx,
	taskID string,
	descriptions []string,
	createdAt time.Time,
) ([]model.ChecklistItem, error) {
	items := make([]model.ChecklistItem, 0, len(descriptions))
	insert := tx.Rebind(`
		INSERT INTO checklist_items (id, task_id, description, completed, sort_order, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)

	for _, desc := range descriptions {
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		item := model.ChecklistItem{
			ID:          uuid.New().String(),
			TaskID:      taskID,
			Description: desc,
			SortOrder:   len(items),
			CreatedAt:   createdAt,
		}
		_, err := tx.ExecContext(ctx, insert,
			item.ID, item.TaskID, item.Description, boolToInt(item.Completed),
			item.SortOrder, item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("creating checklist item for task %s: %w", taskID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// insertAssignments links task to each user id and queues a notice for each
// user not present in previous.
func insertAssignments(
	ctx context.Context,
	tx *sqlx.Tx,
	task model.Task,
	userIDs []string,
	previous []string,
) error {
	had := make(map[string]bool, len(previous))
	for _, id := range previous {
		had[id] = true
	}

	assign := tx.Rebind(`
		INSERT INTO assignments (id, task_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`)
	notice := tx.Rebind(`
		INSERT INTO notices (id, user_id, task_id, message, delivered, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)`)

	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx, assign,
			uuid.New().String(), task.ID, userID, task.UpdatedAt); err != nil {
			return fmt.Errorf("assigning task %s to %s: %w", task.ID, userID, err)
		}
		if had[userID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, notice,
			uuid.New().String(), userID, task.ID, AssignmentMessage(task), task.UpdatedAt); err != nil {
			return fmt.Errorf("queueing notice for %s: %w", userID, err)
		}
	}
	return nil
}

// AssignmentMessage is the notice text sent when task is assigned to a user.
func AssignmentMessage(task model.Task) string {
	return fmt.Sprintf("You have been assigned the task %q (priority %s), due %s.",
		task.Title, task.Priority.Label(), task.DueDate.Format("2006-01-02"))
}

// DeleteTask removes a task by ID. Cascades to checklist items, assignments,
// and notices.
func (s *SQLStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetTaskByID retrieves a single task by ID, including checklist counts and
// assignee ids.
func (s *SQLStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := s.db.GetContext(ctx, &task, s.db.Rebind(taskSelect+" WHERE t.id = ?"), id)
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, notFound(err))
	}

	task.AssigneeIDs, err = s.GetAssigneeIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTasks retrieves tasks matching the filter, with checklist counts and
// assignee ids. Offset is applied only together with a positive Limit.
func (s *SQLStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query, args := buildTaskQuery(filter)

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	// Batch load assignees for all tasks.
	ids := make([]string, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
	}
	inQuery, inArgs, err := sqlx.In(
		"SELECT task_id, user_id FROM assignments WHERE task_id IN (?) ORDER BY user_id", ids)
	if err != nil {
		return nil, fmt.Errorf("building assignee query: %w", err)
	}
	var links []model.Assignment
	if err := s.db.SelectContext(ctx, &links, s.db.Rebind(inQuery), inArgs...); err != nil {
		return nil, fmt.Errorf("loading assignees: %w", err)
	}

	byTask := make(map[string][]string, len(tasks))
	for _, a := range links {
		byTask[a.TaskID] = append(byTask[a.TaskID], a.UserID)
	}
	for i := range tasks {
		tasks[i].AssigneeIDs = byTask[tasks[i].ID]
	}

	return tasks, nil
}

// buildTaskQuery renders the filter into a query with ? placeholders.
func buildTaskQuery(filter TaskFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if filter.AssigneeID != nil {
		where = append(where,
			"EXISTS (SELECT 1 FROM assignments a WHERE a.task_id = t.id AND a.user_id = ?)")
		args = append(args, *filter.AssigneeID)
	}
	if filter.Status != nil {
		where = append(where, "t.status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		where = append(where, "t.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(*filter.Query)) + "%"
		where = append(where, "(LOWER(t.title) LIKE ? OR LOWER(t.description) LIKE ?)")
		args = append(args, like, like)
	}

	var b strings.Builder
	b.WriteString(taskSelect)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	col, ok := taskSortColumns[filter.SortBy]
	if !ok {
		col = taskSortColumns["created_at"]
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, t.created_at DESC, t.id ASC", col, dir)

	if filter.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, filter.Limit, max(filter.Offset, 0))
	}

	return b.String(), args
}

// SetTaskStatus overwrites the status of a task regardless of its checklist.
func (s *SQLStore) SetTaskStatus(ctx context.Context, id string, st model.TaskStatus) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?"),
		string(st), now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting status of task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetAssigneeIDs returns the ids of users assigned to a task.
func (s *SQLStore) GetAssigneeIDs(ctx context.Context, taskID string) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		"SELECT user_id FROM assignments WHERE task_id = ? ORDER BY user_id"), taskID)
	if err != nil {
		return nil, fmt.Errorf("loading assignees of task %s: %w", taskID, err)
	}
	return ids, nil
}

func selectAssigneeIDs(ctx context.Context, tx *sqlx.Tx, taskID string) ([]string, error) {
	var ids []string
	err := tx.SelectContext(ctx, &ids, tx.Rebind(
		"SELECT user_id FROM assignments WHERE task_id = ?"), taskID)
	if err != nil {
		return nil, fmt.Errorf("loading assignees of task %s: %w", taskID, err)
	}
	return ids, nil
}

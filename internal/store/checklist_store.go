package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/status"
)

const checklistColumns = "id, task_id, description, completed, sort_order, created_at"

// GetChecklistItems returns all checklist items for a task, ordered by sort_order.
func (s *SQLStore) GetChecklistItems(
	ctx context.Context,
	taskID string,
) ([]model.ChecklistItem, error) {
	var items []model.ChecklistItem
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(
		"SELECT "+checklistColumns+" FROM checklist_items WHERE task_id = ? ORDER BY sort_order ASC"),
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting checklist items for task %s: %w", taskID, err)
	}
	return items, nil
}

// ToggleChecklistItem flips the completed flag of a checklist item and
// persists the parent task's recomputed status in the same transaction.
func (s *SQLStore) ToggleChecklistItem(ctx context.Context, id string) (*ToggleResult, error) {
	var res ToggleResult

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		var item model.ChecklistItem
		err := tx.GetContext(ctx, &item, tx.Rebind(
			"SELECT "+checklistColumns+" FROM checklist_items WHERE id = ?"), id)
		if err != nil {
			return fmt.Errorf("getting checklist item %s: %w", id, notFound(err))
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE checklist_items
			SET completed = CASE WHEN completed = 1 THEN 0 ELSE 1 END
			WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("toggling checklist item %s: %w", id, err)
		}

		var current model.TaskStatus
		err = tx.GetContext(ctx, &current, tx.Rebind(
			"SELECT status FROM tasks WHERE id = ?"), item.TaskID)
		if err != nil {
			return fmt.Errorf("getting task %s: %w", item.TaskID, notFound(err))
		}

		var counts struct {
			Done  int `db:"done"`
			Total int `db:"total"`
		}
		err = tx.GetContext(ctx, &counts, tx.Rebind(`
			SELECT COALESCE(SUM(completed), 0) AS done, COUNT(*) AS total
			FROM checklist_items WHERE task_id = ?`), item.TaskID)
		if err != nil {
			return fmt.Errorf("counting checklist of task %s: %w", item.TaskID, err)
		}

		next := status.FromCounts(current, counts.Done, counts.Total)
		_, err = tx.ExecContext(ctx, tx.Rebind(
			"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?"),
			string(next), now(), item.TaskID,
		)
		if err != nil {
			return fmt.Errorf("updating status of task %s: %w", item.TaskID, err)
		}

		res = ToggleResult{
			ItemID:    item.ID,
			TaskID:    item.TaskID,
			Completed: !item.Completed,
			Status:    next,
			Done:      counts.Done,
			Total:     counts.Total,
			Progress:  status.Progress(counts.Done, counts.Total),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

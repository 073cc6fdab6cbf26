package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/store"
	"github.com/nhle/task-tracker/tests/testutil"
)

func TestToggleChecklistWalk(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	task, err := s.CreateTask(ctx, store.TaskWrite{
		Task:      newTask("T"),
		Checklist: []string{"a", "b", "c"},
	})
	require.NoError(t, err)

	items, err := s.GetChecklistItems(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var res *store.ToggleResult
	for _, it := range items {
		res, err = s.ToggleChecklistItem(ctx, it.ID)
		require.NoError(t, err)
		assert.True(t, res.Completed)
	}
	assert.Equal(t, model.StatusCompleted, res.Status)
	assert.Equal(t, 100, res.Progress)
	assert.Equal(t, 3, res.Done)

	res, err = s.ToggleChecklistItem(ctx, items[1].ID)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.Equal(t, 66, res.Progress)

	for _, it := range []model.ChecklistItem{items[0], items[2]} {
		res, err = s.ToggleChecklistItem(ctx, it.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, 0, res.Progress)

	got, err := s.GetTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, 0, got.ChecklistDone)
}

func TestToggleSingleOfManyIsInProgress(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	task, err := s.CreateTask(ctx, store.TaskWrite{
		Task:      newTask("T"),
		Checklist: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)
	items, err := s.GetChecklistItems(ctx, task.ID)
	require.NoError(t, err)

	res, err := s.ToggleChecklistItem(ctx, items[2].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.Equal(t, task.ID, res.TaskID)
	assert.Equal(t, 25, res.Progress)

	items, err = s.GetChecklistItems(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, items[2].Completed)
	assert.False(t, items[0].Completed)
}

func TestToggleUnknownItem(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.ToggleChecklistItem(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

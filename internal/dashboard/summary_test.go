package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/model"
)

func TestSummarize_Counts(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Status: model.StatusPending, Priority: model.PriorityLow},
		{ID: "b", Status: model.StatusPending, Priority: model.PriorityHigh},
		{ID: "c", Status: model.StatusInProgress, Priority: model.PriorityHigh},
		{ID: "d", Status: model.StatusCompleted, Priority: model.PriorityMedium},
	}

	s := Summarize(tasks)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, StatusCounts{Pending: 2, InProgress: 1, Completed: 1}, s.ByStatus)
	assert.Equal(t, PriorityCounts{Low: 1, Medium: 1, High: 2}, s.ByPriority)
	assert.Equal(t, 2, s.ByStatus.Count(model.StatusPending))
	assert.Equal(t, 2, s.ByPriority.Count(model.PriorityHigh))
}

func TestSummarize_RecentNewestFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "old", CreatedAt: base},
		{ID: "newest", CreatedAt: base.Add(4 * time.Hour)},
		{ID: "tie-1", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "tie-2", CreatedAt: base.Add(2 * time.Hour)},
	}

	s := Summarize(tasks)

	require.Len(t, s.Recent, RecentLimit)
	assert.Equal(t, "newest", s.Recent[0].ID)
	assert.Equal(t, "tie-1", s.Recent[1].ID)
	assert.Equal(t, "tie-2", s.Recent[2].ID)
	assert.Equal(t, "old", tasks[0].ID, "input must not be reordered")
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Empty(t, s.Recent)
}

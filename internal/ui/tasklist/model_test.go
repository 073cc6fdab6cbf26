package tasklist

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/dashboard"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

type fakeSource struct {
	tasks []model.Task
	last  tracker.ListOptions
}

func (f *fakeSource) ListVisibleTasks(_ context.Context, _ access.Caller, opts tracker.ListOptions) ([]model.Task, error) {
	f.last = opts
	return f.tasks, nil
}

func (f *fakeSource) Dashboard(_ context.Context, _ access.Caller) (dashboard.Summary, error) {
	return dashboard.Summarize(f.tasks), nil
}

func keyMsg(s string) tea.KeyMsg {
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFilterKeysCycle(t *testing.T) {
	src := &fakeSource{}
	m := New(src, keys.DefaultKeyMap(), 80, 24)
	m.SetCaller(access.Caller{UserID: "u1", Role: model.RoleUser})

	m, cmd := m.Update(keyMsg("1"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, model.StatusPending, src.last.Status)

	m, cmd = m.Update(keyMsg("2"))
	cmd()
	assert.Equal(t, model.PriorityLow, src.last.Priority)

	m, cmd = m.Update(keyMsg("tab"))
	cmd()
	assert.Equal(t, "due_date", src.last.SortBy)
	assert.True(t, src.last.SortDesc)
	assert.Contains(t, m.FilterSummary(), "status=pending")

	_, cmd = m.Update(keyMsg("3"))
	cmd()
	assert.Equal(t, tracker.ListOptions{}, src.last)
}

func TestNextStatusWraps(t *testing.T) {
	s := model.TaskStatus("")
	var seen []model.TaskStatus
	for range 4 {
		s = nextStatus(s)
		seen = append(seen, s)
	}
	assert.Equal(t, []model.TaskStatus{
		model.StatusPending, model.StatusInProgress, model.StatusCompleted, "",
	}, seen)
}

func TestLoadTasksPopulatesList(t *testing.T) {
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{tasks: []model.Task{
		{ID: "a", Title: "A", Status: model.StatusPending, Priority: model.PriorityHigh, DueDate: due},
		{ID: "b", Title: "B", Status: model.StatusCompleted, Priority: model.PriorityLow, DueDate: due},
	}}
	m := New(src, keys.DefaultKeyMap(), 80, 24)
	m.SetCaller(access.Caller{UserID: "admin", Role: model.RoleAdmin})

	m, _ = m.Update(m.LoadTasks()())
	task, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "a", task.ID)
	assert.Equal(t, 2, m.summary.Total)
	assert.Contains(t, m.View(), "1 pending")
}

func TestRenderRowFlagsOverdue(t *testing.T) {
	at := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	task := model.Task{
		Title: "Late", Status: model.StatusInProgress, Priority: model.PriorityMedium,
		DueDate:        at.AddDate(0, 0, -1),
		ChecklistTotal: 3, ChecklistDone: 1,
	}

	row := renderRow(task, false, at)
	assert.Contains(t, row, "OVERDUE")
	assert.Contains(t, row, "1/3 33%")

	task.Status = model.StatusCompleted
	assert.NotContains(t, renderRow(task, false, at), "OVERDUE")
}

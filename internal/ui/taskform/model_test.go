package taskform

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

func TestStartCreateDefaultsDueTomorrow(t *testing.T) {
	m := New(80, 30)
	m.now = func() time.Time { return time.Date(2030, 2, 28, 15, 0, 0, 0, time.UTC) }

	m.StartCreate()
	assert.Equal(t, "2030-03-01", m.fb.dueDate)
	assert.Equal(t, model.PriorityLow, m.fb.priority)
}

func TestSubmitBuildsInput(t *testing.T) {
	m := New(80, 30)
	m.StartEdit(tracker.TaskDetail{
		Task: model.Task{
			ID: "t1", Title: "Report", Description: "Numbers",
			Priority:    model.PriorityHigh,
			DueDate:     time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
			AssigneeIDs: []string{"u1"},
		},
		Checklist: []model.ChecklistItem{{Description: "a"}, {Description: "b"}},
	})
	assert.Equal(t, "a\nb", m.fb.checklist)

	m.fb.checklist = "a\n\n  c  \n"
	m.fb.attachmentPath = " /tmp/notes.txt "

	msg := m.submit()()
	out, ok := msg.(SubmitMsg)
	require.True(t, ok)
	assert.Equal(t, "t1", out.TaskID)
	assert.Equal(t, []string{"a", "c"}, out.Input.Checklist)
	assert.Equal(t, []string{"u1"}, out.Input.AssigneeIDs)
	assert.Equal(t, model.PriorityHigh, out.Input.Priority)
	assert.Equal(t, 2, out.Input.DueDate.Day())
	assert.Equal(t, "/tmp/notes.txt", out.AttachmentPath)
}

func TestValidators(t *testing.T) {
	assert.Error(t, validateTitle("   "))
	assert.Error(t, validateTitle(strings.Repeat("x", model.MaxTitleLength+1)))
	assert.NoError(t, validateTitle(strings.Repeat("x", model.MaxTitleLength)))

	assert.Error(t, validateDate("tomorrow"))
	assert.NoError(t, validateDate("2030-01-01"))
}

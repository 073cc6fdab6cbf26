package tracker_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/attachment"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/store"
	"github.com/nhle/task-tracker/internal/tracker"
	"github.com/nhle/task-tracker/tests/testutil"
)

// spyFiles records calls and can be told to fail saves.
type spyFiles struct {
	*attachment.Store
	failSave bool
	deletes  []string
}

func (f *spyFiles) Save(r io.Reader, name string) (string, error) {
	if f.failSave {
		return "", errors.New("disk full")
	}
	return f.Store.Save(r, name)
}

func (f *spyFiles) Delete(name string) error {
	f.deletes = append(f.deletes, name)
	return f.Store.Delete(name)
}

type fixture struct {
	svc   *tracker.Service
	store *store.SQLStore
	files *spyFiles
	fs    afero.Fs
	admin access.Caller
	alice access.Caller
	bob   access.Caller
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := testutil.NewTestStore(t)
	att, fs := testutil.NewTestAttachments(t)
	f := &fixture{
		store: st,
		files: &spyFiles{Store: att},
		fs:    fs,
		clock: time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = tracker.New(st, f.files, tracker.WithClock(func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}))

	f.admin = f.addUser(t, "admin@example.com", model.RoleAdmin)
	f.alice = f.addUser(t, "alice@example.com", model.RoleUser)
	f.bob = f.addUser(t, "bob@example.com", model.RoleUser)
	return f
}

func (f *fixture) addUser(t *testing.T, email string, role model.Role) access.Caller {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, model.User{
		FullName: email, Email: email, PasswordHash: "x", Role: role,
	}))
	u, err := f.store.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	return access.Caller{UserID: u.ID, Role: u.Role}
}

func (f *fixture) input(title string, assignees ...access.Caller) tracker.TaskInput {
	in := tracker.TaskInput{
		Title:       title,
		Description: "about " + title,
		DueDate:     time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC),
		Priority:    model.PriorityMedium,
	}
	for _, c := range assignees {
		in.AssigneeIDs = append(in.AssigneeIDs, c.UserID)
	}
	return in
}

func (f *fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := afero.ReadDir(f.fs, "/attachments")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateTaskRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTask(ctx, f.alice, f.input("T"))
	assert.ErrorIs(t, err, tracker.ErrForbidden)

	_, err = f.svc.CreateTask(ctx, access.Anonymous, f.input("T"))
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestCreateTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(*tracker.TaskInput)
		field string
	}{
		{"blank title", func(in *tracker.TaskInput) { in.Title = "  " }, "title"},
		{"long title", func(in *tracker.TaskInput) { in.Title = strings.Repeat("é", model.MaxTitleLength+1) }, "title"},
		{"blank description", func(in *tracker.TaskInput) { in.Description = "" }, "description"},
		{"no due date", func(in *tracker.TaskInput) { in.DueDate = time.Time{} }, "due_date"},
		{"bad priority", func(in *tracker.TaskInput) { in.Priority = "urgent" }, "priority"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := f.input("T")
			tc.edit(&in)
			_, err := f.svc.CreateTask(ctx, f.admin, in)
			require.ErrorIs(t, err, tracker.ErrValidation)
			var verr *tracker.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	in := f.input("T")
	in.Title = strings.Repeat("é", model.MaxTitleLength)
	_, err := f.svc.CreateTask(ctx, f.admin, in)
	assert.NoError(t, err)
}

func TestCreateTaskInvalidWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("  ", f.alice, f.bob)
	in.Checklist = []string{"first", "second"}
	in.Attachment = &tracker.Upload{Name: "brief.txt", Content: strings.NewReader("body")}

	_, err := f.svc.CreateTask(ctx, f.admin, in)
	require.ErrorIs(t, err, tracker.ErrValidation)

	tasks, err := f.svc.ListVisibleTasks(ctx, f.admin, tracker.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, f.storedFiles(t))

	for _, c := range []access.Caller{f.alice, f.bob} {
		assigned, err := f.svc.ListVisibleTasks(ctx, c, tracker.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, assigned)
		notices, err := f.svc.UnreadNotices(ctx, c)
		require.NoError(t, err)
		assert.Empty(t, notices)
	}
	pending, err := f.store.GetPendingNotices(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T", f.alice)
	in.Priority = ""
	in.Checklist = []string{"one", " ", "two"}
	id, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)

	detail, err := f.svc.GetTask(ctx, f.alice, id)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, detail.Task.Priority)
	assert.Equal(t, model.StatusPending, detail.Task.Status)
	assert.Len(t, detail.Checklist, 2)
	require.Len(t, detail.Assignees, 1)
	assert.Equal(t, "alice@example.com", detail.Assignees[0].Email)
	assert.Equal(t, 0, detail.Progress)
}

func TestCreateTaskWithAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T", f.alice)
	in.Attachment = &tracker.Upload{Name: "brief.txt", Content: strings.NewReader("body")}
	id, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)

	rc, name, err := f.svc.OpenAttachment(ctx, f.alice, id)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "brief.txt", name)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(data))

	_, _, err = f.svc.OpenAttachment(ctx, f.bob, id)
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	assert.NotErrorIs(t, err, tracker.ErrForbidden)
}

func TestCreateTaskStorageFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.files.failSave = true

	in := f.input("T")
	in.Attachment = &tracker.Upload{Name: "a.txt", Content: strings.NewReader("x")}
	_, err := f.svc.CreateTask(ctx, f.admin, in)
	require.ErrorIs(t, err, tracker.ErrStorage)

	tasks, err := f.svc.ListVisibleTasks(ctx, f.admin, tracker.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestCreateTaskDatabaseFailureRemovesFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T")
	in.AssigneeIDs = []string{"nobody"}
	in.Attachment = &tracker.Upload{Name: "a.txt", Content: strings.NewReader("x")}
	_, err := f.svc.CreateTask(ctx, f.admin, in)
	require.ErrorIs(t, err, tracker.ErrNotFound)

	assert.Len(t, f.files.deletes, 1)
	assert.Empty(t, f.storedFiles(t))
}

func TestEditTaskReplacesChecklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T", f.alice)
	in.Checklist = []string{"A", "B"}
	id, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)

	detail, err := f.svc.GetTask(ctx, f.admin, id)
	require.NoError(t, err)
	_, err = f.svc.ToggleChecklistItem(ctx, f.alice, detail.Checklist[0].ID)
	require.NoError(t, err)

	in.Checklist = []string{"C"}
	require.NoError(t, f.svc.EditTask(ctx, f.admin, id, in))

	detail, err = f.svc.GetTask(ctx, f.admin, id)
	require.NoError(t, err)
	require.Len(t, detail.Checklist, 1)
	assert.Equal(t, "C", detail.Checklist[0].Description)
	assert.False(t, detail.Checklist[0].Completed)
	assert.Equal(t, model.StatusPending, detail.Task.Status)
}

func TestEditTaskReplacesAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T")
	in.Attachment = &tracker.Upload{Name: "old.txt", Content: strings.NewReader("old")}
	id, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)
	before := f.storedFiles(t)
	require.Len(t, before, 1)

	in.Attachment = &tracker.Upload{Name: "new.txt", Content: strings.NewReader("new")}
	require.NoError(t, f.svc.EditTask(ctx, f.admin, id, in))

	after := f.storedFiles(t)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0], after[0])
	assert.Equal(t, "new.txt", attachment.DisplayName(after[0]))

	in.Attachment = nil
	require.NoError(t, f.svc.EditTask(ctx, f.admin, id, in))
	assert.Equal(t, after, f.storedFiles(t))
}

func TestEditTaskUnknown(t *testing.T) {
	f := newFixture(t)

	err := f.svc.EditTask(context.Background(), f.admin, "missing", f.input("T"))
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain, err := f.svc.CreateTask(ctx, f.admin, f.input("plain"))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteTask(ctx, f.admin, plain))
	assert.Empty(t, f.files.deletes)

	in := f.input("with file")
	in.Attachment = &tracker.Upload{Name: "a.txt", Content: strings.NewReader("x")}
	withFile, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteTask(ctx, f.alice, withFile), tracker.ErrForbidden)
	require.NoError(t, f.svc.DeleteTask(ctx, f.admin, withFile))
	assert.Len(t, f.files.deletes, 1)
	assert.Empty(t, f.storedFiles(t))

	_, err = f.svc.GetTask(ctx, f.admin, withFile)
	assert.ErrorIs(t, err, tracker.ErrNotFound)

	assert.NoError(t, f.svc.DeleteTask(ctx, f.admin, withFile))
	assert.NoError(t, f.svc.DeleteTask(ctx, f.admin, "never-existed"))
}

func TestListVisibleTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mk := func(title string, due time.Time, assignees ...access.Caller) {
		in := f.input(title, assignees...)
		in.DueDate = due
		_, err := f.svc.CreateTask(ctx, f.admin, in)
		require.NoError(t, err)
	}
	day := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	mk("a", day.AddDate(0, 0, 5), f.alice)
	mk("b", day.AddDate(0, 0, 1), f.bob)
	mk("c", day.AddDate(0, 0, 9), f.alice, f.bob)

	all, err := f.svc.ListVisibleTasks(ctx, f.admin, tracker.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, titles(all))

	mine, err := f.svc.ListVisibleTasks(ctx, f.alice, tracker.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, titles(mine))

	asc, err := f.svc.ListVisibleTasks(ctx, f.bob, tracker.ListOptions{SortBy: "due_date"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, titles(asc))

	_, err = f.svc.ListVisibleTasks(ctx, f.alice, tracker.ListOptions{SortBy: "password"})
	assert.ErrorIs(t, err, tracker.ErrValidation)

	_, err = f.svc.ListVisibleTasks(ctx, f.alice, tracker.ListOptions{Status: "done"})
	assert.ErrorIs(t, err, tracker.ErrValidation)

	_, err = f.svc.ListVisibleTasks(ctx, access.Anonymous, tracker.ListOptions{})
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestGetTaskOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateTask(ctx, f.admin, f.input("T", f.alice))
	require.NoError(t, err)

	_, err = f.svc.GetTask(ctx, f.alice, id)
	assert.NoError(t, err)
	_, err = f.svc.GetTask(ctx, f.admin, "missing")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
	_, err = f.svc.GetTask(ctx, access.Anonymous, id)
	assert.ErrorIs(t, err, tracker.ErrForbidden)

	// An unassigned task looks the same as a missing one.
	_, errExisting := f.svc.GetTask(ctx, f.bob, id)
	_, errMissing := f.svc.GetTask(ctx, f.bob, "missing")
	assert.ErrorIs(t, errExisting, tracker.ErrNotFound)
	assert.ErrorIs(t, errMissing, tracker.ErrNotFound)
	assert.NotErrorIs(t, errExisting, tracker.ErrForbidden)
}

func TestToggleAndStatusArePermissive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input("T", f.alice)
	in.Checklist = []string{"a", "b"}
	id, err := f.svc.CreateTask(ctx, f.admin, in)
	require.NoError(t, err)
	detail, err := f.svc.GetTask(ctx, f.admin, id)
	require.NoError(t, err)

	// Bob is not assigned but may still toggle.
	res, err := f.svc.ToggleChecklistItem(ctx, f.bob, detail.Checklist[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, model.StatusInProgress, res.Status)
	assert.Equal(t, 50, res.Progress)

	_, err = f.svc.ToggleChecklistItem(ctx, access.Anonymous, detail.Checklist[0].ID)
	assert.ErrorIs(t, err, tracker.ErrForbidden)
	_, err = f.svc.ToggleChecklistItem(ctx, f.alice, "missing")
	assert.ErrorIs(t, err, tracker.ErrNotFound)

	require.NoError(t, f.svc.UpdateTaskStatus(ctx, f.bob, id, model.StatusCompleted))
	detail, err = f.svc.GetTask(ctx, f.alice, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, detail.Task.Status)

	assert.ErrorIs(t, f.svc.UpdateTaskStatus(ctx, f.alice, id, "done"), tracker.ErrValidation)
	assert.NoError(t, f.svc.UpdateTaskStatus(ctx, f.alice, "missing", model.StatusCompleted))
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c", "d"} {
		id, err := f.svc.CreateTask(ctx, f.admin, f.input(title, f.alice))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, f.svc.UpdateTaskStatus(ctx, f.admin, ids[2], model.StatusInProgress))
	require.NoError(t, f.svc.UpdateTaskStatus(ctx, f.admin, ids[3], model.StatusCompleted))
	_, err := f.svc.CreateTask(ctx, f.admin, f.input("unassigned"))
	require.NoError(t, err)

	sum, err := f.svc.Dashboard(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.ByStatus.Pending)
	assert.Equal(t, 1, sum.ByStatus.InProgress)
	assert.Equal(t, 1, sum.ByStatus.Completed)
	assert.Equal(t, 4, sum.ByPriority.Medium)
	assert.Equal(t, []string{"d", "c", "b"}, titles(sum.Recent))

	sum, err = f.svc.Dashboard(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Total)
}

func TestNotices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTask(ctx, f.admin, f.input("T", f.alice))
	require.NoError(t, err)

	notices, err := f.svc.UnreadNotices(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, `"T"`)

	require.NoError(t, f.svc.MarkNoticesRead(ctx, f.alice))
	notices, err = f.svc.UnreadNotices(ctx, f.alice)
	require.NoError(t, err)
	assert.Empty(t, notices)
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

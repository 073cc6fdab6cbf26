package usermgr

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

type fakeDirectory struct {
	users   []model.User
	created []tracker.UserInput
	edited  map[string]tracker.ProfileInput
	deleted []string
}

func (f *fakeDirectory) ListUsers(context.Context, access.Caller) ([]model.User, error) {
	return f.users, nil
}

func (f *fakeDirectory) CreateUser(_ context.Context, _ access.Caller, in tracker.UserInput) (string, error) {
	f.created = append(f.created, in)
	return "new-id", nil
}

func (f *fakeDirectory) EditUser(_ context.Context, _ access.Caller, id string, in tracker.ProfileInput) error {
	if f.edited == nil {
		f.edited = map[string]tracker.ProfileInput{}
	}
	f.edited[id] = in
	return nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, _ access.Caller, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T) (Model, *fakeDirectory) {
	t.Helper()
	dir := &fakeDirectory{users: []model.User{
		{ID: "admin-1", FullName: "Admin", Email: "admin@example.com", Role: model.RoleAdmin},
		{ID: "user-1", FullName: "Alice", Email: "alice@example.com", Role: model.RoleUser},
	}}
	caller := access.Caller{UserID: "admin-1", Role: model.RoleAdmin}
	m := New(dir, caller, keys.DefaultKeyMap(), 100, 30)

	msg := m.Init()()
	require.IsType(t, UsersLoadedMsg{}, msg)
	m, _ = m.Update(msg)
	require.Len(t, m.users, 2)
	return m, dir
}

func TestListNavigationWraps(t *testing.T) {
	m, _ := loaded(t)

	m, _ = m.Update(runeKey("k"))
	assert.Equal(t, 1, m.selectedIdx)
	m, _ = m.Update(runeKey("j"))
	assert.Equal(t, 0, m.selectedIdx)
}

func TestCannotDeleteSelf(t *testing.T) {
	m, _ := loaded(t)

	m, _ = m.Update(runeKey("d"))
	assert.Equal(t, modeList, m.mode)
	assert.Equal(t, "You cannot delete your own account", m.statusMsg)

	m, _ = m.Update(runeKey("j"))
	m, _ = m.Update(runeKey("d"))
	assert.Equal(t, modeConfirmDelete, m.mode)
	assert.True(t, m.Editing())
}

func TestEditPrefillsForm(t *testing.T) {
	m, dir := loaded(t)

	m, _ = m.Update(runeKey("j"))
	m, _ = m.Update(runeKey("e"))
	require.Equal(t, modeForm, m.mode)
	assert.Equal(t, "Alice", m.fb.fullName)
	assert.Equal(t, "alice@example.com", m.fb.email)
	assert.Empty(t, m.fb.password)

	m.fb.fullName = "Alice Smith"
	msg := m.saveUser()()
	assert.Equal(t, userSavedMsg{}, msg)
	assert.Equal(t, "Alice Smith", dir.edited["user-1"].FullName)
	assert.Empty(t, dir.created)
}

func TestSaveCreatesWhenNew(t *testing.T) {
	m, dir := loaded(t)

	m, _ = m.Update(runeKey("n"))
	require.Equal(t, modeForm, m.mode)
	*m.fb = formBindings{fullName: "Bob", email: "bob@example.com", password: "secret123"}

	msg := m.saveUser()()
	m, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, modeList, m.mode)
	assert.Equal(t, "User saved", m.statusMsg)
	require.Len(t, dir.created, 1)
	assert.Equal(t, "bob@example.com", dir.created[0].Email)
}

func TestBackCloses(t *testing.T) {
	m, _ := loaded(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

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

func TestNoticeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	alice := createUser(t, s, "alice@example.com", model.RoleUser)

	for _, title := range []string{"one", "two"} {
		_, err := s.CreateTask(ctx, store.TaskWrite{Task: newTask(title), AssigneeIDs: []string{alice.ID}})
		require.NoError(t, err)
	}

	pending, err := s.GetPendingNotices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NoError(t, s.MarkNoticeDelivered(ctx, pending[0].ID))

	pending, err = s.GetPendingNotices(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	unread, err := s.GetUnreadNotices(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	require.NoError(t, s.MarkNoticesRead(ctx, alice.ID))
	unread, err = s.GetUnreadNotices(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, s.MarkNoticeDelivered(ctx, "missing"), store.ErrNotFound)
}

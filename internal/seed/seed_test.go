package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/logger"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/seed"
	"github.com/nhle/task-tracker/tests/testutil"
)

var cfg = model.SeedConfig{
	AdminEmail:    "Admin@TaskTracker.com",
	AdminName:     "Root",
	AdminPassword: "Admin@123",
}

func TestAdminIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)

	created, err := seed.Admin(ctx, st, cfg, logger.Discard())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = seed.Admin(ctx, st, cfg, logger.Discard())
	require.NoError(t, err)
	assert.False(t, created)

	n, err := st.CountUsersByRole(ctx, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	admin, err := st.GetUserByEmail(ctx, "admin@tasktracker.com")
	require.NoError(t, err)
	assert.Equal(t, "Root", admin.FullName)
	assert.NoError(t, auth.CheckPassword(admin.PasswordHash, "Admin@123"))
}

func TestAdminSkipsWhenAnotherAdminExists(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	require.NoError(t, st.CreateUser(ctx, model.User{
		FullName: "Other", Email: "other@example.com", PasswordHash: "x", Role: model.RoleAdmin,
	}))

	created, err := seed.Admin(ctx, st, cfg, logger.Discard())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAdminSkipsWhenEmailTaken(t *testing.T) {
	ctx := context.Background()
	st := testutil.NewTestStore(t)
	require.NoError(t, st.CreateUser(ctx, model.User{
		FullName: "Squatter", Email: "admin@tasktracker.com", PasswordHash: "x", Role: model.RoleUser,
	}))

	created, err := seed.Admin(ctx, st, cfg, logger.Discard())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAdminRequiresPassword(t *testing.T) {
	st := testutil.NewTestStore(t)

	noPass := cfg
	noPass.AdminPassword = ""
	_, err := seed.Admin(context.Background(), st, noPass, logger.Discard())
	assert.ErrorIs(t, err, seed.ErrNoPassword)
}

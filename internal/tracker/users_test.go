package tracker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.CreateUser(ctx, f.admin, tracker.UserInput{
		FullName: "Carol", Email: "  Carol@Example.com ", Password: "hunter22",
	})
	require.NoError(t, err)

	user, err := f.svc.GetUser(ctx, f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)

	caller, err := f.svc.Authenticate(ctx, "CAROL@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, access.Caller{UserID: id, Role: model.RoleUser}, caller)

	_, err = f.svc.Authenticate(ctx, "carol@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    tracker.UserInput
		field string
	}{
		{"no name", tracker.UserInput{Email: "x@example.com", Password: "secret"}, "full_name"},
		{"bad email", tracker.UserInput{FullName: "X", Email: "nope", Password: "secret"}, "email"},
		{"short password", tracker.UserInput{FullName: "X", Email: "x@example.com", Password: "123"}, "password"},
		{"duplicate", tracker.UserInput{FullName: "X", Email: "ALICE@example.com", Password: "secret"}, "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateUser(ctx, f.admin, tc.in)
			var verr *tracker.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.ErrorIs(t, err, tracker.ErrValidation)
		})
	}

	_, err := f.svc.CreateUser(ctx, f.alice, tracker.UserInput{
		FullName: "X", Email: "x@example.com", Password: "secret",
	})
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.UpdateProfile(ctx, f.alice, f.alice.UserID, tracker.ProfileInput{
		FullName: "Alice A.", Email: "alice@example.com", Password: "newpass",
	})
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, "alice@example.com", "newpass")
	assert.NoError(t, err)

	err = f.svc.UpdateProfile(ctx, f.alice, f.bob.UserID, tracker.ProfileInput{
		FullName: "Bob", Email: "bob@example.com",
	})
	assert.ErrorIs(t, err, tracker.ErrForbidden)

	err = f.svc.EditUser(ctx, f.admin, f.bob.UserID, tracker.ProfileInput{
		FullName: "Bob", Email: "alice@example.com",
	})
	assert.ErrorIs(t, err, tracker.ErrValidation)

	err = f.svc.EditUser(ctx, f.alice, f.bob.UserID, tracker.ProfileInput{
		FullName: "Bob", Email: "bob2@example.com",
	})
	assert.ErrorIs(t, err, tracker.ErrForbidden)

	err = f.svc.EditUser(ctx, f.admin, "missing", tracker.ProfileInput{
		FullName: "Ghost", Email: "ghost@example.com",
	})
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.admin, f.admin.UserID), tracker.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, f.alice, f.bob.UserID), tracker.ErrForbidden)

	require.NoError(t, f.svc.DeleteUser(ctx, f.admin, f.bob.UserID))
	assert.NoError(t, f.svc.DeleteUser(ctx, f.admin, f.bob.UserID))

	users, err := f.svc.ListUsers(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.svc.ListUsers(ctx, f.alice)
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	caller, err := f.svc.Resolve(ctx, f.admin.UserID)
	require.NoError(t, err)
	assert.True(t, caller.IsAdmin())

	caller, err = f.svc.Resolve(ctx, f.alice.UserID)
	require.NoError(t, err)
	assert.False(t, caller.IsAdmin())

	_, err = f.svc.Resolve(ctx, "ghost")
	assert.ErrorIs(t, err, tracker.ErrForbidden)
	_, err = f.svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, tracker.ErrForbidden)
}

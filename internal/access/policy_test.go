package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/model"
)

var (
	admin = Caller{UserID: "u-admin", Role: model.RoleAdmin}
	alice = Caller{UserID: "u-alice", Role: model.RoleUser}
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		caller  Caller
		rule    Rule
		owners  []string
		allowed bool
	}{
		{"anonymous any", Anonymous, AnyAuthenticated, nil, false},
		{"user any", alice, AnyAuthenticated, nil, true},
		{"admin admin-only", admin, AdminOnly, nil, true},
		{"user admin-only", alice, AdminOnly, nil, false},
		{"admin self-or-admin", admin, SelfOrAdmin, []string{"someone"}, true},
		{"owner self-or-admin", alice, SelfOrAdmin, []string{"x", "u-alice"}, true},
		{"stranger self-or-admin", alice, SelfOrAdmin, []string{"x"}, false},
		{"no owners self-or-admin", alice, SelfOrAdmin, nil, false},
		{"unknown rule", admin, Rule(42), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.caller, tt.rule, tt.owners...)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

type fakeIdentity map[string]model.Role

func (f fakeIdentity) HasRole(_ context.Context, userID string, role model.Role) (bool, error) {
	r, ok := f[userID]
	if !ok {
		return false, errors.New("no such user")
	}
	return r == role, nil
}

func TestResolve(t *testing.T) {
	id := fakeIdentity{"a": model.RoleAdmin, "b": model.RoleUser}

	c, err := Resolve(context.Background(), id, "a")
	require.NoError(t, err)
	assert.True(t, c.IsAdmin())

	c, err = Resolve(context.Background(), id, "b")
	require.NoError(t, err)
	assert.False(t, c.IsAdmin())
	assert.Equal(t, "b", c.UserID)

	_, err = Resolve(context.Background(), id, "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = Resolve(context.Background(), id, "missing")
	assert.Error(t, err)
}

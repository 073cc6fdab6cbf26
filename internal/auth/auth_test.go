package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/model"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, CheckPassword(hash, "secret1"))
	assert.ErrorIs(t, CheckPassword(hash, "wrong"), ErrInvalidCredentials)
}

func TestTokenIssueAndParse(t *testing.T) {
	tokens := NewTokens([]byte("k"), time.Hour)
	caller := access.Caller{UserID: "u1", Role: model.RoleAdmin}

	raw, err := tokens.Issue(caller)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, caller, got)
}

func TestTokenRejectsForgedAndExpired(t *testing.T) {
	tokens := NewTokens([]byte("k"), time.Hour)
	raw, err := tokens.Issue(access.Caller{UserID: "u1", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = NewTokens([]byte("other"), time.Hour).Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens([]byte("k"), time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err = expired.Issue(access.Caller{UserID: "u1", Role: model.RoleUser})
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package testutil

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/nhle/task-tracker/internal/attachment"
	"github.com/nhle/task-tracker/internal/store"
)

// NewTestStore creates an in-memory SQLStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestAttachments creates an attachment store on an in-memory
// filesystem. The filesystem is returned so tests can inspect it.
func NewTestAttachments(t *testing.T) (*attachment.Store, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	return attachment.New(fs, "/attachments", 1<<20), fs
}

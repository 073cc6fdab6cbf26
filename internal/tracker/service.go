// Package tracker implements the task repository operations: every
// create, edit, delete, list, toggle, and status change goes through
// Service, which checks the caller's access, validates input, orders
// attachment writes around database transactions, and logs the outcome.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/logger"
	"github.com/nhle/task-tracker/internal/store"
)

// Files stores attachment bytes outside the database.
type Files interface {
	Save(r io.Reader, suggestedName string) (string, error)
	Delete(name string) error
	Open(name string) (afero.File, error)
}

// Service is the entry point for all task, user, and notice operations.
type Service struct {
	store store.Store
	files Files
	log   *logrus.Entry
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the time source used for new records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service over st and files.
func New(st store.Store, files Files, opts ...Option) *Service {
	s := &Service{
		store: st,
		files: files,
		log:   logger.Discard(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve builds the caller for an authenticated user id. Unknown users are
// rejected with ErrForbidden.
func (s *Service) Resolve(ctx context.Context, userID string) (access.Caller, error) {
	if userID == "" {
		return access.Anonymous, fmt.Errorf("%w: authentication required", ErrForbidden)
	}
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return access.Anonymous, fmt.Errorf("%w: unknown user %s", ErrForbidden, userID)
		}
		return access.Anonymous, err
	}
	return access.Resolve(ctx, s.store, userID)
}

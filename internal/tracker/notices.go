package tracker

import (
	"context"
	"fmt"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/model"
)

// UnreadNotices returns the caller's unread assignment notices.
func (s *Service) UnreadNotices(ctx context.Context, caller access.Caller) ([]model.Notice, error) {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return nil, err
	}
	notices, err := s.store.GetUnreadNotices(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing notices: %w", err)
	}
	return notices, nil
}

// MarkNoticesRead marks all of the caller's notices as read.
func (s *Service) MarkNoticesRead(ctx context.Context, caller access.Caller) error {
	if err := access.Check(caller, access.AnyAuthenticated); err != nil {
		return err
	}
	if err := s.store.MarkNoticesRead(ctx, caller.UserID); err != nil {
		return fmt.Errorf("marking notices read: %w", err)
	}
	return nil
}

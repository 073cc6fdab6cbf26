package store

import (
	"context"
	"fmt"

	"github.com/nhle/task-tracker/internal/model"
)

const noticeColumns = "id, user_id, task_id, message, delivered, is_read, created_at"

// GetPendingNotices returns up to limit undelivered notices, oldest first.
// A non-positive limit returns all of them.
func (s *SQLStore) GetPendingNotices(ctx context.Context, limit int) ([]model.Notice, error) {
	query := "SELECT " + noticeColumns + " FROM notices WHERE delivered = 0 ORDER BY created_at ASC, id ASC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var notices []model.Notice
	if err := s.db.SelectContext(ctx, &notices, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("getting pending notices: %w", err)
	}
	return notices, nil
}

// MarkNoticeDelivered flags a notice as handed to the mail outbox.
func (s *SQLStore) MarkNoticeDelivered(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE notices SET delivered = 1 WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("marking notice %s delivered: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("notice %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetUnreadNotices returns the unread notices of a user, newest first.
func (s *SQLStore) GetUnreadNotices(ctx context.Context, userID string) ([]model.Notice, error) {
	var notices []model.Notice
	err := s.db.SelectContext(ctx, &notices, s.db.Rebind(
		"SELECT "+noticeColumns+" FROM notices WHERE user_id = ? AND is_read = 0 ORDER BY created_at DESC, id ASC"),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("getting unread notices for %s: %w", userID, err)
	}
	return notices, nil
}

// MarkNoticesRead flags every notice of a user as read.
func (s *SQLStore) MarkNoticesRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE notices SET is_read = 1 WHERE user_id = ? AND is_read = 0"), userID)
	if err != nil {
		return fmt.Errorf("marking notices read for %s: %w", userID, err)
	}
	return nil
}

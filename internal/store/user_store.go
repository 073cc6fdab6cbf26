package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/task-tracker/internal/model"
)

const userColumns = "id, full_name, email, password_hash, role, created_at"

// CreateUser inserts a new user. Generates a UUID if ID is empty. Returns
// ErrDuplicateEmail when another user already holds the email.
func (s *SQLStore) CreateUser(ctx context.Context, user model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = normalizeTime(user.CreatedAt)

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := emailTaken(ctx, tx, user.Email, ""); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO users (id, full_name, email, password_hash, role, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			user.ID, user.FullName, user.Email, user.PasswordHash,
			string(user.Role), user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		return nil
	})
}

// UpdateUser updates name, email, password hash, and role of an existing user.
func (s *SQLStore) UpdateUser(ctx context.Context, user model.User) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := emailTaken(ctx, tx, user.Email, user.ID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE users SET full_name = ?, email = ?, password_hash = ?, role = ?
			WHERE id = ?`),
			user.FullName, user.Email, user.PasswordHash, string(user.Role), user.ID,
		)
		if err != nil {
			return fmt.Errorf("updating user %s: %w", user.ID, err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
		}
		return nil
	})
}

// emailTaken returns ErrDuplicateEmail when a user other than exceptID
// holds email. Comparison is case-insensitive.
func emailTaken(ctx context.Context, tx *sqlx.Tx, email, exceptID string) error {
	var count int
	err := tx.GetContext(ctx, &count, tx.Rebind(
		"SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER(?) AND id <> ?"),
		email, exceptID,
	)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	return nil
}

// DeleteUser removes a user by ID. Cascades to assignments and notices.
func (s *SQLStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetUserByID retrieves a single user by ID.
func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(
		"SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", id, notFound(err))
	}
	return &user, nil
}

// GetUserByEmail retrieves a single user by email, ignoring case.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = LOWER(?)"), email)
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", notFound(err))
	}
	return &user, nil
}

// GetUsers returns all users, newest first.
func (s *SQLStore) GetUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, email ASC")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// CountUsersByRole returns the number of users holding role.
func (s *SQLStore) CountUsersByRole(ctx context.Context, role model.Role) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(
		"SELECT COUNT(*) FROM users WHERE role = ?"), string(role))
	if err != nil {
		return 0, fmt.Errorf("counting %s users: %w", role, err)
	}
	return count, nil
}

// HasRole reports whether userID exists and holds role. An unknown user
// yields false without error.
func (s *SQLStore) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(
		"SELECT COUNT(*) FROM users WHERE id = ? AND role = ?"), userID, string(role))
	if err != nil {
		return false, fmt.Errorf("checking role of user %s: %w", userID, err)
	}
	return count > 0, nil
}

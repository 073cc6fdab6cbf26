package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/store"
)

// UserInput holds the fields of a new account.
type UserInput struct {
	FullName string
	Email    string
	Password string
}

// ProfileInput holds editable account fields. An empty Password keeps the
// current one.
type ProfileInput struct {
	FullName string
	Email    string
	Password string
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("full_name", "is required")
	}
	return name, nil
}

func validateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", invalid("email", "is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < auth.MinPasswordLength {
		return invalid("password",
			fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength))
	}
	return nil
}

// storeUserError maps a duplicate email to a validation error.
func storeUserError(op string, err error) error {
	if errors.Is(err, store.ErrDuplicateEmail) {
		return invalid("email", "is already in use")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateUser adds a regular account. Returns the new user id.
func (s *Service) CreateUser(ctx context.Context, caller access.Caller, in UserInput) (string, error) {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return "", err
	}

	name, err := validateName(in.FullName)
	if err != nil {
		return "", err
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return "", err
	}
	if err := validatePassword(in.Password); err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", err
	}

	user := model.User{
		ID:           uuid.New().String(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return "", storeUserError("creating user", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"actor_id": caller.UserID,
	}).Info("user created")

	return user.ID, nil
}

// EditUser lets an admin change another account's name and email.
func (s *Service) EditUser(ctx context.Context, caller access.Caller, id string, in ProfileInput) error {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return err
	}
	return s.updateUser(ctx, caller, id, in)
}

// UpdateProfile changes the caller's own account, or any account for admins.
func (s *Service) UpdateProfile(ctx context.Context, caller access.Caller, id string, in ProfileInput) error {
	if err := access.Check(caller, access.SelfOrAdmin, id); err != nil {
		return err
	}
	return s.updateUser(ctx, caller, id, in)
}

func (s *Service) updateUser(ctx context.Context, caller access.Caller, id string, in ProfileInput) error {
	name, err := validateName(in.FullName)
	if err != nil {
		return err
	}
	email, err := validateEmail(in.Email)
	if err != nil {
		return err
	}

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	user.FullName = name
	user.Email = email

	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return err
		}
		if user.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return err
		}
	}

	if err := s.store.UpdateUser(ctx, *user); err != nil {
		return storeUserError("updating user", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  id,
		"actor_id": caller.UserID,
	}).Info("user updated")

	return nil
}

// DeleteUser removes an account and its assignments. Admins cannot delete
// themselves; deleting an unknown user is a no-op.
func (s *Service) DeleteUser(ctx context.Context, caller access.Caller, id string) error {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return err
	}
	if id == caller.UserID {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting user: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  id,
		"actor_id": caller.UserID,
	}).Info("user deleted")

	return nil
}

// ListUsers returns every account, newest first.
func (s *Service) ListUsers(ctx context.Context, caller access.Caller) ([]model.User, error) {
	if err := access.Check(caller, access.AdminOnly); err != nil {
		return nil, err
	}
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// GetUser returns one account. Users may read only their own.
func (s *Service) GetUser(ctx context.Context, caller access.Caller, id string) (*model.User, error) {
	if err := access.Check(caller, access.SelfOrAdmin, id); err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// Authenticate checks an email and password and returns the matching
// caller. Any mismatch yields auth.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (access.Caller, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return access.Anonymous, auth.ErrInvalidCredentials
		}
		return access.Anonymous, fmt.Errorf("authenticating: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.log.WithField("user_id", user.ID).Warn("password mismatch")
		return access.Anonymous, err
	}
	return access.Caller{UserID: user.ID, Role: user.Role}, nil
}

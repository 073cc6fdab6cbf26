// Package seed creates the bootstrap administrator account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/store"
)

// ErrNoPassword is returned when an admin must be created but no password
// is configured.
var ErrNoPassword = errors.New("admin password is not configured")

// Admin ensures an administrator exists. It does nothing when any Admin
// account exists or the configured email is already taken; otherwise it
// creates one Admin with the configured email, name, and password. The
// same email is used for the check and the create. Reports whether an
// account was created.
func Admin(ctx context.Context, st store.Store, cfg model.SeedConfig, log *logrus.Entry) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return false, errors.New("admin email is not configured")
	}

	admins, err := st.CountUsersByRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}
	if admins > 0 {
		log.WithField("admins", admins).Debug("admin already present, skipping seed")
		return false, nil
	}

	_, err = st.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		log.WithField("email", email).Warn("seed email belongs to a non-admin account, skipping seed")
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("seeding admin: %w", err)
	}

	if len(cfg.AdminPassword) < auth.MinPasswordLength {
		return false, fmt.Errorf("seeding admin: %w (need at least %d characters)",
			ErrNoPassword, auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}

	name := strings.TrimSpace(cfg.AdminName)
	if name == "" {
		name = "System Administrator"
	}

	user := model.User{
		ID:           uuid.New().String(),
		FullName:     name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return false, fmt.Errorf("seeding admin: %w", err)
	}

	log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   email,
	}).Info("admin account created")

	return true, nil
}

// Package access holds the caller identity passed into every operation and
// the single policy check each operation runs before touching the store.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/task-tracker/internal/model"
)

// ErrForbidden is returned when a caller lacks the role or ownership an
// operation requires.
var ErrForbidden = errors.New("forbidden")

// Caller is the authenticated principal performing an operation.
type Caller struct {
	UserID string
	Role   model.Role
}

// Anonymous is the zero caller.
var Anonymous = Caller{}

// Authenticated reports whether the caller carries a user id.
func (c Caller) Authenticated() bool { return c.UserID != "" }

// IsAdmin reports whether the caller holds the Admin role.
func (c Caller) IsAdmin() bool { return c.Authenticated() && c.Role == model.RoleAdmin }

// Rule is the access requirement of an operation.
type Rule int

const (
	// AdminOnly requires the Admin role.
	AdminOnly Rule = iota
	// AnyAuthenticated admits every signed-in user.
	AnyAuthenticated
	// SelfOrAdmin admits admins and callers listed among the owners.
	SelfOrAdmin
)

func (r Rule) String() string {
	switch r {
	case AdminOnly:
		return "admin-only"
	case AnyAuthenticated:
		return "any-authenticated"
	case SelfOrAdmin:
		return "self-or-admin"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// Check enforces rule for caller. For SelfOrAdmin, owners are the user ids
// that may act without the Admin role (the profile owner, or a task's
// assignees).
func Check(caller Caller, rule Rule, owners ...string) error {
	if !caller.Authenticated() {
		return fmt.Errorf("%w: authentication required", ErrForbidden)
	}

	switch rule {
	case AnyAuthenticated:
		return nil
	case AdminOnly:
		if caller.IsAdmin() {
			return nil
		}
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	case SelfOrAdmin:
		if caller.IsAdmin() {
			return nil
		}
		for _, id := range owners {
			if id == caller.UserID {
				return nil
			}
		}
		return fmt.Errorf("%w: not permitted for user %s", ErrForbidden, caller.UserID)
	default:
		return fmt.Errorf("%w: unknown rule %s", ErrForbidden, rule)
	}
}

// Identity answers role membership questions for a user id.
type Identity interface {
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)
}

// Resolve builds the Caller for an authenticated user id.
func Resolve(ctx context.Context, id Identity, userID string) (Caller, error) {
	if userID == "" {
		return Anonymous, fmt.Errorf("%w: authentication required", ErrForbidden)
	}

	admin, err := id.HasRole(ctx, userID, model.RoleAdmin)
	if err != nil {
		return Anonymous, fmt.Errorf("resolving role for %s: %w", userID, err)
	}

	role := model.RoleUser
	if admin {
		role = model.RoleAdmin
	}
	return Caller{UserID: userID, Role: role}, nil
}

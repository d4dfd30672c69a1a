// Package access centralizes role resolution and action authorization
// so visibility rules (soft-delete, ownership, membership, elevated
// callers) live in one predicate instead of being re-derived per
// handler.
package access

import (
	"github.com/google/uuid"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// Action is an operation a caller may attempt on an application.
type Action string

const (
	ActionView      Action = "view"
	ActionRotateKey Action = "rotateKey"
	ActionDelete    Action = "delete"
)

// Caller is the resolved identity behind a request: a user from the
// session directory, or the synthetic identity behind an API key.
type Caller struct {
	UserID   uuid.UUID
	Elevated bool
}

// Resolver computes effective roles and enforces the action policy
// table.
type Resolver struct {
	maxAppsPerUser int
}

// NewResolver builds a Resolver with the per-user application cap.
func NewResolver(maxAppsPerUser int) *Resolver {
	return &Resolver{maxAppsPerUser: maxAppsPerUser}
}

// ResolveRole determines the caller's effective role on app. ok is
// false when the application is not visible to the caller at all.
// Deleted applications are invisible to every caller, elevated
// included.
func (r *Resolver) ResolveRole(caller Caller, app *model.Application) (model.Role, bool) {
	if app == nil || app.Deleted {
		return "", false
	}
	if caller.Elevated {
		return model.RoleOwner, true
	}
	if app.OwnerUserID == caller.UserID {
		return model.RoleOwner, true
	}
	if role, ok := app.MemberRole(caller.UserID); ok {
		return role, true
	}
	return "", false
}

// Authorize checks the policy table for an already-resolved role.
//
//	view:      OWNER, ADMIN, MEMBER
//	rotateKey: OWNER, ADMIN
//	delete:    OWNER
func (r *Resolver) Authorize(role model.Role, action Action) bool {
	switch action {
	case ActionView:
		return role == model.RoleOwner || role == model.RoleAdmin || role == model.RoleMember
	case ActionRotateKey:
		return role == model.RoleOwner || role == model.RoleAdmin
	case ActionDelete:
		return role == model.RoleOwner
	}
	return false
}

// Require resolves the caller's role on app and checks it against
// action. Invisible applications surface as not_found regardless of the
// action, so existence is never leaked. A visible application with an
// insufficient role surfaces as authorization only for non-view
// actions; the view check itself is what established visibility.
func (r *Resolver) Require(caller Caller, app *model.Application, action Action) (model.Role, error) {
	role, ok := r.ResolveRole(caller, app)
	if !ok {
		return "", apperr.New(apperr.KindNotFound, "application not found")
	}
	if !r.Authorize(role, action) {
		return "", apperr.New(apperr.KindAuthorization, "insufficient role for "+string(action))
	}
	return role, nil
}

// AuthorizeCreate gates application creation: elevated callers may
// never create or own applications, and non-elevated users are capped.
// ownedCount is the caller's current number of non-deleted
// applications.
func (r *Resolver) AuthorizeCreate(caller Caller, ownedCount int) error {
	if caller.Elevated {
		return apperr.New(apperr.KindAuthorization, "elevated callers may not create applications")
	}
	if ownedCount >= r.maxAppsPerUser {
		return apperr.New(apperr.KindValidation, "application limit reached")
	}
	return nil
}

// MaxApplicationsPerUser exposes the configured cap.
func (r *Resolver) MaxApplicationsPerUser() int { return r.maxAppsPerUser }

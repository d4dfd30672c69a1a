package model

import (
	"time"

	"github.com/google/uuid"
)

// Environment is the deployment environment of an application.
type Environment string

const (
	EnvDevelopment Environment = "DEVELOPMENT"
	EnvStaging     Environment = "STAGING"
	EnvProduction  Environment = "PRODUCTION"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// Role is a caller's effective role on one application.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Member is one (user, role) membership row of an application.
type Member struct {
	UserID uuid.UUID `json:"userId"`
	Role   Role      `json:"role"`
}

// Application is a tenant-scoped namespace under which logs are
// ingested and API keys are issued. Applications are soft-deleted only:
// Deleted flips to true and DeletedAt is set, the row stays.
type Application struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	OwnerUserID uuid.UUID   `json:"ownerUserId"`
	Members     []Member    `json:"members,omitempty"`
	Deleted     bool        `json:"-"`
	DeletedAt   *time.Time  `json:"-"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// MemberRole returns the stored role for userID, if any.
func (a *Application) MemberRole(userID uuid.UUID) (Role, bool) {
	for _, m := range a.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

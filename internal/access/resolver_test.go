package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

func newApp(owner uuid.UUID, members ...model.Member) *model.Application {
	return &model.Application{
		ID:          uuid.New(),
		Name:        "svc",
		Environment: model.EnvProduction,
		OwnerUserID: owner,
		Members:     members,
	}
}

func TestResolveRole(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()
	member := uuid.New()
	stranger := uuid.New()
	app := newApp(owner,
		model.Member{UserID: admin, Role: model.RoleAdmin},
		model.Member{UserID: member, Role: model.RoleMember},
	)
	r := NewResolver(20)

	tests := []struct {
		name   string
		caller Caller
		role   model.Role
		ok     bool
	}{
		{"owner", Caller{UserID: owner}, model.RoleOwner, true},
		{"admin member", Caller{UserID: admin}, model.RoleAdmin, true},
		{"plain member", Caller{UserID: member}, model.RoleMember, true},
		{"stranger", Caller{UserID: stranger}, "", false},
		{"elevated", Caller{UserID: stranger, Elevated: true}, model.RoleOwner, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := r.ResolveRole(tt.caller, app)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}
}

func TestDeletedApplicationsAreInvisibleToEveryone(t *testing.T) {
	owner := uuid.New()
	app := newApp(owner)
	now := time.Now()
	app.Deleted = true
	app.DeletedAt = &now

	r := NewResolver(20)

	_, ok := r.ResolveRole(Caller{UserID: owner}, app)
	assert.False(t, ok, "owner must not see a deleted application")
	_, ok = r.ResolveRole(Caller{UserID: uuid.New(), Elevated: true}, app)
	assert.False(t, ok, "elevated callers must not see a deleted application either")
}

func TestAuthorizePolicyTable(t *testing.T) {
	r := NewResolver(20)

	assert.True(t, r.Authorize(model.RoleOwner, ActionView))
	assert.True(t, r.Authorize(model.RoleAdmin, ActionView))
	assert.True(t, r.Authorize(model.RoleMember, ActionView))

	assert.True(t, r.Authorize(model.RoleOwner, ActionRotateKey))
	assert.True(t, r.Authorize(model.RoleAdmin, ActionRotateKey))
	assert.False(t, r.Authorize(model.RoleMember, ActionRotateKey))

	assert.True(t, r.Authorize(model.RoleOwner, ActionDelete))
	assert.False(t, r.Authorize(model.RoleAdmin, ActionDelete))
	assert.False(t, r.Authorize(model.RoleMember, ActionDelete))
}

func TestRequireHidesExistence(t *testing.T) {
	r := NewResolver(20)
	app := newApp(uuid.New(), model.Member{UserID: uuid.New(), Role: model.RoleMember})

	// Invisible application: not_found for any action, never 403.
	_, err := r.Require(Caller{UserID: uuid.New()}, app, ActionDelete)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Visible but insufficient role: authorization.
	memberID := app.Members[0].UserID
	_, err = r.Require(Caller{UserID: memberID}, app, ActionRotateKey)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	// Unknown id behaves like invisible.
	_, err = r.Require(Caller{UserID: memberID}, nil, ActionView)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestAuthorizeCreate(t *testing.T) {
	r := NewResolver(2)

	user := Caller{UserID: uuid.New()}
	assert.NoError(t, r.AuthorizeCreate(user, 0))
	assert.NoError(t, r.AuthorizeCreate(user, 1))

	err := r.AuthorizeCreate(user, 2)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	err = r.AuthorizeCreate(Caller{UserID: uuid.New(), Elevated: true}, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
}

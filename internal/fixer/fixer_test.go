package fixer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	groupstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/group"
	tenantstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/tenant"
	userstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/user"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/dbtest"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
)

func ptr(v uint64) *uint64 { return &v }

type fixedTenant struct {
	id *uint64
}

func (f fixedTenant) ResolveID(context.Context) (*uint64, error) {
	return f.id, nil
}

type stores struct {
	users   *userstore.Store
	groups  *groupstore.Store
	tenants *tenantstore.Store
}

func newStores(t *testing.T) stores {
	t.Helper()

	db := dbtest.Open(t)

	return stores{
		users:   userstore.New(db),
		groups:  groupstore.New(db),
		tenants: tenantstore.New(db),
	}
}

func TestAdminGroupCreatesGroupWithCapabilities(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	f := NewAdminGroup(s.groups, s.tenants, fixedTenant{id: ptr(1)}, config.AdminGroup{
		Name:       "admins",
		ExternalID: "ais_admins",
		Validate:   true,
	})
	require.NoError(t, f.Fix(ctx))

	group, err := s.groups.FindByExternalID(ctx, "ais_admins", ptr(1))
	require.NoError(t, err)
	assert.Equal(t, "admins", group.Name)
	assert.Equal(t, models.GroupTypeSystem, group.Type)
	assert.NotNil(t, group.LastSync)

	caps, err := s.groups.ListCapabilities(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, AdminCapabilities, caps)

	// idempotent
	require.NoError(t, f.Fix(ctx))
	groups, err := s.groups.FindByName(ctx, "admins", ptr(1))
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestAdminGroupCompletesExistingGroup(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	existing := &models.Group{Name: "admins"}
	require.NoError(t, s.groups.Create(ctx, existing))
	require.NoError(t, s.groups.GrantCapability(ctx, existing.ID, "tenant-admin"))

	f := NewAdminGroup(s.groups, s.tenants, fixedTenant{}, config.AdminGroup{
		Name:       "admins",
		ExternalID: "ais_admins",
		Validate:   true,
	})
	require.NoError(t, f.Fix(ctx))

	caps, err := s.groups.ListCapabilities(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, AdminCapabilities, caps)

	_, err = s.groups.FindByExternalID(ctx, "ais_admins", nil)
	require.Error(t, err, "a group found by name is not renamed or promoted")
}

func TestAdminGroupValidationDisabled(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	f := NewAdminGroup(s.groups, s.tenants, fixedTenant{}, config.AdminGroup{Name: "admins"})
	require.NoError(t, f.Fix(ctx))

	groups, err := s.groups.FindByName(ctx, "admins", nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestAdminMembers(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	admins := &models.Group{Name: "admins"}
	require.NoError(t, s.groups.Create(ctx, admins))

	jane := &models.User{Email: "jane@example.com"}
	require.NoError(t, s.users.Create(ctx, jane))

	f := NewAdminMembers(s.users, s.groups, fixedTenant{}, config.Admin{
		Group: config.AdminGroup{Name: "admins", ExternalID: "ais_admins"},
		Users: []string{" jane@example.com ", "ghost@example.com", ""},
	})
	require.NoError(t, f.Fix(ctx))
	require.NoError(t, f.Fix(ctx))

	u, err := s.users.FetchWithGroups(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, u.Groups, 1)
	assert.Equal(t, admins.ID, u.Groups[0].ID)
}

func TestAdminMembersPrefersExternalID(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	byName := &models.Group{Name: "admins"}
	require.NoError(t, s.groups.Create(ctx, byName))
	byExternal := &models.Group{Name: "Administrators", ExternalID: "ais_admins"}
	require.NoError(t, s.groups.Create(ctx, byExternal))

	jane := &models.User{Email: "jane@example.com"}
	require.NoError(t, s.users.Create(ctx, jane))

	f := NewAdminMembers(s.users, s.groups, fixedTenant{}, config.Admin{
		Group: config.AdminGroup{Name: "admins", ExternalID: "ais_admins"},
		Users: []string{"jane@example.com"},
	})
	require.NoError(t, f.Fix(ctx))

	u, err := s.users.FetchWithGroups(ctx, jane.ID)
	require.NoError(t, err)
	require.Len(t, u.Groups, 1)
	assert.Equal(t, byExternal.ID, u.Groups[0].ID)
}

func TestAdminPassword(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()

	t.Run("disabled without password", func(t *testing.T) {
		f := NewAdminPassword(s.users, fixedTenant{}, config.AdminReset{Username: "admin"})
		require.NoError(t, f.Fix(ctx))

		_, err := s.users.FindByUsername(ctx, "admin")
		require.Error(t, err)
	})

	t.Run("creates missing admin", func(t *testing.T) {
		f := NewAdminPassword(s.users, fixedTenant{}, config.AdminReset{Username: "admin", Password: "first"})
		require.NoError(t, f.Fix(ctx))

		u, err := s.users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.True(t, u.Active)
		assert.True(t, u.VerifyPassword("first"))
	})

	t.Run("resets existing admin", func(t *testing.T) {
		f := NewAdminPassword(s.users, fixedTenant{}, config.AdminReset{Username: "admin", Password: "second"})
		require.NoError(t, f.Fix(ctx))

		u, err := s.users.FindByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.False(t, u.VerifyPassword("first"))
		assert.True(t, u.VerifyPassword("second"))
	})
}

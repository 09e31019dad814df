package reconcile

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
	groupstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/group"
	userstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/user"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/dbtest"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
	"github.com/trodix/keycloak-activiti-app-ext/internal/rolemap"
)

func ptr(v uint64) *uint64 { return &v }

type fixedTenant struct {
	id *uint64
}

func (f fixedTenant) ResolveID(context.Context) (*uint64, error) {
	return f.id, nil
}

// countingGroups counts group store mutations.
type countingGroups struct {
	idm.GroupStore
	writes int
}

func (c *countingGroups) Create(ctx context.Context, g *models.Group) error {
	c.writes++
	return c.GroupStore.Create(ctx, g)
}

func (c *countingGroups) Save(ctx context.Context, g *models.Group) error {
	c.writes++
	return c.GroupStore.Save(ctx, g)
}

func (c *countingGroups) AddMember(ctx context.Context, groupID, userID uint64) error {
	c.writes++
	return c.GroupStore.AddMember(ctx, groupID, userID)
}

func (c *countingGroups) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	c.writes++
	return c.GroupStore.RemoveMember(ctx, groupID, userID)
}

func (c *countingGroups) Delete(ctx context.Context, groupID uint64) error {
	c.writes++
	return c.GroupStore.Delete(ctx, groupID)
}

type env struct {
	users  *userstore.Store
	groups *countingGroups
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.Open(t)

	return &env{
		users:  userstore.New(db),
		groups: &countingGroups{GroupStore: groupstore.New(db)},
	}
}

func (e *env) reconciler(t *testing.T, tenantID *uint64, mapCfg rolemap.Config, opts Options) *Reconciler {
	t.Helper()

	mapper, err := rolemap.New(mapCfg)
	require.NoError(t, err)

	return New(e.users, e.groups, fixedTenant{id: tenantID}, mapper, opts)
}

func (e *env) user(t *testing.T, u models.User, groups ...*models.Group) *models.User {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, e.users.Create(ctx, &u))
	for _, g := range groups {
		require.NoError(t, e.groups.AddMember(ctx, g.ID, u.ID))
	}

	return &u
}

func (e *env) group(t *testing.T, g models.Group) *models.Group {
	t.Helper()

	require.NoError(t, e.groups.Create(context.Background(), &g))

	return &g
}

// externalIDs returns the sorted external IDs of the user's synchronized groups.
func (e *env) externalIDs(t *testing.T, userID uint64) []string {
	t.Helper()

	u, err := e.users.FetchWithGroups(context.Background(), userID)
	require.NoError(t, err)

	ids := []string{}
	for _, g := range u.Groups {
		if g.External() {
			ids = append(ids, g.ExternalID)
		}
	}
	sort.Strings(ids)

	return ids
}

func groupNames(t *testing.T, e *env, userID uint64) []string {
	t.Helper()

	u, err := e.users.FetchWithGroups(context.Background(), userID)
	require.NoError(t, err)

	names := []string{}
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)

	return names
}

func realm(name string, roles ...string) *auth.Authentication {
	return &auth.Authentication{
		Name:          name,
		Authenticated: true,
		Token:         &auth.AccessToken{Email: name, RealmAccess: &auth.Access{Roles: roles}},
	}
}

func TestPreAuthenticateCreatesUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenantID := ptr(1)

	e.group(t, models.Group{Name: "everyone", AutoAssign: true, TenantID: tenantID})

	r := e.reconciler(t, tenantID, rolemap.Config{}, DefaultOptions())
	a := &auth.Authentication{
		Name:  "jane.doe@example.com",
		Token: &auth.AccessToken{GivenName: "Jane", FamilyName: "Doe-Smith"},
	}
	require.NoError(t, r.PreAuthenticate(ctx, a))

	u, err := e.users.FindByEmail(ctx, a.Name, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Doe-Smith", u.LastName)
	assert.Equal(t, DefaultSourceTag, u.ExternalSource)
	assert.Equal(t, a.Name, u.ExternalID)
	assert.Equal(t, tenantID, u.TenantID)
	assert.True(t, u.Active)
	assert.Empty(t, groupNames(t, e, u.ID), "default groups are cleared")
}

func TestPreAuthenticateKeepsDefaultGroups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.group(t, models.Group{Name: "everyone", AutoAssign: true})

	opts := DefaultOptions()
	opts.ClearNewUserDefaultGroups = false
	r := e.reconciler(t, nil, rolemap.Config{}, opts)

	require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{Name: "jane.doe@example.com"}))

	u, err := e.users.FindByEmail(ctx, "jane.doe@example.com", nil)
	require.NoError(t, err)
	assert.Nil(t, u.TenantID)
	assert.Equal(t, []string{"everyone"}, groupNames(t, e, u.ID))
}

func TestPreAuthenticateDerivesNamesFromEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())
	require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{Name: "john.smith@example.com"}))

	u, err := e.users.FindByEmail(ctx, "john.smith@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "John", u.FirstName)
	assert.Equal(t, "Smith", u.LastName)
}

func TestDeriveNames(t *testing.T) {
	testCases := []struct {
		name          string
		email         string
		token         *auth.AccessToken
		expectedFirst string
		expectedLast  string
	}{
		{name: "token names", email: "x@example.com", token: &auth.AccessToken{GivenName: "Ada", FamilyName: "Lovelace"}, expectedFirst: "Ada", expectedLast: "Lovelace"},
		{name: "email heuristic", email: "john.smith@example.com", expectedFirst: "John", expectedLast: "Smith"},
		{name: "digits after letters", email: "john2.smith99@example.com", expectedFirst: "John", expectedLast: "Smith"},
		{name: "partial token names", email: "ada.lovelace@example.com", token: &auth.AccessToken{GivenName: "Ada"}, expectedFirst: "Ada", expectedLast: "Lovelace"},
		{name: "no dot", email: "admin@example.com", expectedFirst: UnknownFirstName, expectedLast: UnknownLastName},
		{name: "leading digit", email: "1john.smith@example.com", expectedFirst: UnknownFirstName, expectedLast: UnknownLastName},
		{name: "not an email", email: "john.smith", expectedFirst: UnknownFirstName, expectedLast: UnknownLastName},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first, last := DeriveNames(tc.email, tc.token)
			assert.Equal(t, tc.expectedFirst, first)
			assert.Equal(t, tc.expectedLast, last)
		})
	}
}

func TestPreAuthenticateExistingUsers(t *testing.T) {
	ctx := context.Background()
	tenantID := ptr(1)

	t.Run("unlinked user is linked", func(t *testing.T) {
		e := newEnv(t)
		u := e.user(t, models.User{Email: "jane@example.com", Active: true})

		r := e.reconciler(t, tenantID, rolemap.Config{}, DefaultOptions())
		require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{Name: "jane@example.com"}))

		got, err := e.users.FindByEmail(ctx, "jane@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, DefaultSourceTag, got.ExternalSource)
		assert.Equal(t, "jane@example.com", got.ExternalID)
		assert.Equal(t, tenantID, got.TenantID)
	})

	t.Run("user of another source is untouched", func(t *testing.T) {
		e := newEnv(t)
		e.user(t, models.User{Email: "jane@example.com", ExternalSource: "ldap", ExternalID: "uid=jane", TenantID: ptr(2)})

		r := e.reconciler(t, tenantID, rolemap.Config{}, DefaultOptions())
		require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{Name: "jane@example.com"}))

		got, err := e.users.FindByEmail(ctx, "jane@example.com", nil)
		require.NoError(t, err)
		assert.Equal(t, "ldap", got.ExternalSource)
		assert.Equal(t, "uid=jane", got.ExternalID)
		assert.Equal(t, ptr(2), got.TenantID)
	})

	t.Run("creation disabled", func(t *testing.T) {
		e := newEnv(t)

		opts := DefaultOptions()
		opts.CreateMissingUser = false
		r := e.reconciler(t, tenantID, rolemap.Config{}, opts)
		require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{Name: "jane@example.com"}))

		_, err := e.users.FindByEmail(ctx, "jane@example.com", nil)
		require.ErrorIs(t, err, idm.ErrNotFound)
	})

	t.Run("anonymous", func(t *testing.T) {
		e := newEnv(t)
		r := e.reconciler(t, tenantID, rolemap.Config{}, DefaultOptions())
		require.NoError(t, r.PreAuthenticate(ctx, &auth.Authentication{}))
	})
}

func TestPostAuthenticateScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenantID := ptr(1)

	g1 := e.group(t, models.Group{Name: "G1", ExternalID: "ais_A", TenantID: tenantID})
	g2 := e.group(t, models.Group{Name: "G2", ExternalID: "ais_B", TenantID: tenantID})
	u := e.user(t, models.User{Email: "jane@example.com", ExternalSource: "ais", TenantID: tenantID}, g1, g2)

	r := e.reconciler(t, tenantID, rolemap.Config{}, DefaultOptions())
	require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "A", "C")))

	assert.Equal(t, []string{"ais_A", "ais_C"}, e.externalIDs(t, u.ID))

	created, err := e.groups.FindByExternalID(ctx, "ais_C", tenantID)
	require.NoError(t, err)
	assert.Equal(t, "C", created.Name)
	assert.Equal(t, models.GroupTypeSystem, created.Type)
	assert.Equal(t, tenantID, created.TenantID)
	assert.NotNil(t, created.LastSync)
}

func TestPostAuthenticateConvergesAndIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	tenantID := ptr(1)

	admins := e.group(t, models.Group{Name: "admins", TenantID: tenantID})
	stale := e.group(t, models.Group{Name: "Stale", ExternalID: "ais_stale", TenantID: tenantID})
	strayTenant := e.group(t, models.Group{Name: "Editors", ExternalID: "ais_editor"})
	u := e.user(t, models.User{Email: "jane@example.com", ExternalSource: "ais"}, admins, stale, strayTenant)

	r := e.reconciler(t, tenantID, rolemap.Config{
		Includes:           "app_.*,editor",
		FormatPatterns:     "app_(.*)",
		FormatReplacements: "App $1",
	}, DefaultOptions())

	a := realm("jane@example.com", "app_viewer", "app_approver", "editor", "offline_access")
	require.NoError(t, r.PostAuthenticate(ctx, a))

	assert.Equal(t, []string{"ais_app_approver", "ais_app_viewer", "ais_editor"}, e.externalIDs(t, u.ID))
	assert.Equal(t, []string{"App approver", "App viewer", "Editors", "admins"}, groupNames(t, e, u.ID))

	repaired, err := e.groups.FindByExternalID(ctx, "ais_editor", tenantID)
	require.NoError(t, err)
	assert.Equal(t, strayTenant.ID, repaired.ID)

	before := e.groups.writes
	require.NoError(t, r.PostAuthenticate(ctx, a))
	assert.Equal(t, before, e.groups.writes, "second pass must not mutate the store")
	assert.Equal(t, []string{"ais_app_approver", "ais_app_viewer", "ais_editor"}, e.externalIDs(t, u.ID))
}

func TestPostAuthenticateUndeterminedKeepsGroups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g := e.group(t, models.Group{Name: "G1", ExternalID: "ais_A"})
	u := e.user(t, models.User{Email: "jane@example.com"}, g)

	r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())

	require.NoError(t, r.PostAuthenticate(ctx, &auth.Authentication{Name: "jane@example.com"}))
	require.NoError(t, r.PostAuthenticate(ctx, &auth.Authentication{Name: "jane@example.com", Token: &auth.AccessToken{}}))
	assert.Equal(t, []string{"ais_A"}, e.externalIDs(t, u.ID))

	// role data present but empty strips memberships
	require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com")))
	assert.Empty(t, e.externalIDs(t, u.ID))
}

func TestPostAuthenticateEmptyRoleContainersKeepGroups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g := e.group(t, models.Group{Name: "G1", ExternalID: "ais_A"})
	u := e.user(t, models.User{Email: "jane@example.com"}, g)

	r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())

	token, err := auth.ParseAccessToken(map[string]any{
		"email":           "jane@example.com",
		"resource_access": map[string]any{},
	})
	require.NoError(t, err)

	before := e.groups.writes
	require.NoError(t, r.PostAuthenticate(ctx, &auth.Authentication{
		Name:          "jane@example.com",
		Authenticated: true,
		Token:         token,
	}))

	assert.Equal(t, before, e.groups.writes)
	assert.Equal(t, []string{"ais_A"}, e.externalIDs(t, u.ID))
}

func TestPostAuthenticateToggles(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		modify   func(*Options)
		expected []string
	}{
		{name: "all enabled", modify: func(*Options) {}, expected: []string{"ais_A", "ais_C"}},
		{name: "remove disabled", modify: func(o *Options) { o.SyncGroupRemove = false }, expected: []string{"ais_A", "ais_B", "ais_C"}},
		{name: "add disabled", modify: func(o *Options) { o.SyncGroupAdd = false }, expected: []string{"ais_A"}},
		{name: "create disabled", modify: func(o *Options) { o.CreateMissingGroup = false }, expected: []string{"ais_A"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)

			g1 := e.group(t, models.Group{Name: "G1", ExternalID: "ais_A"})
			g2 := e.group(t, models.Group{Name: "G2", ExternalID: "ais_B"})
			u := e.user(t, models.User{Email: "jane@example.com"}, g1, g2)

			opts := DefaultOptions()
			tc.modify(&opts)
			r := e.reconciler(t, nil, rolemap.Config{}, opts)

			require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "A", "C")))
			assert.Equal(t, tc.expected, e.externalIDs(t, u.ID))
		})
	}
}

func TestPostAuthenticateOrganizationGroups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u := e.user(t, models.User{Email: "jane@example.com"})

	opts := DefaultOptions()
	opts.SyncGroupsAsOrganization = true
	opts.SourceTag = "kc"
	r := e.reconciler(t, nil, rolemap.Config{}, opts)

	require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "sales")))
	assert.Equal(t, []string{"kc_sales"}, e.externalIDs(t, u.ID))

	g, err := e.groups.FindByExternalID(ctx, "kc_sales", nil)
	require.NoError(t, err)
	assert.Equal(t, models.GroupTypeFunctional, g.Type)
}

func TestPostAuthenticateInternalGroups(t *testing.T) {
	ctx := context.Background()

	t.Run("held internal group is promoted", func(t *testing.T) {
		e := newEnv(t)

		reviewers := e.group(t, models.Group{Name: "reviewers"})
		other := e.group(t, models.Group{Name: "other"})
		u := e.user(t, models.User{Email: "jane@example.com"}, reviewers, other)

		opts := DefaultOptions()
		opts.SyncInternalGroups = true
		r := e.reconciler(t, nil, rolemap.Config{}, opts)

		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "reviewers")))

		assert.Equal(t, []string{"reviewers"}, groupNames(t, e, u.ID))
		g, err := e.groups.FindByExternalID(ctx, "ais_reviewers", nil)
		require.NoError(t, err)
		assert.Equal(t, reviewers.ID, g.ID)
		assert.NotNil(t, g.LastSync)
	})

	t.Run("unheld internal group is promoted by name", func(t *testing.T) {
		e := newEnv(t)

		reviewers := e.group(t, models.Group{Name: "reviewers"})
		u := e.user(t, models.User{Email: "jane@example.com"})

		opts := DefaultOptions()
		opts.SyncInternalGroups = true
		r := e.reconciler(t, nil, rolemap.Config{}, opts)

		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "reviewers")))

		assert.Equal(t, []string{"ais_reviewers"}, e.externalIDs(t, u.ID))
		g, err := e.groups.FindByExternalID(ctx, "ais_reviewers", nil)
		require.NoError(t, err)
		assert.Equal(t, reviewers.ID, g.ID)
	})

	t.Run("ambiguous name is skipped", func(t *testing.T) {
		e := newEnv(t)

		e.group(t, models.Group{Name: "reviewers"})
		e.group(t, models.Group{Name: "reviewers"})
		u := e.user(t, models.User{Email: "jane@example.com"})

		opts := DefaultOptions()
		opts.SyncInternalGroups = true
		r := e.reconciler(t, nil, rolemap.Config{}, opts)

		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "reviewers")))
		assert.Empty(t, e.externalIDs(t, u.ID))
	})

	t.Run("internal groups left alone by default", func(t *testing.T) {
		e := newEnv(t)

		admins := e.group(t, models.Group{Name: "admins"})
		u := e.user(t, models.User{Email: "jane@example.com"}, admins)

		r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())

		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com")))
		assert.Equal(t, []string{"admins"}, groupNames(t, e, u.ID))
	})
}

func TestPostAuthenticateAmbiguousExternalID(t *testing.T) {
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)

	t.Run("skipped without repair", func(t *testing.T) {
		e := newEnv(t)

		e.group(t, models.Group{Name: "A", ExternalID: "ais_A", LastUpdate: old})
		e.group(t, models.Group{Name: "A", ExternalID: "ais_A"})
		u := e.user(t, models.User{Email: "jane@example.com"})

		r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())
		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "A")))

		assert.Empty(t, e.externalIDs(t, u.ID))
		dupes, err := e.groups.ListByExternalID(ctx, "ais_A", nil)
		require.NoError(t, err)
		assert.Len(t, dupes, 2)
	})

	t.Run("repaired when enabled", func(t *testing.T) {
		e := newEnv(t)

		e.group(t, models.Group{Name: "A new", ExternalID: "ais_A"})
		oldest := e.group(t, models.Group{Name: "A old", ExternalID: "ais_A", LastUpdate: old})
		u := e.user(t, models.User{Email: "jane@example.com"})

		opts := DefaultOptions()
		opts.EnableDuplicateGroupRepair = true
		r := e.reconciler(t, nil, rolemap.Config{}, opts)
		require.NoError(t, r.PostAuthenticate(ctx, realm("jane@example.com", "A")))

		assert.Equal(t, []string{"A old"}, groupNames(t, e, u.ID))
		dupes, err := e.groups.ListByExternalID(ctx, "ais_A", nil)
		require.NoError(t, err)
		require.Len(t, dupes, 1)
		assert.Equal(t, oldest.ID, dupes[0].ID)
	})
}

func TestRepairDuplicatesTieBreaksOnID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	first := e.group(t, models.Group{Name: "A", ExternalID: "ais_A", TenantID: ptr(1), LastUpdate: stamp})
	e.group(t, models.Group{Name: "A", ExternalID: "ais_A", TenantID: ptr(1), LastUpdate: stamp})
	e.group(t, models.Group{Name: "A", ExternalID: "ais_A", TenantID: ptr(1), LastUpdate: stamp.Add(time.Minute)})
	other := e.group(t, models.Group{Name: "A", ExternalID: "ais_A", TenantID: ptr(2), LastUpdate: stamp})

	r := e.reconciler(t, ptr(1), rolemap.Config{}, DefaultOptions())
	kept, err := r.repairDuplicates(ctx, "ais_A", ptr(1))
	require.NoError(t, err)
	assert.Equal(t, first.ID, kept.ID)

	remaining, err := e.groups.ListByExternalID(ctx, "ais_A", ptr(1))
	require.NoError(t, err)
	require.Len(t, remaining, 1)

	untouched, err := e.groups.ListByExternalID(ctx, "ais_A", ptr(2))
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.Equal(t, other.ID, untouched[0].ID)
}

func TestPostAuthenticateUnknownUser(t *testing.T) {
	e := newEnv(t)
	r := e.reconciler(t, nil, rolemap.Config{}, DefaultOptions())

	require.NoError(t, r.PostAuthenticate(context.Background(), realm("ghost@example.com", "A")))
	assert.Zero(t, e.groups.writes)
}

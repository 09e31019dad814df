package idm

import (
	"context"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
)

// UserStore persists principals.
type UserStore interface {
	// FindByEmail returns the user with the given email. A nil tenantID
	// searches across all tenants. Returns ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string, tenantID *uint64) (*models.User, error)
	// Create inserts the user. The store may add it to default groups.
	Create(ctx context.Context, user *models.User) error
	// Save updates an existing user.
	Save(ctx context.Context, user *models.User) error
	// FetchWithGroups returns the user with Groups populated.
	FetchWithGroups(ctx context.Context, id uint64) (*models.User, error)
}

// GroupStore persists groups and memberships. A nil tenantID scopes lookups to
// tenant-less groups.
type GroupStore interface {
	// FindByExternalID returns the single group with the external ID.
	// Returns ErrNotFound or ErrAmbiguousMatch.
	FindByExternalID(ctx context.Context, externalID string, tenantID *uint64) (*models.Group, error)
	// ListByExternalID returns every group carrying the external ID.
	ListByExternalID(ctx context.Context, externalID string, tenantID *uint64) ([]models.Group, error)
	// FindByName returns every group with the display name.
	FindByName(ctx context.Context, name string, tenantID *uint64) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Save(ctx context.Context, group *models.Group) error
	AddMember(ctx context.Context, groupID, userID uint64) error
	RemoveMember(ctx context.Context, groupID, userID uint64) error
	Delete(ctx context.Context, groupID uint64) error
	// ListSystemGroups returns the system groups of the tenant.
	ListSystemGroups(ctx context.Context, tenantID *uint64) ([]models.Group, error)
}

// TenantStore reads tenants.
type TenantStore interface {
	ListAll(ctx context.Context) ([]models.Tenant, error)
	FindByName(ctx context.Context, name string) ([]models.Tenant, error)
	// DefaultTenantName returns the host's configured default tenant name,
	// or an empty string when none is configured.
	DefaultTenantName(ctx context.Context) (string, error)
}

// CapabilityStore manages capability grants on groups.
type CapabilityStore interface {
	ListCapabilities(ctx context.Context, groupID uint64) ([]string, error)
	GrantCapability(ctx context.Context, groupID uint64, name string) error
}

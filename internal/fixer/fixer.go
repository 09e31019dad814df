// Package fixer holds idempotent startup routines repairing the
// administrative user and group.
package fixer

import (
	"context"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// AdminCapabilities are granted to the admin group.
var AdminCapabilities = []string{ //nolint:gochecknoglobals
	"access-all-models-in-tenant",
	"access-editor",
	"access-reports",
	"publish-app-to-dashboard",
	"tenant-admin",
	"tenant-admin-api",
	"upload-license",
}

// TenantResolver returns the active tenant ID, nil when unresolved.
type TenantResolver interface {
	ResolveID(ctx context.Context) (*uint64, error)
}

// GroupStore is the group access the fixers need.
type GroupStore interface {
	idm.GroupStore
	idm.CapabilityStore
	ListFunctionalGroups(ctx context.Context, tenantID *uint64) ([]models.Group, error)
}

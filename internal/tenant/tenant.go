// Package tenant resolves the tenant a login is reconciled in.
package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// ErrUnresolved is returned when no tenant applies to the login.
var ErrUnresolved = errors.New("tenant could not be resolved")

// Resolver picks the active tenant: the configured tenant name first, then
// the sole tenant when exactly one exists, then the host's default tenant name.
// The first tenant with a matching name wins.
type Resolver struct {
	store      idm.TenantStore
	tenantName string
}

// NewResolver returns a Resolver. tenantName may be empty.
func NewResolver(store idm.TenantStore, tenantName string) *Resolver {
	return &Resolver{store: store, tenantName: tenantName}
}

// Resolve returns the active tenant or ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context) (*models.Tenant, error) {
	if r.tenantName != "" {
		return r.byName(ctx, r.tenantName)
	}

	tenants, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	if len(tenants) == 1 {
		return &tenants[0], nil
	}

	name, err := r.store.DefaultTenantName(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %d tenants and no default tenant name", ErrUnresolved, len(tenants))
	}

	return r.byName(ctx, name)
}

// ResolveID returns the active tenant's ID, or nil when unresolved. Store
// failures are reported; an unresolved tenant is logged at warn level.
func (r *Resolver) ResolveID(ctx context.Context) (*uint64, error) {
	t, err := r.Resolve(ctx)
	if errors.Is(err, ErrUnresolved) {
		log.Ctx(ctx).Warn().Err(err).Msg("continuing without tenant")

		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id := t.ID

	return &id, nil
}

func (r *Resolver) byName(ctx context.Context, name string) (*models.Tenant, error) {
	tenants, err := r.store.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find tenant %q: %w", name, err)
	}
	if len(tenants) == 0 {
		return nil, fmt.Errorf("%w: no tenant named %q", ErrUnresolved, name)
	}
	if len(tenants) > 1 {
		log.Ctx(ctx).Debug().Str("tenant", name).Int("matches", len(tenants)).Msg("several tenants share the name, using the first")
	}

	return &tenants[0], nil
}

package fixer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// AdminGroup makes sure the admin group exists and holds every admin
// capability. At trace level it also logs the groups of every tenant.
type AdminGroup struct {
	groups   GroupStore
	tenants  idm.TenantStore
	resolver TenantResolver
	cfg      config.AdminGroup
}

// NewAdminGroup returns the admin group fixer.
func NewAdminGroup(groups GroupStore, tenants idm.TenantStore, resolver TenantResolver, cfg config.AdminGroup) *AdminGroup {
	return &AdminGroup{groups: groups, tenants: tenants, resolver: resolver, cfg: cfg}
}

// Name implements security.DataFixer.
func (f *AdminGroup) Name() string {
	return "admin-group"
}

// Fix implements security.DataFixer.
func (f *AdminGroup) Fix(ctx context.Context) error {
	if zerolog.GlobalLevel() <= zerolog.TraceLevel {
		f.logGroups(ctx)
	}

	if !f.cfg.Validate {
		return nil
	}

	tenantID, err := f.resolver.ResolveID(ctx)
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}

	group, err := f.find(ctx, tenantID)
	if err != nil {
		return err
	}

	if group == nil {
		if group, err = f.create(ctx, tenantID); err != nil {
			return err
		}
	}

	log.Debug().Str("group", group.Name).Msg("checking group capabilities")

	granted, err := f.groups.ListCapabilities(ctx, group.ID)
	if err != nil {
		return err
	}

	has := make(map[string]struct{}, len(granted))
	for _, name := range granted {
		has[name] = struct{}{}
	}

	var missing []string
	for _, name := range AdminCapabilities {
		if _, ok := has[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	log.Info().Str("group", group.Name).Strs("capabilities", missing).Msg("granting group capabilities")

	for _, name := range missing {
		if err := f.groups.GrantCapability(ctx, group.ID, name); err != nil {
			return err
		}
	}

	return nil
}

// find looks the admin group up by external ID, then by name.
func (f *AdminGroup) find(ctx context.Context, tenantID *uint64) (*models.Group, error) {
	if f.cfg.ExternalID != "" {
		group, err := f.groups.FindByExternalID(ctx, f.cfg.ExternalID, tenantID)
		switch {
		case err == nil:
			return group, nil
		case errors.Is(err, idm.ErrAmbiguousMatch):
			log.Warn().Err(err).Str("externalID", f.cfg.ExternalID).Msg("several admin groups share the external ID, looking up by name")
		case !errors.Is(err, idm.ErrNotFound):
			return nil, err
		}
	}

	groups, err := f.groups.FindByName(ctx, f.cfg.Name, tenantID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	return &groups[0], nil
}

func (f *AdminGroup) create(ctx context.Context, tenantID *uint64) (*models.Group, error) {
	log.Info().Str("group", f.cfg.Name).Str("externalID", f.cfg.ExternalID).Msg("creating group")

	group := &models.Group{
		Name:       f.cfg.Name,
		ExternalID: f.cfg.ExternalID,
		Type:       models.GroupTypeSystem,
		TenantID:   tenantID,
	}
	if group.External() {
		now := time.Now()
		group.LastUpdate = now
		group.LastSync = &now
	}

	if err := f.groups.Create(ctx, group); err != nil {
		return nil, err
	}

	return group, nil
}

func (f *AdminGroup) logGroups(ctx context.Context) {
	tenants, err := f.tenants.ListAll(ctx)
	if err != nil {
		log.Trace().Err(err).Msg("cannot list tenants")
		return
	}

	ids := make([]*uint64, 0, len(tenants)+1)
	for i := range tenants {
		log.Trace().Uint64("tenantID", tenants[i].ID).Str("tenant", tenants[i].Name).Msg("tenant")
		ids = append(ids, &tenants[i].ID)
	}
	ids = append(ids, nil)

	for _, id := range ids {
		functional, err := f.groups.ListFunctionalGroups(ctx, id)
		if err != nil {
			log.Trace().Err(err).Msg("cannot list functional groups")
			continue
		}

		system, err := f.groups.ListSystemGroups(ctx, id)
		if err != nil {
			log.Trace().Err(err).Msg("cannot list system groups")
			continue
		}

		event := log.Trace().Strs("functional", groupNames(functional)).Strs("system", groupNames(system))
		if id != nil {
			event.Uint64("tenantID", *id)
		}
		event.Msg("groups")
	}
}

func groupNames(groups []models.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, fmt.Sprintf("%s [%s]", g.Name, g.ExternalID))
	}

	return names
}

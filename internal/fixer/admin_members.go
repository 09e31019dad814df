package fixer

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// AdminMembers adds the configured admin users to the admin group(s).
type AdminMembers struct {
	users    idm.UserStore
	groups   GroupStore
	resolver TenantResolver
	emails   []string
	group    config.AdminGroup
}

// NewAdminMembers returns the admin members fixer.
func NewAdminMembers(users idm.UserStore, groups GroupStore, resolver TenantResolver, admin config.Admin) *AdminMembers {
	var emails []string
	for _, e := range admin.Users {
		if e = strings.TrimSpace(e); e != "" {
			emails = append(emails, e)
		}
	}

	return &AdminMembers{users: users, groups: groups, resolver: resolver, emails: emails, group: admin.Group}
}

// Name implements security.DataFixer.
func (f *AdminMembers) Name() string {
	return "admin-members"
}

// Fix implements security.DataFixer.
func (f *AdminMembers) Fix(ctx context.Context) error {
	if len(f.emails) == 0 {
		return nil
	}

	tenantID, err := f.resolver.ResolveID(ctx)
	if err != nil {
		return err
	}

	groups, err := f.adminGroups(ctx, tenantID)
	if err != nil {
		return err
	}

	log.Debug().Int("groups", len(groups)).Msg("found admin groups")

	var errs []error
	for _, email := range f.emails {
		user, err := f.users.FindByEmail(ctx, email, tenantID)
		if errors.Is(err, idm.ErrNotFound) {
			log.Info().Str("user", email).Msg("user does not exist, cannot add it as an administrator")
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		log.Debug().Str("user", user.Email).Msg("adding user to admin groups")

		for _, g := range groups {
			if err := f.groups.AddMember(ctx, g.ID, user.ID); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

// adminGroups returns the group with the admin external ID, or every group
// with the admin name when there is none or several.
func (f *AdminMembers) adminGroups(ctx context.Context, tenantID *uint64) ([]models.Group, error) {
	if f.group.ExternalID != "" {
		group, err := f.groups.FindByExternalID(ctx, f.group.ExternalID, tenantID)
		switch {
		case err == nil:
			return []models.Group{*group}, nil
		case errors.Is(err, idm.ErrNotFound), errors.Is(err, idm.ErrAmbiguousMatch):
		default:
			return nil, err
		}
	}

	return f.groups.FindByName(ctx, f.group.Name, tenantID)
}

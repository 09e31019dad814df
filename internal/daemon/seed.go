package daemon

import (
	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	groupstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/group"
	tenantstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/tenant"
	userstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/user"
	"github.com/trodix/keycloak-activiti-app-ext/internal/fixer"
	"github.com/trodix/keycloak-activiti-app-ext/internal/security"
	"github.com/trodix/keycloak-activiti-app-ext/internal/tenant"
)

// seed returns the startup data fixers: the admin account first, then the
// admin group and its members.
func seed(
	cfg *config.Config,
	users *userstore.Store,
	groups *groupstore.Store,
	tenants *tenantstore.Store,
	resolver *tenant.Resolver,
) []security.DataFixer {
	return []security.DataFixer{
		fixer.NewAdminPassword(users, resolver, cfg.Admin.Reset),
		fixer.NewAdminGroup(groups, tenants, resolver, cfg.Admin.Group),
		fixer.NewAdminMembers(users, groups, resolver, cfg.Admin),
	}
}

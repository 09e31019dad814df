package security

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
)

// Adapter names.
const (
	NameAIS      = auth.ProviderAIS
	NameKeycloak = auth.ProviderKeycloak
	NameOOTB     = auth.ProviderLocal
	NameLDAP     = auth.ProviderLDAP
)

// Intercept wraps the providers of externally backed strategies.
type Intercept struct {
	Hooks   auth.Hooks
	Options []auth.InterceptorOption
}

func (i Intercept) wrap(p auth.Provider) auth.Provider {
	if i.Hooks == nil {
		return p
	}

	return auth.NewInterceptor(p, i.Hooks, i.Options...)
}

// Adapters returns the adapters of every configured strategy.
func Adapters(cfg *config.Config, intercept Intercept) []Adapter {
	return []Adapter{
		AIS(cfg.AIS, intercept),
		Keycloak(cfg.Keycloak, intercept),
		OOTB(cfg.OOTB),
		LDAP(cfg.LDAP, intercept),
	}
}

// AIS authenticates username/password logins with the identity service's
// password grant.
func AIS(cfg config.AIS, intercept Intercept) Adapter {
	return Adapter{
		Name:     NameAIS,
		Enabled:  cfg.Enabled,
		Priority: cfg.Priority,
		Configure: func(ctx context.Context, chain *auth.Chain, _ auth.UserLookup) error {
			p, err := auth.NewPasswordGrantProvider(ctx, auth.PasswordGrantConfig{
				IssuerURL:    cfg.IssuerURL,
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Scopes:       cfg.Scopes,
			})
			if err != nil {
				return err
			}

			chain.Add(intercept.wrap(p))

			return nil
		},
	}
}

// Keycloak authenticates bearer access tokens.
func Keycloak(cfg config.Keycloak, intercept Intercept) Adapter {
	return Adapter{
		Name:     NameKeycloak,
		Enabled:  cfg.Enabled,
		Priority: cfg.Priority,
		Configure: func(ctx context.Context, chain *auth.Chain, _ auth.UserLookup) error {
			p, err := auth.NewBearerProvider(ctx, auth.BearerConfig{
				IssuerURL:         cfg.IssuerURL,
				ClientID:          cfg.ClientID,
				SkipClientIDCheck: cfg.SkipClientIDCheck,
			})
			if err != nil {
				return err
			}

			chain.Add(intercept.wrap(p))

			return nil
		},
	}
}

// OOTB authenticates local accounts. It is never intercepted.
func OOTB(cfg config.OOTB) Adapter {
	return Adapter{
		Name:     NameOOTB,
		Enabled:  cfg.Enabled,
		Priority: cfg.Priority,
		Configure: func(_ context.Context, chain *auth.Chain, users auth.UserLookup) error {
			if users == nil {
				return ErrNoUserLookup
			}

			chain.Add(auth.NewLocalProvider(users))

			return nil
		},
	}
}

// LDAP authenticates against a directory and syncs its groups as roles.
func LDAP(cfg config.LDAP, intercept Intercept) Adapter {
	return Adapter{
		Name:     NameLDAP,
		Enabled:  cfg.Enabled,
		Priority: cfg.Priority,
		Configure: func(ctx context.Context, chain *auth.Chain, _ auth.UserLookup) error {
			p, err := auth.NewLDAPProvider(&auth.LDAPConfig{
				Enabled:       cfg.Enabled,
				Host:          cfg.Host,
				Port:          cfg.Port,
				UseSSL:        cfg.UseSSL,
				UseTLS:        cfg.UseTLS,
				SkipVerify:    cfg.SkipVerify,
				BindDN:        cfg.BindDN,
				BindPassword:  cfg.BindPassword,
				BaseDN:        cfg.BaseDN,
				UserFilter:    cfg.UserFilter,
				GroupBaseDN:   cfg.GroupBaseDN,
				GroupFilter:   cfg.GroupFilter,
				GroupNameAttr: cfg.GroupNameAttr,
				Timeout:       cfg.Timeout,
			})
			if err != nil {
				return err
			}

			if err := p.TestConnection(); err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("host", cfg.Host).Msg("LDAP server unreachable at startup")
			}

			chain.Add(intercept.wrap(p))

			return nil
		},
	}
}

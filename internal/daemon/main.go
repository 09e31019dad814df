// Package daemon wires the stores, the reconciler and the authentication
// strategies into the running service.
package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db"
	groupstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/group"
	tenantstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/tenant"
	userstore "github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/user"
	"github.com/trodix/keycloak-activiti-app-ext/internal/reconcile"
	"github.com/trodix/keycloak-activiti-app-ext/internal/rolemap"
	"github.com/trodix/keycloak-activiti-app-ext/internal/security"
	"github.com/trodix/keycloak-activiti-app-ext/internal/tenant"
	"github.com/trodix/keycloak-activiti-app-ext/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	users      *userstore.Store
	registry   *security.Registry
	chain      *auth.Chain
	webService *web.Service
}

// New opens the store and builds the registry. Invalid role patterns are
// reported here.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, config.ErrInvalidConfig
	}

	conn, err := db.Open(cfg.DB, cfg.DevMode)
	if err != nil {
		return nil, err
	}

	return build(cfg, conn)
}

func build(cfg *config.Config, conn *gorm.DB) (*Daemon, error) {
	users := userstore.New(conn)
	groups := groupstore.New(conn)
	tenants := tenantstore.New(conn)
	resolver := tenant.NewResolver(tenants, cfg.Tenant)

	mapper, err := rolemap.New(rolemap.Config{
		ResourceIncludes:   cfg.Roles.ResourceIncludes,
		FormatPatterns:     cfg.Roles.FormatPatterns,
		FormatReplacements: cfg.Roles.FormatReplacements,
		Includes:           cfg.Roles.Includes,
		Excludes:           cfg.Roles.Excludes,
	})
	if err != nil {
		return nil, fmt.Errorf("role mapping: %w", err)
	}

	reconciler := reconcile.New(users, groups, resolver, mapper, reconcile.Options{
		CreateMissingUser:          cfg.Sync.CreateMissingUser,
		ClearNewUserDefaultGroups:  cfg.Sync.ClearNewUserDefaultGroups,
		CreateMissingGroup:         cfg.Sync.CreateMissingGroup,
		SyncGroupAdd:               cfg.Sync.SyncGroupAdd,
		SyncGroupRemove:            cfg.Sync.SyncGroupRemove,
		SyncInternalGroups:         cfg.Sync.SyncInternalGroups,
		SyncGroupsAsOrganization:   cfg.Sync.SyncGroupsAsOrganization,
		SourceTag:                  cfg.Sync.SourceTag,
		EnableDuplicateGroupRepair: cfg.Sync.EnableDuplicateGroupRepair,
	})

	intercept := security.Intercept{
		Hooks:   reconciler,
		Options: []auth.InterceptorOption{auth.WithSkipPostAuthenticate(cfg.Interceptor.SkipPostAuthenticate...)},
	}

	registry := security.NewRegistry(
		security.Adapters(cfg, intercept),
		seed(cfg, users, groups, tenants, resolver)...,
	)

	return &Daemon{
		cfg:      cfg,
		db:       conn,
		users:    users,
		registry: registry,
		chain:    auth.NewChain(),
	}, nil
}

// Configure runs the data fixers and installs the selected strategy. Without
// an enabled strategy local accounts are used.
func (d *Daemon) Configure(ctx context.Context) error {
	selected, err := d.registry.SelectAndApply(ctx, d.chain, d.users)
	if err != nil {
		return err
	}

	if selected == nil {
		log.Warn().Msg("falling back to local accounts")
		d.chain.Add(auth.NewLocalProvider(d.users))
	}

	return nil
}

// Fix runs the data fixers only. It returns the number of failed fixers.
func (d *Daemon) Fix(ctx context.Context) int {
	return d.registry.RunFixers(ctx)
}

// Start configures the strategy and serves until SIGINT or SIGTERM.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.Configure(ctx); err != nil {
		return err
	}

	d.webService = web.New(d.cfg, d.chain)

	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)
	log.Info().Str("addr", addr).Msg("starting http server")

	go func() {
		_ = d.webService.Start(addr)
	}()

	d.webService.WaitShutdown()

	return d.Close()
}

// Close releases the database connection.
func (d *Daemon) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

package fixer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// Accounts finds and stores local accounts.
type Accounts interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

// AdminPassword resets the admin password, creating the local admin account
// when it does not exist yet.
type AdminPassword struct {
	accounts Accounts
	resolver TenantResolver
	cfg      config.AdminReset
}

// NewAdminPassword returns the admin password fixer.
func NewAdminPassword(accounts Accounts, resolver TenantResolver, cfg config.AdminReset) *AdminPassword {
	return &AdminPassword{accounts: accounts, resolver: resolver, cfg: cfg}
}

// Name implements security.DataFixer.
func (f *AdminPassword) Name() string {
	return "admin-password"
}

// Fix implements security.DataFixer.
func (f *AdminPassword) Fix(ctx context.Context) error {
	if f.cfg.Password == "" || f.cfg.Username == "" {
		return nil
	}

	log.Info().Str("user", f.cfg.Username).Msg("resetting the admin password")

	user, err := f.accounts.FindByUsername(ctx, f.cfg.Username)
	if errors.Is(err, idm.ErrNotFound) {
		return f.create(ctx)
	}
	if err != nil {
		return err
	}

	user.Password = models.HashPassword(f.cfg.Password)
	user.Active = true

	if err := f.accounts.Save(ctx, user); err != nil {
		return fmt.Errorf("reset password of %q: %w", f.cfg.Username, err)
	}

	return nil
}

func (f *AdminPassword) create(ctx context.Context) error {
	tenantID, err := f.resolver.ResolveID(ctx)
	if err != nil {
		return err
	}

	user := &models.User{
		Active:    true,
		Email:     f.cfg.Username,
		Username:  f.cfg.Username,
		Password:  models.HashPassword(f.cfg.Password),
		FirstName: "Administrator",
		TenantID:  tenantID,
	}
	if err := f.accounts.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin %q: %w", f.cfg.Username, err)
	}

	log.Info().Uint64("userID", user.ID).Str("user", f.cfg.Username).Msg("created local admin account")

	return nil
}

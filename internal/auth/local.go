package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// ProviderLocal names the local account provider.
const ProviderLocal = "ootb"

// LocalProvider handles local database authentication.
type LocalProvider struct {
	users UserLookup
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(users UserLookup) *LocalProvider {
	return &LocalProvider{users: users}
}

// Supports accepts username/password credentials.
func (p *LocalProvider) Supports(a *Authentication) bool {
	return a.Name != "" && a.Password != ""
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	user, err := p.users.FindByUsername(ctx, a.Name)
	if errors.Is(err, idm.ErrNotFound) {
		return nil, authFailed(ProviderLocal, ErrUserNotFound)
	}
	if err != nil {
		return nil, authFailed(ProviderLocal, fmt.Errorf("failed to query user: %w", err))
	}

	if !user.Active {
		return nil, authFailed(ProviderLocal, ErrUserAccountDisabled)
	}

	if !user.VerifyPassword(a.Password) {
		return nil, authFailed(ProviderLocal, ErrBadCredentials)
	}

	out := authenticated(a, ProviderLocal)
	out.Name = user.Email

	return out, nil
}

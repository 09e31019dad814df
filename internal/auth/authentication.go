package auth

import (
	"context"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
)

// Authentication carries credentials into the pipeline and the verified
// identity out of it.
type Authentication struct {
	// Name is the principal name, typically an email.
	Name string
	// Password is set for username/password logins.
	Password string `json:"-"`
	// BearerToken is the raw access token for bearer logins.
	BearerToken string `json:"-"`
	// Authorities are the raw role claims after verification.
	Authorities []string
	// Token is the decoded access token payload, nil when none is available.
	Token *AccessToken
	// Authenticated is set by the provider that verified the credentials.
	Authenticated bool
	// Provider names the verifier that authenticated the request.
	Provider string
}

// Provider verifies credentials.
type Provider interface {
	// Supports reports whether the provider can verify these credentials.
	Supports(a *Authentication) bool
	// Authenticate verifies the credentials and returns the authenticated
	// identity. Failures are *AuthenticationError.
	Authenticate(ctx context.Context, a *Authentication) (*Authentication, error)
}

// Preparer is implemented by providers that can learn the principal name
// from the raw credentials before verification.
type Preparer interface {
	Prepare(ctx context.Context, a *Authentication) error
}

// Hooks run around a wrapped provider.
type Hooks interface {
	PreAuthenticate(ctx context.Context, a *Authentication) error
	PostAuthenticate(ctx context.Context, a *Authentication) error
}

// UserLookup finds local accounts for the LocalProvider.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// authenticated returns a copy of a marked as verified by provider.
func authenticated(a *Authentication, provider string) *Authentication {
	out := *a
	out.Password = ""
	out.Authenticated = true
	out.Provider = provider

	return &out
}

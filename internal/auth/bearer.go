package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// ProviderKeycloak names the bearer token provider.
const ProviderKeycloak = "keycloak"

// BearerConfig configures BearerProvider discovery.
type BearerConfig struct {
	// IssuerURL is the OIDC issuer, e.g. https://keycloak/realms/activiti.
	IssuerURL string
	// ClientID is the expected audience unless SkipClientIDCheck is set.
	ClientID string
	// SkipClientIDCheck disables the audience check. Keycloak access tokens
	// usually carry the "account" audience.
	SkipClientIDCheck bool
}

// BearerProvider verifies OIDC access tokens.
type BearerProvider struct {
	name     string
	verifier *oidc.IDTokenVerifier
}

var (
	_ Provider = (*BearerProvider)(nil)
	_ Preparer = (*BearerProvider)(nil)
)

// NewBearerProvider discovers the issuer and returns a provider verifying its tokens.
func NewBearerProvider(ctx context.Context, cfg BearerConfig) (*BearerProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.SkipClientIDCheck,
	})

	return NewBearerProviderWithVerifier(ProviderKeycloak, verifier), nil
}

// NewBearerProviderWithVerifier returns a provider using an existing verifier.
func NewBearerProviderWithVerifier(name string, verifier *oidc.IDTokenVerifier) *BearerProvider {
	return &BearerProvider{name: name, verifier: verifier}
}

// Supports accepts bearer tokens.
func (p *BearerProvider) Supports(a *Authentication) bool {
	return a.BearerToken != ""
}

// Prepare decodes the token without verifying it so the principal can be
// reconciled before verification.
func (p *BearerProvider) Prepare(_ context.Context, a *Authentication) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.BearerToken, claims); err != nil {
		return fmt.Errorf("decode bearer token: %w", err)
	}

	token, err := ParseAccessToken(claims)
	if err != nil {
		return err
	}

	if a.Name == "" {
		a.Name = token.PrincipalName()
	}
	a.Token = token

	return nil
}

// Authenticate verifies the bearer token and decodes its role claims.
func (p *BearerProvider) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	return verifyAccessToken(ctx, p.name, p.verifier, a, a.BearerToken)
}

// verifyAccessToken verifies raw and fills the authenticated identity from its claims.
func verifyAccessToken(
	ctx context.Context,
	provider string,
	verifier *oidc.IDTokenVerifier,
	a *Authentication,
	raw string,
) (*Authentication, error) {
	verified, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, authFailed(provider, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	var claims map[string]any
	if err = verified.Claims(&claims); err != nil {
		return nil, authFailed(provider, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	token, err := ParseAccessToken(claims)
	if err != nil {
		return nil, authFailed(provider, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	out := authenticated(a, provider)
	if name := token.PrincipalName(); name != "" {
		out.Name = name
	}
	out.Token = token
	out.Authorities = token.Authorities()

	return out, nil
}

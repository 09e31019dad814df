package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// ProviderAIS names the identity service password grant provider.
const ProviderAIS = "ais"

// PasswordGrantConfig configures PasswordGrantProvider discovery.
type PasswordGrantConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// PasswordGrantProvider trades username/password for an access token with the
// OAuth2 resource owner password grant and verifies the token.
type PasswordGrantProvider struct {
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
}

var _ Provider = (*PasswordGrantProvider)(nil)

// NewPasswordGrantProvider discovers the issuer's token endpoint and keys.
func NewPasswordGrantProvider(ctx context.Context, cfg PasswordGrantConfig) (*PasswordGrantProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	// access tokens are not addressed to the client
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID, SkipClientIDCheck: true})

	return newPasswordGrantProvider(oauth2Config, verifier), nil
}

func newPasswordGrantProvider(cfg oauth2.Config, verifier *oidc.IDTokenVerifier) *PasswordGrantProvider {
	return &PasswordGrantProvider{oauth2: cfg, verifier: verifier}
}

// Supports accepts username/password credentials.
func (p *PasswordGrantProvider) Supports(a *Authentication) bool {
	return a.Name != "" && a.Password != ""
}

// Authenticate performs the password grant and verifies the access token.
func (p *PasswordGrantProvider) Authenticate(ctx context.Context, a *Authentication) (*Authentication, error) {
	token, err := p.oauth2.PasswordCredentialsToken(ctx, a.Name, a.Password)
	if err != nil {
		return nil, authFailed(ProviderAIS, fmt.Errorf("%w: %w", ErrBadCredentials, err))
	}

	return verifyAccessToken(ctx, ProviderAIS, p.verifier, a, token.AccessToken)
}

package auth

import (
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Access lists the roles granted in a realm or resource.
type Access struct {
	Roles []string `mapstructure:"roles"`
}

// AccessToken is the subset of an OIDC access token the pipeline uses.
type AccessToken struct {
	Subject           string            `mapstructure:"sub"`
	Issuer            string            `mapstructure:"iss"`
	PreferredUsername string            `mapstructure:"preferred_username"`
	Email             string            `mapstructure:"email"`
	GivenName         string            `mapstructure:"given_name"`
	FamilyName        string            `mapstructure:"family_name"`
	RealmAccess       *Access           `mapstructure:"realm_access"`
	ResourceAccess    map[string]Access `mapstructure:"resource_access"`
}

// ParseAccessToken decodes token claims.
func ParseAccessToken(claims map[string]any) (*AccessToken, error) {
	var token AccessToken

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &token,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create claims decoder: %w", err)
	}

	if err := decoder.Decode(claims); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}

	return &token, nil
}

// PrincipalName returns the email, falling back to the preferred username.
func (t *AccessToken) PrincipalName() string {
	if t.Email != "" {
		return t.Email
	}

	return t.PreferredUsername
}

// HasRoleData reports whether the token carries realm role claims or at
// least one resource entry. An empty resource_access object counts as none.
func (t *AccessToken) HasRoleData() bool {
	return t != nil && (t.RealmAccess != nil || len(t.ResourceAccess) > 0)
}

// RealmRoles returns the realm roles, nil when absent.
func (t *AccessToken) RealmRoles() []string {
	if t == nil || t.RealmAccess == nil {
		return nil
	}

	return t.RealmAccess.Roles
}

// ResourceRoles returns the roles per resource.
func (t *AccessToken) ResourceRoles() map[string][]string {
	if t == nil || t.ResourceAccess == nil {
		return nil
	}

	out := make(map[string][]string, len(t.ResourceAccess))
	for resource, access := range t.ResourceAccess {
		out[resource] = access.Roles
	}

	return out
}

// Authorities returns every realm and resource role, deduplicated and sorted.
func (t *AccessToken) Authorities() []string {
	seen := map[string]struct{}{}
	for _, r := range t.RealmRoles() {
		seen[r] = struct{}{}
	}
	for _, roles := range t.ResourceRoles() {
		for _, r := range roles {
			seen[r] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)

	return out
}

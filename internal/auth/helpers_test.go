package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://idp.example.com/realms/activiti"

// signer mints RS256 tokens and verifies them through a static key set.
type signer struct {
	key *rsa.PrivateKey
}

func newSigner(t *testing.T) *signer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &signer{key: key}
}

func (s *signer) mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	base := jwt.MapClaims{
		"iss": testIssuer,
		"sub": "0b5c6e9f",
		"aud": "account",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, base).SignedString(s.key)
	require.NoError(t, err)

	return raw
}

func (s *signer) verifier() *oidc.IDTokenVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&s.key.PublicKey}}

	return oidc.NewVerifier(testIssuer, keySet, &oidc.Config{SkipClientIDCheck: true})
}

// janeClaims is a Keycloak style access token payload.
func janeClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"email":              "jane.doe@example.com",
		"preferred_username": "jdoe",
		"given_name":         "Jane",
		"family_name":        "Doe",
		"realm_access":       map[string]any{"roles": []any{"admin", "offline_access"}},
		"resource_access": map[string]any{
			"activiti-app": map[string]any{"roles": []any{"editor"}},
		},
	}
}

// recordingHooks records hook invocations.
type recordingHooks struct {
	pre, post []string
	preErr    error
	postErr   error
}

func (h *recordingHooks) PreAuthenticate(_ context.Context, a *Authentication) error {
	h.pre = append(h.pre, a.Name)
	return h.preErr
}

func (h *recordingHooks) PostAuthenticate(_ context.Context, a *Authentication) error {
	h.post = append(h.post, a.Name)
	return h.postErr
}

// stubProvider authenticates every password credential, or fails with err.
type stubProvider struct {
	name  string
	err   error
	calls int
}

func (p *stubProvider) Supports(a *Authentication) bool {
	return a.Password != ""
}

func (p *stubProvider) Authenticate(_ context.Context, a *Authentication) (*Authentication, error) {
	p.calls++
	if p.err != nil {
		return nil, authFailed(p.name, p.err)
	}

	return authenticated(a, p.name), nil
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerProviderAuthenticate(t *testing.T) {
	s := newSigner(t)
	p := NewBearerProviderWithVerifier(ProviderKeycloak, s.verifier())

	result, err := p.Authenticate(context.Background(), &Authentication{BearerToken: s.mint(t, janeClaims())})
	require.NoError(t, err)

	assert.True(t, result.Authenticated)
	assert.Equal(t, ProviderKeycloak, result.Provider)
	assert.Equal(t, "jane.doe@example.com", result.Name)
	require.NotNil(t, result.Token)
	assert.Equal(t, []string{"admin", "offline_access"}, result.Token.RealmRoles())
	assert.Equal(t, []string{"admin", "editor", "offline_access"}, result.Authorities)
}

func TestBearerProviderRejects(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)
	p := NewBearerProviderWithVerifier(ProviderKeycloak, s.verifier())

	testCases := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "foreign key", token: other.mint(t, janeClaims())},
		{name: "expired", token: s.mint(t, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})},
		{name: "wrong issuer", token: s.mint(t, jwt.MapClaims{"iss": "https://evil.example.com"})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Authenticate(context.Background(), &Authentication{BearerToken: tc.token})

			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, ProviderKeycloak, authErr.Provider)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerProviderPrepare(t *testing.T) {
	s := newSigner(t)
	p := NewBearerProviderWithVerifier(ProviderKeycloak, s.verifier())

	// signature is not checked before verification
	a := &Authentication{BearerToken: newSigner(t).mint(t, janeClaims())}
	require.NoError(t, p.Prepare(context.Background(), a))
	assert.Equal(t, "jane.doe@example.com", a.Name)
	require.NotNil(t, a.Token)
	assert.Equal(t, "Jane", a.Token.GivenName)

	require.Error(t, p.Prepare(context.Background(), &Authentication{BearerToken: "garbage"}))
}

package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCredentials is returned when a password or grant is rejected.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidToken is returned when a bearer or granted token fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoProvider is returned when no provider in the chain supports the credentials.
	ErrNoProvider = errors.New("no authentication provider supports the credentials")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")
)

// AuthenticationError reports that credential verification failed. It always
// aborts the login.
type AuthenticationError struct {
	// Provider names the verifier that failed.
	Provider string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (%s): %v", e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

func authFailed(provider string, err error) error {
	return &AuthenticationError{Provider: provider, Err: err}
}

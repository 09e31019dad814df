package authn

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
	accesslog "github.com/trodix/keycloak-activiti-app-ext/internal/logger/adapter/fiber"
)

// AuthenticationLocal is the fiber local holding the *auth.Authentication.
const AuthenticationLocal = "authentication"

var (
	// ErrNoCredentials is returned when the request carries no usable credentials.
	ErrNoCredentials = errors.New("missing credentials")
	// ErrMalformedCredentials is returned for unparsable basic credentials.
	ErrMalformedCredentials = errors.New("malformed credentials")
)

// Authenticator verifies credentials, typically an *auth.Chain.
type Authenticator interface {
	Authenticate(ctx context.Context, a *auth.Authentication) (*auth.Authentication, error)
}

// New returns the authentication middleware.
func New(authenticator Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		credentials, err := Credentials(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			c.Set(fiber.HeaderWWWAuthenticate, `Bearer, Basic realm="keycloak-ext"`)
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		out, err := authenticator.Authenticate(c.Context(), credentials)
		if err != nil {
			var authErr *auth.AuthenticationError
			if errors.As(err, &authErr) {
				log.Debug().Err(err).Str("user", credentials.Name).Msg("authentication failed")
				c.Set(fiber.HeaderWWWAuthenticate, `Bearer, Basic realm="keycloak-ext"`)

				return fiber.NewError(fiber.StatusUnauthorized, "authentication failed")
			}

			return err
		}

		c.Locals(AuthenticationLocal, out)
		c.Locals(accesslog.PrincipalLocal, out.Name)

		return c.Next()
	}
}

// Credentials parses an Authorization header value.
func Credentials(header string) (*auth.Authentication, error) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || value == "" {
		return nil, ErrNoCredentials
	}
	value = strings.TrimSpace(value)

	switch strings.ToLower(scheme) {
	case "bearer":
		return &auth.Authentication{BearerToken: value}, nil
	case "basic":
		raw, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return nil, ErrMalformedCredentials
		}

		name, password, ok := strings.Cut(string(raw), ":")
		if !ok || name == "" {
			return nil, ErrMalformedCredentials
		}

		return &auth.Authentication{Name: name, Password: password}, nil
	default:
		return nil, ErrNoCredentials
	}
}

// FromLocals returns the authenticated identity stored by the middleware.
func FromLocals(c fiber.Ctx) (*auth.Authentication, bool) {
	a, ok := c.Locals(AuthenticationLocal).(*auth.Authentication)

	return a, ok && a != nil
}

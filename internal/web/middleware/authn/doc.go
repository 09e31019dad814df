// Package authn provides the authentication middleware of the API.
//
// The middleware reads the credentials of the Authorization header, either a
// bearer access token or basic username/password credentials, and hands them
// to the authentication chain. The chain runs the selected strategy, wrapped
// with reconciliation hooks when the strategy is backed by an external
// identity provider.
//
// On success the authenticated identity is stored in fiber.Locals under
// AuthenticationLocal and the principal name under the access log's
// principal local. Failed verification answers 401.
//
// Usage:
//
//	api := app.Group("/api/v1", authn.New(chain))
package authn

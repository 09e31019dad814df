// Package auth provides the authentication pipeline: credential verifiers
// (providers), the ordered Chain that tries them, and the Interceptor that
// wraps a verifier with identity reconciliation hooks.
//
// # Providers
//
// LocalProvider verifies username/password against local accounts hashed
// with Argon2id.
//
// LDAPProvider binds against an LDAP or Active Directory server and reports
// the user's directory groups as realm roles.
//
// BearerProvider verifies an OIDC access token (for example a Keycloak bearer
// token) with go-oidc and decodes its realm and resource role claims.
//
// PasswordGrantProvider exchanges username/password for an access token with
// the OAuth2 resource owner password grant and verifies the result like
// BearerProvider does.
//
// # Interception
//
// Interceptor calls Hooks.PreAuthenticate before delegating and
// Hooks.PostAuthenticate after the delegate succeeds. Hook failures are
// logged and never fail the login; delegate failures are returned unchanged.
//
// Example usage:
//
//	chain := auth.NewChain()
//	chain.Add(auth.NewInterceptor(bearer, reconciler,
//	    auth.WithSkipPostAuthenticate("admin@app.activiti.com"),
//	))
//
//	result, err := chain.Authenticate(ctx, &auth.Authentication{BearerToken: raw})
package auth

// Package main provides the keycloak-ext entry point.
// It loads the configuration, opens the identity store, runs the admin data
// fixers and serves the health, metrics and identity endpoints. Each login is
// verified by the selected authentication strategy while the reconciler
// creates missing users and converges group memberships with the roles of
// the identity provider's access token.
package main

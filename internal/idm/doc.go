// Package idm defines the identity-management store contracts that the
// reconciliation engine consumes: users, groups and tenants.
//
// Implementations are expected to honour the context passed to every call.
// The gorm-backed reference implementations live under internal/db/controller.
package idm

// Package scopes holds reusable gorm query scopes.
package scopes

import "gorm.io/gorm"

// Tenant restricts a query to the tenant. A nil tenantID matches rows without
// a tenant.
func Tenant(tenantID *uint64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if tenantID == nil {
			return tx.Where("tenant_id IS NULL")
		}

		return tx.Where("tenant_id = ?", *tenantID)
	}
}

// AnyTenant restricts a query to the tenant when tenantID is set and leaves it
// unrestricted otherwise.
func AnyTenant(tenantID *uint64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if tenantID == nil {
			return tx
		}

		return tx.Where("tenant_id = ?", *tenantID)
	}
}

package models

import "time"

// Tenant is an organizational partition of users and groups.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the tenant. Not unique.
	Name string `gorm:"size:255;not null;index"`
	// CreatedAt is the timestamp when the tenant was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "idm_tenants"
}

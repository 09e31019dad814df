package models

import "time"

// GroupType distinguishes capability-bearing system groups from organizational
// (functional) groups.
type GroupType string

const (
	// GroupTypeSystem groups carry capability grants.
	GroupTypeSystem GroupType = "system"
	// GroupTypeFunctional groups model the organization.
	GroupTypeFunctional GroupType = "functional"
)

// Group represents a user group. Groups mirroring an external role carry an
// ExternalID derived from the role key; internal groups leave it empty.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint64 `gorm:"primaryKey"`
	// Name is the display name of the group.
	Name string `gorm:"size:255;not null"`
	// ExternalID links the group to the external role that produced it.
	// Not unique at the schema level: historical duplicates must stay repairable.
	ExternalID string `gorm:"size:255;index:idx_group_tenant_external"`
	// Type is either system or functional.
	Type GroupType `gorm:"type:varchar(20);not null;default:'system'"`
	// TenantID is the tenant the group belongs to, nil when tenant-less.
	TenantID *uint64 `gorm:"index:idx_group_tenant_external"`
	// AutoAssign marks a default group that new users are added to on creation.
	AutoAssign bool `gorm:"default:false"`
	// LastUpdate is the last time the group record was changed.
	LastUpdate time.Time
	// LastSync is the last time the group was synchronized from an external IDM.
	LastSync *time.Time
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "idm_groups"
}

// External reports whether the group mirrors an external role.
func (g *Group) External() bool {
	return g.ExternalID != ""
}

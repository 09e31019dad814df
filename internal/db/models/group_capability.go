package models

// GroupCapability is a capability granted to a group, such as "tenant-admin".
type GroupCapability struct {
	// ID is the unique identifier for the grant.
	ID uint64 `gorm:"primaryKey"`
	// GroupID is the ID of the group holding the capability.
	GroupID uint64 `gorm:"not null;uniqueIndex:idx_group_capability"`
	// Name is the capability name.
	Name string `gorm:"size:100;not null;uniqueIndex:idx_group_capability"`
}

// TableName specifies the database table name for the GroupCapability model.
func (GroupCapability) TableName() string {
	return "idm_group_capabilities"
}

// Package models contains database model definitions.
package models

// Setting represents a host setting stored in the database, such as the
// default tenant name.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique;size:100"`
	Value []byte
}

// TableName specifies the database table name for the Setting model.
func (Setting) TableName() string {
	return "idm_settings"
}

// All returns every model managed by the store, in migration order.
func All() []any {
	return []any{
		&Tenant{},
		&Setting{},
		&User{},
		&Group{},
		&UserGroup{},
		&GroupCapability{},
	}
}

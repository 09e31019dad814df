package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents a principal in the internal identity store.
// Users are either local accounts (ExternalSource empty, Password set) or
// mirrors of an external identity provider account (ExternalSource set).
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Email is the user's email address and the principal name used at login.
	Email string `gorm:"size:255;not null;index"`
	// Username is an optional login name for local accounts.
	Username string `gorm:"size:100"`
	// Password is the Argon2id hashed password (only used for local accounts).
	Password string `gorm:"size:255"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// ExternalSource tags the external IDM that created or linked this user.
	// Empty for internally created users.
	ExternalSource string `gorm:"size:50"`
	// ExternalID is the identifier of the user in the external IDM.
	ExternalID string `gorm:"size:255"`
	// TenantID is the tenant the user belongs to, nil when tenant-less.
	TenantID *uint64 `gorm:"index"`
	// Groups holds the user's group memberships when fetched with groups.
	Groups []Group `gorm:"-"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "idm_users"
}

// Linked reports whether the user was created by or linked to an external IDM.
func (u *User) Linked() bool {
	return u.ExternalSource != ""
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

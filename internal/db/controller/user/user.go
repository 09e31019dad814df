// Package user provides the gorm-backed principal store.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/scopes"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// ErrEmailEmpty is returned when creating a user without an email.
var ErrEmailEmpty = errors.New("user email cannot be empty")

// Store implements idm.UserStore on gorm.
type Store struct {
	db *gorm.DB
}

var _ idm.UserStore = (*Store)(nil)

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByEmail looks a user up by email, case-insensitively. With a nil
// tenantID every tenant is searched and the oldest match is returned.
func (s *Store) FindByEmail(ctx context.Context, email string, tenantID *uint64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Scopes(scopes.AnyTenant(tenantID)).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Order("id").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, idm.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", email, err)
	}

	return &user, nil
}

// FindByUsername looks a local account up by username or email.
func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", username, strings.ToLower(username)).
		Order("id").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, idm.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}

	return &user, nil
}

// Create inserts the user and adds it to every auto-assign group of its
// tenant, and to tenant-less auto-assign groups.
func (s *Store) Create(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return ErrEmailEmpty
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user %q: %w", user.Email, err)
		}

		var defaults []models.Group
		q := tx.Where("auto_assign = ?", true)
		if user.TenantID != nil {
			q = q.Where("tenant_id = ? OR tenant_id IS NULL", *user.TenantID)
		} else {
			q = q.Where("tenant_id IS NULL")
		}
		if err := q.Find(&defaults).Error; err != nil {
			return fmt.Errorf("list default groups: %w", err)
		}

		for _, g := range defaults {
			membership := models.UserGroup{UserID: user.ID, GroupID: g.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&membership).Error; err != nil {
				return fmt.Errorf("assign default group %d: %w", g.ID, err)
			}
		}

		return nil
	})
}

// Save updates an existing user.
func (s *Store) Save(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error; err != nil {
		return fmt.Errorf("save user %d: %w", user.ID, err)
	}

	return nil
}

// FetchWithGroups returns the user with Groups populated, ordered by group ID.
func (s *Store) FetchWithGroups(ctx context.Context, id uint64) (*models.User, error) {
	tx := s.db.WithContext(ctx)

	var user models.User
	err := tx.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, idm.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user %d: %w", id, err)
	}

	err = tx.Table("idm_groups").
		Select("idm_groups.*").
		Joins("JOIN idm_memberships ON idm_memberships.group_id = idm_groups.id").
		Where("idm_memberships.user_id = ?", id).
		Order("idm_groups.id").
		Find(&user.Groups).Error
	if err != nil {
		return nil, fmt.Errorf("fetch groups of user %d: %w", id, err)
	}

	return &user, nil
}

// Package group provides the gorm-backed group and membership store.
package group

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/scopes"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

var (
	// ErrGroupNameEmpty is returned when creating a group without a name.
	ErrGroupNameEmpty = errors.New("group name cannot be empty")
	// ErrExternalIDEmpty is returned when looking up an empty external ID.
	ErrExternalIDEmpty = errors.New("external id cannot be empty")
)

// Store implements idm.GroupStore and idm.CapabilityStore on gorm.
type Store struct {
	db *gorm.DB
}

var (
	_ idm.GroupStore      = (*Store)(nil)
	_ idm.CapabilityStore = (*Store)(nil)
)

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByExternalID returns the only group with the external ID in the tenant.
func (s *Store) FindByExternalID(ctx context.Context, externalID string, tenantID *uint64) (*models.Group, error) {
	groups, err := s.ListByExternalID(ctx, externalID, tenantID)
	if err != nil {
		return nil, err
	}

	switch len(groups) {
	case 0:
		return nil, idm.ErrNotFound
	case 1:
		return &groups[0], nil
	default:
		return nil, fmt.Errorf("%d groups with external id %q: %w", len(groups), externalID, idm.ErrAmbiguousMatch)
	}
}

// ListByExternalID returns every group with the external ID in the tenant, oldest first.
func (s *Store) ListByExternalID(ctx context.Context, externalID string, tenantID *uint64) ([]models.Group, error) {
	if externalID == "" {
		return nil, ErrExternalIDEmpty
	}

	var groups []models.Group
	err := s.db.WithContext(ctx).
		Scopes(scopes.Tenant(tenantID)).
		Where("external_id = ?", externalID).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups by external id %q: %w", externalID, err)
	}

	return groups, nil
}

// FindByName returns every group with the display name in the tenant.
func (s *Store) FindByName(ctx context.Context, name string, tenantID *uint64) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Scopes(scopes.Tenant(tenantID)).
		Where("name = ?", name).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("find groups by name %q: %w", name, err)
	}

	return groups, nil
}

// Create inserts the group. A zero LastUpdate is set to now.
func (s *Store) Create(ctx context.Context, group *models.Group) error {
	if group.Name == "" {
		return ErrGroupNameEmpty
	}
	if group.Type == "" {
		group.Type = models.GroupTypeSystem
	}
	if group.LastUpdate.IsZero() {
		group.LastUpdate = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return fmt.Errorf("create group %q: %w", group.Name, err)
	}

	return nil
}

// Save updates an existing group.
func (s *Store) Save(ctx context.Context, group *models.Group) error {
	if err := s.db.WithContext(ctx).Save(group).Error; err != nil {
		return fmt.Errorf("save group %d: %w", group.ID, err)
	}

	return nil
}

// AddMember adds the user to the group. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, groupID, userID uint64) error {
	membership := models.UserGroup{UserID: userID, GroupID: groupID}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
	if err != nil {
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}

	return nil
}

// RemoveMember removes the user from the group.
func (s *Store) RemoveMember(ctx context.Context, groupID, userID uint64) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Delete(&models.UserGroup{}).Error
	if err != nil {
		return fmt.Errorf("remove user %d from group %d: %w", userID, groupID, err)
	}

	return nil
}

// Delete removes the group with its memberships and capability grants.
func (s *Store) Delete(ctx context.Context, groupID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.UserGroup{}).Error; err != nil {
			return fmt.Errorf("delete memberships of group %d: %w", groupID, err)
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupCapability{}).Error; err != nil {
			return fmt.Errorf("delete capabilities of group %d: %w", groupID, err)
		}

		result := tx.Delete(&models.Group{}, groupID)
		if result.Error != nil {
			return fmt.Errorf("delete group %d: %w", groupID, result.Error)
		}
		if result.RowsAffected == 0 {
			return idm.ErrNotFound
		}

		return nil
	})
}

// ListSystemGroups returns the system groups of the tenant.
func (s *Store) ListSystemGroups(ctx context.Context, tenantID *uint64) ([]models.Group, error) {
	return s.listByType(ctx, models.GroupTypeSystem, tenantID)
}

// ListFunctionalGroups returns the functional groups of the tenant.
func (s *Store) ListFunctionalGroups(ctx context.Context, tenantID *uint64) ([]models.Group, error) {
	return s.listByType(ctx, models.GroupTypeFunctional, tenantID)
}

func (s *Store) listByType(ctx context.Context, groupType models.GroupType, tenantID *uint64) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Scopes(scopes.Tenant(tenantID)).
		Where("type = ?", groupType).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list %s groups: %w", groupType, err)
	}

	return groups, nil
}

// ListCapabilities returns the capability names granted to the group.
func (s *Store) ListCapabilities(ctx context.Context, groupID uint64) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.GroupCapability{}).
		Where("group_id = ?", groupID).
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("list capabilities of group %d: %w", groupID, err)
	}

	return names, nil
}

// GrantCapability grants the capability to the group. Granting twice is a no-op.
func (s *Store) GrantCapability(ctx context.Context, groupID uint64, name string) error {
	grant := models.GroupCapability{GroupID: groupID, Name: name}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grant).Error
	if err != nil {
		return fmt.Errorf("grant %q to group %d: %w", name, groupID, err)
	}

	return nil
}

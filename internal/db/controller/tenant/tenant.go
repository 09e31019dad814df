// Package tenant provides the gorm-backed tenant store.
package tenant

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/controller/setting"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
	"github.com/trodix/keycloak-activiti-app-ext/internal/idm"
)

// Store implements idm.TenantStore on gorm.
type Store struct {
	db *gorm.DB
}

var _ idm.TenantStore = (*Store)(nil)

// New returns a Store backed by db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListAll returns every tenant ordered by ID.
func (s *Store) ListAll(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := s.db.WithContext(ctx).Order("id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	return tenants, nil
}

// FindByName returns every tenant with the name, ordered by ID.
func (s *Store) FindByName(ctx context.Context, name string) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("find tenants by name %q: %w", name, err)
	}

	return tenants, nil
}

// DefaultTenantName reads the default_tenant_name setting.
func (s *Store) DefaultTenantName(ctx context.Context) (string, error) {
	name, err := setting.GetString(ctx, s.db, setting.DefaultTenantName, "")
	if err != nil {
		return "", fmt.Errorf("read default tenant name: %w", err)
	}

	return name, nil
}

// Create inserts a tenant.
func (s *Store) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := s.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return fmt.Errorf("create tenant %q: %w", tenant.Name, err)
	}

	return nil
}

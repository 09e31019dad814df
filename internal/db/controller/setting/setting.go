// Package setting provides CRUD operations for host settings stored in the database.
package setting

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"

	// DefaultTenantName is the setting holding the host's default tenant name.
	DefaultTenantName = "default_tenant_name"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to read or write a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var setting models.Setting
	result := db.WithContext(ctx).Where(nameQueryPattern, name).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, result.Error
	}

	return &setting, nil
}

// GetString returns the setting value as a string, or fallback when the
// setting does not exist.
func GetString(ctx context.Context, db *gorm.DB, name, fallback string) (string, error) {
	setting, err := Get(ctx, db, name)
	if errors.Is(err, ErrSettingNotFound) {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}

	return string(setting.Value), nil
}

// GetAll retrieves all settings from the database.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting
	if err := db.WithContext(ctx).Order("name").Find(&settings).Error; err != nil {
		return nil, err
	}

	return settings, nil
}

// Set creates or updates a setting by name.
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	tx := db.WithContext(ctx)

	var setting models.Setting
	result := tx.Where(nameQueryPattern, name).First(&setting)
	switch {
	case errors.Is(result.Error, gorm.ErrRecordNotFound):
		setting = models.Setting{Name: name, Value: value}
		if err := tx.Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	case result.Error != nil:
		return nil, result.Error
	}

	setting.Value = value
	if err := tx.Save(&setting).Error; err != nil {
		return nil, err
	}

	return &setting, nil
}

// DeleteByName deletes a setting by name.
func DeleteByName(ctx context.Context, db *gorm.DB, name string) error {
	if db == nil {
		return ErrDBNil
	}
	if name == "" {
		return ErrSettingNameEmpty
	}

	result := db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

// Package db opens and migrates the reference identity store.
package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/trodix/keycloak-activiti-app-ext/internal/config"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/dsn"
	"github.com/trodix/keycloak-activiti-app-ext/internal/db/models"
)

// Dialector returns the gorm dialector for the configured engine.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	switch cfg.Engine {
	case "mysql":
		return mysql.Open(dsn.Create(cfg)), nil
	case "postgres":
		return postgres.Open(dsn.Create(cfg)), nil
	case "sqlite", "":
		return sqlite.Open(dsn.Create(cfg)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

// Open connects to the database and migrates every model.
func Open(cfg config.DB, devMode bool) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if devMode {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("connect %s database: %w", cfg.Engine, err)
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

package dbx

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"iaros/itinerary_core/internal/config"
	"iaros/itinerary_core/internal/models"
)

// AutoMigrate runs gorm's schema sync for every struct-backed table,
// then applies the hand-written SQL migrations under migrationsDir
// (PostGIS extension bootstrap, the GIST spatial index, and the
// query-path indexes) — gorm cannot express any of those.
func (d *DB) AutoMigrate(cfg config.Database, migrationsDir string) error {
	if err := d.Gorm.AutoMigrate(models.AllTables()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return d.runSQLMigrations(cfg, migrationsDir)
}

func (d *DB) runSQLMigrations(cfg config.Database, migrationsDir string) error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB for migrate: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("build migrate postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, cfg.Name, driver)
	if err != nil {
		return fmt.Errorf("build migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply sql migrations: %w", err)
	}
	return nil
}

// Package dbx wires the gorm/postgres connection pool the rest of the
// core shares. A single pool is used process-wide, per spec §5's
// shared-resource policy.
package dbx

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"iaros/itinerary_core/internal/config"
)

// DB wraps the gorm handle the core operates against.
type DB struct {
	Gorm *gorm.DB
}

// Connect opens a pooled connection to postgres per cfg, configuring the
// pool bounds and forcing UTC timestamps for every write.
func Connect(cfg config.Database, logger *zap.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
		zap.Int("max_connections", cfg.MaxConnections),
	)

	return &DB{Gorm: gormDB}, nil
}

// ConnectBatch opens a small pool sized for a batch process (min=1,
// max=3 per spec §5), independent of the request-service pool sizing.
func ConnectBatch(cfg config.Database, logger *zap.Logger) (*DB, error) {
	batchCfg := cfg
	batchCfg.MaxConnections = 3
	batchCfg.MaxIdleConnections = 1
	return Connect(batchCfg, logger)
}

// HealthCheck pings the underlying connection.
func (d *DB) HealthCheck() error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close releases the pool.
func (d *DB) Close() error {
	sqlDB, err := d.Gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "github.com/lib/pq"
)

var DB *gorm.DB

// Connect opens the database. DB_DRIVER=postgres goes through lib/pq, anything else uses
// the pgx driver bundled with gorm's postgres dialector.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector := postgres.Open(cfg.DSN())
	if cfg.Driver == "postgres" {
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN(),
		})
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = conn
	logger.Info("Database connected successfully", map[string]interface{}{
		"host":   cfg.Host,
		"name":   cfg.Name,
		"driver": cfg.Driver,
	})
	return conn, nil
}

// AutoMigrate runs database migrations
func AutoMigrate(conn *gorm.DB) error {
	tables := []interface{}{
		&models.Admin{},
		&models.AccessUser{},
		&models.Door{},
		&models.Device{},
		&models.AccessLog{},
	}
	for _, table := range tables {
		if err := conn.AutoMigrate(table); err != nil {
			return fmt.Errorf("migration of %T failed: %w", table, err)
		}
		logger.Debug("Table migrated", map[string]interface{}{"model": fmt.Sprintf("%T", table)})
	}

	logger.Info("All database migrations completed successfully", nil)
	return nil
}

// Ping checks connectivity for the health endpoint.
func Ping(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

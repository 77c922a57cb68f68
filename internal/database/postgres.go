package database

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/cks-portal-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// PingGorm adapts the pool for the health endpoint.
func PingGorm(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Migrate creates or updates the hierarchy and activity tables, then decodes any activity rows
// written without a kind.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Manager{},
		&models.Contractor{},
		&models.Customer{},
		&models.Center{},
		&models.Crew{},
		&models.Warehouse{},
		&models.Order{},
		&models.InventoryItem{},
		&models.SystemActivity{},
		&models.ActivityDismissal{},
	)
	if err != nil {
		return err
	}
	_, err = BackfillActivityKinds(db)
	return err
}

// BackfillActivityKinds stores the decoded kind on rows whose activity_kind is blank.
func BackfillActivityKinds(db *gorm.DB) (int64, error) {
	result := db.Model(&models.SystemActivity{}).
		Where("COALESCE(activity_kind, '') = ''").
		Update("activity_kind", gorm.Expr(models.ActivityKindSQL))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to backfill activity kinds: %w", result.Error)
	}
	return result.RowsAffected, nil
}

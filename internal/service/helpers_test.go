package service

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/cks-portal-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func strPtr(v string) *string {
	return &v
}

func activityAt(id uint, activityType string, target, actor *string, metadata map[string]interface{}, at time.Time) models.SystemActivity {
	return models.SystemActivity{
		ID:           id,
		ActivityType: activityType,
		ActivityKind: models.ClassifyActivityType(activityType),
		TargetID:     target,
		ActorID:      actor,
		Metadata:     metadata,
		CreatedAt:    at,
	}
}

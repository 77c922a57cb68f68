// Package testapp assembles the full HTTP stack on SQLite and miniredis for black-box tests.
package testapp

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/cks-portal-api/internal/config"
	"github.com/noah-isme/cks-portal-api/internal/database"
	"github.com/noah-isme/cks-portal-api/internal/events"
	"github.com/noah-isme/cks-portal-api/internal/handler"
	"github.com/noah-isme/cks-portal-api/internal/middleware"
	"github.com/noah-isme/cks-portal-api/internal/repository"
	"github.com/noah-isme/cks-portal-api/internal/router"
	"github.com/noah-isme/cks-portal-api/internal/service"
)

const (
	// JWTSecret signs every token issued by Token.
	JWTSecret = "integration-secret"
	// SeedToken unlocks the seed endpoint.
	SeedToken = "seed-token"
)

// Stack exposes the assembled app and its backing stores.
type Stack struct {
	App   *fiber.App
	DB    *gorm.DB
	Redis *redis.Client
}

// New builds the application with caching enabled.
func New(t testing.TB) Stack {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	server, err := miniredis.Run()
	require.NoError(t, err)
	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = redisClient.Close()
		server.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zerolog.New(io.Discard)
	cfg := config.Config{
		AppName:           "CKS Portal API",
		AppEnv:            "test",
		JWTSecret:         JWTSecret,
		EcosystemCacheTTL: time.Minute,
		FeedCacheTTL:      time.Minute,
		ClearRateLimit:    100,
		ClearRateWindow:   time.Minute,
		SeedEnabled:       true,
		SeedToken:         SeedToken,
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	generations := service.NewCacheGenerations(redisClient, log)
	broker := events.NewBroker(redisClient, nil, "cks:events", log)

	activityRepo := repository.NewActivityLogRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	ecosystemService := service.NewEcosystemService(repository.NewHierarchyRepository(db), redisClient, generations, cfg.EcosystemCacheTTL, log)
	activityService := service.NewActivityService(activityRepo, validate, broker, generations, log)
	feedService := service.NewActivityFeedService(activityRepo, ecosystemService, redisClient, generations, cfg.FeedCacheTTL, log)
	directoryService := service.NewDirectoryService(directoryRepo, activityService, generations, validate, log)
	seedService := service.NewSeedService(directoryRepo, generations, cfg.SeedEnabled, cfg.SeedToken, log)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})
	router.Register(app, cfg, router.Dependencies{
		HealthChecks: []handler.DependencyCheck{
			{Name: "database", Ping: database.PingGorm(db)},
			{Name: "redis", Ping: database.PingRedis(redisClient)},
		},
		ActivityFeedHandler:   handler.NewActivityFeedHandler(feedService, log),
		EcosystemHandler:      handler.NewEcosystemHandler(ecosystemService, log),
		AdminActivityHandler:  handler.NewAdminActivityHandler(activityService, log),
		AdminDirectoryHandler: handler.NewAdminDirectoryHandler(directoryService, log),
		SeedHandler:           handler.NewSeedHandler(seedService, log),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		ClearLimiter:          middleware.RateLimit("activity-clear", cfg.ClearRateLimit, cfg.ClearRateWindow),
	})

	return Stack{App: app, DB: db, Redis: redisClient}
}

// Token signs a bearer token for the given CKS code and role.
func Token(t testing.TB, code, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": code,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

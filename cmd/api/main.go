package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cks-portal-api/internal/config"
	"github.com/noah-isme/cks-portal-api/internal/database"
	"github.com/noah-isme/cks-portal-api/internal/events"
	"github.com/noah-isme/cks-portal-api/internal/handler"
	"github.com/noah-isme/cks-portal-api/internal/middleware"
	"github.com/noah-isme/cks-portal-api/internal/repository"
	"github.com/noah-isme/cks-portal-api/internal/router"
	"github.com/noah-isme/cks-portal-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, publishing activity events to redis only")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	broker := events.NewBroker(redisClient, natsConn, cfg.EventChannel, logger)
	generations := service.NewCacheGenerations(redisClient, logger)

	hierarchyRepo := repository.NewHierarchyRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	ecosystemService := service.NewEcosystemService(hierarchyRepo, redisClient, generations, cfg.EcosystemCacheTTL, logger)
	activityService := service.NewActivityService(activityRepo, validate, broker, generations, logger)
	feedService := service.NewActivityFeedService(activityRepo, ecosystemService, redisClient, generations, cfg.FeedCacheTTL, logger)
	directoryService := service.NewDirectoryService(directoryRepo, activityService, generations, validate, logger)
	seedService := service.NewSeedService(directoryRepo, generations, cfg.SeedEnabled, cfg.SeedToken, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		HealthChecks: []handler.DependencyCheck{
			{Name: "postgres", Ping: database.PingGorm(db)},
			{Name: "redis", Ping: database.PingRedis(redisClient)},
		},
		ActivityFeedHandler:   handler.NewActivityFeedHandler(feedService, logger),
		EcosystemHandler:      handler.NewEcosystemHandler(ecosystemService, logger),
		AdminActivityHandler:  handler.NewAdminActivityHandler(activityService, logger),
		AdminDirectoryHandler: handler.NewAdminDirectoryHandler(directoryService, logger),
		SeedHandler:           handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:         middleware.JWTProtected(cfg.JWTSecret),
		ClearLimiter:          middleware.RateLimit("activity-clear", cfg.ClearRateLimit, cfg.ClearRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

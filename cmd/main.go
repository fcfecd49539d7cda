package main

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openhealth/shared-backend/internal/clients/anthropic"
	"github.com/openhealth/shared-backend/internal/config"
	"github.com/openhealth/shared-backend/internal/db"
	"github.com/openhealth/shared-backend/internal/handlers"
	"github.com/openhealth/shared-backend/internal/middleware"
	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/repos"
	"github.com/openhealth/shared-backend/internal/server"
	"github.com/openhealth/shared-backend/internal/services"
)

func main() {
	// Config
	cfg, err := config.Load(os.Getenv("OPENHEALTH_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	log.Info("Connecting to Postgres...")
	postgresService, err := db.NewPostgresService(cfg.Database, log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional, audit fan-out only)
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb = goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unreachable, audit events will not be published", "error", err)
			rdb = nil
		}
	}

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	adminUserRepo := repos.NewAdminUserRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	ventureRepo := repos.NewVentureRepo(thePG, log)
	meetingRepo := repos.NewMeetingRepo(thePG, log)
	schemaRepo := repos.NewExtractionSchemaRepo(thePG, log)
	weightsRepo := repos.NewScoringWeightsRepo(thePG, log)
	auditLogRepo := repos.NewAuditLogRepo(thePG, log)

	// Defaults
	if err := services.SeedDefaults(context.Background(), log, schemaRepo, weightsRepo); err != nil {
		log.Fatal("Failed to seed defaults", "error", err)
	}

	// Anthropic client
	if cfg.Anthropic.APIKey == "" {
		log.Fatal("anthropic.api_key is required")
	}
	claudeClient, err := anthropic.NewClient(cfg.Anthropic.APIKey, cfg.Anthropic.RequestTimeout)
	if err != nil {
		log.Fatal("Failed to init Anthropic client", "error", err)
	}

	// Services
	log.Info("Setting up services...")
	auditService := services.NewAuditService(log, auditLogRepo, rdb, cfg.Redis.Channel)
	schemaStore := services.NewSchemaStore(log, schemaRepo, auditService)
	scoringPolicy := services.NewScoringPolicy(log, weightsRepo, auditService)
	aggregator := services.NewAggregator(log, ventureRepo, scoringPolicy)
	extractor := services.NewExtractor(log, claudeClient, cfg.Anthropic.Model, cfg.Anthropic.MaxRetries)
	intentDetector := services.NewMeetingIntentDetector(log, claudeClient, cfg.Anthropic.Model)

	authService := services.NewAuthService(
		thePG, log, userRepo, adminUserRepo, userTokenRepo,
		cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL,
	)
	userService := services.NewUserService(log, userRepo)
	conversationService := services.NewConversationService(log, conversationRepo, messageRepo, auditService)
	ventureService := services.NewVentureService(log, ventureRepo, aggregator, auditService)
	meetingService := services.NewMeetingService(log, meetingRepo)

	orchestrator := services.NewOrchestrator(log, services.OrchestratorDeps{
		Users:       userRepo,
		Convs:       conversationRepo,
		Messages:    messageRepo,
		Meetings:    meetingRepo,
		Ventures:    ventureRepo,
		Schemas:     schemaStore,
		Extract:     extractor,
		Agg:         aggregator,
		Intents:     intentDetector,
		Client:      claudeClient,
		Model:       cfg.Anthropic.Model,
		MaxTokens:   int64(cfg.Anthropic.MaxTokens),
		Temperature: cfg.Anthropic.Temperature,
	})

	// Handlers
	log.Info("Setting up handlers...")
	healthHandler := handlers.NewHealthHandler(postgresService)
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(orchestrator)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	ventureHandler := handlers.NewVentureHandler(ventureService)
	meetingHandler := handlers.NewMeetingHandler(meetingService)
	adminHandler := handlers.NewAdminHandler(ventureService, conversationService, schemaStore, scoringPolicy, auditLogRepo)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)
	rateLimiter := middleware.NewRateLimitMiddleware(log, cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	// Router
	log.Info("Setting up router...")
	router := server.NewRouter(server.RouterConfig{
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		AuthMiddleware:      authMiddleware,
		RateLimiter:         rateLimiter,
		HealthHandler:       healthHandler,
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		ChatHandler:         chatHandler,
		ConversationHandler: conversationHandler,
		VentureHandler:      ventureHandler,
		MeetingHandler:      meetingHandler,
		AdminHandler:        adminHandler,
	})

	log.Info("Starting server", "port", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

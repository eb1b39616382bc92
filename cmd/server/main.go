package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/perchnet/user-service/configs"
	"github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/core/ports"
	"github.com/perchnet/user-service/internal/infrastructure/db"
	"github.com/perchnet/user-service/internal/infrastructure/health"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver"
	"github.com/perchnet/user-service/internal/infrastructure/kafka"
	"github.com/perchnet/user-service/internal/infrastructure/media"
	"github.com/perchnet/user-service/internal/infrastructure/postclient"
	infraRedis "github.com/perchnet/user-service/internal/infrastructure/redis"
	"github.com/perchnet/user-service/internal/infrastructure/repositories"
	"github.com/perchnet/user-service/internal/infrastructure/ws"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting user service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := infraRedis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	store := infraRedis.NewStore(redisClient, logger)

	// Repositories
	userRepo := repositories.NewUserRepository(database.DB, logger)
	followRepo := repositories.NewFollowRepository(database.DB, logger)
	chatRepo := repositories.NewChatRepository(database.DB, logger)
	messageRepo := repositories.NewMessageRepository(database.DB, logger)

	// External collaborators
	posts := postclient.NewClient(cfg.PostService.BaseURL, cfg.PostService.Timeout, logger)
	mediaResolver := media.NewResolver(cfg.Server.PublicURL)

	// Kafka producer for domain events
	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka producer:", err)
	}
	defer publisher.Close()

	// Caching layer over the shared store
	cacheService := services.NewCacheService(store, &services.CacheServiceConfig{
		EntryTTL:         cfg.Cache.EntryTTL,
		LockTTL:          cfg.Cache.LockTTL,
		LockRetryBackoff: cfg.Cache.LockRetryBackoff,
		LockMaxAttempts:  cfg.Cache.LockMaxAttempts,
	}, logger)

	rateLimiter := services.NewRateLimitService(store, &services.RateLimitServiceConfig{
		ReadLimit:   cfg.RateLimit.ReadLimit,
		ReadWindow:  cfg.RateLimit.ReadWindow,
		WriteLimit:  cfg.RateLimit.WriteLimit,
		WriteWindow: cfg.RateLimit.WriteWindow,
		LoginLimit:  cfg.RateLimit.LoginLimit,
		LoginWindow: cfg.RateLimit.LoginWindow,
		KeyPrefix:   cfg.RateLimit.KeyPrefix,
	}, logger)

	// Websocket hub, presence tracking and realtime relay
	hub := ws.NewHub(logger)
	presence := services.NewPresenceService(store, hub, logger)
	relay := services.NewMessageRelay(store, hub, logger)

	// Application services
	userService := services.NewUserProfileService(userRepo, followRepo, posts, mediaResolver, cacheService, publisher, logger)
	authService := services.NewTokenAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, logger)
	followService := services.NewFollowGraphService(followRepo, userRepo, publisher, logger)
	chatService := services.NewChatMessagingService(chatRepo, messageRepo, userRepo, relay, publisher, logger)

	// Cache-maintenance consumer group
	invalidation := services.NewInvalidationService(cacheService, followRepo, posts, mediaResolver, logger)
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, invalidation, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka consumer:", err)
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	go func() {
		if err := consumer.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.WithError(err).Error("Kafka consumer stopped")
		}
	}()
	go func() {
		if err := relay.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.WithError(err).Error("Realtime relay stopped")
		}
	}()

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	deps := httpserver.ServerDeps{
		UserService:    userService,
		AuthService:    authService,
		FollowService:  followService,
		ChatService:    chatService,
		RateLimiter:    rateLimiter,
		Presence:       presence,
		Hub:            hub,
		HealthCheckers: hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cancelRun()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

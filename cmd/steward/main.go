package main

import (
	"context"
	"strings"

	"frameworks/api_licensing/internal/handlers"
	"frameworks/api_licensing/internal/registry"
	"frameworks/api_licensing/pkg/auth"
	"frameworks/api_licensing/pkg/config"
	"frameworks/api_licensing/pkg/database"
	"frameworks/api_licensing/pkg/kafka"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/monitoring"
	"frameworks/api_licensing/pkg/redis"
	"frameworks/api_licensing/pkg/server"
	"frameworks/api_licensing/pkg/version"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("steward")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Steward (Licensing API)")

	dbURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := config.RequireEnv("JWT_SECRET")
	serviceToken := config.RequireEnv("SERVICE_TOKEN")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	// Apply embedded schema and static seeds, every statement is idempotent
	if err := database.ApplySchema(context.Background(), db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("steward", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("steward", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": dbURL,
		"JWT_SECRET":   jwtSecret,
	}))

	// Create custom licensing metrics
	metrics := &handlers.StewardMetrics{
		Resolutions:     metricsCollector.NewCounter("feature_resolutions_total", "Feature set resolutions", []string{"outcome"}),
		ResolutionTime:  metricsCollector.NewHistogram("feature_resolution_duration_seconds", "Feature set resolution latency", []string{"outcome"}, nil),
		CacheEvents:     metricsCollector.NewCounter("feature_cache_events_total", "Feature cache events", []string{"event"}),
		Decisions:       metricsCollector.NewCounter("authorization_decisions_total", "Authorization decisions", []string{"surface", "outcome"}),
		Transactions:    metricsCollector.NewCounter("license_transactions_total", "License ledger transactions", []string{"type", "status"}),
		ReplenishEvents: metricsCollector.NewCounter("credit_replenish_events_total", "Billing replenish events", []string{"result"}),
		PoolSeats:       metricsCollector.NewGauge("license_pool_seats", "License pool seat counts", []string{"tenant_id", "tier_id", "state"}),
	}

	// Create database metrics
	metrics.DBQueries, metrics.DBDuration, metrics.DBConnections = metricsCollector.CreateDatabaseMetrics()

	// Kafka producer for license events, optional
	var producer *kafka.KafkaProducer
	if brokers := config.GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		clusterID := config.GetEnv("KAFKA_CLUSTER_ID", "local")
		clientID := config.GetEnv("KAFKA_CLIENT_ID", "steward")
		p, err := kafka.NewKafkaProducer(strings.Split(brokers, ","), clusterID, clientID, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to create Kafka producer, license events disabled")
		} else {
			producer = p
			defer producer.Close()
			healthChecker.AddCheck("kafka_producer", monitoring.KafkaProducerHealthCheck(producer.GetClient()))
		}
	}

	// Redis for cross-instance cache invalidation, optional
	var redisClient goredis.UniversalClient
	if addr := config.GetEnv("REDIS_ADDR", ""); addr != "" {
		client, err := redis.NewUniversalClient(context.Background(), redis.Config{
			Addrs:      strings.Split(addr, ","),
			MasterName: config.GetEnv("REDIS_MASTER_NAME", ""),
			Password:   config.GetEnv("REDIS_PASSWORD", ""),
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis, cache invalidation fan-out disabled")
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	// Initialize handlers
	handlers.Init(db, logger, metrics, handlers.NewEventPublisher(producer, redisClient, logger))

	// Seed the feature catalogue so resolution never runs against an empty registry
	if _, err := registry.NewStore(db, logger).SeedDefaults(context.Background()); err != nil {
		logger.WithError(err).Warn("Feature catalogue seeding failed")
	}

	// Initialize and start JobManager for background licensing tasks
	jobManager := handlers.NewJobManager(db, logger, producer)
	if consumer := jobManager.Consumer(); consumer != nil {
		healthChecker.AddCheck("kafka_consumer", monitoring.KafkaConsumerHealthCheck(consumer.GetClient()))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobManager.Start(ctx)
	defer jobManager.Stop()

	logger.Info("JobManager started - background licensing jobs active")

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "steward", healthChecker, metricsCollector)

	// API routes (root level - nginx adds /api/licensing/ prefix)
	{
		// Authenticated user endpoints
		protected := router.Group("")
		protected.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
		protected.Use(handlers.FeatureGate())
		{
			protected.GET("/features", handlers.GetFeatures)
			protected.GET("/features/check/:key", handlers.CheckFeature)
			protected.GET("/features/models", handlers.GetEnabledModels)
			protected.GET("/features/components", handlers.GetEnabledComponents)
			protected.GET("/credits/status", handlers.GetCreditStatus)
		}

		// Admin endpoints; role checks happen in the handlers
		admin := router.Group("/admin")
		admin.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
		{
			admin.GET("/features/registry", handlers.GetFeatureRegistry)
			admin.GET("/tiers", handlers.GetTiers)
			admin.POST("/tiers", handlers.CreateTier)
			admin.GET("/tiers/:id", handlers.GetTier)
			admin.PATCH("/tiers/:id", handlers.UpdateTier)
			admin.GET("/tiers/:id/features", handlers.GetTierFeatures)
			admin.PUT("/tiers/:id/features", handlers.SetTierFeatures)
			admin.GET("/tenants/:tenant_id/pools", handlers.GetTenantPools)
			admin.POST("/tenants/:tenant_id/pools", handlers.CreateOrResizePool)
			admin.POST("/licenses/assign", handlers.AssignLicense)
			admin.POST("/licenses/unassign/:user_id", handlers.UnassignLicense)
			admin.POST("/licenses/upgrade", handlers.UpgradeLicense)
			admin.POST("/credits/grant", handlers.GrantCredits)
			admin.POST("/credits/refund", handlers.RefundCredits)
		}

		// Service-to-service endpoints
		serviceAPI := router.Group("/service")
		serviceAPI.Use(auth.ServiceAuthMiddleware(serviceToken))
		{
			serviceAPI.POST("/credits/debit", handlers.DebitCredits)
			serviceAPI.POST("/credits/replenish", handlers.ReplenishCredits)
			serviceAPI.POST("/authorize", handlers.Authorize)
			serviceAPI.POST("/licenses/assign-default", handlers.AssignDefaultLicense)
		}
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("steward", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}

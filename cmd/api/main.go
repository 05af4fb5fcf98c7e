package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/application"
	mongoRepo "github.com/akshayrajeevnambiar/Pantrypal/internal/infrastructure/mongodb"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/auth"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/kafka"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/metrics"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/middleware"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/outbox"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/resilience"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/tracing"
)

const serviceName = "pantrypal-api"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logConfig.Environment = getEnv("ENVIRONMENT", "development")
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pantrypal API")

	config := loadConfig()
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = logConfig.Environment
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Instrumented Mongo client bounds every storage call with the operation
	// timeout and records metrics and spans per operation
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)

	// Kafka producer
	producer := kafka.NewProducer(config.Kafka)
	defer producer.Close()
	instrumentedProducer := kafka.NewInstrumentedProducer(producer, logger)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Repositories
	countRepo := mongoRepo.NewCountRepository(instrumentedMongo)
	itemRepo := mongoRepo.NewItemRepository(instrumentedMongo)
	userRepo := mongoRepo.NewUserRepository(instrumentedMongo)

	// Circuit breakers
	breakers := resilience.NewCircuitBreakerRegistry(logger)
	kafkaBreakerConfig := resilience.DefaultCircuitBreakerConfig("kafka-publisher")
	kafkaBreakerConfig.OnStateChange = func(name string, state int) {
		m.SetCircuitBreakerState(name, state)
		if state == 2 {
			m.RecordCircuitBreakerTrip(name)
		}
	}

	// Outbox publisher relays committed events to Kafka
	outboxPublisher := outbox.NewPublisher(
		countRepo.OutboxRepository(),
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
			Breaker:      breakers.GetWithConfig(kafkaBreakerConfig),
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Application services
	tokenIssuer := auth.NewTokenIssuer(config.JWTSecret, config.TokenTTL)
	countService := application.NewCountApplicationService(countRepo, itemRepo, userRepo, logger, m)
	itemService := application.NewItemApplicationService(itemRepo, countRepo, logger)
	authService := application.NewAuthApplicationService(userRepo, tokenIssuer, logger)
	dashService := application.NewDashboardApplicationService(countService, itemRepo, logger)

	// Router
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return instrumentedMongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))
	router.GET("/debug/breakers", func(c *gin.Context) {
		c.JSON(http.StatusOK, breakers.Status())
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", loginHandler(authService, logger))

		authed := v1.Group("")
		authed.Use(middleware.RequireAuth(tokenIssuer))
		{
			counts := authed.Group("/counts")
			{
				counts.POST("/submit", submitCountHandler(countService, logger))
				counts.POST("/submit-batch", submitBatchHandler(countService, logger))
				counts.GET("", listCountsHandler(countService, logger))
				counts.GET("/pending", listPendingHandler(countService, logger))
				counts.GET("/:id", getCountHandler(countService, logger))
				counts.POST("/:id/approve", approveCountHandler(countService, logger))
				counts.POST("/:id/reject", rejectCountHandler(countService, logger))
			}

			items := authed.Group("/items")
			{
				items.POST("", createItemHandler(itemService, logger))
				items.GET("", listItemsHandler(itemService, logger))
				items.GET("/:id", getItemHandler(itemService, logger))
				items.PATCH("/:id", updateItemHandler(itemService, logger))
				items.DELETE("/:id", deleteItemHandler(itemService, logger))
			}

			dash := authed.Group("/dash")
			{
				dash.GET("/pending-approvals", pendingApprovalsHandler(dashService, logger))
				dash.GET("/low-stock", lowStockHandler(dashService, logger))
				dash.GET("/my-submissions", mySubmissionsHandler(dashService, logger))
			}
		}
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	JWTSecret  string
	TokenTTL   time.Duration
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	tokenTTL := auth.DefaultTokenTTL
	if ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "1h")); err == nil {
		tokenTTL = ttl
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:   tokenTTL,
		MongoDB: &mongodb.Config{
			URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:         getEnv("MONGODB_DATABASE", "pantrypal"),
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
			MaxPoolSize:      100,
			MinPoolSize:      10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

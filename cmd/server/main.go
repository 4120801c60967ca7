package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/dealpulse/ma-health-go/internal/api"
	"github.com/dealpulse/ma-health-go/internal/api/handlers"
	"github.com/dealpulse/ma-health-go/internal/cache"
	"github.com/dealpulse/ma-health-go/internal/config"
	"github.com/dealpulse/ma-health-go/internal/database"
	"github.com/dealpulse/ma-health-go/internal/logging"
	"github.com/dealpulse/ma-health-go/internal/services"
	"github.com/dealpulse/ma-health-go/internal/telemetry"
)

func main() {
	// Local development may carry credentials in a .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	pipelineLogger := logging.NewPipelineLogger(cfg.LogLevel)

	// Initialize telemetry
	tel, err := telemetry.Init(cfg.Telemetry.Enabled, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			stdLogger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	// Storage is optional: without it the API serves inline series only
	var (
		db    *database.PostgresDB
		store *database.SeriesStore
	)
	db, err = database.NewPostgresConnection(cfg.Database)
	if err != nil {
		stdLogger.WithError(err).Warn("PostgreSQL unavailable, serving inline series only")
		db = nil
	} else {
		defer db.Close()
		store = database.NewSeriesStore(db.Pool)
	}

	var (
		redis         *database.RedisClient
		forecastCache *cache.RedisForecastCache
	)
	redis, err = database.NewRedisConnection(cfg.Redis)
	if err != nil {
		stdLogger.WithError(err).Warn("Redis unavailable, forecast caching disabled")
		redis = nil
	} else {
		defer redis.Close()
		forecastCache = cache.NewRedisForecastCache(redis.Client, redis.TTL, pipelineLogger)
	}

	narrative := services.NewNarrativeService(cfg.Narrative, pipelineLogger)
	notifier := services.NewRegimeNotifier(cfg.Telegram, pipelineLogger)

	var loader services.SeriesLoader
	var sink services.ForecastSink
	var lister handlers.IndicatorLister
	if store != nil {
		loader = store
		sink = store
		lister = store
	}
	forecastService := services.NewForecastService(cfg, loader, sink, forecastCache, narrative, notifier, pipelineLogger)
	forecastHandler := handlers.NewForecastHandler(forecastService, lister, pipelineLogger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(api.RequestLogger(stdLogger))
	api.SetupRoutes(router, db, redis, forecastHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		stdLogger.LogStartup(telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdLogger.LogShutdown(telemetry.ServiceName, "signal")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	stdLogger.Logger().Info("Server exited")
}

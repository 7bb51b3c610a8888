// Package main provides the API server entry point for the property portfolio service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/property-portfolio/internal/api"
	"github.com/property-portfolio/internal/config"
	"github.com/property-portfolio/internal/logging"
	"github.com/property-portfolio/internal/service"
	"github.com/property-portfolio/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.Security.Debug {
		logger.Warn("DEBUG is enabled; do not run this configuration in production")
	}

	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	throttle, closeThrottle := newThrottle(cfg, logger)
	defer closeThrottle()

	// Initialize repositories
	portfolioRepo := storage.NewPortfolioRepository(postgres)
	propertyRepo := storage.NewPropertyRepository(postgres)

	// Initialize services
	portfolioService := service.NewPortfolioService(portfolioRepo)
	propertyService := service.NewPropertyService(propertyRepo, portfolioRepo)

	server := api.NewServer(cfg, portfolioService, propertyService, postgres, throttle, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// newThrottle builds the configured request throttle. The returned func
// releases its resources.
func newThrottle(cfg *config.Config, logger *logging.Logger) (api.Throttle, func()) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		logger.Info("Request throttling disabled")
		return nil, func() {}
	}

	switch rl.Backend {
	case config.RateLimitBackendRedis:
		client, err := storage.NewRedisClient(&cfg.Database.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}

		limit := max(rl.Burst, int(rl.RequestsPerSecond*rl.Window.Seconds()+0.999))
		throttle, err := api.NewRedisRateLimiter(client, limit, rl.Window)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Redis throttle")
		}

		logger.WithFields(map[string]interface{}{
			"limit":  limit,
			"window": rl.Window.String(),
		}).Info("Redis request throttling enabled")

		return throttle, func() {
			if err := client.Close(); err != nil {
				logger.WithError(err).Warn("Error closing Redis connection")
			}
		}

	default:
		logger.WithFields(map[string]interface{}{
			"rps":   rl.RequestsPerSecond,
			"burst": rl.Burst,
		}).Info("In-memory request throttling enabled")
		return api.NewRateLimiter(rl.RequestsPerSecond, rl.Burst), func() {}
	}
}

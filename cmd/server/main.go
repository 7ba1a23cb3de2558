package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kosarica/import-wizard/config"
	"github.com/kosarica/import-wizard/internal/handlers"
	"github.com/kosarica/import-wizard/internal/middleware"
	"github.com/kosarica/import-wizard/internal/sandbox"
	"github.com/kosarica/import-wizard/internal/storage"
	"github.com/kosarica/import-wizard/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting import sandbox")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		Component:      "server",
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	store, err := storage.NewLocalStorage(cfg.Sandbox.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Sandbox.StoragePath).Msg("Failed to open storage")
	}
	logger.Info().Str("path", store.BasePath()).Msg("Storage ready")

	issuer, err := sandbox.NewIssuer(sandbox.IssuerConfig{
		Secret:     cfg.Sandbox.TokenSecret,
		AccessTTL:  cfg.Sandbox.AccessTTL,
		RefreshTTL: cfg.Sandbox.RefreshTTL,
		Users:      cfg.Sandbox.Users,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token issuer")
	}
	imports := sandbox.NewImports(store, time.Now, logger)

	limiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.Sandbox.RequestsPerSecond,
		BurstSize:         cfg.Sandbox.Burst,
	})
	go limiter.Run(ctx)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.NewAPI(issuer, imports, logger), limiter, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}

	logger.Info().Msg("Server exited")
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "import-wizard-sandbox").Logger()
	return &logger
}

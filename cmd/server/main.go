package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/internal/app"
	"github.com/pilab-dev/reviewdesk/internal/server"
	"github.com/pilab-dev/reviewdesk/log"
	"github.com/pilab-dev/reviewdesk/tracing"
	"github.com/rs/zerolog"
)

func main() {
	cfgFile := flag.String("config", "", "path to the config file")
	flag.Parse()

	// Load configuration first
	cfg, err := config.LoadConfig(*cfgFile)
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		zerolog.New(os.Stdout).With().Timestamp().Logger().Warn().
			Str("configured_log_level", cfg.LogLevel).
			Str("fallback_log_level", logLevel.String()).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	if logLevel > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)
	appLogger.Info(context.Background(), "Starting reviewdesk server...", map[string]interface{}{
		"http_addr":       cfg.HTTPAddr,
		"storage_backend": cfg.StorageBackend,
		"cache_backend":   cfg.CacheBackend,
		"llm_provider":    cfg.LLM.Provider,
		"otel_service":    cfg.OtelServiceName,
		"otel_exporter":   cfg.OtelExporter,
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName, cfg.OtelExporter, os.Stdout)
	if err != nil {
		appLogger.Fatal(context.Background(), "Failed to initialize TracerProvider", err, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancelInit := context.WithTimeout(ctx, 30*time.Second)
	application, err := app.New(initCtx, cfg, appLogger)
	cancelInit()
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize application", err, nil)
	}

	httpServer := server.NewHTTPServer(cfg, appLogger, application.Handlers())
	go func() {
		appLogger.Info(context.Background(), fmt.Sprintf("HTTP server listening on %s", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", err, nil)
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Shutdown signal received. Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err, nil)
	}

	if err := application.Close(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Error releasing resources", err, nil)
	}

	tracing.Shutdown(shutdownCtx, tp)

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}

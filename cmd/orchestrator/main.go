// StudyMate orchestrator server: routes learners to their next module,
// monitors downstream services, and serves the decision audit API.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/studymate/orchestrator/pkg/api"
	"github.com/studymate/orchestrator/pkg/breaker"
	"github.com/studymate/orchestrator/pkg/config"
	"github.com/studymate/orchestrator/pkg/database"
	"github.com/studymate/orchestrator/pkg/engine"
	"github.com/studymate/orchestrator/pkg/evaluator"
	"github.com/studymate/orchestrator/pkg/llm"
	"github.com/studymate/orchestrator/pkg/metrics"
	"github.com/studymate/orchestrator/pkg/registry"
	"github.com/studymate/orchestrator/pkg/state"
	"github.com/studymate/orchestrator/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"error", err)
	}

	httpPort := getEnv("HTTP_PORT", "8011")

	slog.Info("Starting orchestrator",
		"version", version.Full(),
		"http_port", httpPort)

	ctx := context.Background()

	// 1. Configuration
	cfg := config.Load()
	slog.Info("Configuration loaded",
		"modules", cfg.Modules.Len(),
		"auth_enabled", cfg.Auth.Enabled())

	// 2. Core components
	breakers := breaker.NewRegistry(
		cfg.Engine.CBFailureThreshold,
		cfg.Engine.CBRecoveryTimeout,
		cfg.Engine.CBHalfOpenMax)
	reg := registry.New(cfg.Modules, breakers)
	collector := metrics.NewCollector(cfg.Engine.MetricsBufferSize)
	llmClient := llm.NewClient(cfg.LLM)
	eng := engine.New(cfg.Engine, cfg.Modules)

	// 3. HTTP server
	httpServer := api.NewServer(cfg, eng, reg, breakers, collector, llmClient)

	// 4. Database. A failed connection is not fatal: the server starts in
	// degraded mode and routes every user to the fallback module until the
	// database comes back and the process is restarted.
	dbConfig := database.LoadConfigFromEnv()
	dbClient, err := database.Connect(ctx, dbConfig)
	if err != nil {
		slog.Warn("Database unavailable, starting in degraded mode", "error", err)
	} else {
		defer func() {
			if err := dbClient.Close(); err != nil {
				slog.Error("Error closing database client", "error", err)
			}
		}()
		stateManager := state.NewManager(dbClient.DB())
		evalService := evaluator.NewService(dbClient.DB(), llmClient, collector)
		httpServer.SetDatabase(dbClient, stateManager, evalService)
	}

	// 5. Background health monitor
	monitor := registry.NewMonitor(reg, cfg.Engine.HealthCheckInterval, cfg.Engine.HealthProbeTimeout)
	monitor.Start(ctx)
	defer monitor.Stop()
	httpServer.SetMonitor(monitor)

	// 6. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + httpPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Orchestrator started successfully",
		"degraded", dbClient == nil)

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

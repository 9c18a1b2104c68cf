// dialogreplay server: records dialog pipeline conversations as scenarios and
// replays them against the live pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/dialogreplay/pkg/api"
	"github.com/codeready-toolchain/dialogreplay/pkg/cleanup"
	"github.com/codeready-toolchain/dialogreplay/pkg/config"
	"github.com/codeready-toolchain/dialogreplay/pkg/database"
	"github.com/codeready-toolchain/dialogreplay/pkg/events"
	"github.com/codeready-toolchain/dialogreplay/pkg/masking"
	"github.com/codeready-toolchain/dialogreplay/pkg/metrics"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
	"github.com/codeready-toolchain/dialogreplay/pkg/slack"
	"github.com/codeready-toolchain/dialogreplay/pkg/store"
	"github.com/codeready-toolchain/dialogreplay/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting dialogreplay",
		"version", version.GitCommit,
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Stores and pipeline bridge
	fixtures, err := store.NewFixtureStore(dbClient.DB(), cfg.Bot.ID)
	if err != nil {
		slog.Error("Failed to initialize fixture store", "error", err)
		os.Exit(1)
	}
	eventLog := store.NewEventLog(dbClient.DB())
	publisher := events.NewInjectPublisher(dbClient.DB())

	// 4. Observers
	m := metrics.New()
	observers := services.Observers{m}
	slackService := slack.NewService(slack.ServiceConfig{
		Token:        cfg.Slack.Token,
		Channel:      cfg.Slack.Channel,
		DashboardURL: cfg.Slack.DashboardURL,
	})
	if slackService != nil {
		observers = append(observers, slackService)
		defer slackService.Close()
		slog.Info("Slack notifications enabled", "channel", cfg.Slack.Channel)
	}

	// 5. Testing facade
	warningsService := services.NewSystemWarningsService()
	testingService := services.NewTestingService(services.TestingConfig{
		BotID:         cfg.Bot.ID,
		Channel:       cfg.Bot.Channel,
		Language:      cfg.Bot.DefaultLanguage,
		CaptureEvents: cfg.EventLog.Capture,
		Runner:        cfg.RunnerConfig(),
		VolatilePaths: cfg.Recording.VolatileStatePaths,
	}, services.TestingDeps{
		Fixtures: fixtures,
		Events:   eventLog,
		Resolver: store.NewIdentityMapper(dbClient.DB(), cfg.Bot.Channel),
		Previews: store.NewContentPreviews(dbClient.DB()),
		Pipeline: publisher,
		Observer: observers,
		Warnings: warningsService,
		Masker:   masking.NewService(cfg.Recording.Masking),
	})
	defer testingService.Close()
	slog.Info("Testing service initialized",
		"bot_id", cfg.Bot.ID,
		"channel", cfg.Bot.Channel,
		"event_capture", cfg.EventLog.Capture)

	// 6. Retention
	cleanupService := cleanup.NewService(cfg.Retention, eventLog)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	// 7. HTTP server (non-blocking)
	httpServer := api.NewServer(testingService,
		api.WithHealthChecker(dbClient),
		api.WithWarnings(warningsService),
		api.WithMetrics(m.Handler()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(":" + httpPort); err != nil {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("dialogreplay started successfully")

	// 8. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 9. Graceful shutdown: stop accepting hooks before abandoning runs
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

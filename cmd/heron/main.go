// Heron - AML customer risk and audit readiness scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/heron/internal/api"
	"github.com/opensource-finance/heron/internal/assessment"
	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/metrics"
	"github.com/opensource-finance/heron/internal/repository"
	"github.com/opensource-finance/heron/internal/rules"
	"github.com/opensource-finance/heron/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("HERON_TIER") == "pro" {
		cfg = domain.ProConfig()
	}
	applyEnv(cfg, os.Getenv)

	slog.SetDefault(newLogger(cfg.Logging))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("starting heron",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"metrics", cfg.Metrics.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize escalation rule engine
	engine, err := rules.NewEngine(cfg.Scoring.RuleWorkers)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	svc := assessment.NewService(cfg.Scoring, repo, cacheImpl, busImpl, engine, assessment.WithMetrics(m))

	// Seed built-in escalation rules for the configured tenants; other
	// tenants load theirs on first use.
	tenantIDs := splitList(os.Getenv("HERON_TENANTS"))
	for _, tenantID := range tenantIDs {
		seeded, err := svc.SeedDefaultRules(ctx, tenantID)
		if err != nil {
			slog.Error("failed to seed escalation rules", "tenant_id", tenantID, "error", err)
			continue
		}
		slog.Info("escalation rules ready",
			"tenant_id", tenantID,
			"seeded", seeded,
			"rules_count", engine.RulesCount(tenantID),
		)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("HERON_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, svc)

		if err := asyncWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Deps{
		Service:        svc,
		Repository:     repo,
		Cache:          cacheImpl,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		DefaultWeights: cfg.Scoring.DefaultWeights,
		Version:        Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("heron is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("heron shutdown complete")
}

// applyEnv overrides configuration from HERON_* environment variables.
func applyEnv(cfg *domain.Config, getenv func(string) string) {
	if getenv("HERON_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}
	if v := getenv("HERON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := getenv("HERON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := getenv("HERON_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := getenv("HERON_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := getenv("HERON_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := getenv("HERON_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := getenv("HERON_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := getenv("HERON_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := getenv("HERON_NATS_QUEUE"); v != "" {
		cfg.EventBus.NATSQueue = v
	}
	if v := getenv("HERON_CORS_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if getenv("HERON_METRICS") == "false" {
		cfg.Metrics.Enabled = false
	}
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  HERON")
	fmt.Println("  AML customer risk and audit readiness scoring")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /risk/calculate             - Score a customer (stateless)")
	fmt.Println("    POST /customers/{id}/risk        - Assess and store a customer")
	fmt.Println("    GET  /customers/{id}/risk        - Latest customer assessment")
	fmt.Println("    POST /audit/calculate            - Score audit readiness (stateless)")
	fmt.Println("    POST /audit/score                - Score and store audit readiness")
	fmt.Println("    GET  /settings/risk              - Tenant weights and overrides")
	fmt.Println("    GET  /reference/countries/{code} - Country risk lookup")
	fmt.Println("    GET  /escalation-rules           - List escalation rules")
	fmt.Println("    POST /escalation-rules/reload    - Hot-reload escalation rules")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Printf("    GET  %-28s - Prometheus metrics\n", cfg.Metrics.Path)
	fmt.Println()
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicdesk-ai/clinicdesk/internal/api/router"
	"github.com/clinicdesk-ai/clinicdesk/internal/audit"
	appconfig "github.com/clinicdesk-ai/clinicdesk/internal/config"
	"github.com/clinicdesk-ai/clinicdesk/internal/http/handlers"
	"github.com/clinicdesk-ai/clinicdesk/internal/observability/metrics"
	"github.com/clinicdesk-ai/clinicdesk/internal/openemr"
	"github.com/clinicdesk-ai/clinicdesk/internal/scheduling"
	"github.com/clinicdesk-ai/clinicdesk/pkg/logging"
)

func main() {
	// Load .env in development; in deployment the environment is set by the
	// orchestrator and the file is absent.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinicdesk scheduling API",
		"env", cfg.Env,
		"port", cfg.Port,
		"openemr_base_url", cfg.OpenEMRBaseURL,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	clientMetrics := metrics.NewClientMetrics(registry)
	engineMetrics := metrics.NewEngineMetrics(registry)

	emrClient, err := openemr.New(openemr.Config{
		BaseURL:      cfg.OpenEMRBaseURL,
		ClientID:     cfg.OpenEMRClientID,
		ClientSecret: cfg.OpenEMRClientSecret,
		Username:     cfg.OpenEMRUsername,
		Password:     cfg.OpenEMRPassword,
		Scopes:       cfg.OpenEMRScopes,
		Timeout:      cfg.OpenEMRTimeout,
		Logger:       logger.With("component", "openemr"),
		Metrics:      clientMetrics,
	})
	if err != nil {
		logger.Error("failed to configure OpenEMR client", "error", err)
		os.Exit(1)
	}

	var auditStore audit.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to audit database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		auditStore = audit.NewPostgresStore(pool)
		logger.Info("audit trail persistence enabled")
	} else {
		logger.Info("DATABASE_URL not set, audit trail is log-only")
	}
	auditor := audit.NewRecorder(auditStore, logger.With("component", "audit"))

	service := scheduling.NewService(scheduling.ServiceConfig{
		API:     emrClient,
		Logger:  logger.With("component", "scheduling"),
		Metrics: engineMetrics,
		Auditor: auditor,
	})

	if cfg.ToolAuthSecret == "" {
		logger.Warn("TOOL_AUTH_SECRET not set, tool endpoints will refuse all requests")
	}

	r := router.New(&router.Config{
		Logger:           logger,
		FindAppointments: handlers.NewFindAppointmentsHandler(service, logger.With("component", "handlers")),
		ToolAuthSecret:   cfg.ToolAuthSecret,
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

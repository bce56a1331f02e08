// Package main is the entry point for the GiveWidget API server.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/database"
	"github.com/givewidget/givewidget/internal/handler"
	"github.com/givewidget/givewidget/internal/mailer"
	"github.com/givewidget/givewidget/internal/middleware"
	"github.com/givewidget/givewidget/internal/repository"
	"github.com/givewidget/givewidget/internal/service"
)

func main() {
	// Setup structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Starting GiveWidget API",
		slog.String("environment", cfg.Server.Environment),
		slog.Int("port", cfg.Server.Port),
	)

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	// Connect to Redis
	redis, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Repositories
	pool := db.Pool()
	campaignRepo := repository.NewCampaignRepository(pool)
	donationRepo := repository.NewDonationRepository(pool)
	orgRepo := repository.NewOrgRepository(pool)
	licenseRepo := repository.NewLicenseRepository(pool)
	promoRepo := repository.NewPromoRepository(pool)
	emailLogRepo := repository.NewEmailLogRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	eventRepo := repository.NewWebhookEventRepository(pool)

	// Services
	mail := mailer.New(cfg.Email, logger)
	campaigns := service.NewCampaignService(campaignRepo, donationRepo)
	licenses := service.NewLicenseService(licenseRepo, orgRepo, logger)
	checkout := service.NewCheckoutService(campaignRepo, donationRepo, licenseRepo, promoRepo, settingsRepo, cfg, logger)
	webhooks := service.NewWebhookService(orgRepo, licenseRepo, donationRepo, emailLogRepo, eventRepo, licenses, mail, cfg, logger)
	reminders := service.NewReminderService(licenseRepo, orgRepo, emailLogRepo, settingsRepo, mail, logger)
	connect := service.NewConnectService(orgRepo, licenseRepo, cfg, logger)

	// Handlers
	campaignHandler := handler.NewCampaignHandler(campaigns)
	donationHandler := handler.NewDonationHandler(campaigns)
	checkoutHandler := handler.NewCheckoutHandler(checkout)
	licenseHandler := handler.NewLicenseHandler(licenses)
	webhookHandler := handler.NewWebhookHandler(webhooks)
	connectHandler := handler.NewConnectHandler(connect)
	cronHandler := handler.NewCronHandler(reminders)
	widgetHandler := handler.NewWidgetHandler(cfg.Server.BaseURL)

	// Setup router
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(30 * time.Second))

	// Health check endpoints (no auth required)
	r.Get("/health", healthHandler())
	r.Get("/ready", readyHandler(db, redis))
	r.Handle("/metrics", promhttp.Handler())

	// Public API, rate limited per client
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(redis, middleware.DefaultRateLimitConfig()))

		r.Mount("/campaigns", campaignHandler.Routes(cfg.Admin.APIKey))
		r.Mount("/donations", donationHandler.Routes())

		r.Post("/checkout", checkoutHandler.CreateDonation)
		r.Post("/license/checkout", checkoutHandler.CreateLicense)
		r.Post("/license/verify", licenseHandler.Verify)

		r.Post("/connect/stripe", connectHandler.Start)
		r.Get("/connect/stripe", connectHandler.Status)
	})

	// Processor callbacks are signature-authenticated, not rate limited:
	// throttling a retrying processor only delays reconciliation.
	r.Post("/webhook", webhookHandler.Handle)
	r.Post("/license/webhook", webhookHandler.Handle)

	// Privileged endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.Admin.APIKey))

		r.Get("/license/info", licenseHandler.Info)
		r.Get("/widget/generate", widgetHandler.Generate)
	})

	// Scheduled jobs, callable by an external scheduler
	r.Route("/cron", func(r chi.Router) {
		r.Use(middleware.RequireCronSecret(cfg.Cron.Secret))

		r.Get("/reminders", cronHandler.Reminders)
		r.Get("/keepalive", cronHandler.Keepalive)
	})

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}

// healthHandler returns a simple health check that always succeeds if the server is running.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// readyHandler returns a readiness check that verifies database and Redis connections.
func readyHandler(db *database.Postgres, redis *database.Redis) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"database"}`))
			return
		}

		if err := redis.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","component":"redis"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","database":"connected","redis":"connected"}`))
	}
}

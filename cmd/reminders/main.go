// Package main runs the reminder scheduler as a standalone daemon. It is an
// alternative to driving /cron/reminders from an external scheduler.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/database"
	"github.com/givewidget/givewidget/internal/mailer"
	"github.com/givewidget/givewidget/internal/repository"
	"github.com/givewidget/givewidget/internal/service"
)

const jobTimeout = 5 * time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	pool := db.Pool()
	licenseRepo := repository.NewLicenseRepository(pool)
	orgRepo := repository.NewOrgRepository(pool)
	emailLogRepo := repository.NewEmailLogRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	mail := mailer.New(cfg.Email, logger)
	reminders := service.NewReminderService(licenseRepo, orgRepo, emailLogRepo, settingsRepo, mail, logger)

	c := cron.New()

	_, err = c.AddFunc(cfg.Cron.ReminderSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		result, err := reminders.RunReminders(ctx, time.Now())
		if err != nil {
			logger.Error("reminder run failed", "error", err)
			return
		}
		logger.Info("reminder run completed", "sent", result.Sent, "errors", result.Errors)
	})
	if err != nil {
		log.Fatalf("Invalid reminder schedule %q: %v", cfg.Cron.ReminderSchedule, err)
	}

	_, err = c.AddFunc(cfg.Cron.KeepaliveSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := reminders.Keepalive(ctx); err != nil {
			logger.Error("keepalive failed", "error", err)
			return
		}
		logger.Debug("keepalive ok")
	})
	if err != nil {
		log.Fatalf("Invalid keepalive schedule %q: %v", cfg.Cron.KeepaliveSchedule, err)
	}

	c.Start()
	logger.Info("Reminder scheduler started",
		slog.String("reminder_schedule", cfg.Cron.ReminderSchedule),
		slog.String("keepalive_schedule", cfg.Cron.KeepaliveSchedule),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down scheduler", slog.String("signal", sig.String()))
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}

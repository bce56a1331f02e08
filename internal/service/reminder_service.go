package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/givewidget/givewidget/internal/mailer"
	"github.com/givewidget/givewidget/internal/middleware"
	"github.com/givewidget/givewidget/internal/models"
	"github.com/givewidget/givewidget/internal/repository"
)

// reminderMilestones are the days-before-expiry marks that trigger an email.
var reminderMilestones = []int{7, 3, 2, 1}

// ReminderRunResult reports how many reminders each milestone sent.
type ReminderRunResult struct {
	Sent   map[int]int `json:"sent"`
	Errors int         `json:"errors"`
}

// ReminderService drives expiry-reminder emails and the datastore keepalive.
type ReminderService interface {
	// RunReminders sends milestone reminders for active licenses expiring
	// at each milestone's UTC day window. Safe to invoke repeatedly: the
	// email log dedups per (license, milestone).
	RunReminders(ctx context.Context, now time.Time) (*ReminderRunResult, error)
	// Keepalive issues a trivial read so a hosted datastore does not idle out.
	Keepalive(ctx context.Context) error
}

type reminderService struct {
	licenseRepo  repository.LicenseRepository
	orgRepo      repository.OrgRepository
	emailLogRepo repository.EmailLogRepository
	settingsRepo repository.SettingsRepository
	mail         mailer.Mailer
	logger       *slog.Logger
}

// NewReminderService creates a new reminder service.
func NewReminderService(
	licenseRepo repository.LicenseRepository,
	orgRepo repository.OrgRepository,
	emailLogRepo repository.EmailLogRepository,
	settingsRepo repository.SettingsRepository,
	mail mailer.Mailer,
	logger *slog.Logger,
) ReminderService {
	return &reminderService{
		licenseRepo:  licenseRepo,
		orgRepo:      orgRepo,
		emailLogRepo: emailLogRepo,
		settingsRepo: settingsRepo,
		mail:         mail,
		logger:       logger,
	}
}

func (s *reminderService) RunReminders(ctx context.Context, now time.Time) (*ReminderRunResult, error) {
	result := &ReminderRunResult{Sent: make(map[int]int)}

	for _, milestone := range reminderMilestones {
		start, end := dayWindow(now, milestone)

		licenses, err := s.licenseRepo.ListActiveExpiringBetween(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to query licenses for %dd milestone: %w", milestone, err)
		}

		for _, license := range licenses {
			sent, err := s.remind(ctx, license, milestone)
			if err != nil {
				s.logger.Error("reminder failed",
					"license_id", license.ID, "milestone", milestone, "error", err)
				result.Errors++
				continue
			}
			if sent {
				result.Sent[milestone]++
			}
		}
	}
	return result, nil
}

// remind sends one milestone email unless the log says a send was already
// attempted. The log row is written after the attempt whether it succeeded
// or not: a failed send is not retried on the next run.
func (s *reminderService) remind(ctx context.Context, license *models.License, milestone int) (bool, error) {
	emailType := models.ReminderEmailType(milestone)

	exists, err := s.emailLogRepo.Exists(ctx, license.ID, emailType)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	org, err := s.orgRepo.GetByID(ctx, license.OrgID)
	if err != nil {
		return false, err
	}
	if org == nil {
		return false, fmt.Errorf("license %s has no organization", license.ID)
	}

	periodEnd := ""
	if license.CurrentPeriodEnd != nil {
		periodEnd = license.CurrentPeriodEnd.Format("January 2, 2006")
	}
	body, err := mailer.RenderReminder(mailer.ReminderData{
		OrgName:       org.Name,
		LicenseKey:    license.LicenseKey,
		DaysRemaining: milestone,
		PeriodEnd:     periodEnd,
	})
	if err != nil {
		return false, err
	}

	subject := fmt.Sprintf("Your GiveWidget license expires in %d day", milestone)
	if milestone != 1 {
		subject += "s"
	}

	status := models.EmailLogStatusSent
	sendErr := s.mail.Send(ctx, org.Email, subject, body)
	if sendErr != nil {
		status = models.EmailLogStatusFailed
	}

	logErr := s.emailLogRepo.Create(ctx, &models.EmailLog{
		LicenseID: license.ID,
		EmailType: emailType,
		Status:    status,
	})
	if logErr != nil && logErr != repository.ErrDuplicateKey {
		s.logger.Error("failed to record reminder log",
			"license_id", license.ID, "milestone", milestone, "error", logErr)
	}

	if sendErr != nil {
		return false, sendErr
	}
	middleware.ReminderEmailsSent.WithLabelValues(fmt.Sprintf("%dd", milestone)).Inc()
	return true, nil
}

func (s *reminderService) Keepalive(ctx context.Context) error {
	_, err := s.settingsRepo.Get(ctx, models.SettingMinDonationAmount)
	if err != nil && err != repository.ErrSettingNotFound {
		return err
	}
	return nil
}

// dayWindow returns the UTC [start-of-day, end-of-day] bounds for the date
// daysAhead days from now.
func dayWindow(now time.Time, daysAhead int) (time.Time, time.Time) {
	target := now.UTC().AddDate(0, 0, daysAhead)
	start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// Compile-time check to ensure reminderService implements ReminderService.
var _ ReminderService = (*reminderService)(nil)

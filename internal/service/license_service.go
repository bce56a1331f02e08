package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/middleware"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/licensekey"
	"github.com/givewidget/givewidget/internal/repository"
)

// keyGenAttempts bounds the collision-retry loop at issuance time.
const keyGenAttempts = 5

// VerifyResult is the flat payload returned by license verification.
// An unknown or lapsed key is a normal answer, not an error.
type VerifyResult struct {
	Valid         bool               `json:"valid"`
	Status        string             `json:"status"`
	Plan          models.LicensePlan `json:"plan,omitempty"`
	DaysRemaining int                `json:"days_remaining,omitempty"`
	Organization  string             `json:"organization,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
}

// LicenseInfo bundles a license with its owning organization for the
// dashboard.
type LicenseInfo struct {
	License      *models.License      `json:"license"`
	Organization *models.Organization `json:"organization"`
}

// IssueLicenseParams carries everything the reconciler knows about a new
// subscription when it mints a license.
type IssueLicenseParams struct {
	OrgID          uuid.UUID
	Plan           models.LicensePlan
	Status         models.LicenseStatus
	TrialEndsAt    *time.Time
	PeriodStart    *time.Time
	PeriodEnd      *time.Time
	SubscriptionID string
	CustomerID     string
}

// LicenseService defines the license state machine operations.
type LicenseService interface {
	// Verify resolves a key to its externally reported status, lazily
	// flipping time-lapsed licenses to expired as a side effect.
	Verify(ctx context.Context, key, domain string) (*VerifyResult, error)
	Info(ctx context.Context, key string) (*LicenseInfo, error)
	Issue(ctx context.Context, params IssueLicenseParams) (*models.License, error)
}

type licenseService struct {
	licenseRepo repository.LicenseRepository
	orgRepo     repository.OrgRepository
	logger      *slog.Logger
}

// NewLicenseService creates a new license service.
func NewLicenseService(licenseRepo repository.LicenseRepository, orgRepo repository.OrgRepository, logger *slog.Logger) LicenseService {
	return &licenseService{
		licenseRepo: licenseRepo,
		orgRepo:     orgRepo,
		logger:      logger,
	}
}

// Verify implements lazy expiry-on-read: transitions driven purely by time
// are applied here, at lookup, rather than by a background sweeper. The
// persisted state is stale between logical expiry and the next lookup, and
// self-corrects on that lookup.
func (s *licenseService) Verify(ctx context.Context, key, domain string) (*VerifyResult, error) {
	normalized := licensekey.Normalize(key)
	if normalized == "" {
		return &VerifyResult{Valid: false, Status: models.ReportedStatusNotFound}, nil
	}

	license, err := s.licenseRepo.GetByKey(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return &VerifyResult{Valid: false, Status: models.ReportedStatusNotFound}, nil
	}

	now := time.Now().UTC()

	var orgName string
	if org, err := s.orgRepo.GetByID(ctx, license.OrgID); err == nil && org != nil {
		orgName = org.Name
	}

	switch license.Status {
	case models.LicenseStatusTrial:
		if license.TrialEndsAt != nil && now.After(*license.TrialEndsAt) {
			if err := s.licenseRepo.UpdateStatus(ctx, license.ID, models.LicenseStatusExpired); err != nil {
				s.logger.Error("failed to persist trial expiry", "license_id", license.ID, "error", err)
			}
			return &VerifyResult{
				Valid:        false,
				Status:       string(models.LicenseStatusExpired),
				Plan:         license.Plan,
				Organization: orgName,
			}, nil
		}
		return &VerifyResult{
			Valid:         true,
			Status:        string(models.LicenseStatusTrial),
			Plan:          license.Plan,
			DaysRemaining: daysRemaining(now, license.TrialEndsAt),
			Organization:  orgName,
			ExpiresAt:     license.TrialEndsAt,
		}, nil

	case models.LicenseStatusActive:
		if license.CurrentPeriodEnd != nil && now.After(*license.CurrentPeriodEnd) {
			if err := s.licenseRepo.UpdateStatus(ctx, license.ID, models.LicenseStatusExpired); err != nil {
				s.logger.Error("failed to persist period expiry", "license_id", license.ID, "error", err)
			}
			return &VerifyResult{
				Valid:        false,
				Status:       models.ReportedStatusLocked,
				Plan:         license.Plan,
				Organization: orgName,
			}, nil
		}
		return &VerifyResult{
			Valid:         true,
			Status:        string(models.LicenseStatusActive),
			Plan:          license.Plan,
			DaysRemaining: daysRemaining(now, license.CurrentPeriodEnd),
			Organization:  orgName,
			ExpiresAt:     license.CurrentPeriodEnd,
		}, nil

	default: // expired, cancelled
		if domain != "" {
			s.logger.Info("locked license verification", "license_id", license.ID, "domain", domain)
		}
		return &VerifyResult{
			Valid:        false,
			Status:       models.ReportedStatusLocked,
			Plan:         license.Plan,
			Organization: orgName,
		}, nil
	}
}

// Info returns the license row and its organization for dashboard display.
// Unlike Verify it errors on a missing key and does not mutate state.
func (s *licenseService) Info(ctx context.Context, key string) (*LicenseInfo, error) {
	license, err := s.licenseRepo.GetByKey(ctx, licensekey.Normalize(key))
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, apierrors.NewNotFoundError("License")
	}
	org, err := s.orgRepo.GetByID(ctx, license.OrgID)
	if err != nil {
		return nil, err
	}
	return &LicenseInfo{License: license, Organization: org}, nil
}

// Issue mints a license with a freshly generated key, retrying up to
// keyGenAttempts times when the key collides with an existing row. The
// unique constraint is the source of truth; the loop just narrows the
// window to one-in-36^12 repeated.
func (s *licenseService) Issue(ctx context.Context, params IssueLicenseParams) (*models.License, error) {
	var lastErr error
	for attempt := 0; attempt < keyGenAttempts; attempt++ {
		key, err := licensekey.New()
		if err != nil {
			return nil, err
		}

		license := &models.License{
			OrgID:              params.OrgID,
			LicenseKey:         key,
			Plan:               params.Plan,
			Status:             params.Status,
			TrialEndsAt:        params.TrialEndsAt,
			CurrentPeriodStart: params.PeriodStart,
			CurrentPeriodEnd:   params.PeriodEnd,
		}
		if params.SubscriptionID != "" {
			license.StripeSubscriptionID = &params.SubscriptionID
		}
		if params.CustomerID != "" {
			license.StripeCustomerID = &params.CustomerID
		}

		err = s.licenseRepo.Create(ctx, license)
		if err == nil {
			middleware.LicensesIssued.Inc()
			return license, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn("license key collision, regenerating", "attempt", attempt+1)
	}
	return nil, lastErr
}

// daysRemaining is the whole-day count until the deadline, rounded up, so a
// license expiring later today still reports one day left.
func daysRemaining(now time.Time, until *time.Time) int {
	if until == nil {
		return 0
	}
	d := until.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// Compile-time check to ensure licenseService implements LicenseService.
var _ LicenseService = (*licenseService)(nil)

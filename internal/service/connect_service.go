package service

import (
	"context"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/account"
	"github.com/stripe/stripe-go/v76/accountlink"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/licensekey"
	"github.com/givewidget/givewidget/internal/repository"
)

// ConnectOnboarding is returned when onboarding starts or resumes.
type ConnectOnboarding struct {
	OnboardingURL string               `json:"onboarding_url"`
	AccountID     string               `json:"account_id"`
	Status        models.ConnectStatus `json:"status"`
}

// ConnectState describes an organization's current connected-account state.
type ConnectState struct {
	Connected bool                 `json:"connected"`
	AccountID string               `json:"account_id,omitempty"`
	Status    models.ConnectStatus `json:"status,omitempty"`
}

// ConnectService manages payment-processor connected-account onboarding,
// keyed by license key since organizations have no credentials of their own.
type ConnectService interface {
	StartOnboarding(ctx context.Context, key string) (*ConnectOnboarding, error)
	GetState(ctx context.Context, key string) (*ConnectState, error)
}

type connectService struct {
	orgRepo     repository.OrgRepository
	licenseRepo repository.LicenseRepository
	cfg         *config.Config
	logger      *slog.Logger
}

// NewConnectService creates a new Connect onboarding service.
func NewConnectService(orgRepo repository.OrgRepository, licenseRepo repository.LicenseRepository, cfg *config.Config, logger *slog.Logger) ConnectService {
	stripe.Key = cfg.Stripe.SecretKey
	return &connectService{
		orgRepo:     orgRepo,
		licenseRepo: licenseRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// StartOnboarding creates an Express account for the organization if it has
// none, then returns a fresh onboarding link. Re-invocation with an existing
// account just mints a new link, so an abandoned onboarding can resume.
func (s *connectService) StartOnboarding(ctx context.Context, key string) (*ConnectOnboarding, error) {
	org, err := s.orgForKey(ctx, key)
	if err != nil {
		return nil, err
	}

	accountID := ""
	if org.StripeAccountID != nil {
		accountID = *org.StripeAccountID
	}

	if accountID == "" {
		acct, err := account.New(&stripe.AccountParams{
			Type:  stripe.String(string(stripe.AccountTypeExpress)),
			Email: stripe.String(org.Email),
			Metadata: map[string]string{
				"org_id": org.ID.String(),
			},
		})
		if err != nil {
			s.logger.Error("failed to create connect account", "org_id", org.ID, "error", err)
			return nil, apierrors.ErrPaymentUpstream
		}
		accountID = acct.ID

		if err := s.orgRepo.UpdateStripeAccount(ctx, org.ID, accountID, models.ConnectStatusPending); err != nil {
			return nil, err
		}
	}

	link, err := accountlink.New(&stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(s.cfg.Stripe.ConnectRefresh),
		ReturnURL:  stripe.String(s.cfg.Stripe.ConnectReturn),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		s.logger.Error("failed to create account link", "org_id", org.ID, "error", err)
		return nil, apierrors.ErrPaymentUpstream
	}

	return &ConnectOnboarding{
		OnboardingURL: link.URL,
		AccountID:     accountID,
		Status:        models.ConnectStatusPending,
	}, nil
}

// GetState fetches the live account and syncs the derived status onto the
// organization. account.updated webhooks keep this fresh too; this path
// covers dashboards polling right after onboarding returns.
func (s *connectService) GetState(ctx context.Context, key string) (*ConnectState, error) {
	org, err := s.orgForKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if org.StripeAccountID == nil || *org.StripeAccountID == "" {
		return &ConnectState{Connected: false}, nil
	}

	acct, err := account.GetByID(*org.StripeAccountID, nil)
	if err != nil {
		s.logger.Error("failed to fetch connect account", "org_id", org.ID, "error", err)
		return nil, apierrors.ErrPaymentUpstream
	}

	status := ConnectStatusFromAccount(acct)
	if err := s.orgRepo.UpdateStripeAccount(ctx, org.ID, acct.ID, status); err != nil {
		return nil, err
	}

	return &ConnectState{
		Connected: status == models.ConnectStatusActive,
		AccountID: acct.ID,
		Status:    status,
	}, nil
}

func (s *connectService) orgForKey(ctx context.Context, key string) (*models.Organization, error) {
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
	if org == nil {
		return nil, apierrors.NewNotFoundError("Organization")
	}
	return org, nil
}

// Compile-time check to ensure connectService implements ConnectService.
var _ ConnectService = (*connectService)(nil)

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/mailer"
	"github.com/givewidget/givewidget/internal/middleware"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/repository"
)

// WebhookService reconciles payment-processor events into local state.
// Every handler is idempotent against replay and safe under arbitrary
// delivery ordering: the processor guarantees at-least-once, nothing more.
type WebhookService interface {
	// HandleWebhook verifies the signature over the raw payload and
	// dispatches the event. A signature failure is the only non-200 path.
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
	// ProcessEvent dispatches an already-verified event.
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

type webhookService struct {
	orgRepo      repository.OrgRepository
	licenseRepo  repository.LicenseRepository
	donationRepo repository.DonationRepository
	emailLogRepo repository.EmailLogRepository
	eventRepo    repository.WebhookEventRepository
	licenses     LicenseService
	mail         mailer.Mailer
	cfg          *config.Config
	logger       *slog.Logger
}

// NewWebhookService creates a new webhook reconciler.
func NewWebhookService(
	orgRepo repository.OrgRepository,
	licenseRepo repository.LicenseRepository,
	donationRepo repository.DonationRepository,
	emailLogRepo repository.EmailLogRepository,
	eventRepo repository.WebhookEventRepository,
	licenses LicenseService,
	mail mailer.Mailer,
	cfg *config.Config,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		orgRepo:      orgRepo,
		licenseRepo:  licenseRepo,
		donationRepo: donationRepo,
		emailLogRepo: emailLogRepo,
		eventRepo:    eventRepo,
		licenses:     licenses,
		mail:         mail,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *webhookService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.cfg.Stripe.WebhookSecret)
	if err != nil {
		s.logger.Warn("webhook signature verification failed", "error", err)
		return apierrors.ErrBadRequest.WithMessage("Invalid webhook signature")
	}
	return s.ProcessEvent(ctx, event)
}

func (s *webhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	var err error
	outcome := models.WebhookOutcomeProcessed

	switch event.Type {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		err = s.handleInvoicePayment(ctx, event, models.LicenseStatusActive)
	case "invoice.payment_failed":
		err = s.handleInvoicePayment(ctx, event, models.LicenseStatusExpired)
	case "payment_intent.payment_failed":
		err = s.handlePaymentFailed(ctx, event)
	case "account.updated":
		err = s.handleAccountUpdated(ctx, event)
	default:
		// Unknown event types get a 200 so the processor stops retrying.
		s.logger.Debug("ignoring webhook event", "type", event.Type, "id", event.ID)
		outcome = models.WebhookOutcomeIgnored
	}

	if err != nil {
		outcome = models.WebhookOutcomeFailed
	}
	s.recordEvent(ctx, event, outcome)
	return err
}

// handleCheckoutCompleted reconciles both checkout modes.
func (s *webhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	if session.Mode == stripe.CheckoutSessionModeSubscription {
		return s.completeLicenseCheckout(ctx, &session)
	}
	return s.completeDonationCheckout(ctx, &session)
}

// completeDonationCheckout flips the pending donation keyed by the session
// id to completed and folds it into the campaign aggregates, in one
// transaction. The conditional UPDATE returns nil when no pending row
// matched, so a replayed event or an orphaned session (pending insert was
// lost at checkout time) is a logged no-op, never a fabricated donation.
func (s *webhookService) completeDonationCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	paymentIntentID := ""
	if session.PaymentIntent != nil {
		paymentIntentID = session.PaymentIntent.ID
	}

	donation, err := s.donationRepo.CompleteBySession(ctx, session.ID, paymentIntentID)
	if err != nil {
		return fmt.Errorf("failed to complete donation: %w", err)
	}
	if donation == nil {
		s.logger.Info("no pending donation for completed session",
			"session_id", session.ID)
		return nil
	}

	middleware.DonationsCompleted.Inc()
	s.logger.Info("donation completed",
		"donation_id", donation.ID,
		"campaign_id", donation.CampaignID,
		"amount", donation.Amount)
	return nil
}

// completeLicenseCheckout mints a license for a finished subscription
// checkout. Replays are absorbed by the one-current-license check: the
// second delivery finds the license the first one created.
func (s *webhookService) completeLicenseCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	email := session.Metadata["email"]
	if email == "" && session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		return fmt.Errorf("subscription checkout %s has no email", session.ID)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	plan := models.LicensePlan(session.Metadata["plan"])
	if !plan.Valid() {
		plan = models.PlanMonthly
	}

	org, err := s.ensureOrganization(ctx, email)
	if err != nil {
		return err
	}

	if existing, err := s.licenseRepo.GetCurrentByOrg(ctx, org.ID); err != nil {
		return err
	} else if existing != nil {
		s.logger.Info("license already exists for completed checkout",
			"org_id", org.ID, "license_id", existing.ID)
		return nil
	}

	params := IssueLicenseParams{
		OrgID:  org.ID,
		Plan:   plan,
		Status: models.LicenseStatusActive,
	}
	if session.Customer != nil {
		params.CustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		params.SubscriptionID = session.Subscription.ID
		if session.Subscription.Status == stripe.SubscriptionStatusTrialing {
			params.Status = models.LicenseStatusTrial
		}
		if session.Subscription.TrialEnd > 0 {
			t := time.Unix(session.Subscription.TrialEnd, 0).UTC()
			params.TrialEndsAt = &t
		}
		if session.Subscription.CurrentPeriodStart > 0 {
			t := time.Unix(session.Subscription.CurrentPeriodStart, 0).UTC()
			params.PeriodStart = &t
		}
		if session.Subscription.CurrentPeriodEnd > 0 {
			t := time.Unix(session.Subscription.CurrentPeriodEnd, 0).UTC()
			params.PeriodEnd = &t
		}
	}
	if params.Status == models.LicenseStatusTrial && params.TrialEndsAt == nil {
		t := time.Now().UTC().AddDate(0, 0, s.cfg.Stripe.TrialDays)
		params.TrialEndsAt = &t
	}

	license, err := s.licenses.Issue(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to issue license: %w", err)
	}

	s.logger.Info("license issued",
		"license_id", license.ID, "org_id", org.ID, "plan", plan)

	// Welcome email is best-effort: a send failure never rolls back the
	// license. The EmailLog row dedups across event replays.
	s.sendWelcomeEmail(ctx, org, license)
	return nil
}

// ensureOrganization finds or creates the tenant for an email, deriving the
// display name from the local part on first contact.
func (s *webhookService) ensureOrganization(ctx context.Context, email string) (*models.Organization, error) {
	org, err := s.orgRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if org != nil {
		return org, nil
	}

	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}

	org = &models.Organization{Name: name, Email: email}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		if org2, err2 := s.orgRepo.GetByEmail(ctx, email); err2 == nil && org2 != nil {
			// Lost the insert race against a concurrent delivery.
			return org2, nil
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

func (s *webhookService) sendWelcomeEmail(ctx context.Context, org *models.Organization, license *models.License) {
	exists, err := s.emailLogRepo.Exists(ctx, license.ID, models.EmailTypeWelcome)
	if err != nil || exists {
		return
	}

	body, err := mailer.RenderWelcome(mailer.WelcomeData{
		OrgName:    org.Name,
		LicenseKey: license.LicenseKey,
		Plan:       string(license.Plan),
		TrialDays:  s.cfg.Stripe.TrialDays,
	})
	if err != nil {
		s.logger.Error("failed to render welcome email", "error", err)
		return
	}

	status := models.EmailLogStatusSent
	if err := s.mail.Send(ctx, org.Email, "Welcome to GiveWidget", body); err != nil {
		s.logger.Error("failed to send welcome email",
			"org_id", org.ID, "error", err)
		status = models.EmailLogStatusFailed
	}

	if err := s.emailLogRepo.Create(ctx, &models.EmailLog{
		LicenseID: license.ID,
		EmailType: models.EmailTypeWelcome,
		Status:    status,
	}); err != nil && err != repository.ErrDuplicateKey {
		s.logger.Error("failed to record welcome email log", "error", err)
	}
}

// handleSubscriptionUpdated syncs status and period bounds from the
// subscription, keyed by subscription id. Events for subscriptions we never
// issued a license for are ignored.
func (s *webhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	license, err := s.licenseRepo.GetBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return err
	}
	if license == nil {
		s.logger.Info("subscription update for unknown license", "subscription_id", sub.ID)
		return nil
	}

	status := licenseStatusFromSubscription(sub.Status)
	var periodStart, periodEnd *time.Time
	if sub.CurrentPeriodStart > 0 {
		t := time.Unix(sub.CurrentPeriodStart, 0).UTC()
		periodStart = &t
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}

	if err := s.licenseRepo.UpdatePeriod(ctx, license.ID, status, periodStart, periodEnd); err != nil {
		return fmt.Errorf("failed to sync license period: %w", err)
	}
	s.logger.Info("license synced from subscription",
		"license_id", license.ID, "status", status)
	return nil
}

func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	license, err := s.licenseRepo.GetBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return err
	}
	if license == nil {
		return nil
	}

	if err := s.licenseRepo.MarkCancelled(ctx, license.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to cancel license: %w", err)
	}
	s.logger.Info("license cancelled", "license_id", license.ID)
	return nil
}

// handleInvoicePayment forces the license to the given status: active on a
// successful payment (recovery after a failed one), expired on a failure.
func (s *webhookService) handleInvoicePayment(ctx context.Context, event stripe.Event, status models.LicenseStatus) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}
	if inv.Subscription == nil {
		return nil
	}

	license, err := s.licenseRepo.GetBySubscriptionID(ctx, inv.Subscription.ID)
	if err != nil {
		return err
	}
	if license == nil {
		return nil
	}

	if err := s.licenseRepo.UpdateStatus(ctx, license.ID, status); err != nil {
		return fmt.Errorf("failed to update license status: %w", err)
	}
	s.logger.Info("license status set from invoice",
		"license_id", license.ID, "status", status)
	return nil
}

func (s *webhookService) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to parse payment intent: %w", err)
	}

	donation, err := s.donationRepo.MarkFailedByPaymentIntent(ctx, intent.ID)
	if err != nil {
		return fmt.Errorf("failed to mark donation failed: %w", err)
	}
	if donation != nil {
		s.logger.Info("donation failed",
			"donation_id", donation.ID, "payment_intent_id", intent.ID)
	}
	return nil
}

// handleAccountUpdated syncs a Connect account's onboarding state onto the
// owning organization.
func (s *webhookService) handleAccountUpdated(ctx context.Context, event stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return fmt.Errorf("failed to parse account: %w", err)
	}

	org, err := s.orgRepo.GetByStripeAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	if org == nil {
		return nil
	}

	status := ConnectStatusFromAccount(&account)
	if err := s.orgRepo.UpdateStripeAccount(ctx, org.ID, account.ID, status); err != nil {
		return fmt.Errorf("failed to sync connect status: %w", err)
	}
	s.logger.Info("connect account synced", "org_id", org.ID, "status", status)
	return nil
}

// recordEvent writes the audit row. Best-effort: handler idempotency never
// depends on it.
func (s *webhookService) recordEvent(ctx context.Context, event stripe.Event, outcome string) {
	err := s.eventRepo.Create(ctx, &models.WebhookEvent{
		StripeEventID: event.ID,
		EventType:     string(event.Type),
		Outcome:       outcome,
	})
	if err != nil {
		s.logger.Error("failed to record webhook event", "event_id", event.ID, "error", err)
	}
}

// licenseStatusFromSubscription maps a processor subscription status onto
// the persisted license state machine.
func licenseStatusFromSubscription(status stripe.SubscriptionStatus) models.LicenseStatus {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return models.LicenseStatusTrial
	case stripe.SubscriptionStatusActive:
		return models.LicenseStatusActive
	default:
		return models.LicenseStatusExpired
	}
}

// ConnectStatusFromAccount derives an organization's onboarding state from
// the live Connect account.
func ConnectStatusFromAccount(account *stripe.Account) models.ConnectStatus {
	switch {
	case account.Requirements != nil && account.Requirements.DisabledReason != "":
		return models.ConnectStatusRestricted
	case account.ChargesEnabled:
		return models.ConnectStatusActive
	default:
		return models.ConnectStatusPending
	}
}

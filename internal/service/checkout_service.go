package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/coupon"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/repository"
)

// CheckoutResult is returned to the widget so it can redirect the browser.
type CheckoutResult struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// DonationCheckoutRequest carries a one-time donation checkout request.
type DonationCheckoutRequest struct {
	CampaignID  uuid.UUID
	Amount      int64
	DonorName   string
	DonorEmail  string
	Message     *string
	IsAnonymous bool
	SuccessURL  string
	CancelURL   string
}

// LicenseCheckoutRequest carries a subscription checkout request.
type LicenseCheckoutRequest struct {
	Email      string
	Plan       models.LicensePlan
	PromoCode  string
	SuccessURL string
	CancelURL  string
}

// CheckoutService creates payment-processor checkout sessions.
type CheckoutService interface {
	CreateDonationCheckout(ctx context.Context, req DonationCheckoutRequest) (*CheckoutResult, error)
	CreateLicenseCheckout(ctx context.Context, req LicenseCheckoutRequest) (*CheckoutResult, error)
}

type checkoutService struct {
	campaignRepo repository.CampaignRepository
	donationRepo repository.DonationRepository
	licenseRepo  repository.LicenseRepository
	promoRepo    repository.PromoRepository
	settingsRepo repository.SettingsRepository
	cfg          *config.Config
	logger       *slog.Logger
}

// NewCheckoutService creates a new checkout service and configures the
// Stripe client key.
func NewCheckoutService(
	campaignRepo repository.CampaignRepository,
	donationRepo repository.DonationRepository,
	licenseRepo repository.LicenseRepository,
	promoRepo repository.PromoRepository,
	settingsRepo repository.SettingsRepository,
	cfg *config.Config,
	logger *slog.Logger,
) CheckoutService {
	stripe.Key = cfg.Stripe.SecretKey
	return &checkoutService{
		campaignRepo: campaignRepo,
		donationRepo: donationRepo,
		licenseRepo:  licenseRepo,
		promoRepo:    promoRepo,
		settingsRepo: settingsRepo,
		cfg:          cfg,
		logger:       logger,
	}
}

// CreateDonationCheckout creates a payment-mode session for a single
// donation and records a pending donation row keyed by the session id. The
// row insert is best-effort: the reconciler treats a completed session with
// no pending row as already reconciled, so a lost insert costs a ledger
// entry, never a double count.
func (s *checkoutService) CreateDonationCheckout(ctx context.Context, req DonationCheckoutRequest) (*CheckoutResult, error) {
	if strings.TrimSpace(req.DonorName) == "" {
		return nil, apierrors.NewValidationError("donor_name", "donor_name is required")
	}
	if !strings.Contains(req.DonorEmail, "@") {
		return nil, apierrors.NewValidationError("donor_email", "a valid donor_email is required")
	}

	campaign, err := s.campaignRepo.GetByID(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil || campaign.Archived() {
		return nil, apierrors.NewNotFoundError("Campaign")
	}
	if !campaign.IsActive {
		return nil, apierrors.NewValidationError("campaign_id", "campaign is not accepting donations")
	}

	amount := req.Amount
	if amount == 0 {
		amount = s.cfg.Donation.DefaultAmount
	}
	minAmount := s.minDonationAmount(ctx)
	if amount < minAmount {
		return nil, apierrors.NewValidationError("amount",
			fmt.Sprintf("amount must be at least %d", minAmount))
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.Server.BaseURL + "/thank-you?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.Server.BaseURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Donation.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Donation: " + campaign.Title),
					},
					UnitAmount: stripe.Int64(amount * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Metadata: map[string]string{
			"kind":         "donation",
			"campaign_id":  campaign.ID.String(),
			"donor_name":   req.DonorName,
			"is_anonymous": strconv.FormatBool(req.IsAnonymous),
		},
	}
	if req.DonorEmail != "" {
		params.CustomerEmail = stripe.String(req.DonorEmail)
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error("failed to create donation checkout session",
			"campaign_id", campaign.ID, "error", err)
		return nil, apierrors.ErrPaymentUpstream
	}

	donation := &models.Donation{
		CampaignID:      campaign.ID,
		Amount:          amount,
		DonorName:       req.DonorName,
		DonorEmail:      req.DonorEmail,
		Message:         req.Message,
		IsAnonymous:     req.IsAnonymous,
		Status:          models.DonationStatusPending,
		StripeSessionID: session.ID,
	}
	if err := s.donationRepo.Create(ctx, donation); err != nil {
		// Non-fatal: the checkout session already exists and the payment can
		// proceed. The reconciler logs the orphaned session on completion.
		s.logger.Error("failed to record pending donation",
			"session_id", session.ID, "campaign_id", campaign.ID, "error", err)
	}

	return &CheckoutResult{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// CreateLicenseCheckout creates a subscription-mode session with a trial.
// An email already holding an active or trial license is rejected with the
// existing key echoed back so the dashboard can recover it.
func (s *checkoutService) CreateLicenseCheckout(ctx context.Context, req LicenseCheckoutRequest) (*CheckoutResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apierrors.NewValidationError("email", "email is required")
	}
	if !req.Plan.Valid() {
		return nil, apierrors.NewValidationError("plan", "plan must be monthly or yearly")
	}

	existing, err := s.licenseRepo.GetCurrentByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.ErrBadRequest.
			WithMessage("This email already has an active license").
			WithDetails(map[string]string{"license_key": existing.LicenseKey})
	}

	priceID := s.cfg.Stripe.PriceIDMonthly
	if req.Plan == models.PlanYearly {
		priceID = s.cfg.Stripe.PriceIDYearly
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.Server.BaseURL + "/welcome?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.Server.BaseURL + "/pricing"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(s.cfg.Stripe.TrialDays)),
		},
		CustomerEmail: stripe.String(email),
		SuccessURL:    stripe.String(successURL),
		CancelURL:     stripe.String(cancelURL),
		Metadata: map[string]string{
			"kind":  "license",
			"email": email,
			"plan":  string(req.Plan),
		},
	}

	if code := strings.TrimSpace(req.PromoCode); code != "" {
		couponID := s.redeemPromo(ctx, code, req.Plan)
		if couponID != "" {
			params.Discounts = []*stripe.CheckoutSessionDiscountParams{
				{Coupon: stripe.String(couponID)},
			}
			params.Metadata["promo_code"] = code
		}
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		s.logger.Error("failed to create license checkout session",
			"email", email, "plan", req.Plan, "error", err)
		return nil, apierrors.ErrPaymentUpstream
	}

	return &CheckoutResult{CheckoutURL: session.URL, SessionID: session.ID}, nil
}

// redeemPromo validates a promo code, consumes one use, and converts it into
// a one-time Stripe coupon. Any failure (unknown code, exhausted cap, coupon
// creation error) degrades to checkout without a discount rather than
// blocking the purchase.
func (s *checkoutService) redeemPromo(ctx context.Context, code string, plan models.LicensePlan) string {
	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		s.logger.Error("promo code lookup failed", "code", code, "error", err)
		return ""
	}
	if promo == nil || !promo.ValidAt(time.Now().UTC()) || !promo.AppliesToPlan(plan) {
		s.logger.Info("promo code not applicable", "code", code, "plan", plan)
		return ""
	}

	consumed, err := s.promoRepo.ConsumeUse(ctx, promo.ID)
	if err != nil {
		s.logger.Error("promo code usage increment failed", "code", code, "error", err)
		return ""
	}
	if !consumed {
		s.logger.Info("promo code exhausted", "code", code)
		return ""
	}

	couponParams := &stripe.CouponParams{
		Duration: stripe.String(string(stripe.CouponDurationOnce)),
		Name:     stripe.String("Promo: " + promo.Code),
	}
	switch promo.DiscountType {
	case models.DiscountFree:
		couponParams.PercentOff = stripe.Float64(100)
	case models.DiscountPercent:
		couponParams.PercentOff = stripe.Float64(float64(promo.DiscountValue))
	case models.DiscountFixed:
		couponParams.AmountOff = stripe.Int64(promo.DiscountValue * 100)
		couponParams.Currency = stripe.String(s.cfg.Donation.Currency)
	default:
		return ""
	}

	c, err := coupon.New(couponParams)
	if err != nil {
		// The use is already consumed; accepted as a rare under-count rather
		// than coupling coupon creation and the counter in a transaction.
		s.logger.Error("coupon creation failed", "code", code, "error", err)
		return ""
	}
	return c.ID
}

// minDonationAmount reads the operational minimum from settings, falling
// back to the configured default when the row is missing or malformed.
func (s *checkoutService) minDonationAmount(ctx context.Context) int64 {
	value, err := s.settingsRepo.Get(ctx, models.SettingMinDonationAmount)
	if err != nil {
		return s.cfg.Donation.MinAmount
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		s.logger.Warn("malformed min_donation_amount setting", "value", value)
		return s.cfg.Donation.MinAmount
	}
	return parsed
}

// Compile-time check to ensure checkoutService implements CheckoutService.
var _ CheckoutService = (*checkoutService)(nil)

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
)

type checkoutFixture struct {
	svc       CheckoutService
	campaigns *mockCampaignRepo
	donations *mockDonationRepo
	licenses  *mockLicenseRepo
	promos    *mockPromoRepo
	settings  *mockSettingsRepo
}

func newCheckoutFixture() *checkoutFixture {
	campaigns := newMockCampaignRepo()
	f := &checkoutFixture{
		campaigns: campaigns,
		donations: newMockDonationRepo(campaigns),
		licenses:  newMockLicenseRepo(),
		promos:    newMockPromoRepo(),
		settings:  newMockSettingsRepo(),
	}
	cfg := &config.Config{
		Server:   config.ServerConfig{BaseURL: "http://localhost:8080"},
		Stripe:   config.StripeConfig{TrialDays: 7},
		Donation: config.DonationConfig{MinAmount: 5, DefaultAmount: 50, Currency: "pln"},
	}
	f.svc = NewCheckoutService(f.campaigns, f.donations, f.licenses, f.promos, f.settings, cfg, discardLogger())
	return f
}

func (f *checkoutFixture) seedCampaign(t *testing.T, active bool) *models.Campaign {
	t.Helper()
	campaign := &models.Campaign{
		Slug:       "camp-" + uuid.NewString()[:8],
		Title:      "Campaign",
		GoalAmount: 1000,
		IsActive:   active,
	}
	if err := f.campaigns.Create(context.Background(), campaign); err != nil {
		t.Fatalf("campaign create: %v", err)
	}
	return campaign
}

// These tests cover the validation surface that runs before any call to the
// payment processor; the session-creation happy path needs a live Stripe key
// and is exercised in staging.

func TestCheckoutService_DonationValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("requires donor name", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, true)

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     100,
			DonorEmail: "a@b.pl",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400 validation", err)
		}
	})

	t.Run("requires plausible email", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, true)

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     100,
			DonorName:  "Jan",
			DonorEmail: "not-an-email",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400 validation", err)
		}
	})

	t.Run("unknown campaign is 404", func(t *testing.T) {
		f := newCheckoutFixture()

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: uuid.New(),
			Amount:     100,
			DonorName:  "Jan",
			DonorEmail: "jan@example.com",
		})
		if apierrors.AsAPIError(err).StatusCode != 404 {
			t.Errorf("err = %v, want 404", err)
		}
	})

	t.Run("archived campaign is hidden", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, true)
		f.campaigns.Archive(ctx, campaign.ID, time.Now())

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     100,
			DonorName:  "Jan",
			DonorEmail: "jan@example.com",
		})
		if apierrors.AsAPIError(err).StatusCode != 404 {
			t.Errorf("err = %v, want 404", err)
		}
	})

	t.Run("inactive campaign rejects donations", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, false)

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     100,
			DonorName:  "Jan",
			DonorEmail: "jan@example.com",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400", err)
		}
	})

	t.Run("enforces configured minimum", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, true)

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     3,
			DonorName:  "Jan",
			DonorEmail: "jan@example.com",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400 below minimum", err)
		}
	})

	t.Run("settings row overrides the minimum", func(t *testing.T) {
		f := newCheckoutFixture()
		campaign := f.seedCampaign(t, true)
		f.settings.Set(ctx, models.SettingMinDonationAmount, "25")

		_, err := f.svc.CreateDonationCheckout(ctx, DonationCheckoutRequest{
			CampaignID: campaign.ID,
			Amount:     10,
			DonorName:  "Jan",
			DonorEmail: "jan@example.com",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400 below overridden minimum", err)
		}
	})
}

func TestCheckoutService_LicenseValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("requires email", func(t *testing.T) {
		f := newCheckoutFixture()

		_, err := f.svc.CreateLicenseCheckout(ctx, LicenseCheckoutRequest{
			Plan: models.PlanMonthly,
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400", err)
		}
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		f := newCheckoutFixture()

		_, err := f.svc.CreateLicenseCheckout(ctx, LicenseCheckoutRequest{
			Email: "x@example.com",
			Plan:  "weekly",
		})
		if apierrors.AsAPIError(err).StatusCode != 400 {
			t.Errorf("err = %v, want 400", err)
		}
	})

	t.Run("existing trial license is rejected with its key", func(t *testing.T) {
		f := newCheckoutFixture()

		orgID := uuid.New()
		trialEnd := time.Now().UTC().AddDate(0, 0, 5)
		existing := &models.License{
			OrgID:       orgID,
			LicenseKey:  "GW-AAAA-BBBB-CCCC",
			Plan:        models.PlanMonthly,
			Status:      models.LicenseStatusTrial,
			TrialEndsAt: &trialEnd,
		}
		if err := f.licenses.Create(ctx, existing); err != nil {
			t.Fatalf("seed license: %v", err)
		}
		f.licenses.byEmail["holder@example.com"] = orgID

		_, err := f.svc.CreateLicenseCheckout(ctx, LicenseCheckoutRequest{
			Email: "Holder@Example.com",
			Plan:  models.PlanYearly,
		})
		apiErr := apierrors.AsAPIError(err)
		if apiErr.StatusCode != 400 {
			t.Fatalf("err = %v, want 400", err)
		}
		details, ok := apiErr.Details.(map[string]string)
		if !ok || details["license_key"] != "GW-AAAA-BBBB-CCCC" {
			t.Errorf("Details = %v, want existing license_key echoed", apiErr.Details)
		}
	})
}

func TestCheckoutService_PromoRedemption(t *testing.T) {
	ctx := context.Background()

	seedPromo := func(f *checkoutFixture, mutate func(*models.PromoCode)) *models.PromoCode {
		maxUses := 1
		promo := &models.PromoCode{
			ID:            uuid.New(),
			Code:          "LAUNCH",
			DiscountType:  models.DiscountPercent,
			DiscountValue: 20,
			AppliesTo:     models.PromoAppliesAll,
			MaxUses:       &maxUses,
			IsActive:      true,
		}
		if mutate != nil {
			mutate(promo)
		}
		f.promos.promos[promo.ID] = promo
		return promo
	}

	t.Run("exhausted code yields no discount and no extra use", func(t *testing.T) {
		f := newCheckoutFixture()
		promo := seedPromo(f, func(p *models.PromoCode) {
			p.CurrentUses = 1 // max_uses already reached
		})

		coupon := f.svc.(*checkoutService).redeemPromo(ctx, "LAUNCH", models.PlanMonthly)
		if coupon != "" {
			t.Errorf("coupon = %q, want empty for exhausted code", coupon)
		}
		if promo.CurrentUses != 1 {
			t.Errorf("current_uses = %d, want 1 unchanged", promo.CurrentUses)
		}
	})

	t.Run("inactive code yields no discount", func(t *testing.T) {
		f := newCheckoutFixture()
		seedPromo(f, func(p *models.PromoCode) { p.IsActive = false })

		if coupon := f.svc.(*checkoutService).redeemPromo(ctx, "LAUNCH", models.PlanMonthly); coupon != "" {
			t.Errorf("coupon = %q, want empty for inactive code", coupon)
		}
	})

	t.Run("plan-restricted code skips mismatched plan without consuming", func(t *testing.T) {
		f := newCheckoutFixture()
		promo := seedPromo(f, func(p *models.PromoCode) { p.AppliesTo = models.PromoAppliesYearly })

		if coupon := f.svc.(*checkoutService).redeemPromo(ctx, "LAUNCH", models.PlanMonthly); coupon != "" {
			t.Errorf("coupon = %q, want empty for plan mismatch", coupon)
		}
		if promo.CurrentUses != 0 {
			t.Errorf("current_uses = %d, want 0", promo.CurrentUses)
		}
	})

	t.Run("unknown code yields no discount", func(t *testing.T) {
		f := newCheckoutFixture()

		if coupon := f.svc.(*checkoutService).redeemPromo(ctx, "NOPE", models.PlanMonthly); coupon != "" {
			t.Errorf("coupon = %q, want empty for unknown code", coupon)
		}
	})
}

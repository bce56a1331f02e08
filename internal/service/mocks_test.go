package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/models"
	"github.com/givewidget/givewidget/internal/repository"
)

// --- Mock Repositories ---

type mockOrgRepo struct {
	orgs map[uuid.UUID]*models.Organization
}

func newMockOrgRepo() *mockOrgRepo {
	return &mockOrgRepo{orgs: make(map[uuid.UUID]*models.Organization)}
}

func (m *mockOrgRepo) Create(ctx context.Context, org *models.Organization) error {
	for _, existing := range m.orgs {
		if strings.EqualFold(existing.Email, org.Email) {
			return repository.ErrDuplicateKey
		}
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return m.orgs[id], nil
}

func (m *mockOrgRepo) GetByEmail(ctx context.Context, email string) (*models.Organization, error) {
	for _, org := range m.orgs {
		if strings.EqualFold(org.Email, email) {
			return org, nil
		}
	}
	return nil, nil
}

func (m *mockOrgRepo) GetByStripeAccount(ctx context.Context, accountID string) (*models.Organization, error) {
	for _, org := range m.orgs {
		if org.StripeAccountID != nil && *org.StripeAccountID == accountID {
			return org, nil
		}
	}
	return nil, nil
}

func (m *mockOrgRepo) UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string, status models.ConnectStatus) error {
	org, ok := m.orgs[id]
	if !ok {
		return errors.New("org not found")
	}
	org.StripeAccountID = &accountID
	org.StripeAccountStatus = &status
	return nil
}

type mockLicenseRepo struct {
	licenses map[uuid.UUID]*models.License
	// byEmail backs GetCurrentByEmail; tests register owner emails here.
	byEmail map[string]uuid.UUID
	// forceCollisions makes Create fail with ErrDuplicateKey this many times.
	forceCollisions int
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{
		licenses: make(map[uuid.UUID]*models.License),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (m *mockLicenseRepo) Create(ctx context.Context, license *models.License) error {
	if m.forceCollisions > 0 {
		m.forceCollisions--
		return repository.ErrDuplicateKey
	}
	for _, existing := range m.licenses {
		if existing.LicenseKey == license.LicenseKey {
			return repository.ErrDuplicateKey
		}
	}
	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}
	license.CreatedAt = time.Now()
	license.UpdatedAt = license.CreatedAt
	m.licenses[license.ID] = license
	return nil
}

func (m *mockLicenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	return m.licenses[id], nil
}

func (m *mockLicenseRepo) GetByKey(ctx context.Context, key string) (*models.License, error) {
	for _, license := range m.licenses {
		if strings.EqualFold(license.LicenseKey, key) {
			return license, nil
		}
	}
	return nil, nil
}

func (m *mockLicenseRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.License, error) {
	for _, license := range m.licenses {
		if license.StripeSubscriptionID != nil && *license.StripeSubscriptionID == subscriptionID {
			return license, nil
		}
	}
	return nil, nil
}

func (m *mockLicenseRepo) GetCurrentByOrg(ctx context.Context, orgID uuid.UUID) (*models.License, error) {
	for _, license := range m.licenses {
		if license.OrgID == orgID && (license.Status == models.LicenseStatusActive || license.Status == models.LicenseStatusTrial) {
			return license, nil
		}
	}
	return nil, nil
}

func (m *mockLicenseRepo) GetCurrentByEmail(ctx context.Context, email string) (*models.License, error) {
	orgID, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return m.GetCurrentByOrg(ctx, orgID)
}

func (m *mockLicenseRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LicenseStatus) error {
	license, ok := m.licenses[id]
	if !ok {
		return errors.New("license not found")
	}
	license.Status = status
	return nil
}

func (m *mockLicenseRepo) UpdatePeriod(ctx context.Context, id uuid.UUID, status models.LicenseStatus, periodStart, periodEnd *time.Time) error {
	license, ok := m.licenses[id]
	if !ok {
		return errors.New("license not found")
	}
	license.Status = status
	license.CurrentPeriodStart = periodStart
	license.CurrentPeriodEnd = periodEnd
	return nil
}

func (m *mockLicenseRepo) MarkCancelled(ctx context.Context, id uuid.UUID, cancelledAt time.Time) error {
	license, ok := m.licenses[id]
	if !ok {
		return errors.New("license not found")
	}
	license.Status = models.LicenseStatusExpired
	license.CancelledAt = &cancelledAt
	return nil
}

func (m *mockLicenseRepo) ListActiveExpiringBetween(ctx context.Context, start, end time.Time) ([]*models.License, error) {
	var result []*models.License
	for _, license := range m.licenses {
		if license.Status != models.LicenseStatusActive || license.CurrentPeriodEnd == nil {
			continue
		}
		end2 := *license.CurrentPeriodEnd
		if !end2.Before(start) && !end2.After(end) {
			result = append(result, license)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CurrentPeriodEnd.Before(*result[j].CurrentPeriodEnd)
	})
	return result, nil
}

type mockCampaignRepo struct {
	campaigns map[uuid.UUID]*models.Campaign
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{campaigns: make(map[uuid.UUID]*models.Campaign)}
}

func (m *mockCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	for _, existing := range m.campaigns {
		if existing.Slug == campaign.Slug {
			return repository.ErrDuplicateKey
		}
	}
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	campaign.CreatedAt = time.Now()
	campaign.UpdatedAt = campaign.CreatedAt
	m.campaigns[campaign.ID] = campaign
	return nil
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return m.campaigns[id], nil
}

func (m *mockCampaignRepo) GetBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	for _, campaign := range m.campaigns {
		if campaign.Slug == slug {
			return campaign, nil
		}
	}
	return nil, nil
}

func (m *mockCampaignRepo) List(ctx context.Context, filter repository.CampaignFilter) ([]*models.Campaign, error) {
	var result []*models.Campaign
	for _, c := range m.campaigns {
		switch filter.Status {
		case models.CampaignFilterActive:
			if !c.IsActive || c.Archived() {
				continue
			}
		case models.CampaignFilterInactive:
			if c.IsActive || c.Archived() {
				continue
			}
		case models.CampaignFilterArchived:
			if !c.Archived() {
				continue
			}
		default:
			if c.Archived() && !filter.IncludeArchived {
				continue
			}
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	if _, ok := m.campaigns[campaign.ID]; !ok {
		return errors.New("campaign not found")
	}
	campaign.UpdatedAt = time.Now()
	m.campaigns[campaign.ID] = campaign
	return nil
}

func (m *mockCampaignRepo) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	campaign, ok := m.campaigns[id]
	if !ok {
		return errors.New("campaign not found")
	}
	campaign.ArchivedAt = &at
	campaign.IsActive = false
	return nil
}

func (m *mockCampaignRepo) Restore(ctx context.Context, id uuid.UUID) error {
	campaign, ok := m.campaigns[id]
	if !ok {
		return errors.New("campaign not found")
	}
	campaign.ArchivedAt = nil
	campaign.IsActive = true
	return nil
}

func (m *mockCampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.campaigns[id]; !ok {
		return errors.New("campaign not found")
	}
	delete(m.campaigns, id)
	return nil
}

// mockDonationRepo holds a campaign repo reference so CompleteBySession can
// apply the aggregate increment the real transaction performs.
type mockDonationRepo struct {
	donations map[uuid.UUID]*models.Donation
	campaigns *mockCampaignRepo

	// failComplete makes CompleteBySession fail without mutating anything,
	// like a rolled-back transaction.
	failComplete bool
}

func newMockDonationRepo(campaigns *mockCampaignRepo) *mockDonationRepo {
	return &mockDonationRepo{
		donations: make(map[uuid.UUID]*models.Donation),
		campaigns: campaigns,
	}
}

func (m *mockDonationRepo) Create(ctx context.Context, donation *models.Donation) error {
	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	donation.CreatedAt = time.Now()
	donation.UpdatedAt = donation.CreatedAt
	m.donations[donation.ID] = donation
	return nil
}

func (m *mockDonationRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Donation, error) {
	for _, d := range m.donations {
		if d.StripeSessionID == sessionID {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDonationRepo) ListCompletedByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error) {
	var result []*models.Donation
	for _, d := range m.donations {
		if d.CampaignID == campaignID && d.Status == models.DonationStatusCompleted {
			// Copy so callers mutating results (anonymization) do not
			// corrupt the store, matching a real row scan.
			clone := *d
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockDonationRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	count := 0
	for _, d := range m.donations {
		if d.CampaignID == campaignID {
			count++
		}
	}
	return count, nil
}

func (m *mockDonationRepo) CompleteBySession(ctx context.Context, sessionID, paymentIntentID string) (*models.Donation, error) {
	if m.failComplete {
		return nil, errors.New("connection reset")
	}
	for _, d := range m.donations {
		if d.StripeSessionID == sessionID && d.Status == models.DonationStatusPending {
			d.Status = models.DonationStatusCompleted
			if paymentIntentID != "" {
				d.StripePaymentIntentID = &paymentIntentID
			}
			if campaign, ok := m.campaigns.campaigns[d.CampaignID]; ok {
				campaign.CollectedAmount += d.Amount
				campaign.DonationsCount++
			}
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDonationRepo) MarkFailedByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	for _, d := range m.donations {
		if d.StripePaymentIntentID != nil && *d.StripePaymentIntentID == paymentIntentID && d.Status == models.DonationStatusPending {
			d.Status = models.DonationStatusFailed
			return d, nil
		}
	}
	return nil, nil
}

type mockPromoRepo struct {
	promos map[uuid.UUID]*models.PromoCode
}

func newMockPromoRepo() *mockPromoRepo {
	return &mockPromoRepo{promos: make(map[uuid.UUID]*models.PromoCode)}
}

func (m *mockPromoRepo) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	for _, p := range m.promos {
		if strings.EqualFold(p.Code, code) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPromoRepo) ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error) {
	p, ok := m.promos[id]
	if !ok {
		return false, nil
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return false, nil
	}
	p.CurrentUses++
	return true, nil
}

type mockEmailLogRepo struct {
	logs map[string]*models.EmailLog // licenseID_emailType
}

func newMockEmailLogRepo() *mockEmailLogRepo {
	return &mockEmailLogRepo{logs: make(map[string]*models.EmailLog)}
}

func emailLogKey(licenseID uuid.UUID, emailType models.EmailType) string {
	return licenseID.String() + "_" + string(emailType)
}

func (m *mockEmailLogRepo) Exists(ctx context.Context, licenseID uuid.UUID, emailType models.EmailType) (bool, error) {
	_, ok := m.logs[emailLogKey(licenseID, emailType)]
	return ok, nil
}

func (m *mockEmailLogRepo) Create(ctx context.Context, log *models.EmailLog) error {
	key := emailLogKey(log.LicenseID, log.EmailType)
	if _, ok := m.logs[key]; ok {
		return repository.ErrDuplicateKey
	}
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	log.CreatedAt = time.Now()
	m.logs[key] = log
	return nil
}

type mockSettingsRepo struct {
	values map[string]string
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{values: make(map[string]string)}
}

func (m *mockSettingsRepo) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", repository.ErrSettingNotFound
	}
	return value, nil
}

func (m *mockSettingsRepo) Set(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

type mockEventRepo struct {
	events []*models.WebhookEvent
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{}
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.WebhookEvent) error {
	m.events = append(m.events, event)
	return nil
}

// --- Mock Mailer ---

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type mockMailer struct {
	sent []sentEmail
	fail bool
}

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

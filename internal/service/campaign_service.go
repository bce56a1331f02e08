// Package service provides business logic for the GiveWidget API.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/slug"
	"github.com/givewidget/givewidget/internal/repository"
)

const (
	defaultDonationListLimit = 20
	maxDonationListLimit     = 100
	maxCampaignListLimit     = 100
)

// CampaignService defines the funding ledger operations.
type CampaignService interface {
	List(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error)
	Get(ctx context.Context, id uuid.UUID, privileged bool) (*models.Campaign, error)
	Create(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCampaignRequest) (*models.Campaign, error)
	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	ListDonations(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error)
}

// CreateCampaignRequest carries the fields for a new campaign.
type CreateCampaignRequest struct {
	Title       string
	Slug        string
	Description *string
	Excerpt     *string
	ImageURL    *string
	Gallery     []string
	Beneficiary *string
	GoalAmount  int64
	IsActive    *bool
}

// UpdateCampaignRequest carries a partial update; nil fields are untouched.
type UpdateCampaignRequest struct {
	Title       *string
	Slug        *string
	Description *string
	Excerpt     *string
	ImageURL    *string
	Gallery     []string
	Beneficiary *string
	GoalAmount  *int64
	IsActive    *bool
}

type campaignService struct {
	campaignRepo repository.CampaignRepository
	donationRepo repository.DonationRepository
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(campaignRepo repository.CampaignRepository, donationRepo repository.DonationRepository) CampaignService {
	return &campaignService{
		campaignRepo: campaignRepo,
		donationRepo: donationRepo,
	}
}

// List returns campaigns for the given status filter. Non-privileged callers
// cannot request archived rows and never see them in "all".
func (s *campaignService) List(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error) {
	if status == "" {
		status = models.CampaignFilterActive
	}
	switch status {
	case models.CampaignFilterActive, models.CampaignFilterInactive, models.CampaignFilterArchived, models.CampaignFilterAll:
	default:
		return nil, apierrors.NewValidationError("status", "must be one of: active, inactive, archived, all")
	}

	if status == models.CampaignFilterArchived && !privileged {
		return nil, apierrors.ErrForbidden
	}

	if limit <= 0 || limit > maxCampaignListLimit {
		limit = maxCampaignListLimit
	}
	if offset < 0 {
		offset = 0
	}

	return s.campaignRepo.List(ctx, repository.CampaignFilter{
		Status:          status,
		Limit:           limit,
		Offset:          offset,
		IncludeArchived: privileged,
	})
}

// Get returns a campaign. For non-privileged callers an archived campaign is
// indistinguishable from a nonexistent one.
func (s *campaignService) Get(ctx context.Context, id uuid.UUID, privileged bool) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, apierrors.NewNotFoundError("Campaign")
	}
	if campaign.Archived() && !privileged {
		return nil, apierrors.NewNotFoundError("Campaign")
	}
	return campaign, nil
}

// Create validates and inserts a new campaign, deriving the slug from the
// title when none is supplied.
func (s *campaignService) Create(ctx context.Context, req CreateCampaignRequest) (*models.Campaign, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apierrors.NewValidationError("title", "title is required")
	}
	if req.GoalAmount <= 0 {
		return nil, apierrors.NewValidationError("goal_amount", "goal_amount must be greater than zero")
	}

	campaignSlug := strings.TrimSpace(req.Slug)
	if campaignSlug == "" {
		campaignSlug = slug.Make(title)
	} else {
		campaignSlug = slug.Make(campaignSlug)
	}
	if campaignSlug == "" {
		return nil, apierrors.NewValidationError("slug", "could not derive a slug from title")
	}

	existing, err := s.campaignRepo.GetBySlug(ctx, campaignSlug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apierrors.NewConflictError("A campaign with this slug already exists")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	campaign := &models.Campaign{
		Slug:        campaignSlug,
		Title:       title,
		Description: req.Description,
		Excerpt:     req.Excerpt,
		ImageURL:    req.ImageURL,
		Gallery:     req.Gallery,
		Beneficiary: req.Beneficiary,
		GoalAmount:  req.GoalAmount,
		IsActive:    isActive,
	}

	if err := s.campaignRepo.Create(ctx, campaign); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost the race against a concurrent create with the same slug.
			return nil, apierrors.NewConflictError("A campaign with this slug already exists")
		}
		return nil, err
	}
	return campaign, nil
}

// Update applies a partial update. Only supplied fields are mutated.
func (s *campaignService) Update(ctx context.Context, id uuid.UUID, req UpdateCampaignRequest) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, apierrors.NewNotFoundError("Campaign")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apierrors.NewValidationError("title", "title cannot be empty")
		}
		campaign.Title = title
	}
	if req.GoalAmount != nil {
		if *req.GoalAmount <= 0 {
			return nil, apierrors.NewValidationError("goal_amount", "goal_amount must be greater than zero")
		}
		campaign.GoalAmount = *req.GoalAmount
	}
	if req.Slug != nil {
		newSlug := slug.Make(*req.Slug)
		if newSlug == "" {
			return nil, apierrors.NewValidationError("slug", "slug cannot be empty")
		}
		if newSlug != campaign.Slug {
			existing, err := s.campaignRepo.GetBySlug(ctx, newSlug)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.ID != campaign.ID {
				return nil, apierrors.NewConflictError("A campaign with this slug already exists")
			}
			campaign.Slug = newSlug
		}
	}
	if req.Description != nil {
		campaign.Description = req.Description
	}
	if req.Excerpt != nil {
		campaign.Excerpt = req.Excerpt
	}
	if req.ImageURL != nil {
		campaign.ImageURL = req.ImageURL
	}
	if req.Gallery != nil {
		campaign.Gallery = req.Gallery
	}
	if req.Beneficiary != nil {
		campaign.Beneficiary = req.Beneficiary
	}
	if req.IsActive != nil {
		campaign.IsActive = *req.IsActive
	}

	if err := s.campaignRepo.Update(ctx, campaign); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apierrors.NewConflictError("A campaign with this slug already exists")
		}
		return nil, err
	}
	return campaign, nil
}

// Archive soft-deletes a campaign. Fails if already archived.
func (s *campaignService) Archive(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return apierrors.NewNotFoundError("Campaign")
	}
	if campaign.Archived() {
		return apierrors.NewConflictError("Campaign is already archived")
	}
	return s.campaignRepo.Archive(ctx, id, time.Now().UTC())
}

// Restore un-archives a campaign and re-activates it. Fails if not archived.
func (s *campaignService) Restore(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return apierrors.NewNotFoundError("Campaign")
	}
	if !campaign.Archived() {
		return apierrors.NewConflictError("Campaign is not archived")
	}
	return s.campaignRepo.Restore(ctx, id)
}

// HardDelete permanently removes a campaign. Blocked while any donation
// references it, regardless of donation status.
func (s *campaignService) HardDelete(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if campaign == nil {
		return apierrors.NewNotFoundError("Campaign")
	}

	count, err := s.donationRepo.CountByCampaign(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apierrors.NewConflictError("Campaign has donations and cannot be permanently deleted")
	}
	return s.campaignRepo.Delete(ctx, id)
}

// ListDonations returns completed donations for a campaign, newest first,
// with anonymous donors masked.
func (s *campaignService) ListDonations(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error) {
	if limit <= 0 {
		limit = defaultDonationListLimit
	}
	if limit > maxDonationListLimit {
		limit = maxDonationListLimit
	}

	donations, err := s.donationRepo.ListCompletedByCampaign(ctx, campaignID, limit)
	if err != nil {
		return nil, err
	}

	for _, d := range donations {
		if d.IsAnonymous {
			d.DonorName = models.AnonymousDonorName
		}
		// Donor contact details never leave the system through public reads.
		d.DonorEmail = ""
	}
	return donations, nil
}

// Compile-time check to ensure campaignService implements CampaignService.
var _ CampaignService = (*campaignService)(nil)

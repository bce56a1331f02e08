package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
)

// CampaignFilter narrows a campaign listing.
type CampaignFilter struct {
	Status          models.CampaignStatusFilter
	Limit           int
	Offset          int
	IncludeArchived bool
}

// CampaignRepository defines the interface for campaign data operations.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*models.Campaign, error)
	List(ctx context.Context, filter CampaignFilter) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	Restore(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type campaignRepo struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepo{pool: pool}
}

const campaignColumns = `id, org_id, slug, title, description, excerpt, image_url, gallery,
	beneficiary, goal_amount, collected_amount, donations_count, is_active, archived_at,
	created_at, updated_at`

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID,
		&c.OrgID,
		&c.Slug,
		&c.Title,
		&c.Description,
		&c.Excerpt,
		&c.ImageURL,
		&c.Gallery,
		&c.Beneficiary,
		&c.GoalAmount,
		&c.CollectedAmount,
		&c.DonationsCount,
		&c.IsActive,
		&c.ArchivedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new campaign. Returns ErrDuplicateKey on slug collision.
func (r *campaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, org_id, slug, title, description, excerpt, image_url,
			gallery, beneficiary, goal_amount, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING collected_amount, donations_count, created_at, updated_at`

	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	if campaign.Gallery == nil {
		campaign.Gallery = []string{}
	}

	err := r.pool.QueryRow(ctx, query,
		campaign.ID,
		campaign.OrgID,
		campaign.Slug,
		campaign.Title,
		campaign.Description,
		campaign.Excerpt,
		campaign.ImageURL,
		campaign.Gallery,
		campaign.Beneficiary,
		campaign.GoalAmount,
		campaign.IsActive,
	).Scan(&campaign.CollectedAmount, &campaign.DonationsCount, &campaign.CreatedAt, &campaign.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

// GetByID retrieves a campaign by its UUID.
func (r *campaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	return scanCampaign(r.pool.QueryRow(ctx, query, id))
}

// GetBySlug retrieves a campaign by its URL slug.
func (r *campaignRepo) GetBySlug(ctx context.Context, slug string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE slug = $1`
	return scanCampaign(r.pool.QueryRow(ctx, query, slug))
}

// List retrieves campaigns matching the filter, newest first.
func (r *campaignRepo) List(ctx context.Context, filter CampaignFilter) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}

	switch filter.Status {
	case models.CampaignFilterActive:
		query += ` AND is_active = true AND archived_at IS NULL`
	case models.CampaignFilterInactive:
		query += ` AND is_active = false AND archived_at IS NULL`
	case models.CampaignFilterArchived:
		query += ` AND archived_at IS NOT NULL`
	default: // all
		if !filter.IncludeArchived {
			query += ` AND archived_at IS NULL`
		}
	}

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $1`
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		if len(args) == 1 {
			query += ` OFFSET $1`
		} else {
			query += ` OFFSET $2`
		}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(
			&c.ID,
			&c.OrgID,
			&c.Slug,
			&c.Title,
			&c.Description,
			&c.Excerpt,
			&c.ImageURL,
			&c.Gallery,
			&c.Beneficiary,
			&c.GoalAmount,
			&c.CollectedAmount,
			&c.DonationsCount,
			&c.IsActive,
			&c.ArchivedAt,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, &c)
	}
	return campaigns, rows.Err()
}

// Update persists the campaign's mutable fields. Aggregates are only touched
// by donation completion. Returns ErrDuplicateKey on slug collision.
func (r *campaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaigns
		SET slug = $2, title = $3, description = $4, excerpt = $5, image_url = $6,
			gallery = $7, beneficiary = $8, goal_amount = $9, is_active = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		campaign.ID,
		campaign.Slug,
		campaign.Title,
		campaign.Description,
		campaign.Excerpt,
		campaign.ImageURL,
		campaign.Gallery,
		campaign.Beneficiary,
		campaign.GoalAmount,
		campaign.IsActive,
	).Scan(&campaign.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

// Archive soft-deletes the campaign.
func (r *campaignRepo) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE campaigns SET archived_at = $2, is_active = false, updated_at = now() WHERE id = $1 AND archived_at IS NULL`
	result, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Restore un-archives the campaign and re-activates it.
func (r *campaignRepo) Restore(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE campaigns SET archived_at = NULL, is_active = true, updated_at = now() WHERE id = $1 AND archived_at IS NOT NULL`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete permanently removes a campaign. Callers must first verify no
// donations reference it.
func (r *campaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM campaigns WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Compile-time check to ensure campaignRepo implements CampaignRepository.
var _ CampaignRepository = (*campaignRepo)(nil)

// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
)

// OrgRepository defines the interface for organization data operations.
type OrgRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetByEmail(ctx context.Context, email string) (*models.Organization, error)
	GetByStripeAccount(ctx context.Context, accountID string) (*models.Organization, error)
	UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string, status models.ConnectStatus) error
}

type orgRepo struct {
	pool *pgxpool.Pool
}

// NewOrgRepository creates a new organization repository.
func NewOrgRepository(pool *pgxpool.Pool) OrgRepository {
	return &orgRepo{pool: pool}
}

const orgColumns = `id, name, email, stripe_account_id, stripe_account_status, created_at, updated_at`

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Email,
		&org.StripeAccountID,
		&org.StripeAccountStatus,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts a new organization.
func (r *orgRepo) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, email, stripe_account_id, stripe_account_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}

	return r.pool.QueryRow(ctx, query,
		org.ID,
		org.Name,
		strings.ToLower(org.Email),
		org.StripeAccountID,
		org.StripeAccountStatus,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
}

// GetByID retrieves an organization by its UUID.
func (r *orgRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves an organization by email. Lookup is case-insensitive.
func (r *orgRepo) GetByEmail(ctx context.Context, email string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE LOWER(email) = $1`
	return scanOrg(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

// GetByStripeAccount retrieves an organization by its connected account id.
func (r *orgRepo) GetByStripeAccount(ctx context.Context, accountID string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE stripe_account_id = $1`
	return scanOrg(r.pool.QueryRow(ctx, query, accountID))
}

// UpdateStripeAccount stores the connected account id and its status.
func (r *orgRepo) UpdateStripeAccount(ctx context.Context, id uuid.UUID, accountID string, status models.ConnectStatus) error {
	query := `
		UPDATE organizations
		SET stripe_account_id = $2, stripe_account_status = $3, updated_at = now()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, accountID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Compile-time check to ensure orgRepo implements OrgRepository.
var _ OrgRepository = (*orgRepo)(nil)

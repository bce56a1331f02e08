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

// ErrDuplicateKey is returned when an insert violates a unique constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// LicenseRepository defines the interface for license data operations.
type LicenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	GetByKey(ctx context.Context, key string) (*models.License, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.License, error)
	GetCurrentByOrg(ctx context.Context, orgID uuid.UUID) (*models.License, error)
	GetCurrentByEmail(ctx context.Context, email string) (*models.License, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.LicenseStatus) error
	UpdatePeriod(ctx context.Context, id uuid.UUID, status models.LicenseStatus, periodStart, periodEnd *time.Time) error
	MarkCancelled(ctx context.Context, id uuid.UUID, cancelledAt time.Time) error
	ListActiveExpiringBetween(ctx context.Context, start, end time.Time) ([]*models.License, error)
}

type licenseRepo struct {
	pool *pgxpool.Pool
}

// NewLicenseRepository creates a new license repository.
func NewLicenseRepository(pool *pgxpool.Pool) LicenseRepository {
	return &licenseRepo{pool: pool}
}

const licenseColumns = `id, org_id, license_key, plan, status, trial_ends_at,
	current_period_start, current_period_end, cancelled_at,
	stripe_subscription_id, stripe_customer_id, created_at, updated_at`

func scanLicense(row pgx.Row) (*models.License, error) {
	var l models.License
	err := row.Scan(
		&l.ID,
		&l.OrgID,
		&l.LicenseKey,
		&l.Plan,
		&l.Status,
		&l.TrialEndsAt,
		&l.CurrentPeriodStart,
		&l.CurrentPeriodEnd,
		&l.CancelledAt,
		&l.StripeSubscriptionID,
		&l.StripeCustomerID,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new license. Returns ErrDuplicateKey when the generated
// license key collides with an existing one; callers retry with a new key.
func (r *licenseRepo) Create(ctx context.Context, license *models.License) error {
	query := `
		INSERT INTO licenses (id, org_id, license_key, plan, status, trial_ends_at,
			current_period_start, current_period_end, stripe_subscription_id, stripe_customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	if license.ID == uuid.Nil {
		license.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		license.ID,
		license.OrgID,
		license.LicenseKey,
		license.Plan,
		license.Status,
		license.TrialEndsAt,
		license.CurrentPeriodStart,
		license.CurrentPeriodEnd,
		license.StripeSubscriptionID,
		license.StripeCustomerID,
	).Scan(&license.CreatedAt, &license.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

// GetByID retrieves a license by its UUID.
func (r *licenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	return scanLicense(r.pool.QueryRow(ctx, query, id))
}

// GetByKey retrieves a license by its key. Callers normalize the key first.
func (r *licenseRepo) GetByKey(ctx context.Context, key string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE UPPER(license_key) = $1`
	return scanLicense(r.pool.QueryRow(ctx, query, key))
}

// GetBySubscriptionID retrieves a license by its external subscription id.
func (r *licenseRepo) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.License, error) {
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE stripe_subscription_id = $1`
	return scanLicense(r.pool.QueryRow(ctx, query, subscriptionID))
}

// GetCurrentByOrg retrieves the organization's license in active or trial
// state, if any. At most one exists per organization at a time.
func (r *licenseRepo) GetCurrentByOrg(ctx context.Context, orgID uuid.UUID) (*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE org_id = $1 AND status IN ('active', 'trial')
		ORDER BY created_at DESC
		LIMIT 1`
	return scanLicense(r.pool.QueryRow(ctx, query, orgID))
}

// GetCurrentByEmail retrieves the active or trial license for the
// organization owning the given email.
func (r *licenseRepo) GetCurrentByEmail(ctx context.Context, email string) (*models.License, error) {
	query := `
		SELECT l.id, l.org_id, l.license_key, l.plan, l.status, l.trial_ends_at,
			l.current_period_start, l.current_period_end, l.cancelled_at,
			l.stripe_subscription_id, l.stripe_customer_id, l.created_at, l.updated_at
		FROM licenses l
		JOIN organizations o ON o.id = l.org_id
		WHERE LOWER(o.email) = LOWER($1) AND l.status IN ('active', 'trial')
		ORDER BY l.created_at DESC
		LIMIT 1`
	return scanLicense(r.pool.QueryRow(ctx, query, email))
}

// UpdateStatus sets the persisted status.
func (r *licenseRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.LicenseStatus) error {
	query := `UPDATE licenses SET status = $2, updated_at = now() WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdatePeriod syncs status and billing period bounds from a subscription event.
func (r *licenseRepo) UpdatePeriod(ctx context.Context, id uuid.UUID, status models.LicenseStatus, periodStart, periodEnd *time.Time) error {
	query := `
		UPDATE licenses
		SET status = $2, current_period_start = $3, current_period_end = $4, updated_at = now()
		WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status, periodStart, periodEnd)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkCancelled forces the license to expired and stamps cancelled_at.
func (r *licenseRepo) MarkCancelled(ctx context.Context, id uuid.UUID, cancelledAt time.Time) error {
	query := `
		UPDATE licenses
		SET status = 'expired', cancelled_at = $2, updated_at = now()
		WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, cancelledAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActiveExpiringBetween returns active licenses whose current period ends
// inside [start, end]. Used by the reminder scheduler's day windows.
func (r *licenseRepo) ListActiveExpiringBetween(ctx context.Context, start, end time.Time) ([]*models.License, error) {
	query := `
		SELECT ` + licenseColumns + `
		FROM licenses
		WHERE status = 'active' AND current_period_end BETWEEN $1 AND $2
		ORDER BY current_period_end`

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		var l models.License
		if err := rows.Scan(
			&l.ID,
			&l.OrgID,
			&l.LicenseKey,
			&l.Plan,
			&l.Status,
			&l.TrialEndsAt,
			&l.CurrentPeriodStart,
			&l.CurrentPeriodEnd,
			&l.CancelledAt,
			&l.StripeSubscriptionID,
			&l.StripeCustomerID,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		licenses = append(licenses, &l)
	}
	return licenses, rows.Err()
}

// Compile-time check to ensure licenseRepo implements LicenseRepository.
var _ LicenseRepository = (*licenseRepo)(nil)

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
)

// DonationRepository defines the interface for donation data operations.
type DonationRepository interface {
	Create(ctx context.Context, donation *models.Donation) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Donation, error)
	ListCompletedByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error)
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error)
	// CompleteBySession transitions a pending donation to completed, stores
	// the payment reference, and folds the amount into its campaign's
	// aggregates, all in one transaction. Returns the transitioned donation,
	// or nil when no pending donation matched (already reconciled or never
	// recorded) so replayed events cannot double-count.
	CompleteBySession(ctx context.Context, sessionID, paymentIntentID string) (*models.Donation, error)
	MarkFailedByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Donation, error)
}

type donationRepo struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(pool *pgxpool.Pool) DonationRepository {
	return &donationRepo{pool: pool}
}

const donationColumns = `id, campaign_id, amount, donor_name, donor_email, message,
	is_anonymous, status, stripe_session_id, stripe_payment_intent_id, created_at, updated_at`

func scanDonation(row pgx.Row) (*models.Donation, error) {
	var d models.Donation
	err := row.Scan(
		&d.ID,
		&d.CampaignID,
		&d.Amount,
		&d.DonorName,
		&d.DonorEmail,
		&d.Message,
		&d.IsAnonymous,
		&d.Status,
		&d.StripeSessionID,
		&d.StripePaymentIntentID,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new pending donation keyed by its checkout session id.
func (r *donationRepo) Create(ctx context.Context, donation *models.Donation) error {
	query := `
		INSERT INTO donations (id, campaign_id, amount, donor_name, donor_email, message,
			is_anonymous, status, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	if donation.Status == "" {
		donation.Status = models.DonationStatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		donation.ID,
		donation.CampaignID,
		donation.Amount,
		donation.DonorName,
		donation.DonorEmail,
		donation.Message,
		donation.IsAnonymous,
		donation.Status,
		donation.StripeSessionID,
	).Scan(&donation.CreatedAt, &donation.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

// GetBySessionID retrieves a donation by its checkout session reference.
func (r *donationRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE stripe_session_id = $1`
	return scanDonation(r.pool.QueryRow(ctx, query, sessionID))
}

// ListCompletedByCampaign retrieves completed donations, newest first.
func (r *donationRepo) ListCompletedByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE campaign_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		var d models.Donation
		if err := rows.Scan(
			&d.ID,
			&d.CampaignID,
			&d.Amount,
			&d.DonorName,
			&d.DonorEmail,
			&d.Message,
			&d.IsAnonymous,
			&d.Status,
			&d.StripeSessionID,
			&d.StripePaymentIntentID,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		donations = append(donations, &d)
	}
	return donations, rows.Err()
}

// CountByCampaign returns the number of donations referencing a campaign,
// regardless of status. Gates hard deletion.
func (r *donationRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM donations WHERE campaign_id = $1`
	var count int
	err := r.pool.QueryRow(ctx, query, campaignID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CompleteBySession transitions a pending donation to completed and updates
// the campaign aggregates in the same transaction, so a crash between the
// two writes cannot leave a completed donation uncounted. The status guard
// in the WHERE clause is the idempotency mechanism.
func (r *donationRepo) CompleteBySession(ctx context.Context, sessionID, paymentIntentID string) (*models.Donation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	completeQuery := `
		UPDATE donations
		SET status = 'completed', stripe_payment_intent_id = $2, updated_at = now()
		WHERE stripe_session_id = $1 AND status = 'pending'
		RETURNING ` + donationColumns

	donation, err := scanDonation(tx.QueryRow(ctx, completeQuery, sessionID, paymentIntentID))
	if err != nil || donation == nil {
		return donation, err
	}

	aggregateQuery := `
		UPDATE campaigns
		SET collected_amount = collected_amount + $2,
			donations_count = donations_count + 1,
			updated_at = now()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, aggregateQuery, donation.CampaignID, donation.Amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return donation, nil
}

// MarkFailedByPaymentIntent transitions a pending donation to failed.
func (r *donationRepo) MarkFailedByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	query := `
		UPDATE donations
		SET status = 'failed', updated_at = now()
		WHERE stripe_payment_intent_id = $1 AND status = 'pending'
		RETURNING ` + donationColumns
	return scanDonation(r.pool.QueryRow(ctx, query, paymentIntentID))
}

// Compile-time check to ensure donationRepo implements DonationRepository.
var _ DonationRepository = (*donationRepo)(nil)

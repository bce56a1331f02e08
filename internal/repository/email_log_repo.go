package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
)

// EmailLogRepository defines the interface for the notification dedup ledger.
type EmailLogRepository interface {
	Exists(ctx context.Context, licenseID uuid.UUID, emailType models.EmailType) (bool, error)
	Create(ctx context.Context, log *models.EmailLog) error
}

type emailLogRepo struct {
	pool *pgxpool.Pool
}

// NewEmailLogRepository creates a new email log repository.
func NewEmailLogRepository(pool *pgxpool.Pool) EmailLogRepository {
	return &emailLogRepo{pool: pool}
}

// Exists reports whether a send was already attempted for this pair.
func (r *emailLogRepo) Exists(ctx context.Context, licenseID uuid.UUID, emailType models.EmailType) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM email_logs WHERE license_id = $1 AND email_type = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, licenseID, emailType).Scan(&exists)
	return exists, err
}

// Create records a send attempt. The unique constraint on
// (license_id, email_type) turns concurrent duplicates into ErrDuplicateKey.
func (r *emailLogRepo) Create(ctx context.Context, log *models.EmailLog) error {
	query := `
		INSERT INTO email_logs (id, license_id, email_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query, log.ID, log.LicenseID, log.EmailType, log.Status).Scan(&log.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return err
}

// Compile-time check to ensure emailLogRepo implements EmailLogRepository.
var _ EmailLogRepository = (*emailLogRepo)(nil)

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/givewidget/givewidget/internal/models"
	"github.com/givewidget/givewidget/internal/pkg/ulid"
)

// WebhookEventRepository records processed payment-processor events for audit.
type WebhookEventRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent) error
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepository creates a new webhook event repository.
func NewWebhookEventRepository(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

// Create inserts an audit row for a processed event.
func (r *webhookEventRepo) Create(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, stripe_event_id, event_type, outcome)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if event.ID == "" {
		event.ID = ulid.New()
	}

	return r.pool.QueryRow(ctx, query,
		event.ID,
		event.StripeEventID,
		event.EventType,
		event.Outcome,
	).Scan(&event.CreatedAt)
}

// Compile-time check to ensure webhookEventRepo implements WebhookEventRepository.
var _ WebhookEventRepository = (*webhookEventRepo)(nil)

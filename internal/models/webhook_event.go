package models

import "time"

// WebhookEvent is an audit row for a processed payment-processor event.
// Written best-effort after dispatch; the idempotency of each handler does
// not depend on it.
type WebhookEvent struct {
	ID            string    `json:"id" db:"id"` // ULID
	StripeEventID string    `json:"stripe_event_id" db:"stripe_event_id"`
	EventType     string    `json:"event_type" db:"event_type"`
	Outcome       string    `json:"outcome" db:"outcome"` // processed, ignored, failed
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Webhook event outcomes.
const (
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeIgnored   = "ignored"
	WebhookOutcomeFailed    = "failed"
)

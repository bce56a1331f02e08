package models

import (
	"time"

	"github.com/google/uuid"
)

// DonationStatus tracks a donation through its payment lifecycle.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
)

// AnonymousDonorName replaces donor_name in public listings when the donor
// asked to stay anonymous.
const AnonymousDonorName = "Anonymous"

// Donation represents a single contribution to a campaign.
type Donation struct {
	ID                    uuid.UUID      `json:"id" db:"id"`
	CampaignID            uuid.UUID      `json:"campaign_id" db:"campaign_id"`
	Amount                int64          `json:"amount" db:"amount"`
	DonorName             string         `json:"donor_name" db:"donor_name"`
	DonorEmail            string         `json:"donor_email,omitempty" db:"donor_email"`
	Message               *string        `json:"message,omitempty" db:"message"`
	IsAnonymous           bool           `json:"is_anonymous" db:"is_anonymous"`
	Status                DonationStatus `json:"status" db:"status"`
	StripeSessionID       string         `json:"-" db:"stripe_session_id"`
	StripePaymentIntentID *string        `json:"-" db:"stripe_payment_intent_id"`
	CreatedAt             time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at" db:"updated_at"`
}

package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Campaign represents a fundraising goal with an accumulating collected amount.
type Campaign struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	OrgID           *uuid.UUID `json:"org_id,omitempty" db:"org_id"`
	Slug            string     `json:"slug" db:"slug"`
	Title           string     `json:"title" db:"title"`
	Description     *string    `json:"description,omitempty" db:"description"`
	Excerpt         *string    `json:"excerpt,omitempty" db:"excerpt"`
	ImageURL        *string    `json:"image_url,omitempty" db:"image_url"`
	Gallery         []string   `json:"gallery,omitempty" db:"gallery"`
	Beneficiary     *string    `json:"beneficiary,omitempty" db:"beneficiary"`
	GoalAmount      int64      `json:"goal_amount" db:"goal_amount"`
	CollectedAmount int64      `json:"collected_amount" db:"collected_amount"`
	DonationsCount  int        `json:"donations_count" db:"donations_count"`
	IsActive        bool       `json:"is_active" db:"is_active"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Archived reports whether the campaign has been soft-deleted.
func (c *Campaign) Archived() bool {
	return c.ArchivedAt != nil
}

// Percentage returns the funding progress as a rounded percentage.
// A zero goal yields 0 to avoid division by zero.
func (c *Campaign) Percentage() int {
	if c.GoalAmount <= 0 {
		return 0
	}
	return int(math.Round(float64(c.CollectedAmount) / float64(c.GoalAmount) * 100))
}

// CampaignStatusFilter selects which campaigns a listing returns.
type CampaignStatusFilter string

const (
	CampaignFilterActive   CampaignStatusFilter = "active"
	CampaignFilterInactive CampaignStatusFilter = "inactive"
	CampaignFilterArchived CampaignStatusFilter = "archived"
	CampaignFilterAll      CampaignStatusFilter = "all"
)

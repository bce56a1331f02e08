package models

import (
	"time"

	"github.com/google/uuid"
)

// LicensePlan represents a subscription billing interval.
type LicensePlan string

const (
	PlanMonthly LicensePlan = "monthly"
	PlanYearly  LicensePlan = "yearly"
)

// Valid reports whether the plan is one of the known billing intervals.
func (p LicensePlan) Valid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// LicenseStatus represents the persisted lifecycle state of a license.
type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusTrial     LicenseStatus = "trial"
	LicenseStatusExpired   LicenseStatus = "expired"
	LicenseStatusCancelled LicenseStatus = "cancelled"
)

// Reported statuses exist only in verification responses, never in the
// database: "locked" means a previously valid license whose period has
// lapsed, "not_found" means the key matched no row.
const (
	ReportedStatusLocked   = "locked"
	ReportedStatusNotFound = "not_found"
)

// License represents a subscription entitlement owned by an organization.
type License struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	OrgID                uuid.UUID     `json:"org_id" db:"org_id"`
	LicenseKey           string        `json:"license_key" db:"license_key"`
	Plan                 LicensePlan   `json:"plan" db:"plan"`
	Status               LicenseStatus `json:"status" db:"status"`
	TrialEndsAt          *time.Time    `json:"trial_ends_at,omitempty" db:"trial_ends_at"`
	CurrentPeriodStart   *time.Time    `json:"current_period_start,omitempty" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time    `json:"current_period_end,omitempty" db:"current_period_end"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	StripeSubscriptionID *string       `json:"stripe_subscription_id,omitempty" db:"stripe_subscription_id"`
	StripeCustomerID     *string       `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

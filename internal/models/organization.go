// Package models defines the data models for the GiveWidget API.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectStatus represents the state of an organization's Stripe connected account.
type ConnectStatus string

const (
	ConnectStatusPending    ConnectStatus = "pending"
	ConnectStatusActive     ConnectStatus = "active"
	ConnectStatusRestricted ConnectStatus = "restricted"
)

// Organization represents a non-profit tenant in the system.
type Organization struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	Name                string         `json:"name" db:"name"`
	Email               string         `json:"email" db:"email"`
	StripeAccountID     *string        `json:"stripe_account_id,omitempty" db:"stripe_account_id"`
	StripeAccountStatus *ConnectStatus `json:"stripe_account_status,omitempty" db:"stripe_account_status"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at" db:"updated_at"`
}

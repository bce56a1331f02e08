package models

import (
	"time"

	"github.com/google/uuid"
)

// DiscountType represents how a promo code reduces the subscription price.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
	DiscountFree    DiscountType = "free"
)

// PromoAppliesTo restricts which plans a promo code can discount.
type PromoAppliesTo string

const (
	PromoAppliesAll     PromoAppliesTo = "all"
	PromoAppliesMonthly PromoAppliesTo = "monthly"
	PromoAppliesYearly  PromoAppliesTo = "yearly"
)

// PromoCode represents a discount token redeemable at subscription checkout.
type PromoCode struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	Code          string         `json:"code" db:"code"`
	DiscountType  DiscountType   `json:"discount_type" db:"discount_type"`
	DiscountValue int64          `json:"discount_value" db:"discount_value"`
	AppliesTo     PromoAppliesTo `json:"applies_to" db:"applies_to"`
	MaxUses       *int           `json:"max_uses,omitempty" db:"max_uses"`
	CurrentUses   int            `json:"current_uses" db:"current_uses"`
	ValidFrom     *time.Time     `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil    *time.Time     `json:"valid_until,omitempty" db:"valid_until"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// AppliesToPlan reports whether the code can discount the given plan.
func (p *PromoCode) AppliesToPlan(plan LicensePlan) bool {
	switch p.AppliesTo {
	case PromoAppliesAll:
		return true
	case PromoAppliesMonthly:
		return plan == PlanMonthly
	case PromoAppliesYearly:
		return plan == PlanYearly
	}
	return false
}

// ValidAt reports whether the code is active and inside its validity window.
// Usage caps are enforced separately, at increment time.
func (p *PromoCode) ValidAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}

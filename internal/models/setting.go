package models

import "time"

// Setting is a single key/value configuration row. Operational knobs that
// admins change without a redeploy (minimum donation amount, banner text)
// live here rather than in the environment.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Well-known setting keys.
const (
	SettingMinDonationAmount = "min_donation_amount"
)

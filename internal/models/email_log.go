package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailType identifies a notification kind for dedup purposes.
type EmailType string

const (
	EmailTypeWelcome    EmailType = "welcome"
	EmailTypeReminder7d EmailType = "reminder_7d"
	EmailTypeReminder3d EmailType = "reminder_3d"
	EmailTypeReminder2d EmailType = "reminder_2d"
	EmailTypeReminder1d EmailType = "reminder_1d"
)

// ReminderEmailType returns the dedup key for an expiry reminder milestone.
func ReminderEmailType(daysBefore int) EmailType {
	switch daysBefore {
	case 7:
		return EmailTypeReminder7d
	case 3:
		return EmailTypeReminder3d
	case 2:
		return EmailTypeReminder2d
	case 1:
		return EmailTypeReminder1d
	}
	return ""
}

// EmailLogStatus records the outcome of a send attempt.
type EmailLogStatus string

const (
	EmailLogStatusSent   EmailLogStatus = "sent"
	EmailLogStatusFailed EmailLogStatus = "failed"
)

// EmailLog is the at-most-once ledger for notification emails. The
// (license_id, email_type) pair is unique: a row's existence means a send
// was attempted and must not be repeated, regardless of outcome.
type EmailLog struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	LicenseID uuid.UUID      `json:"license_id" db:"license_id"`
	EmailType EmailType      `json:"email_type" db:"email_type"`
	Status    EmailLogStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

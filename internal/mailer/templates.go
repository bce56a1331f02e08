package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// WelcomeData fills the welcome email sent after a subscription checkout.
type WelcomeData struct {
	OrgName    string
	LicenseKey string
	Plan       string
	TrialDays  int
}

// ReminderData fills an expiry reminder email.
type ReminderData struct {
	OrgName       string
	LicenseKey    string
	DaysRemaining int
	PeriodEnd     string
}

// RenderWelcome renders the welcome email body.
func RenderWelcome(data WelcomeData) (string, error) {
	return render("welcome.html", data)
}

// RenderReminder renders an expiry reminder email body.
func RenderReminder(data ReminderData) (string, error) {
	return render("reminder.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

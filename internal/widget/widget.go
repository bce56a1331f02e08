// Package widget generates embeddable donation-widget source code. The
// generators are pure template expansions: no state, no I/O beyond the
// embedded sources.
package widget

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Kind selects which host platform the generated source targets.
type Kind string

const (
	KindFramer    Kind = "framer"
	KindWordPress Kind = "wordpress"
)

// Valid reports whether the kind is a known generator target.
func (k Kind) Valid() bool {
	return k == KindFramer || k == KindWordPress
}

// Options are the customizable knobs baked into the generated source.
// Zero values are filled in by Defaults.
type Options struct {
	APIBase        string  // backend base URL the widget calls
	LicenseKey     string  // placeholder key baked into the snippet
	PrimaryColor   string  // hex, buttons and progress bar
	SecondaryColor string  // hex, backgrounds
	AmountPresets  []int64 // suggested donation amounts
	Currency       string  // display currency code
	ShowProgress   bool    // render goal progress bar
	ShowDonors     bool    // render recent donors list
	ShowGoal       bool    // render goal amount text
}

// Defaults returns the options used when the caller leaves fields unset.
func Defaults() Options {
	return Options{
		APIBase:        "https://api.givewidget.app",
		LicenseKey:     "GW-XXXX-XXXX-XXXX",
		PrimaryColor:   "#e11d48",
		SecondaryColor: "#ffffff",
		AmountPresets:  []int64{20, 50, 100, 250},
		Currency:       "PLN",
		ShowProgress:   true,
		ShowDonors:     true,
		ShowGoal:       true,
	}
}

// Generated sources are JSX/PHP and full of braces, so the templates use
// [[ ]] delimiters instead of the defaults.
var templates = template.Must(
	template.New("widget").Delims("[[", "]]").ParseFS(templateFS, "templates/*.tmpl"))

// Generate renders the widget source for the given kind. Unset option
// fields fall back to Defaults.
func Generate(kind Kind, opts Options) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown widget kind %q", kind)
	}

	defaults := Defaults()
	if opts.APIBase == "" {
		opts.APIBase = defaults.APIBase
	}
	if opts.LicenseKey == "" {
		opts.LicenseKey = defaults.LicenseKey
	}
	if opts.PrimaryColor == "" {
		opts.PrimaryColor = defaults.PrimaryColor
	}
	if opts.SecondaryColor == "" {
		opts.SecondaryColor = defaults.SecondaryColor
	}
	if len(opts.AmountPresets) == 0 {
		opts.AmountPresets = defaults.AmountPresets
	}
	if opts.Currency == "" {
		opts.Currency = defaults.Currency
	}

	name := string(kind) + ".tmpl"
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, opts); err != nil {
		return "", fmt.Errorf("failed to render %s widget: %w", kind, err)
	}
	return buf.String(), nil
}

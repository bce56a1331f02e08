package handler

import (
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/widget"
)

// WidgetHandler serves generated embeddable widget source to the dashboard.
type WidgetHandler struct {
	apiBase string
}

// NewWidgetHandler creates a new widget handler. apiBase is baked into the
// generated snippets so they call back to this deployment.
func NewWidgetHandler(apiBase string) *WidgetHandler {
	return &WidgetHandler{apiBase: apiBase}
}

// Generate handles GET /widget/generate?kind=&license_key=&...
// The source comes back as text/plain so dashboards can offer it for copy
// or download.
func (h *WidgetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	kind := widget.Kind(query.Get("kind"))
	if kind == "" {
		kind = widget.KindFramer
	}

	opts := widget.Defaults()
	opts.APIBase = h.apiBase
	if key := query.Get("license_key"); key != "" {
		opts.LicenseKey = key
	}
	if color := query.Get("primary_color"); color != "" {
		opts.PrimaryColor = color
	}
	if color := query.Get("secondary_color"); color != "" {
		opts.SecondaryColor = color
	}
	if presets := query.Get("amounts"); presets != "" {
		opts.AmountPresets = parseAmounts(presets)
	}
	if v := query.Get("show_progress"); v != "" {
		opts.ShowProgress = v == "true"
	}
	if v := query.Get("show_donors"); v != "" {
		opts.ShowDonors = v == "true"
	}
	if v := query.Get("show_goal"); v != "" {
		opts.ShowGoal = v == "true"
	}

	source, err := widget.Generate(kind, opts)
	if err != nil {
		response.Error(w, apierrors.NewValidationError("kind", "kind must be framer or wordpress"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(source))
}

func parseAmounts(s string) []int64 {
	var amounts []int64
	for _, part := range strings.Split(s, ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && n > 0 {
			amounts = append(amounts, n)
		}
	}
	return amounts
}

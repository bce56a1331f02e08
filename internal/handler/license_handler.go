package handler

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// LicenseHandler handles license verification and dashboard info.
type LicenseHandler struct {
	licenses service.LicenseService
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(licenses service.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenses: licenses}
}

// VerifyHTTPRequest is the HTTP request body for POST /license/verify.
type VerifyHTTPRequest struct {
	LicenseKey string `json:"license_key"`
	Domain     string `json:"domain,omitempty"`
}

// Verify handles POST /license/verify. Always 200 unless the request body
// itself is malformed: a missing or lapsed key is a normal answer carried
// in the flat payload, never an HTTP error. Widgets poll this on every page
// load, so the contract must be cheap and uniform.
func (h *LicenseHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	result, err := h.licenses.Verify(r.Context(), req.LicenseKey, req.Domain)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Raw(w, http.StatusOK, result)
}

// Info handles GET /license/info?key=
func (h *LicenseHandler) Info(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.Error(w, apierrors.NewValidationError("key", "key is required"))
		return
	}

	info, err := h.licenses.Info(r.Context(), key)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, info)
}

package handler

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// ConnectHandler handles connected-account onboarding, keyed by license key.
type ConnectHandler struct {
	connect service.ConnectService
}

// NewConnectHandler creates a new connect handler.
func NewConnectHandler(connect service.ConnectService) *ConnectHandler {
	return &ConnectHandler{connect: connect}
}

// ConnectHTTPRequest is the HTTP request body for POST /connect/stripe.
type ConnectHTTPRequest struct {
	LicenseKey string `json:"license_key"`
}

// Start handles POST /connect/stripe
func (h *ConnectHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req ConnectHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if req.LicenseKey == "" {
		response.Error(w, apierrors.NewValidationError("license_key", "license_key is required"))
		return
	}

	result, err := h.connect.StartOnboarding(r.Context(), req.LicenseKey)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Status handles GET /connect/stripe?key=
func (h *ConnectHandler) Status(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		response.Error(w, apierrors.NewValidationError("key", "key is required"))
		return
	}

	state, err := h.connect.GetState(r.Context(), key)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, state)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// CheckoutHandler handles checkout session creation for both donations and
// subscriptions.
type CheckoutHandler struct {
	checkout service.CheckoutService
	validate *validator.Validate
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		validate: validator.New(),
	}
}

// DonationCheckoutHTTPRequest is the HTTP request body for POST /checkout.
type DonationCheckoutHTTPRequest struct {
	CampaignID  string  `json:"campaign_id" validate:"required"`
	Amount      int64   `json:"amount"`
	DonorName   string  `json:"donor_name" validate:"required"`
	DonorEmail  string  `json:"donor_email" validate:"required,email"`
	Message     *string `json:"message,omitempty"`
	IsAnonymous bool    `json:"is_anonymous"`
	SuccessURL  string  `json:"success_url,omitempty"`
	CancelURL   string  `json:"cancel_url,omitempty"`
}

// CreateDonation handles POST /checkout
func (h *CheckoutHandler) CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req DonationCheckoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage(err.Error()))
		return
	}

	campaignID, err := uuid.Parse(req.CampaignID)
	if err != nil {
		response.Error(w, apierrors.NewValidationError("campaign_id", "invalid UUID format"))
		return
	}

	result, err := h.checkout.CreateDonationCheckout(r.Context(), service.DonationCheckoutRequest{
		CampaignID:  campaignID,
		Amount:      req.Amount,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// LicenseCheckoutHTTPRequest is the HTTP request body for POST /license/checkout.
type LicenseCheckoutHTTPRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Plan       string `json:"plan" validate:"required"`
	PromoCode  string `json:"promo_code,omitempty"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

// CreateLicense handles POST /license/checkout
func (h *CheckoutHandler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	var req LicenseCheckoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage(err.Error()))
		return
	}

	result, err := h.checkout.CreateLicenseCheckout(r.Context(), service.LicenseCheckoutRequest{
		Email:      req.Email,
		Plan:       models.LicensePlan(req.Plan),
		PromoCode:  req.PromoCode,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

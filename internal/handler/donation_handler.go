package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// DonationHandler serves the public donation feed.
type DonationHandler struct {
	campaigns service.CampaignService
}

// NewDonationHandler creates a new donation handler.
func NewDonationHandler(campaigns service.CampaignService) *DonationHandler {
	return &DonationHandler{campaigns: campaigns}
}

// Routes returns a chi router with donation routes.
func (h *DonationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

// List handles GET /donations?campaign_id=&limit=. Completed donations
// only, newest first, anonymous donors masked, contact details scrubbed.
func (h *DonationHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(r.URL.Query().Get("campaign_id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("campaign_id", "campaign_id is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	donations, err := h.campaigns.ListDonations(r.Context(), campaignID, limit)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, donations)
}

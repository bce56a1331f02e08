// Package handler provides HTTP handlers for the GiveWidget API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/middleware"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// CampaignHandler handles campaign HTTP requests.
type CampaignHandler struct {
	campaigns service.CampaignService
	validate  *validator.Validate
}

// NewCampaignHandler creates a new campaign handler.
func NewCampaignHandler(campaigns service.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaigns: campaigns,
		validate:  validator.New(),
	}
}

// Routes returns a chi router with campaign routes. Reads are public with
// admin detection; writes require the admin key outright.
func (h *CampaignHandler) Routes(adminKey string) chi.Router {
	r := chi.NewRouter()

	r.With(middleware.DetectAdmin(adminKey)).Get("/", h.List)
	r.With(middleware.DetectAdmin(adminKey)).Get("/{id}", h.Get)
	r.With(middleware.RequireAdmin(adminKey)).Post("/", h.Create)
	r.With(middleware.RequireAdmin(adminKey)).Put("/{id}", h.Update)
	r.With(middleware.RequireAdmin(adminKey)).Delete("/{id}", h.Delete)

	return r
}

// CampaignResponse decorates a campaign with its derived funding percentage.
type CampaignResponse struct {
	*models.Campaign
	Percentage int `json:"percentage"`
}

func toCampaignResponse(c *models.Campaign) CampaignResponse {
	return CampaignResponse{Campaign: c, Percentage: c.Percentage()}
}

func toCampaignResponses(campaigns []*models.Campaign) []CampaignResponse {
	out := make([]CampaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c))
	}
	return out
}

// List handles GET /campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.CampaignStatusFilter(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	campaigns, err := h.campaigns.List(r.Context(), status, limit, offset, middleware.IsPrivileged(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toCampaignResponses(campaigns))
}

// Get handles GET /campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	campaign, err := h.campaigns.Get(r.Context(), id, middleware.IsPrivileged(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toCampaignResponse(campaign))
}

// CreateCampaignHTTPRequest is the HTTP request body for creating a campaign.
type CreateCampaignHTTPRequest struct {
	Title       string   `json:"title" validate:"required"`
	Slug        string   `json:"slug,omitempty"`
	Description *string  `json:"description,omitempty"`
	Excerpt     *string  `json:"excerpt,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Gallery     []string `json:"gallery,omitempty"`
	Beneficiary *string  `json:"beneficiary,omitempty"`
	GoalAmount  int64    `json:"goal_amount" validate:"required,gt=0"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// Create handles POST /campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage(err.Error()))
		return
	}

	campaign, err := h.campaigns.Create(r.Context(), service.CreateCampaignRequest{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Excerpt:     req.Excerpt,
		ImageURL:    req.ImageURL,
		Gallery:     req.Gallery,
		Beneficiary: req.Beneficiary,
		GoalAmount:  req.GoalAmount,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, toCampaignResponse(campaign))
}

// UpdateCampaignHTTPRequest is the HTTP request body for a partial update.
type UpdateCampaignHTTPRequest struct {
	Title       *string  `json:"title,omitempty"`
	Slug        *string  `json:"slug,omitempty"`
	Description *string  `json:"description,omitempty"`
	Excerpt     *string  `json:"excerpt,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Gallery     []string `json:"gallery,omitempty"`
	Beneficiary *string  `json:"beneficiary,omitempty"`
	GoalAmount  *int64   `json:"goal_amount,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// Update handles PUT /campaigns/{id}
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	var req UpdateCampaignHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	campaign, err := h.campaigns.Update(r.Context(), id, service.UpdateCampaignRequest{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Excerpt:     req.Excerpt,
		ImageURL:    req.ImageURL,
		Gallery:     req.Gallery,
		Beneficiary: req.Beneficiary,
		GoalAmount:  req.GoalAmount,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toCampaignResponse(campaign))
}

// Delete handles DELETE /campaigns/{id}. The default is a soft archive;
// ?permanent=true hard-deletes (blocked while donations exist) and
// ?restore=true un-archives instead.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, apierrors.NewValidationError("id", "invalid UUID format"))
		return
	}

	query := r.URL.Query()
	switch {
	case query.Get("restore") == "true":
		err = h.campaigns.Restore(r.Context(), id)
	case query.Get("permanent") == "true":
		err = h.campaigns.HardDelete(r.Context(), id)
	default:
		err = h.campaigns.Archive(r.Context(), id)
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

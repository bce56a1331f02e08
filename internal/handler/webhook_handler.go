package handler

import (
	"io"
	"net/http"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// maxWebhookBody caps processor callback payloads.
const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandler receives payment-processor callbacks.
type WebhookHandler struct {
	webhooks service.WebhookService
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhooks service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Handle handles POST /webhook and POST /license/webhook. The raw body is
// read untouched before anything else: signature verification runs over the
// exact bytes the processor sent. A signature failure is the only non-200
// response, deliberately, so the processor retries it and nothing else.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Failed to read request body"))
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if err := h.webhooks.HandleWebhook(r.Context(), payload, sigHeader); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]bool{"received": true})
}

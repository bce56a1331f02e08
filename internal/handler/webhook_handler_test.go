package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stripe/stripe-go/v76"

	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
)

type mockWebhookService struct {
	handleFunc  func(ctx context.Context, payload []byte, sigHeader string) error
	processFunc func(ctx context.Context, event stripe.Event) error
}

func (m *mockWebhookService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if m.handleFunc != nil {
		return m.handleFunc(ctx, payload, sigHeader)
	}
	return nil
}

func (m *mockWebhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	if m.processFunc != nil {
		return m.processFunc(ctx, event)
	}
	return nil
}

func TestWebhookHandler_Handle(t *testing.T) {
	t.Run("passes raw body and signature through", func(t *testing.T) {
		var gotPayload []byte
		var gotSig string
		h := NewWebhookHandler(&mockWebhookService{
			handleFunc: func(ctx context.Context, payload []byte, sigHeader string) error {
				gotPayload = payload
				gotSig = sigHeader
				return nil
			},
		})

		raw := `{"id": "evt_1", "type": "checkout.session.completed"}`
		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(raw))
		req.Header.Set("Stripe-Signature", "t=123,v1=abc")
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if string(gotPayload) != raw {
			t.Errorf("payload = %q, want the raw body untouched", gotPayload)
		}
		if gotSig != "t=123,v1=abc" {
			t.Errorf("signature = %q", gotSig)
		}
		if !strings.Contains(rec.Body.String(), `"received":true`) {
			t.Errorf("body = %s, want received ack", rec.Body.String())
		}
	})

	t.Run("signature failure is 400", func(t *testing.T) {
		h := NewWebhookHandler(&mockWebhookService{
			handleFunc: func(ctx context.Context, payload []byte, sigHeader string) error {
				return apierrors.ErrBadRequest.WithMessage("Invalid webhook signature")
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString("{}"))
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

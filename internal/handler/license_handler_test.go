package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/givewidget/givewidget/internal/models"
	"github.com/givewidget/givewidget/internal/service"
)

type mockLicenseService struct {
	verifyFunc func(ctx context.Context, key, domain string) (*service.VerifyResult, error)
	infoFunc   func(ctx context.Context, key string) (*service.LicenseInfo, error)
	issueFunc  func(ctx context.Context, params service.IssueLicenseParams) (*models.License, error)
}

func (m *mockLicenseService) Verify(ctx context.Context, key, domain string) (*service.VerifyResult, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, key, domain)
	}
	return &service.VerifyResult{Valid: false, Status: string(models.ReportedStatusNotFound)}, nil
}

func (m *mockLicenseService) Info(ctx context.Context, key string) (*service.LicenseInfo, error) {
	if m.infoFunc != nil {
		return m.infoFunc(ctx, key)
	}
	return nil, nil
}

func (m *mockLicenseService) Issue(ctx context.Context, params service.IssueLicenseParams) (*models.License, error) {
	if m.issueFunc != nil {
		return m.issueFunc(ctx, params)
	}
	return nil, nil
}

func TestLicenseHandler_Verify(t *testing.T) {
	h := NewLicenseHandler(&mockLicenseService{
		verifyFunc: func(ctx context.Context, key, domain string) (*service.VerifyResult, error) {
			if key == "GW-AAAA-BBBB-CCCC" {
				return &service.VerifyResult{
					Valid:         true,
					Status:        "active",
					Plan:          models.PlanMonthly,
					DaysRemaining: 12,
					Organization:  "Fundacja",
				}, nil
			}
			return &service.VerifyResult{Valid: false, Status: "not_found"}, nil
		},
	})

	t.Run("known key", func(t *testing.T) {
		body := bytes.NewBufferString(`{"license_key": "GW-AAAA-BBBB-CCCC", "domain": "example.com"}`)
		req := httptest.NewRequest(http.MethodPost, "/license/verify", body)
		rec := httptest.NewRecorder()
		h.Verify(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		// Flat payload, no success envelope.
		var result service.VerifyResult
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !result.Valid {
			t.Error("valid = false, want true")
		}
		if result.DaysRemaining != 12 {
			t.Errorf("days_remaining = %d, want 12", result.DaysRemaining)
		}
	})

	t.Run("unknown key is still 200", func(t *testing.T) {
		body := bytes.NewBufferString(`{"license_key": "GW-ZZZZ-ZZZZ-ZZZZ"}`)
		req := httptest.NewRequest(http.MethodPost, "/license/verify", body)
		rec := httptest.NewRecorder()
		h.Verify(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"not_found"`) {
			t.Errorf("body = %s, want not_found status", rec.Body.String())
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/license/verify", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		h.Verify(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestLicenseHandler_Info(t *testing.T) {
	h := NewLicenseHandler(&mockLicenseService{
		infoFunc: func(ctx context.Context, key string) (*service.LicenseInfo, error) {
			return &service.LicenseInfo{
				License:      &models.License{LicenseKey: key, Plan: models.PlanYearly},
				Organization: &models.Organization{Name: "Fundacja"},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/license/info?key=GW-AAAA-BBBB-CCCC", nil)
	rec := httptest.NewRecorder()
	h.Info(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/license/info", nil)
	rec = httptest.NewRecorder()
	h.Info(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing key status = %d, want 400", rec.Code)
	}
}

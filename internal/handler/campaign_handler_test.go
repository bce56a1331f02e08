package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
	"github.com/givewidget/givewidget/internal/service"
)

// mockCampaignService is a mock implementation of CampaignService.
type mockCampaignService struct {
	listFunc          func(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error)
	getFunc           func(ctx context.Context, id uuid.UUID, privileged bool) (*models.Campaign, error)
	createFunc        func(ctx context.Context, req service.CreateCampaignRequest) (*models.Campaign, error)
	updateFunc        func(ctx context.Context, id uuid.UUID, req service.UpdateCampaignRequest) (*models.Campaign, error)
	archiveFunc       func(ctx context.Context, id uuid.UUID) error
	restoreFunc       func(ctx context.Context, id uuid.UUID) error
	hardDeleteFunc    func(ctx context.Context, id uuid.UUID) error
	listDonationsFunc func(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error)
}

func (m *mockCampaignService) List(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, status, limit, offset, privileged)
	}
	return nil, nil
}

func (m *mockCampaignService) Get(ctx context.Context, id uuid.UUID, privileged bool) (*models.Campaign, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id, privileged)
	}
	return nil, apierrors.NewNotFoundError("Campaign")
}

func (m *mockCampaignService) Create(ctx context.Context, req service.CreateCampaignRequest) (*models.Campaign, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockCampaignService) Update(ctx context.Context, id uuid.UUID, req service.UpdateCampaignRequest) (*models.Campaign, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, req)
	}
	return nil, nil
}

func (m *mockCampaignService) Archive(ctx context.Context, id uuid.UUID) error {
	if m.archiveFunc != nil {
		return m.archiveFunc(ctx, id)
	}
	return nil
}

func (m *mockCampaignService) Restore(ctx context.Context, id uuid.UUID) error {
	if m.restoreFunc != nil {
		return m.restoreFunc(ctx, id)
	}
	return nil
}

func (m *mockCampaignService) HardDelete(ctx context.Context, id uuid.UUID) error {
	if m.hardDeleteFunc != nil {
		return m.hardDeleteFunc(ctx, id)
	}
	return nil
}

func (m *mockCampaignService) ListDonations(ctx context.Context, campaignID uuid.UUID, limit int) ([]*models.Donation, error) {
	if m.listDonationsFunc != nil {
		return m.listDonationsFunc(ctx, campaignID, limit)
	}
	return nil, nil
}

const testAdminKey = "test-admin-key"

func testCampaign() *models.Campaign {
	return &models.Campaign{
		ID:              uuid.New(),
		Slug:            "test-campaign",
		Title:           "Test Campaign",
		GoalAmount:      1000,
		CollectedAmount: 500,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func TestCampaignHandler_List(t *testing.T) {
	campaign := testCampaign()

	t.Run("public request is not privileged", func(t *testing.T) {
		var sawPrivileged bool
		mock := &mockCampaignService{
			listFunc: func(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error) {
				sawPrivileged = privileged
				return []*models.Campaign{campaign}, nil
			},
		}
		router := NewCampaignHandler(mock).Routes(testAdminKey)

		req := httptest.NewRequest(http.MethodGet, "/?status=active", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if sawPrivileged {
			t.Error("public request marked privileged")
		}

		var body struct {
			Data []CampaignResponse `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Data) != 1 {
			t.Fatalf("data len = %d, want 1", len(body.Data))
		}
		if body.Data[0].Percentage != 50 {
			t.Errorf("percentage = %d, want 50", body.Data[0].Percentage)
		}
	})

	t.Run("admin key marks request privileged", func(t *testing.T) {
		var sawPrivileged bool
		mock := &mockCampaignService{
			listFunc: func(ctx context.Context, status models.CampaignStatusFilter, limit, offset int, privileged bool) ([]*models.Campaign, error) {
				sawPrivileged = privileged
				return nil, nil
			},
		}
		router := NewCampaignHandler(mock).Routes(testAdminKey)

		req := httptest.NewRequest(http.MethodGet, "/?status=archived", nil)
		req.Header.Set("X-API-Key", testAdminKey)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if !sawPrivileged {
			t.Error("admin request not marked privileged")
		}
	})
}

func TestCampaignHandler_Get(t *testing.T) {
	campaign := testCampaign()
	mock := &mockCampaignService{
		getFunc: func(ctx context.Context, id uuid.UUID, privileged bool) (*models.Campaign, error) {
			if id == campaign.ID {
				return campaign, nil
			}
			return nil, apierrors.NewNotFoundError("Campaign")
		},
	}
	router := NewCampaignHandler(mock).Routes(testAdminKey)

	req := httptest.NewRequest(http.MethodGet, "/"+campaign.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCampaignHandler_CreateRequiresAdmin(t *testing.T) {
	mock := &mockCampaignService{
		createFunc: func(ctx context.Context, req service.CreateCampaignRequest) (*models.Campaign, error) {
			c := testCampaign()
			c.Title = req.Title
			return c, nil
		},
	}
	router := NewCampaignHandler(mock).Routes(testAdminKey)

	body, _ := json.Marshal(map[string]any{"title": "New", "goal_amount": 100})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testAdminKey)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("authenticated status = %d, want 201", rec.Code)
	}
}

func TestCampaignHandler_DeleteModes(t *testing.T) {
	id := uuid.New()
	var archived, restored, deleted bool
	mock := &mockCampaignService{
		archiveFunc:    func(ctx context.Context, got uuid.UUID) error { archived = true; return nil },
		restoreFunc:    func(ctx context.Context, got uuid.UUID) error { restored = true; return nil },
		hardDeleteFunc: func(ctx context.Context, got uuid.UUID) error { deleted = true; return nil },
	}
	router := NewCampaignHandler(mock).Routes(testAdminKey)

	send := func(query string) int {
		req := httptest.NewRequest(http.MethodDelete, "/"+id.String()+query, nil)
		req.Header.Set("X-API-Key", testAdminKey)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(""); code != http.StatusNoContent {
		t.Errorf("default delete status = %d, want 204", code)
	}
	if !archived {
		t.Error("default delete did not archive")
	}

	if code := send("?restore=true"); code != http.StatusNoContent {
		t.Errorf("restore status = %d, want 204", code)
	}
	if !restored {
		t.Error("restore flag did not restore")
	}

	if code := send("?permanent=true"); code != http.StatusNoContent {
		t.Errorf("permanent status = %d, want 204", code)
	}
	if !deleted {
		t.Error("permanent flag did not hard delete")
	}
}

func TestCampaignHandler_CreateValidatesBody(t *testing.T) {
	router := NewCampaignHandler(&mockCampaignService{}).Routes(testAdminKey)

	// Missing goal_amount fails validation before the service is reached.
	body := []byte(`{"title": "No goal"}`)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAdminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

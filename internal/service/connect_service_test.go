package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stripe/stripe-go/v76"

	"github.com/givewidget/givewidget/internal/config"
	"github.com/givewidget/givewidget/internal/models"
	apierrors "github.com/givewidget/givewidget/internal/pkg/errors"
)

func connectFixture() (ConnectService, *mockLicenseRepo, *mockOrgRepo) {
	licenseRepo := newMockLicenseRepo()
	orgRepo := newMockOrgRepo()
	svc := NewConnectService(orgRepo, licenseRepo, &config.Config{}, discardLogger())
	return svc, licenseRepo, orgRepo
}

func TestConnectService_UnknownKey(t *testing.T) {
	svc, _, _ := connectFixture()

	_, err := svc.GetState(context.Background(), "GW-ZZZZ-ZZZZ-ZZZZ")
	apiErr := apierrors.AsAPIError(err)
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
}

func TestConnectService_GetStateWithoutAccount(t *testing.T) {
	svc, licenseRepo, orgRepo := connectFixture()
	license := seedLicense(t, licenseRepo, orgRepo, models.LicenseStatusActive, nil)

	state, err := svc.GetState(context.Background(), license.LicenseKey)
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state.Connected {
		t.Error("connected = true for org with no account")
	}
	if state.AccountID != "" {
		t.Errorf("account id = %q, want empty", state.AccountID)
	}
}

func TestConnectStatusFromAccount(t *testing.T) {
	tests := []struct {
		name    string
		account *stripe.Account
		want    models.ConnectStatus
	}{
		{
			name: "disabled reason wins",
			account: &stripe.Account{
				ChargesEnabled: true,
				Requirements:   &stripe.AccountRequirements{DisabledReason: "requirements.past_due"},
			},
			want: models.ConnectStatusRestricted,
		},
		{
			name:    "charges enabled",
			account: &stripe.Account{ChargesEnabled: true},
			want:    models.ConnectStatusActive,
		},
		{
			name:    "fresh account",
			account: &stripe.Account{},
			want:    models.ConnectStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConnectStatusFromAccount(tt.account); got != tt.want {
				t.Errorf("ConnectStatusFromAccount() = %q, want %q", got, tt.want)
			}
		})
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/warranty"
)

type stubNames struct{}

func (stubNames) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	return &models.Category{ID: id, Name: "Laptops"}, nil
}

func (stubNames) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	return &models.Department{ID: id, Name: "Engineering"}, nil
}

func warrantyAsset() models.Asset {
	asset := availableAsset("a1")
	asset.DatePurchased = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	asset.WarrantyExpiry = &expiry
	asset.SerialNumber = strRef("SN-1")
	return asset
}

func TestWarrantyRegisterDerivesDuration(t *testing.T) {
	var received warranty.RegistrationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/warranty/register", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("X-API-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"registration_id":"reg-9"}`))
	}))
	defer server.Close()

	audit := &recordingAudit{}
	svc := NewWarrantyService(warranty.NewClient(server.URL, "key-1", time.Second), newMemAssets(warrantyAsset()), stubNames{}, nil, zap.NewNop(), WithAuditLogger(audit))

	result, err := svc.Register(context.Background(), adminActor, "a1", dto.RegisterWarrantyRequest{WarrantyType: "manufacturer"})
	require.NoError(t, err)
	assert.Equal(t, "reg-9", result.RegistrationID)

	assert.Equal(t, "a1", received.AssetID)
	assert.Equal(t, "admin@example.com", received.RegisteredByEmail)
	require.NotNil(t, received.WarrantyDurationMonths)
	assert.Equal(t, 12, *received.WarrantyDurationMonths)
	assert.Equal(t, "2024-01-01", *received.WarrantyStart)
	assert.Equal(t, "2025-01-01", *received.WarrantyExpiry)
	assert.Equal(t, "1200.00", *received.Cost)
	assert.Equal(t, "Laptops", *received.Category)
	assert.Equal(t, "Engineering", *received.Department)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionWarrantyRegister, audit.entries[0].Action)
}

func TestWarrantyRegisterKeepsExplicitDuration(t *testing.T) {
	var received warranty.RegistrationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	months := 24
	svc := NewWarrantyService(warranty.NewClient(server.URL, "", time.Second), newMemAssets(warrantyAsset()), nil, nil, zap.NewNop())
	_, err := svc.Register(context.Background(), adminActor, "a1", dto.RegisterWarrantyRequest{WarrantyType: "extended", WarrantyDurationMonths: &months})
	require.NoError(t, err)
	assert.Equal(t, 24, *received.WarrantyDurationMonths)
	assert.Nil(t, received.Category)
}

func TestWarrantyProviderFailuresAreUpstream(t *testing.T) {
	cases := map[string]int{"rejected": http.StatusUnprocessableEntity, "down": http.StatusServiceUnavailable}
	for name, status := range cases {
		status := status
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"success":false,"message":"bad serial"}`))
			}))
			defer server.Close()

			svc := NewWarrantyService(warranty.NewClient(server.URL, "", time.Second), newMemAssets(warrantyAsset()), nil, nil, zap.NewNop())
			_, err := svc.Register(context.Background(), adminActor, "a1", dto.RegisterWarrantyRequest{WarrantyType: "manufacturer"})
			assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
		})
	}
}

func TestWarrantyGuards(t *testing.T) {
	assets := newMemAssets(warrantyAsset())
	svc := NewWarrantyService(warranty.NewClient("http://127.0.0.1:1", "", time.Second), assets, nil, nil, zap.NewNop())

	_, err := svc.Register(context.Background(), aliceActor, "a1", dto.RegisterWarrantyRequest{WarrantyType: "manufacturer"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Register(context.Background(), adminActor, "a1", dto.RegisterWarrantyRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Register(context.Background(), adminActor, "missing", dto.RegisterWarrantyRequest{WarrantyType: "manufacturer"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	early := dto.Date{Time: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}
	_, err = svc.Register(context.Background(), adminActor, "a1", dto.RegisterWarrantyRequest{WarrantyType: "manufacturer", WarrantyExpiry: &early})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	disabled := NewWarrantyService(nil, assets, nil, nil, zap.NewNop())
	_, err = disabled.Status(context.Background(), adminActor, "a1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestWarrantyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/warranty/check/a1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"registered":true,"registration_id":"reg-9"}`))
	}))
	defer server.Close()

	svc := NewWarrantyService(warranty.NewClient(server.URL, "", time.Second), newMemAssets(warrantyAsset()), nil, nil, zap.NewNop())
	status, err := svc.Status(context.Background(), adminActor, "a1")
	require.NoError(t, err)
	assert.True(t, status.Registered)
	assert.Equal(t, "a1", status.AssetID)
}

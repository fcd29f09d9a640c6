package warranty

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
)

func TestRegisterSendsAPIKeyAndBody(t *testing.T) {
	var got RegistrationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/warranty/register", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"registration_id":"reg-1"}`))
	}))
	defer srv.Close()

	months := 12
	client := NewClient(srv.URL, "secret", time.Second)
	res, err := client.Register(context.Background(), RegistrationRequest{
		AssetID:                "asset-1",
		AssetName:              "Laptop",
		WarrantyType:           "manufacturer",
		WarrantyDurationMonths: &months,
		RegisteredByEmail:      "admin@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "reg-1", res.RegistrationID)
	assert.Equal(t, "asset-1", got.AssetID)
	require.NotNil(t, got.WarrantyDurationMonths)
	assert.Equal(t, 12, *got.WarrantyDurationMonths)
}

func TestCheckClassifiesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/warranty/check/missing":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"unknown asset"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", time.Second)

	_, err := client.Check(context.Background(), "missing")
	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
	assert.Equal(t, "unknown asset", providerErr.Message)

	_, err = client.Check(context.Background(), "down")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDurationMonths(t *testing.T) {
	day := func(s string) time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return d
	}
	cases := []struct {
		start, expiry string
		want          int
	}{
		{"2024-01-15", "2025-01-15", 12},
		{"2024-01-31", "2024-02-29", 1},
		{"2024-03-01", "2024-03-10", 0},
		{"2024-03-01", "2024-03-20", 1},
		{"2024-01-10", "2024-04-01", 3},
		{"2025-01-01", "2024-01-01", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DurationMonths(day(tc.start), day(tc.expiry)), "%s -> %s", tc.start, tc.expiry)
	}
}

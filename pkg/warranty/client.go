// Package warranty is a thin client for the external warranty registration provider.
package warranty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnavailable marks transport failures and 5xx answers from the provider.
var ErrUnavailable = errors.New("warranty provider unavailable")

// RegistrationRequest is the body accepted by POST /api/warranty/register.
type RegistrationRequest struct {
	AssetID                string  `json:"asset_id"`
	AssetName              string  `json:"asset_name"`
	SerialNumber           *string `json:"serial_number,omitempty"`
	Category               *string `json:"category,omitempty"`
	Department             *string `json:"department,omitempty"`
	Location               *string `json:"location,omitempty"`
	DatePurchased          *string `json:"date_purchased,omitempty"`
	Cost                   *string `json:"cost,omitempty"`
	WarrantyProvider       *string `json:"warranty_provider,omitempty"`
	WarrantyType           string  `json:"warranty_type"`
	WarrantyStart          *string `json:"warranty_start,omitempty"`
	WarrantyExpiry         *string `json:"warranty_expiry,omitempty"`
	WarrantyDurationMonths *int    `json:"warranty_duration_months,omitempty"`
	WarrantyTerms          *string `json:"warranty_terms,omitempty"`
	WarrantyContact        *string `json:"warranty_contact,omitempty"`
	WarrantyClaimURL       *string `json:"warranty_claim_url,omitempty"`
	WarrantyNotes          *string `json:"warranty_notes,omitempty"`
	RegisteredByEmail      string  `json:"registered_by_email"`
}

// RegistrationResult is the provider's answer to a registration.
type RegistrationResult struct {
	Success        bool   `json:"success"`
	RegistrationID string `json:"registration_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Status reports whether an asset is registered with the provider.
type Status struct {
	AssetID        string     `json:"asset_id"`
	Registered     bool       `json:"registered"`
	RegistrationID string     `json:"registration_id,omitempty"`
	RegisteredAt   *time.Time `json:"registered_at,omitempty"`
}

// ProviderError carries a non-success answer from the provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("warranty provider returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the provider over HTTP with a static API key.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-API-Key", apiKey)
	return &Client{http: httpClient}
}

// Register submits an asset warranty registration.
func (c *Client) Register(ctx context.Context, req RegistrationRequest) (*RegistrationResult, error) {
	var result RegistrationResult
	var failure RegistrationResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&failure).
		Post("/api/warranty/register")
	if err := classify(resp, err, failure.Message); err != nil {
		return nil, err
	}
	return &result, nil
}

// Check fetches the registration status of an asset.
func (c *Client) Check(ctx context.Context, assetID string) (*Status, error) {
	var status Status
	var failure RegistrationResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("assetId", assetID).
		SetResult(&status).
		SetError(&failure).
		Get("/api/warranty/check/{assetId}")
	if err := classify(resp, err, failure.Message); err != nil {
		return nil, err
	}
	if status.AssetID == "" {
		status.AssetID = assetID
	}
	return &status, nil
}

func classify(resp *resty.Response, err error, message string) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	if resp.IsError() {
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return &ProviderError{StatusCode: resp.StatusCode(), Message: message}
	}
	return nil
}

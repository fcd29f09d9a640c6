package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

// CreateAssetRequest registers a new asset. Status defaults to available;
// an initial status of assigned requires AssignedTo.
type CreateAssetRequest struct {
	Name                  string             `json:"name" validate:"required,max=200"`
	CategoryID            string             `json:"category_id" validate:"required"`
	DepartmentID          string             `json:"department_id" validate:"required"`
	DatePurchased         Date               `json:"date_purchased"`
	Cost                  *decimal.Decimal   `json:"cost" validate:"required"`
	Status                models.AssetStatus `json:"status" validate:"omitempty,oneof=available assigned in_repair retired"`
	AssignedTo            *string            `json:"assigned_to"`
	SerialNumber          *string            `json:"serial_number" validate:"omitempty,max=100"`
	Description           *string            `json:"description"`
	Location              *string            `json:"location" validate:"omitempty,max=200"`
	WarrantyExpiry        *Date              `json:"warranty_expiry"`
	WarrantyNotes         *string            `json:"warranty_notes"`
	InsuranceProvider     *string            `json:"insurance_provider"`
	InsurancePolicyNumber *string            `json:"insurance_policy_number"`
	InsuranceExpiry       *Date              `json:"insurance_expiry"`
	InsuranceCoverage     *decimal.Decimal   `json:"insurance_coverage"`
	Notes                 string             `json:"notes"`
}

// UpdateAssetRequest patches descriptive fields. Status is not writable here.
type UpdateAssetRequest struct {
	Name                  *string          `json:"name" validate:"omitempty,min=1,max=200"`
	CategoryID            *string          `json:"category_id" validate:"omitempty,min=1"`
	DepartmentID          *string          `json:"department_id" validate:"omitempty,min=1"`
	DatePurchased         *Date            `json:"date_purchased"`
	Cost                  *decimal.Decimal `json:"cost"`
	SerialNumber          *string          `json:"serial_number" validate:"omitempty,max=100"`
	Description           *string          `json:"description"`
	Location              *string          `json:"location" validate:"omitempty,max=200"`
	WarrantyExpiry        *Date            `json:"warranty_expiry"`
	WarrantyNotes         *string          `json:"warranty_notes"`
	InsuranceProvider     *string          `json:"insurance_provider"`
	InsurancePolicyNumber *string          `json:"insurance_policy_number"`
	InsuranceExpiry       *Date            `json:"insurance_expiry"`
	InsuranceCoverage     *decimal.Decimal `json:"insurance_coverage"`
	Status                *string          `json:"status,omitempty"`
}

// AssignAssetRequest assigns or transfers an asset to a user.
type AssignAssetRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// LifecycleNotesRequest carries optional notes for return, repair, restore and retire.
type LifecycleNotesRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

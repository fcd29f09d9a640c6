package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

// CreateMaintenanceRequest schedules maintenance for an asset.
type CreateMaintenanceRequest struct {
	AssetID         string                 `json:"asset_id" validate:"required"`
	MaintenanceType models.MaintenanceType `json:"maintenance_type" validate:"required,oneof=scheduled repair inspection"`
	Description     *string                `json:"description"`
	Cost            *decimal.Decimal       `json:"cost"`
	ScheduledDate   Date                   `json:"scheduled_date"`
	Notes           *string                `json:"notes"`
}

// UpdateMaintenanceRequest patches a maintenance record that is not completed.
type UpdateMaintenanceRequest struct {
	MaintenanceType *models.MaintenanceType `json:"maintenance_type" validate:"omitempty,oneof=scheduled repair inspection"`
	Description     *string                 `json:"description"`
	Cost            *decimal.Decimal        `json:"cost"`
	ScheduledDate   *Date                   `json:"scheduled_date"`
	Notes           *string                 `json:"notes"`
}

// CompleteMaintenanceRequest closes a maintenance record.
type CompleteMaintenanceRequest struct {
	CompletedDate *Date   `json:"completed_date"`
	Notes         *string `json:"notes"`
}

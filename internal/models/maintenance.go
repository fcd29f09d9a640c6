package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaintenanceType enumerates maintenance kinds.
type MaintenanceType string

const (
	MaintenanceScheduled  MaintenanceType = "scheduled"
	MaintenanceRepair     MaintenanceType = "repair"
	MaintenanceInspection MaintenanceType = "inspection"
)

// MaintenanceStatus is the persisted workflow state. Overdue-ness is derived
// from dates and never written.
type MaintenanceStatus string

const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	// MaintenanceOverdueLegacy may still be present in rows written by older
	// clients; it is read as pending.
	MaintenanceOverdueLegacy MaintenanceStatus = "overdue"
)

// Normalize folds the legacy overdue value into pending.
func (s MaintenanceStatus) Normalize() MaintenanceStatus {
	if s == MaintenanceOverdueLegacy {
		return MaintenancePending
	}
	return s
}

// Maintenance is a scheduled or completed maintenance record for an asset.
type Maintenance struct {
	ID              string            `db:"id" json:"id"`
	AssetID         string            `db:"asset_id" json:"asset_id"`
	MaintenanceType MaintenanceType   `db:"maintenance_type" json:"maintenance_type"`
	Description     *string           `db:"description" json:"description,omitempty"`
	Cost            decimal.Decimal   `db:"cost" json:"cost"`
	ScheduledDate   time.Time         `db:"scheduled_date" json:"scheduled_date"`
	CompletedDate   *time.Time        `db:"completed_date" json:"completed_date,omitempty"`
	Status          MaintenanceStatus `db:"status" json:"status"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`

	Alert MaintenanceAlertLevel `db:"-" json:"alert,omitempty"`
}

// MaintenanceFilter constrains maintenance listing queries.
type MaintenanceFilter struct {
	AssetID       string
	Status        []MaintenanceStatus
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Page          int
	PageSize      int
}

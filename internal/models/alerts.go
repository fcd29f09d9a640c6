package models

import "time"

// ExpiryAlertLevel is the derived state of a warranty or insurance date.
type ExpiryAlertLevel string

const (
	ExpiryNone    ExpiryAlertLevel = "none"
	ExpiryDueSoon ExpiryAlertLevel = "due_soon"
	ExpiryExpired ExpiryAlertLevel = "expired"
)

// MaintenanceAlertLevel is the derived urgency of a maintenance record.
type MaintenanceAlertLevel string

const (
	MaintenanceAlertCompleted MaintenanceAlertLevel = "completed"
	MaintenanceAlertOverdue   MaintenanceAlertLevel = "overdue"
	MaintenanceAlertDueSoon   MaintenanceAlertLevel = "due_soon"
	MaintenanceAlertScheduled MaintenanceAlertLevel = "scheduled"
)

// ExpiringAsset pairs an asset with the date and alert that put it on an
// expiry list.
type ExpiringAsset struct {
	Asset      Asset            `json:"asset"`
	ExpiresOn  time.Time        `json:"expires_on"`
	DaysLeft   int              `json:"days_left"`
	AlertLevel ExpiryAlertLevel `json:"alert"`
}

// AlertDigest bundles the expiry lists published by the digest job.
type AlertDigest struct {
	GeneratedAt         time.Time       `json:"generated_at"`
	WindowDays          int             `json:"window_days"`
	WarrantyExpiring    []ExpiringAsset `json:"warranty_expiring"`
	InsuranceExpiring   []ExpiringAsset `json:"insurance_expiring"`
	UpcomingMaintenance []Maintenance   `json:"upcoming_maintenance"`
}

// DashboardSummary aggregates headline counts for the dashboard.
type DashboardSummary struct {
	AssetsByStatus      map[AssetStatus]int `json:"assets_by_status"`
	TotalAssets         int                 `json:"total_assets"`
	PendingRequests     int                 `json:"pending_requests"`
	OpenIssues          int                 `json:"open_issues"`
	WarrantyExpiring    int                 `json:"warranty_expiring"`
	InsuranceExpiring   int                 `json:"insurance_expiring"`
	OverdueMaintenance  int                 `json:"overdue_maintenance"`
	UpcomingMaintenance int                 `json:"upcoming_maintenance"`
	GeneratedAt         time.Time           `json:"generated_at"`
	// Cached is set when the summary was served from the cache.
	Cached              bool                `json:"-"`
}

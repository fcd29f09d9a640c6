package service

import (
	"time"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

// DefaultAlertWindowDays is the look-ahead used when a caller passes no window.
const DefaultAlertWindowDays = 30

// dateOf truncates t to its UTC calendar day. Alerts compare whole days so a
// date stored without a time component is never "expired" on its own day.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func windowOrDefault(days int) int {
	if days <= 0 {
		return DefaultAlertWindowDays
	}
	return days
}

// ExpiryAlert derives the alert for an expiry date: expired when the date is
// before today, due soon when it falls within windowDays, none otherwise.
func ExpiryAlert(expiry *time.Time, now time.Time, windowDays int) models.ExpiryAlertLevel {
	if expiry == nil || expiry.IsZero() {
		return models.ExpiryNone
	}
	day := dateOf(*expiry)
	today := dateOf(now)
	if day.Before(today) {
		return models.ExpiryExpired
	}
	if !day.After(today.AddDate(0, 0, windowOrDefault(windowDays))) {
		return models.ExpiryDueSoon
	}
	return models.ExpiryNone
}

// WarrantyAlert applies ExpiryAlert to the asset warranty.
func WarrantyAlert(asset models.Asset, now time.Time, windowDays int) models.ExpiryAlertLevel {
	return ExpiryAlert(asset.WarrantyExpiry, now, windowDays)
}

// InsuranceAlert applies ExpiryAlert to the asset insurance policy.
func InsuranceAlert(asset models.Asset, now time.Time, windowDays int) models.ExpiryAlertLevel {
	return ExpiryAlert(asset.InsuranceExpiry, now, windowDays)
}

// MaintenanceAlert is the only derivation of maintenance urgency. A stored
// legacy overdue status counts as pending; overdue-ness always comes from the
// scheduled date.
func MaintenanceAlert(record models.Maintenance, now time.Time, windowDays int) models.MaintenanceAlertLevel {
	status := record.Status.Normalize()
	if status == models.MaintenanceCompleted {
		return models.MaintenanceAlertCompleted
	}
	scheduled := dateOf(record.ScheduledDate)
	today := dateOf(now)
	if status == models.MaintenancePending && scheduled.Before(today) {
		return models.MaintenanceAlertOverdue
	}
	if !scheduled.After(today.AddDate(0, 0, windowOrDefault(windowDays))) {
		return models.MaintenanceAlertDueSoon
	}
	return models.MaintenanceAlertScheduled
}

// DaysUntil counts whole days from today to date; negative once passed.
func DaysUntil(date, now time.Time) int {
	return int(dateOf(date).Sub(dateOf(now)).Hours() / 24)
}

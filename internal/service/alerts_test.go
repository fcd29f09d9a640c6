package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

func day(offset int, now time.Time) *time.Time {
	d := dateOf(now).AddDate(0, 0, offset)
	return &d
}

func TestWarrantyAlertScenario(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, models.ExpiryExpired, WarrantyAlert(models.Asset{WarrantyExpiry: day(-1, now)}, now, 30))
	assert.Equal(t, models.ExpiryDueSoon, WarrantyAlert(models.Asset{WarrantyExpiry: day(10, now)}, now, 30))
	assert.Equal(t, models.ExpiryNone, WarrantyAlert(models.Asset{WarrantyExpiry: day(40, now)}, now, 30))
	assert.Equal(t, models.ExpiryNone, WarrantyAlert(models.Asset{}, now, 30))
}

func TestExpiryAlertBoundaries(t *testing.T) {
	now := time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, models.ExpiryDueSoon, ExpiryAlert(day(0, now), now, 30), "expiring today is not yet expired")
	assert.Equal(t, models.ExpiryDueSoon, ExpiryAlert(day(30, now), now, 30))
	assert.Equal(t, models.ExpiryNone, ExpiryAlert(day(31, now), now, 30))
	assert.Equal(t, models.ExpiryDueSoon, ExpiryAlert(day(30, now), now, 0), "zero window falls back to the default")
	assert.Equal(t, models.ExpiryNone, ExpiryAlert(day(31, now), now, 0))
	assert.Equal(t, models.ExpiryNone, ExpiryAlert(day(31, now), now, -5))
	assert.Equal(t, models.ExpiryNone, ExpiryAlert(day(8, now), now, 7))
	assert.Equal(t, models.ExpiryExpired, InsuranceAlert(models.Asset{InsuranceExpiry: day(-400, now)}, now, 30))
}

func TestMaintenanceAlert(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
	record := func(status models.MaintenanceStatus, offset int) models.Maintenance {
		return models.Maintenance{Status: status, ScheduledDate: *day(offset, now)}
	}

	assert.Equal(t, models.MaintenanceAlertCompleted, MaintenanceAlert(record(models.MaintenanceCompleted, -10), now, 30))
	assert.Equal(t, models.MaintenanceAlertOverdue, MaintenanceAlert(record(models.MaintenancePending, -1), now, 30))
	assert.Equal(t, models.MaintenanceAlertOverdue, MaintenanceAlert(record(models.MaintenanceOverdueLegacy, -3), now, 30))
	assert.Equal(t, models.MaintenanceAlertDueSoon, MaintenanceAlert(record(models.MaintenanceOverdueLegacy, 3), now, 30), "stored overdue is recomputed from the date")
	assert.Equal(t, models.MaintenanceAlertDueSoon, MaintenanceAlert(record(models.MaintenanceInProgress, -5), now, 30))
	assert.Equal(t, models.MaintenanceAlertDueSoon, MaintenanceAlert(record(models.MaintenancePending, 0), now, 30))
	assert.Equal(t, models.MaintenanceAlertScheduled, MaintenanceAlert(record(models.MaintenancePending, 45), now, 30))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 10, DaysUntil(*day(10, now), now))
	assert.Equal(t, -1, DaysUntil(*day(-1, now), now))
	assert.Equal(t, 0, DaysUntil(now.Add(time.Hour), now))
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

type memMaintenance struct {
	items map[string]*models.Maintenance
	seq   int
}

func (m *memMaintenance) Create(ctx context.Context, record *models.Maintenance) error {
	m.seq++
	record.ID = fmt.Sprintf("mnt-%d", m.seq)
	cp := *record
	m.items[record.ID] = &cp
	return nil
}

func (m *memMaintenance) GetByID(ctx context.Context, id string) (*models.Maintenance, error) {
	record, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *record
	cp.Status = cp.Status.Normalize()
	return &cp, nil
}

func (m *memMaintenance) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, int, error) {
	var out []models.Maintenance
	for _, record := range m.items {
		out = append(out, *record)
	}
	return out, len(out), nil
}

func (m *memMaintenance) Update(ctx context.Context, record *models.Maintenance) error {
	current, ok := m.items[record.ID]
	if !ok || current.Status == models.MaintenanceCompleted {
		return repository.ErrConditionFailed
	}
	cp := *record
	m.items[record.ID] = &cp
	return nil
}

func (m *memMaintenance) ChangeStatus(ctx context.Context, change repository.MaintenanceStatusChange) error {
	record, ok := m.items[change.ID]
	if !ok {
		return repository.ErrConditionFailed
	}
	status := record.Status.Normalize()
	for _, from := range change.From {
		if status == from {
			record.Status = change.To
			if change.CompletedDate != nil {
				record.CompletedDate = change.CompletedDate
			}
			if change.Notes != nil {
				record.Notes = change.Notes
			}
			return nil
		}
	}
	return repository.ErrConditionFailed
}

func (m *memMaintenance) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func newMaintenanceFixture() (*MaintenanceService, *memMaintenance) {
	repo := &memMaintenance{items: map[string]*models.Maintenance{}}
	svc := NewMaintenanceService(repo, newMemAssets(availableAsset("a1")), nil, zap.NewNop(), WithClock(fixedClock), WithAlertWindow(30))
	return svc, repo
}

func scheduleRequest(offsetDays int) dto.CreateMaintenanceRequest {
	cost := decimal.NewFromInt(80)
	return dto.CreateMaintenanceRequest{
		AssetID:         "a1",
		MaintenanceType: models.MaintenanceInspection,
		Cost:            &cost,
		ScheduledDate:   dto.Date{Time: fixedNow.AddDate(0, 0, offsetDays)},
	}
}

func TestMaintenanceIsAdminOnly(t *testing.T) {
	svc, _ := newMaintenanceFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, aliceActor, scheduleRequest(3))
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	_, _, err = svc.List(ctx, aliceActor, models.MaintenanceFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestMaintenanceCreateValidation(t *testing.T) {
	svc, _ := newMaintenanceFixture()
	ctx := context.Background()

	req := scheduleRequest(3)
	req.AssetID = "missing"
	_, err := svc.Create(ctx, adminActor, req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	req = scheduleRequest(3)
	req.ScheduledDate = dto.Date{}
	_, err = svc.Create(ctx, adminActor, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req = scheduleRequest(3)
	negative := decimal.NewFromInt(-1)
	req.Cost = &negative
	_, err = svc.Create(ctx, adminActor, req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestMaintenanceLifecycle(t *testing.T) {
	svc, _ := newMaintenanceFixture()
	ctx := context.Background()

	record, err := svc.Create(ctx, adminActor, scheduleRequest(-2))
	require.NoError(t, err)
	assert.Equal(t, models.MaintenancePending, record.Status)
	assert.Equal(t, models.MaintenanceAlertOverdue, record.Alert)

	started, err := svc.Start(ctx, adminActor, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, started.Status)
	assert.Equal(t, models.MaintenanceAlertDueSoon, started.Alert)

	_, err = svc.Start(ctx, adminActor, record.ID)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	done, err := svc.Complete(ctx, adminActor, record.ID, dto.CompleteMaintenanceRequest{Notes: strRef("all good")})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceCompleted, done.Status)
	assert.Equal(t, models.MaintenanceAlertCompleted, done.Alert)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, dateOf(fixedNow), *done.CompletedDate)

	_, err = svc.Complete(ctx, adminActor, record.ID, dto.CompleteMaintenanceRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	_, err = svc.Update(ctx, adminActor, record.ID, dto.UpdateMaintenanceRequest{Notes: strRef("late edit")})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestMaintenanceLegacyOverdueReadsAsPending(t *testing.T) {
	svc, repo := newMaintenanceFixture()
	repo.items["legacy"] = &models.Maintenance{ID: "legacy", AssetID: "a1", Status: models.MaintenanceOverdueLegacy, ScheduledDate: fixedNow.AddDate(0, 0, 5)}

	record, err := svc.Get(context.Background(), adminActor, "legacy")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenancePending, record.Status)
	assert.Equal(t, models.MaintenanceAlertDueSoon, record.Alert)

	items, _, err := svc.List(context.Background(), adminActor, models.MaintenanceFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.MaintenancePending, items[0].Status)

	started, err := svc.Start(context.Background(), adminActor, "legacy")
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceInProgress, started.Status)
}

func TestMaintenanceUpdateAndDelete(t *testing.T) {
	svc, repo := newMaintenanceFixture()
	ctx := context.Background()

	record, err := svc.Create(ctx, adminActor, scheduleRequest(60))
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceAlertScheduled, record.Alert)

	moved := dto.Date{Time: fixedNow.AddDate(0, 0, 10)}
	updated, err := svc.Update(ctx, adminActor, record.ID, dto.UpdateMaintenanceRequest{ScheduledDate: &moved})
	require.NoError(t, err)
	assert.Equal(t, models.MaintenanceAlertDueSoon, updated.Alert)

	require.NoError(t, svc.Delete(ctx, adminActor, record.ID))
	assert.Empty(t, repo.items)
	assert.True(t, errors.Is(svc.Delete(ctx, adminActor, record.ID), appErrors.ErrNotFound))
}

package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

func TestMaintenanceRepositoryOpenSkipsRetiredAndDeletedAssets(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMaintenanceRepository(db)
	until := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	scheduled := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	query := regexp.QuoteMeta("SELECT m.id, m.asset_id, m.maintenance_type, m.description, m.cost, m.scheduled_date, m.completed_date, m.status, m.notes, m.created_at, m.updated_at " +
		"FROM maintenance m JOIN assets a ON a.id = m.asset_id " +
		"WHERE a.deleted_at IS NULL AND a.status <> $1 AND m.status <> $2 AND m.scheduled_date <= $3 " +
		"ORDER BY m.scheduled_date ASC")
	rows := sqlmock.NewRows(maintenanceColumns).
		AddRow("m-1", "asset-1", "inspection", nil, "0", scheduled, nil, "overdue", nil, scheduled, scheduled)
	mock.ExpectQuery(query).
		WithArgs("retired", "completed", until).
		WillReturnRows(rows)

	items, err := repo.Open(context.Background(), until)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, models.MaintenancePending, items[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

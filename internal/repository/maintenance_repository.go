package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

var maintenanceColumns = []string{
	"id", "asset_id", "maintenance_type", "description", "cost", "scheduled_date",
	"completed_date", "status", "notes", "created_at", "updated_at",
}

// MaintenanceStatusChange is a conditional status write on a maintenance record.
type MaintenanceStatusChange struct {
	ID            string
	From          []models.MaintenanceStatus
	To            models.MaintenanceStatus
	CompletedDate *time.Time
	Notes         *string
}

// MaintenanceRepository persists maintenance records.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs a MaintenanceRepository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Create inserts a maintenance record.
func (r *MaintenanceRepository) Create(ctx context.Context, m *models.Maintenance) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	const query = `INSERT INTO maintenance (id, asset_id, maintenance_type, description, cost, scheduled_date, completed_date, status, notes, created_at, updated_at) VALUES (:id, :asset_id, :maintenance_type, :description, :cost, :scheduled_date, :completed_date, :status, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create maintenance: %w", err)
	}
	return nil
}

// GetByID returns a maintenance record.
func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*models.Maintenance, error) {
	query, args, err := psql.Select(maintenanceColumns...).From("maintenance").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get maintenance query: %w", err)
	}
	var m models.Maintenance
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get maintenance: %w", err)
	}
	m.Status = m.Status.Normalize()
	return &m, nil
}

// List returns maintenance records ordered by scheduled date.
func (r *MaintenanceRepository) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query, args, err := applyMaintenanceFilter(psql.Select(maintenanceColumns...).From("maintenance"), filter).
		OrderBy("scheduled_date ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list maintenance query: %w", err)
	}
	var items []models.Maintenance
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list maintenance: %w", err)
	}
	normalizeMaintenance(items)

	countQuery, countArgs, err := applyMaintenanceFilter(psql.Select("COUNT(*)").From("maintenance"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count maintenance query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count maintenance: %w", err)
	}
	return items, total, nil
}

func applyMaintenanceFilter(sb squirrel.SelectBuilder, filter models.MaintenanceFilter) squirrel.SelectBuilder {
	if filter.AssetID != "" {
		sb = sb.Where(squirrel.Eq{"asset_id": filter.AssetID})
	}
	if len(filter.Status) > 0 {
		statuses := append([]models.MaintenanceStatus{}, filter.Status...)
		for _, s := range filter.Status {
			if s == models.MaintenancePending {
				statuses = append(statuses, models.MaintenanceOverdueLegacy)
			}
		}
		sb = sb.Where(squirrel.Eq{"status": statuses})
	}
	if filter.ScheduledFrom != nil {
		sb = sb.Where(squirrel.GtOrEq{"scheduled_date": *filter.ScheduledFrom})
	}
	if filter.ScheduledTo != nil {
		sb = sb.Where(squirrel.LtOrEq{"scheduled_date": *filter.ScheduledTo})
	}
	return sb
}

// Open returns records not yet completed scheduled on or before until,
// earliest first. Records of retired or deleted assets are left out.
func (r *MaintenanceRepository) Open(ctx context.Context, until time.Time) ([]models.Maintenance, error) {
	query, args, err := psql.Select(qualified("m", maintenanceColumns)...).
		From("maintenance m").
		Join("assets a ON a.id = m.asset_id").
		Where("a.deleted_at IS NULL").
		Where(squirrel.NotEq{"a.status": models.AssetStatusRetired}).
		Where(squirrel.NotEq{"m.status": models.MaintenanceCompleted}).
		Where(squirrel.LtOrEq{"m.scheduled_date": until}).
		OrderBy("m.scheduled_date ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build open maintenance query: %w", err)
	}
	var items []models.Maintenance
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list open maintenance: %w", err)
	}
	normalizeMaintenance(items)
	return items, nil
}

// Update writes the editable fields of a record that is not completed.
func (r *MaintenanceRepository) Update(ctx context.Context, m *models.Maintenance) error {
	m.UpdatedAt = time.Now().UTC()
	const query = `UPDATE maintenance SET maintenance_type = :maintenance_type, description = :description, cost = :cost, scheduled_date = :scheduled_date, notes = :notes, updated_at = :updated_at WHERE id = :id AND status <> 'completed'`
	res, err := r.db.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("update maintenance: %w", err)
	}
	return expectOneRow(res)
}

// ChangeStatus applies a conditional status write. ErrConditionFailed means
// the record was not in any of the From statuses.
func (r *MaintenanceRepository) ChangeStatus(ctx context.Context, change MaintenanceStatusChange) error {
	from := append([]models.MaintenanceStatus{}, change.From...)
	for _, s := range change.From {
		if s == models.MaintenancePending {
			from = append(from, models.MaintenanceOverdueLegacy)
		}
	}
	ub := psql.Update("maintenance").
		Set("status", change.To).
		Set("updated_at", time.Now().UTC())
	if change.CompletedDate != nil {
		ub = ub.Set("completed_date", *change.CompletedDate)
	}
	if change.Notes != nil {
		ub = ub.Set("notes", *change.Notes)
	}
	query, args, err := ub.Where(squirrel.Eq{"id": change.ID}).Where(squirrel.Eq{"status": from}).ToSql()
	if err != nil {
		return fmt.Errorf("build maintenance status query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change maintenance status: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes a maintenance record.
func (r *MaintenanceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM maintenance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete maintenance: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return sql.ErrNoRows
		}
		return err
	}
	return nil
}

func normalizeMaintenance(items []models.Maintenance) {
	for i := range items {
		items[i].Status = items[i].Status.Normalize()
	}
}

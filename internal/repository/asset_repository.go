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
	"github.com/noah-isme/asset-desk-api/pkg/database"
)

var assetColumns = []string{
	"id", "name", "category_id", "department_id", "date_purchased", "cost", "status",
	"serial_number", "description", "location", "warranty_expiry", "warranty_notes",
	"insurance_provider", "insurance_policy_number", "insurance_expiry", "insurance_coverage",
	"assigned_to", "assigned_date", "user_id", "created_at", "updated_at", "deleted_at",
}

const (
	insertAssetQuery = `INSERT INTO assets (id, name, category_id, department_id, date_purchased, cost, status, serial_number, description, location, warranty_expiry, warranty_notes, insurance_provider, insurance_policy_number, insurance_expiry, insurance_coverage, assigned_to, assigned_date, user_id, created_at, updated_at) VALUES (:id, :name, :category_id, :department_id, :date_purchased, :cost, :status, :serial_number, :description, :location, :warranty_expiry, :warranty_notes, :insurance_provider, :insurance_policy_number, :insurance_expiry, :insurance_coverage, :assigned_to, :assigned_date, :user_id, :created_at, :updated_at)`
	insertLedgerQuery = `INSERT INTO asset_assignments (id, asset_id, user_id, action, from_status, to_status, notes, assigned_by, created_at) VALUES (:id, :asset_id, :user_id, :action, :from_status, :to_status, :notes, :assigned_by, :created_at)`
)

// ExpiryColumn selects which date an expiry query inspects.
type ExpiryColumn string

const (
	WarrantyExpiry  ExpiryColumn = "warranty_expiry"
	InsuranceExpiry ExpiryColumn = "insurance_expiry"
)

// AssetTransition describes one compare-and-swap on an asset status together
// with the ledger row recording it.
type AssetTransition struct {
	AssetID string
	From    models.AssetStatus
	To      models.AssetStatus
	// ExpectedAssignee additionally pins the current assignee (transfers).
	ExpectedAssignee *string
	AssignedTo       *string
	AssignedDate     *time.Time
	At               time.Time
	Entry            models.AssetAssignment
}

// AssetRepository persists assets and their assignment ledger.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs an AssetRepository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Create inserts the asset and, when initial is non-nil, its first ledger row
// in the same transaction.
func (r *AssetRepository) Create(ctx context.Context, asset *models.Asset, initial *models.AssetAssignment) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertAssetQuery, asset); err != nil {
			return fmt.Errorf("create asset: %w", err)
		}
		if initial == nil {
			return nil
		}
		initial.AssetID = asset.ID
		return insertLedger(ctx, tx, initial, now)
	})
}

// GetByID returns a live asset.
func (r *AssetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query, args, err := psql.Select(assetColumns...).From("assets").
		Where(squirrel.Eq{"id": id}).
		Where("deleted_at IS NULL").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get asset query: %w", err)
	}
	var asset models.Asset
	if err := r.db.GetContext(ctx, &asset, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return &asset, nil
}

// List returns live assets matching filter together with the total count.
func (r *AssetRepository) List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query, args, err := applyAssetFilter(psql.Select(assetColumns...).From("assets"), filter).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list assets query: %w", err)
	}
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}

	countQuery, countArgs, err := applyAssetFilter(psql.Select("COUNT(*)").From("assets"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count assets query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}
	return assets, total, nil
}

// ListAll returns every live asset matching filter, unpaginated, ordered by name.
func (r *AssetRepository) ListAll(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error) {
	query, args, err := applyAssetFilter(psql.Select(assetColumns...).From("assets"), filter).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build export assets query: %w", err)
	}
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, fmt.Errorf("list all assets: %w", err)
	}
	return assets, nil
}

func applyAssetFilter(sb squirrel.SelectBuilder, filter models.AssetFilter) squirrel.SelectBuilder {
	sb = sb.Where("deleted_at IS NULL")
	if len(filter.Status) > 0 {
		sb = sb.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.CategoryID != "" {
		sb = sb.Where(squirrel.Eq{"category_id": filter.CategoryID})
	}
	if filter.DepartmentID != "" {
		sb = sb.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}
	if filter.AssignedTo != "" {
		sb = sb.Where(squirrel.Eq{"assigned_to": filter.AssignedTo})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		sb = sb.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"serial_number": pattern},
		})
	}
	return sb
}

// Update writes the descriptive, warranty and insurance fields. Status and
// assignment columns only change through ApplyTransition.
func (r *AssetRepository) Update(ctx context.Context, asset *models.Asset) error {
	asset.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assets SET name = :name, category_id = :category_id, department_id = :department_id, date_purchased = :date_purchased, cost = :cost, serial_number = :serial_number, description = :description, location = :location, warranty_expiry = :warranty_expiry, warranty_notes = :warranty_notes, insurance_provider = :insurance_provider, insurance_policy_number = :insurance_policy_number, insurance_expiry = :insurance_expiry, insurance_coverage = :insurance_coverage, updated_at = :updated_at WHERE id = :id AND deleted_at IS NULL`
	res, err := r.db.NamedExecContext(ctx, query, asset)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// ApplyTransition moves the asset from t.From to t.To and appends the ledger
// row atomically. ErrConditionFailed means the asset was no longer in t.From.
func (r *AssetRepository) ApplyTransition(ctx context.Context, t AssetTransition) error {
	at := t.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	update := psql.Update("assets").
		Set("status", t.To).
		Set("assigned_to", t.AssignedTo).
		Set("assigned_date", t.AssignedDate).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": t.AssetID}).
		Where(squirrel.Eq{"status": t.From}).
		Where("deleted_at IS NULL")
	if t.ExpectedAssignee != nil {
		update = update.Where(squirrel.Eq{"assigned_to": *t.ExpectedAssignee})
	}
	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("build transition query: %w", err)
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("transition asset: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return err
		}
		entry := t.Entry
		entry.AssetID = t.AssetID
		return insertLedger(ctx, tx, &entry, at)
	})
}

// SoftDelete hides an asset that is not assigned. ErrConditionFailed means the
// asset is missing, already deleted, or currently assigned.
func (r *AssetRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE assets SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL AND status <> 'assigned'`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return expectOneRow(res)
}

// History returns the ledger rows of an asset, newest first.
func (r *AssetRepository) History(ctx context.Context, assetID string) ([]models.AssetAssignment, error) {
	const query = `SELECT id, asset_id, user_id, action, from_status, to_status, notes, assigned_by, created_at FROM asset_assignments WHERE asset_id = $1 ORDER BY created_at DESC, id DESC`
	var rows []models.AssetAssignment
	if err := r.db.SelectContext(ctx, &rows, query, assetID); err != nil {
		return nil, fmt.Errorf("asset history: %w", err)
	}
	return rows, nil
}

// ExpiringBy returns live, non-retired assets whose column date is on or
// before until, earliest first. Already expired dates are included.
func (r *AssetRepository) ExpiringBy(ctx context.Context, column ExpiryColumn, until time.Time, assignedTo string) ([]models.Asset, error) {
	if column != WarrantyExpiry && column != InsuranceExpiry {
		return nil, fmt.Errorf("unsupported expiry column %q", column)
	}
	col := string(column)
	sb := psql.Select(assetColumns...).From("assets").
		Where("deleted_at IS NULL").
		Where(squirrel.NotEq{"status": models.AssetStatusRetired}).
		Where(squirrel.NotEq{col: nil}).
		Where(squirrel.LtOrEq{col: until})
	if assignedTo != "" {
		sb = sb.Where(squirrel.Eq{"assigned_to": assignedTo})
	}
	query, args, err := sb.OrderBy(col + " ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expiring assets query: %w", err)
	}
	var assets []models.Asset
	if err := r.db.SelectContext(ctx, &assets, query, args...); err != nil {
		return nil, fmt.Errorf("list expiring assets: %w", err)
	}
	return assets, nil
}

type statusCount struct {
	Status models.AssetStatus `db:"status"`
	Count  int                `db:"count"`
}

// CountByStatus groups live assets by status, optionally scoped to an assignee.
func (r *AssetRepository) CountByStatus(ctx context.Context, assignedTo string) (map[models.AssetStatus]int, error) {
	sb := psql.Select("status", "COUNT(*) AS count").From("assets").Where("deleted_at IS NULL")
	if assignedTo != "" {
		sb = sb.Where(squirrel.Eq{"assigned_to": assignedTo})
	}
	query, args, err := sb.GroupBy("status").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build asset status count query: %w", err)
	}
	var rows []statusCount
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count assets by status: %w", err)
	}
	result := make(map[models.AssetStatus]int, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Count
	}
	return result, nil
}

func insertLedger(ctx context.Context, tx *sqlx.Tx, entry *models.AssetAssignment, at time.Time) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = at
	}
	if _, err := tx.NamedExecContext(ctx, insertLedgerQuery, entry); err != nil {
		return fmt.Errorf("append asset ledger: %w", err)
	}
	return nil
}

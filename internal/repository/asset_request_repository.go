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

var assetRequestColumns = []string{
	"id", "user_id", "request_type", "category_id", "title", "description", "justification",
	"priority", "status", "admin_notes", "reviewed_by", "reviewed_at", "created_at",
}

// RequestStatusChange is a conditional status write on an asset request.
// Review fields are only written when ReviewedBy is set.
type RequestStatusChange struct {
	ID         string
	From       models.RequestStatus
	To         models.RequestStatus
	ReviewedBy *string
	ReviewedAt *time.Time
	AdminNotes *string
}

// AssetRequestRepository persists asset requests.
type AssetRequestRepository struct {
	db *sqlx.DB
}

// NewAssetRequestRepository constructs an AssetRequestRepository.
func NewAssetRequestRepository(db *sqlx.DB) *AssetRequestRepository {
	return &AssetRequestRepository{db: db}
}

// Create inserts a request.
func (r *AssetRequestRepository) Create(ctx context.Context, req *models.AssetRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO asset_requests (id, user_id, request_type, category_id, title, description, justification, priority, status, created_at) VALUES (:id, :user_id, :request_type, :category_id, :title, :description, :justification, :priority, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create asset request: %w", err)
	}
	return nil
}

// GetByID returns a request by id.
func (r *AssetRequestRepository) GetByID(ctx context.Context, id string) (*models.AssetRequest, error) {
	query, args, err := psql.Select(assetRequestColumns...).From("asset_requests").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get asset request query: %w", err)
	}
	var req models.AssetRequest
	if err := r.db.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get asset request: %w", err)
	}
	return &req, nil
}

// List returns requests newest first.
func (r *AssetRequestRepository) List(ctx context.Context, filter models.AssetRequestFilter) ([]models.AssetRequest, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query, args, err := applyRequestFilter(psql.Select(assetRequestColumns...).From("asset_requests"), filter).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list asset requests query: %w", err)
	}
	var items []models.AssetRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list asset requests: %w", err)
	}

	countQuery, countArgs, err := applyRequestFilter(psql.Select("COUNT(*)").From("asset_requests"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count asset requests query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count asset requests: %w", err)
	}
	return items, total, nil
}

// Count returns the number of requests matching filter.
func (r *AssetRequestRepository) Count(ctx context.Context, filter models.AssetRequestFilter) (int, error) {
	query, args, err := applyRequestFilter(psql.Select("COUNT(*)").From("asset_requests"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count asset requests query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count asset requests: %w", err)
	}
	return total, nil
}

func applyRequestFilter(sb squirrel.SelectBuilder, filter models.AssetRequestFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		sb = sb.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if len(filter.Status) > 0 {
		sb = sb.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Priority != "" {
		sb = sb.Where(squirrel.Eq{"priority": filter.Priority})
	}
	return sb
}

// ChangeStatus applies a conditional status write. ErrConditionFailed means
// the request was no longer in change.From.
func (r *AssetRequestRepository) ChangeStatus(ctx context.Context, change RequestStatusChange) error {
	ub := psql.Update("asset_requests").Set("status", change.To)
	if change.ReviewedBy != nil {
		ub = ub.Set("reviewed_by", *change.ReviewedBy).
			Set("reviewed_at", change.ReviewedAt).
			Set("admin_notes", change.AdminNotes)
	}
	query, args, err := ub.Where(squirrel.Eq{"id": change.ID}).Where(squirrel.Eq{"status": change.From}).ToSql()
	if err != nil {
		return fmt.Errorf("build asset request status query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change asset request status: %w", err)
	}
	return expectOneRow(res)
}

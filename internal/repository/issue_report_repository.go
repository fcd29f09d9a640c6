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

var issueReportColumns = []string{
	"id", "user_id", "asset_id", "issue_type", "title", "description", "severity", "status",
	"resolution_notes", "resolved_by", "resolved_at", "created_at",
}

// IssueStatusChange is a conditional status write on an issue report.
// Resolution fields are only written when ResolvedBy is set.
type IssueStatusChange struct {
	ID              string
	From            []models.IssueStatus
	To              models.IssueStatus
	ResolvedBy      *string
	ResolvedAt      *time.Time
	ResolutionNotes *string
}

// IssueReportRepository persists issue reports.
type IssueReportRepository struct {
	db *sqlx.DB
}

// NewIssueReportRepository constructs an IssueReportRepository.
func NewIssueReportRepository(db *sqlx.DB) *IssueReportRepository {
	return &IssueReportRepository{db: db}
}

// CreateForAssignee inserts the report only while the asset is assigned to
// the reporting user. ErrConditionFailed means it is not.
func (r *IssueReportRepository) CreateForAssignee(ctx context.Context, issue *models.IssueReport) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO issue_reports (id, user_id, asset_id, issue_type, title, description, severity, status, created_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
WHERE EXISTS (SELECT 1 FROM assets WHERE id = $3 AND assigned_to = $2 AND status = 'assigned' AND deleted_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query,
		issue.ID, issue.UserID, issue.AssetID, issue.IssueType, issue.Title,
		issue.Description, issue.Severity, issue.Status, issue.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create issue report: %w", err)
	}
	return expectOneRow(res)
}

// GetByID returns an issue report by id.
func (r *IssueReportRepository) GetByID(ctx context.Context, id string) (*models.IssueReport, error) {
	query, args, err := psql.Select(issueReportColumns...).From("issue_reports").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get issue report query: %w", err)
	}
	var issue models.IssueReport
	if err := r.db.GetContext(ctx, &issue, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get issue report: %w", err)
	}
	return &issue, nil
}

// List returns issue reports newest first.
func (r *IssueReportRepository) List(ctx context.Context, filter models.IssueReportFilter) ([]models.IssueReport, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PageSize)
	query, args, err := applyIssueFilter(psql.Select(issueReportColumns...).From("issue_reports"), filter).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list issue reports query: %w", err)
	}
	var items []models.IssueReport
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list issue reports: %w", err)
	}

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Count returns the number of issue reports matching filter.
func (r *IssueReportRepository) Count(ctx context.Context, filter models.IssueReportFilter) (int, error) {
	query, args, err := applyIssueFilter(psql.Select("COUNT(*)").From("issue_reports"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count issue reports query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count issue reports: %w", err)
	}
	return total, nil
}

func applyIssueFilter(sb squirrel.SelectBuilder, filter models.IssueReportFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		sb = sb.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.AssetID != "" {
		sb = sb.Where(squirrel.Eq{"asset_id": filter.AssetID})
	}
	if len(filter.Status) > 0 {
		sb = sb.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Severity != "" {
		sb = sb.Where(squirrel.Eq{"severity": filter.Severity})
	}
	return sb
}

// ChangeStatus applies a conditional status write. ErrConditionFailed means
// the report was not in any of change.From.
func (r *IssueReportRepository) ChangeStatus(ctx context.Context, change IssueStatusChange) error {
	ub := psql.Update("issue_reports").Set("status", change.To)
	if change.ResolvedBy != nil {
		ub = ub.Set("resolved_by", *change.ResolvedBy).
			Set("resolved_at", change.ResolvedAt).
			Set("resolution_notes", change.ResolutionNotes)
	}
	query, args, err := ub.Where(squirrel.Eq{"id": change.ID}).Where(squirrel.Eq{"status": change.From}).ToSql()
	if err != nil {
		return fmt.Errorf("build issue report status query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("change issue report status: %w", err)
	}
	return expectOneRow(res)
}

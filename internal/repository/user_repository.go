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

var userColumns = []string{"id", "email", "role", "first_name", "last_name", "department_id", "created_at", "updated_at"}

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, role, first_name, last_name, department_id, created_at, updated_at FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query, args, err := applyUserFilter(psql.Select(userColumns...).From("users"), filter).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users query: %w", err)
	}
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery, countArgs, err := applyUserFilter(psql.Select("COUNT(*)").From("users"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

func applyUserFilter(sb squirrel.SelectBuilder, filter models.UserFilter) squirrel.SelectBuilder {
	if filter.Role != nil {
		sb = sb.Where(squirrel.Eq{"role": *filter.Role})
	}
	if filter.DepartmentID != "" {
		sb = sb.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		sb = sb.Where(squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
		})
	}
	return sb
}

// Create inserts a user provisioned on first authentication. An existing row
// with the same id is left untouched.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, role, first_name, last_name, department_id, created_at, updated_at) VALUES (:id, :email, :role, :first_name, :last_name, :department_id, :created_at, :updated_at) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update writes every admin-managed field of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET role = :role, first_name = :first_name, last_name = :last_name, department_id = :department_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdateProfile writes only the self-service name fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, firstName, lastName *string) error {
	const query = `UPDATE users SET first_name = $2, last_name = $3, updated_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, firstName, lastName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// Delete removes a user nothing references. Assets, requests, issues and
// ledger rows all pin the user; the number of pinning rows is returned and
// the user is kept when it is non-zero.
func (r *UserRepository) Delete(ctx context.Context, id string) (int, error) {
	refs, err := guardedDelete(ctx, r.db, "users", id, []referenceCheck{
		{table: "assets", column: "assigned_to"},
		{table: "assets", column: "user_id"},
		{table: "asset_requests", column: "user_id"},
		{table: "issue_reports", column: "user_id"},
		{table: "asset_assignments", column: "user_id"},
		{table: "asset_assignments", column: "assigned_by"},
	})
	return refs.Total, err
}

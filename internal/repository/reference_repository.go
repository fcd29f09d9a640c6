package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

// ReferenceRepository stores categories and departments, the lookup tables
// assets and users point at.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs a ReferenceRepository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

var (
	categoryReferences = []referenceCheck{
		{table: "assets", column: "category_id", softDeleted: true},
	}
	departmentReferences = []referenceCheck{
		{table: "assets", column: "department_id", softDeleted: true},
		{table: "users", column: "department_id"},
	}
)

// ListCategories returns every category ordered by name.
func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var items []models.Category
	if err := r.db.SelectContext(ctx, &items, `SELECT id, name, created_at FROM categories ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return items, nil
}

// GetCategory returns a category by id.
func (r *ReferenceRepository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var item models.Category
	if err := r.db.GetContext(ctx, &item, `SELECT id, name, created_at FROM categories WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &item, nil
}

// CreateCategory inserts a category.
func (r *ReferenceRepository) CreateCategory(ctx context.Context, item *models.Category) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, `INSERT INTO categories (id, name, created_at) VALUES (:id, :name, :created_at)`, item); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// RenameCategory updates the category name.
func (r *ReferenceRepository) RenameCategory(ctx context.Context, id, name string) error {
	return r.rename(ctx, "categories", id, name)
}

// DeleteCategory removes an unreferenced category. A non-zero count means the
// category is still referenced and was kept.
func (r *ReferenceRepository) DeleteCategory(ctx context.Context, id string) (References, error) {
	return guardedDelete(ctx, r.db, "categories", id, categoryReferences)
}

// ListDepartments returns every department ordered by name.
func (r *ReferenceRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	var items []models.Department
	if err := r.db.SelectContext(ctx, &items, `SELECT id, name, created_at FROM departments ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// GetDepartment returns a department by id.
func (r *ReferenceRepository) GetDepartment(ctx context.Context, id string) (*models.Department, error) {
	var item models.Department
	if err := r.db.GetContext(ctx, &item, `SELECT id, name, created_at FROM departments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &item, nil
}

// CreateDepartment inserts a department.
func (r *ReferenceRepository) CreateDepartment(ctx context.Context, item *models.Department) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, `INSERT INTO departments (id, name, created_at) VALUES (:id, :name, :created_at)`, item); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// RenameDepartment updates the department name.
func (r *ReferenceRepository) RenameDepartment(ctx context.Context, id, name string) error {
	return r.rename(ctx, "departments", id, name)
}

// DeleteDepartment removes a department no asset or user references. A
// non-zero count means the department was kept.
func (r *ReferenceRepository) DeleteDepartment(ctx context.Context, id string) (References, error) {
	return guardedDelete(ctx, r.db, "departments", id, departmentReferences)
}

func (r *ReferenceRepository) rename(ctx context.Context, table, id, name string) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET name = $2 WHERE id = $1", table), id, name)
	if err != nil {
		return fmt.Errorf("rename %s: %w", table, err)
	}
	if err := expectOneRow(res); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("rename %s: %w", table, err)
	}
	return nil
}

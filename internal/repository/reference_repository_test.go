package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

func TestReferenceRepositoryDeleteCategoryReferenced(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id = $1 FOR UPDATE")).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE deleted_at IS NOT NULL) AS archived FROM assets WHERE category_id = $1")).
		WithArgs("cat-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(3, 0))
	mock.ExpectCommit()

	blocking, err := repo.DeleteCategory(context.Background(), "cat-1")
	require.NoError(t, err)
	require.Equal(t, References{Total: 3}, blocking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryDeleteCategoryUnreferenced(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id = $1 FOR UPDATE")).
		WithArgs("cat-2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-2"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE deleted_at IS NOT NULL) AS archived FROM assets WHERE category_id = $1")).
		WithArgs("cat-2").
		WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs("cat-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	blocking, err := repo.DeleteCategory(context.Background(), "cat-2")
	require.NoError(t, err)
	require.Zero(t, blocking.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryDeleteDepartmentCountsUsers(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM departments WHERE id = $1 FOR UPDATE")).
		WithArgs("dept-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("dept-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE deleted_at IS NOT NULL) AS archived FROM assets WHERE department_id = $1")).
		WithArgs("dept-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, 0 AS archived FROM users WHERE department_id = $1")).
		WithArgs("dept-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(2, 0))
	mock.ExpectCommit()

	blocking, err := repo.DeleteDepartment(context.Background(), "dept-1")
	require.NoError(t, err)
	require.Equal(t, References{Total: 2}, blocking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryDeleteCountsDeletedAssets(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM categories WHERE id = $1 FOR UPDATE")).
		WithArgs("cat-3").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-3"))
	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE deleted_at IS NOT NULL) AS archived FROM assets WHERE category_id = $1")).
		WithArgs("cat-3").
		WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(2, 2))
	mock.ExpectCommit()

	blocking, err := repo.DeleteCategory(context.Background(), "cat-3")
	require.NoError(t, err)
	require.Equal(t, References{Total: 2, Archived: 2}, blocking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryDeleteMissingRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM departments WHERE id = $1 FOR UPDATE")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.DeleteDepartment(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReferenceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO categories")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	item := &models.Category{Name: "Laptops"}
	require.NoError(t, repo.CreateCategory(context.Background(), item))
	require.NotEmpty(t, item.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, created_at FROM categories ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}).AddRow(item.ID, "Laptops", time.Now()))
	items, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET name = $2 WHERE id = $1")).
		WithArgs("ghost", "Desks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.RenameCategory(context.Background(), "ghost", "Desks"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

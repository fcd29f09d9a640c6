package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "role", "first_name", "last_name", "department_id", "created_at", "updated_at"})
}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, role, first_name, last_name, department_id, created_at, updated_at FROM users WHERE id = $1")).
		WithArgs("user-1").
		WillReturnRows(userRows().AddRow("user-1", "jane@example.com", "user", "Jane", nil, "dept-1", time.Now(), time.Now()))

	user, err := repo.FindByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Role)
	require.Equal(t, "Jane", user.DisplayName())

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	role := models.RoleAdmin
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, role, first_name, last_name, department_id, created_at, updated_at FROM users WHERE role = $1 AND department_id = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("admin", "dept-1").
		WillReturnRows(userRows().AddRow("admin-1", "boss@example.com", "admin", nil, nil, "dept-1", time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE role = $1 AND department_id = $2")).
		WithArgs("admin", "dept-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, DepartmentID: "dept-1"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateProfileMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	first := "Jane"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET first_name = $2, last_name = $3")).
		WithArgs("user-9", "Jane", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProfile(context.Background(), "user-9", &first, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteBlockedByReferences(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-1"))
	counts := []int{1, 0, 2, 0, 3, 0}
	for _, n := range counts {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, 0 AS archived FROM")).
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"total", "archived"}).AddRow(n, 0))
	}
	mock.ExpectCommit()

	blocking, err := repo.Delete(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 6, blocking)
	require.NoError(t, mock.ExpectationsWereMet())
}

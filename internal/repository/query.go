package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/asset-desk-api/pkg/database"
)

// ErrConditionFailed is returned when a conditional write matched no rows
// because the row changed state since it was read.
var ErrConditionFailed = errors.New("conditional write matched no rows")

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func pageBounds(page, size int) (uint64, uint64) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return uint64(size), uint64((page - 1) * size)
}

// referenceCheck names a column pointing at the row being deleted.
// softDeleted marks tables whose hidden rows still hold the foreign key.
type referenceCheck struct {
	table       string
	column      string
	softDeleted bool
}

// References counts the rows blocking a delete. Archived is the share of
// Total held by soft-deleted rows, which clients can no longer list.
type References struct {
	Total    int `db:"total"`
	Archived int `db:"archived"`
}

// guardedDelete locks the row, counts referencing rows and deletes only when
// nothing references it, all inside one transaction. The row lock conflicts
// with the key-share lock a concurrent referencing insert takes, so no new
// reference can appear between the count and the delete. When the returned
// Total is non-zero nothing was deleted.
func guardedDelete(ctx context.Context, db *sqlx.DB, table, id string, checks []referenceCheck) (References, error) {
	var blocking References
	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		var locked string
		lockQuery := fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", table)
		if err := tx.GetContext(ctx, &locked, lockQuery, id); err != nil {
			return err
		}

		for _, check := range checks {
			var refs References
			archived := "0"
			if check.softDeleted {
				archived = "COUNT(*) FILTER (WHERE deleted_at IS NOT NULL)"
			}
			countQuery := fmt.Sprintf("SELECT COUNT(*) AS total, %s AS archived FROM %s WHERE %s = $1", archived, check.table, check.column)
			if err := tx.GetContext(ctx, &refs, countQuery, id); err != nil {
				return fmt.Errorf("count %s.%s references: %w", check.table, check.column, err)
			}
			blocking.Total += refs.Total
			blocking.Archived += refs.Archived
		}
		if blocking.Total > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
		return nil
	})
	return blocking, err
}

func expectOneRow(res interface{ RowsAffected() (int64, error) }) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConditionFailed
	}
	return nil
}

// qualified prefixes columns with a table alias for joined selects.
func qualified(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

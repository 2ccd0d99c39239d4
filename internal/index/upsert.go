package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/dbx"
)

// field is a single column/value pair. Slices of fields keep column order
// stable so the generated SQL is deterministic.
type field struct {
	col string
	val any
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// whereClause builds "a=? AND b=?" plus arguments for the unique columns,
// pulling the values out of the full value set.
func whereClause(values []field, unique []string) (string, []any) {
	parts := make([]string, 0, len(unique))
	args := make([]any, 0, len(unique))
	for _, col := range unique {
		for _, f := range values {
			if f.col == col {
				parts = append(parts, col+"=?")
				args = append(args, f.val)
				break
			}
		}
	}
	return strings.Join(parts, " AND "), args
}

// selectID resolves the row id by the unique columns.
func selectID(ctx context.Context, db dbx.DBTX, table string, values []field, unique []string) (int64, error) {
	where, args := whereClause(values, unique)
	var id int64
	err := db.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE "+where, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to find the row in %s: %w", table, common.ErrStoreInvariant)
	}
	if err != nil {
		return 0, fmt.Errorf("selecting id from %s: %w", table, err)
	}
	return id, nil
}

// insertOrIgnore attempts an insert and, on a uniqueness conflict, resolves
// and returns the id of the pre-existing row. Existing rows are left as-is.
func insertOrIgnore(ctx context.Context, db dbx.DBTX, table string, values []field, unique []string) (int64, error) {
	cols := make([]string, len(values))
	args := make([]any, len(values))
	for i, f := range values {
		cols[i] = f.col
		args[i] = f.val
	}

	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", table, err)
	}
	if n > 0 {
		return res.LastInsertId()
	}
	return selectID(ctx, db, table, values, unique)
}

// insertOrUpdate attempts an insert and, on a uniqueness conflict, updates the
// non-key columns of the existing row (last write wins, whole row). The id of
// the inserted or updated row is returned and is stable across updates.
//
// An update that matches zero rows after an insert conflict means the caller
// and the schema disagree about the table's unique columns; that surfaces as
// common.ErrStoreInvariant and must abort the enclosing transaction.
func insertOrUpdate(ctx context.Context, db dbx.DBTX, table string, values []field, unique []string) (int64, error) {
	cols := make([]string, len(values))
	args := make([]any, len(values))
	for i, f := range values {
		cols[i] = f.col
		args[i] = f.val
	}

	query := fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for %s: %w", table, err)
	}
	if n > 0 {
		return res.LastInsertId()
	}

	isUnique := make(map[string]bool, len(unique))
	for _, col := range unique {
		isUnique[col] = true
	}
	setParts := make([]string, 0, len(values))
	setArgs := make([]any, 0, len(values))
	for _, f := range values {
		if !isUnique[f.col] {
			setParts = append(setParts, f.col+"=?")
			setArgs = append(setArgs, f.val)
		}
	}

	if len(setParts) > 0 {
		where, whereArgs := whereClause(values, unique)
		updateQuery := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(setParts, ", "), where)
		res, err := db.ExecContext(ctx, updateQuery, append(setArgs, whereArgs...)...)
		if err != nil {
			return 0, fmt.Errorf("updating %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for %s: %w", table, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("failed to update the row in %s: %w", table, common.ErrStoreInvariant)
		}
	}

	return selectID(ctx, db, table, values, unique)
}

package entity

import (
	"context"

	"github.com/jackc/pgx/v4"
)

func queryRowFuncNoOp(pgx.QueryFuncRow) error { return nil }

// Query runs sql and scans the columns of the last returned row into scans. Scans are left
// untouched when no rows are returned, so callers check the zero ID to detect a miss.
func Query(ctx context.Context, tx pgx.Tx, sql string, args []interface{}, scans []interface{}) error {
	_, err := tx.QueryFunc(ctx, sql, args, scans, queryRowFuncNoOp)
	return err
}

// queryUpdateDelete runs an update or delete statement and reports whether any row was affected.
func queryUpdateDelete(ctx context.Context, tx pgx.Tx, sql string, args []interface{}) (bool, error) {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

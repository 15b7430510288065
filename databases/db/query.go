package db

import (
	"context"
	"database/sql"

	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/jmoiron/sqlx"
)

// Executor is what statements run against: a reserved *sqlx.Conn or a *sqlx.Tx
// opened on one. Statements are written with ? placeholders and rebound here.
type Executor interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

var (
	_ Executor = (*sqlx.Conn)(nil)
	_ Executor = (*sqlx.Tx)(nil)
)

func logContext(l *log.DXLog) context.Context {
	if l == nil || l.Context == nil {
		return context.Background()
	}
	return l.Context
}

// QueryRows runs stmt and reads the whole result, so the caller may release the
// connection as soon as it returns.
func QueryRows(l *log.DXLog, ex Executor, stmt *builder.Statement) (rs *ResultSet, err error) {
	if stmt == nil {
		return nil, errors.Validationf("STATEMENT_IS_NULL")
	}
	query := ex.Rebind(stmt.SQL)
	defer func() {
		LogDBOperation(l, "QUERY", query, stmt.Params, err)
	}()

	rows, err := ex.QueryxContext(logContext(l), query, stmt.Params...)
	if err != nil {
		return nil, CheckDatabaseError(err, "DB_QUERY_ERROR sql=%s", query)
	}
	defer func() {
		_ = rows.Close()
	}()

	rs = &ResultSet{Rows: []utils.JSON{}}
	rs.RowsInfo.Columns, err = rows.Columns()
	if err != nil {
		return nil, CheckDatabaseError(err, "DB_QUERY_COLUMNS_ERROR")
	}
	rs.RowsInfo.ColumnTypes, err = rows.ColumnTypes()
	if err != nil {
		return nil, CheckDatabaseError(err, "DB_QUERY_COLUMN_TYPES_ERROR")
	}
	for rows.Next() {
		rowJSON := make(utils.JSON)
		if err = rows.MapScan(rowJSON); err != nil {
			return nil, CheckDatabaseError(err, "DB_QUERY_SCAN_ERROR")
		}
		for k, v := range rowJSON {
			rowJSON[k] = utils.NormalizeValue(v)
		}
		rs.Rows = append(rs.Rows, rowJSON)
	}
	if err = rows.Err(); err != nil {
		return nil, CheckDatabaseError(err, "DB_QUERY_ITERATION_ERROR")
	}
	return rs, nil
}

// QueryCount runs a single value COUNT statement.
func QueryCount(l *log.DXLog, ex Executor, stmt *builder.Statement) (int64, error) {
	rs, err := QueryRows(l, ex, stmt)
	if err != nil {
		return 0, err
	}
	if rs.Len() == 0 || len(rs.RowsInfo.Columns) == 0 {
		return 0, errors.BackendFailuref(errors.New("COUNT_RETURNED_NO_ROWS"), "DB_COUNT_ERROR sql=%s", stmt.SQL)
	}
	v := rs.Rows[0][rs.RowsInfo.Columns[0]]
	n, err := utils.ConvertToInt64(v)
	if err != nil {
		return 0, errors.BackendFailuref(err, "DB_COUNT_VALUE_ERROR")
	}
	return n, nil
}

// Exec runs stmt and returns the driver result.
func Exec(l *log.DXLog, ex Executor, stmt *builder.Statement) (r sql.Result, err error) {
	if stmt == nil {
		return nil, errors.Validationf("STATEMENT_IS_NULL")
	}
	query := ex.Rebind(stmt.SQL)
	defer func() {
		LogDBOperation(l, "EXEC", query, stmt.Params, err)
	}()

	r, err = ex.ExecContext(logContext(l), query, stmt.Params...)
	if err != nil {
		return nil, CheckDatabaseError(err, "DB_EXEC_ERROR sql=%s", query)
	}
	return r, nil
}

// ExecRowsAffected is Exec reporting only the affected row count.
func ExecRowsAffected(l *log.DXLog, ex Executor, stmt *builder.Statement) (int64, error) {
	r, err := Exec(l, ex, stmt)
	if err != nil {
		return 0, err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return 0, CheckDatabaseError(err, "DB_ROWS_AFFECTED_ERROR")
	}
	return n, nil
}

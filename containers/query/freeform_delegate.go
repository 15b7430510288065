package query

import (
	"context"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
)

// FreeformQueryDelegate lets a FreeformQuery page, filter, sort and write.
// Query strings it returns may use the :name parameters of the FreeformQuery.
type FreeformQueryDelegate interface {
	GetQueryString(offset int, limit int) (string, error)
	GetCountQuery() (string, error)
	// GetContainsRowQueryString returns a query yielding a row iff the key exists.
	GetContainsRowQueryString(keys ...any) (string, error)

	SetFilters(filters []filter.Filter, mode filter.FilteringMode) error
	SetOrderBy(orderBys []builder.OrderBy) error

	// StoreRow and RemoveRow run on the executor of the active transaction.
	StoreRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (int, error)
	RemoveRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (bool, error)
}

// FreeformStatementDelegate is a FreeformQueryDelegate returning statements
// with ? placeholders and bound values instead of query strings. When a
// delegate implements it, the statement methods are used.
type FreeformStatementDelegate interface {
	FreeformQueryDelegate
	GetQueryStatement(offset int, limit int) (*builder.Statement, error)
	GetCountStatement() (*builder.Statement, error)
	GetContainsRowQueryStatement(keys ...any) (*builder.Statement, error)
}

// ExecutorContext is what a delegate writes through: the executor of the
// current transaction and the log of the calling backend.
type ExecutorContext struct {
	Executor db.Executor
	Log      *log.DXLog

	rowIdChanged func(newId row.RowId)
}

// RowIdChanged reports the identity an inserted row received.
func (e ExecutorContext) RowIdChanged(newId row.RowId) {
	if e.rowIdChanged != nil {
		e.rowIdChanged(newId)
	}
}

// Exec runs stmt and returns the affected row count.
func (e ExecutorContext) Exec(stmt *builder.Statement) (int64, error) {
	return db.ExecRowsAffected(e.Log, e.Executor, stmt)
}

// Query runs stmt and reads the whole result.
func (e ExecutorContext) Query(stmt *builder.Statement) (*db.ResultSet, error) {
	return db.QueryRows(e.Log, e.Executor, stmt)
}

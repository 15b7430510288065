// Package query holds the backends a container reads rows from and writes
// buffered changes to. A backend owns the transaction boundary and the
// connection used inside it.
package query

import (
	"context"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
)

// RowIdChangeEvent reports the identity a row received when it was inserted.
type RowIdChangeEvent struct {
	OldId row.ItemId
	NewId row.RowId
}

type RowIdChangeListener func(event RowIdChangeEvent)

// QueryDelegate is the contract between a container and its backend.
//
// BeginTransaction, Commit and Rollback move between Idle and Active. Calls
// made while Idle run in their own short transaction; calls made while Active
// run in the active one. A nested BeginTransaction and a Commit or Rollback
// while Idle are precondition errors.
type QueryDelegate interface {
	// GetCount returns the number of rows under the current filters.
	GetCount(ctx context.Context) (int, error)
	// GetResults reads pageLength rows starting at offset. pageLength 0 reads
	// every row. Backends without paging return an UnsupportedOperation error
	// for anything but (0, 0).
	GetResults(ctx context.Context, offset int, pageLength int) (*db.ResultSet, error)
	// ImplementationRespectsPagingLimits is false when GetResults(0, 0) is the
	// only way to read rows.
	ImplementationRespectsPagingLimits() bool

	SetFilters(filters []filter.Filter, mode filter.FilteringMode) error
	SetOrderBy(orderBys []builder.OrderBy) error

	// StoreRow inserts a row with a temporary id and updates any other row.
	// It returns the affected row count.
	StoreRow(ctx context.Context, item *row.RowItem) (int, error)
	// RemoveRow deletes a row and reports whether exactly one row was removed.
	RemoveRow(ctx context.Context, item *row.RowItem) (bool, error)

	BeginTransaction(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	GetPrimaryKeyColumns() []string
	ContainsRowWithKey(ctx context.Context, keys ...any) (bool, error)

	// SetRowIdChangeListener registers the hook called after an insert
	// resolved the identity of a row.
	SetRowIdChangeListener(listener RowIdChangeListener)
}

package query

import (
	"context"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	namedParameterQuery "github.com/knetic/go-namedparameterquery"
	"go.opentelemetry.io/otel/attribute"
)

// freeformAlias names the wrapped query in the generated COUNT and key lookup.
const freeformAlias = "fq"

// FreeformQuery runs an arbitrary query, optionally with :name parameters.
// On its own it can only read every row at once; paging, filtering, sorting
// and writes need a FreeformQueryDelegate.
type FreeformQuery struct {
	transaction

	queryString string
	parameters  utils.JSON
	dbType      base.DXDatabaseType
	generator   *builder.Generator
	primaryKeys []string
	delegate    FreeformQueryDelegate

	rowIdChangeListener RowIdChangeListener
}

var _ QueryDelegate = (*FreeformQuery)(nil)

func NewFreeformQuery(pool databases.ConnectionPool, dbType base.DXDatabaseType, queryString string, primaryKeys ...string) (*FreeformQuery, error) {
	if pool == nil {
		return nil, errors.Validationf("CONNECTION_POOL_IS_NULL")
	}
	if strings.TrimSpace(queryString) == "" {
		return nil, errors.Validationf("QUERY_STRING_IS_EMPTY")
	}
	if len(primaryKeys) == 0 {
		return nil, errors.Validationf("PRIMARY_KEY_COLUMNS_NOT_DEFINED")
	}
	if !dbType.IsValid() {
		return nil, errors.Validationf("DATABASE_TYPE_NOT_SUPPORTED:%s", dbType.String())
	}
	return &FreeformQuery{
		transaction: newTransaction(pool, "FreeformQuery"),
		queryString: queryString,
		parameters:  utils.JSON{},
		dbType:      dbType,
		generator:   builder.NewGenerator(dbType),
		primaryKeys: primaryKeys,
	}, nil
}

func (q *FreeformQuery) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", q.dbType.String()),
		attribute.Bool("freeform.delegate", q.delegate != nil),
	}
}

func (q *FreeformQuery) QueryString() string {
	return q.queryString
}

// SetParameter binds the value of a :name parameter.
func (q *FreeformQuery) SetParameter(name string, value any) {
	q.parameters[name] = value
}

func (q *FreeformQuery) SetDelegate(delegate FreeformQueryDelegate) {
	q.delegate = delegate
}

func (q *FreeformQuery) GetDelegate() FreeformQueryDelegate {
	return q.delegate
}

func (q *FreeformQuery) statementDelegate() (FreeformStatementDelegate, bool) {
	d, ok := q.delegate.(FreeformStatementDelegate)
	return d, ok
}

// bind turns a query with :name parameters into a ? statement.
func (q *FreeformQuery) bind(query string) *builder.Statement {
	p := namedParameterQuery.NewNamedParameterQuery(query)
	p.SetValuesFromMap(q.parameters)
	return &builder.Statement{SQL: p.GetParsedQuery(), Params: p.GetParsedParameters()}
}

func (q *FreeformQuery) GetPrimaryKeyColumns() []string {
	out := make([]string, len(q.primaryKeys))
	copy(out, q.primaryKeys)
	return out
}

func (q *FreeformQuery) ImplementationRespectsPagingLimits() bool {
	return q.delegate != nil
}

func (q *FreeformQuery) SetFilters(filters []filter.Filter, mode filter.FilteringMode) error {
	if q.delegate != nil {
		return q.delegate.SetFilters(filters, mode)
	}
	if len(filters) > 0 {
		return errors.Unsupportedf("FREEFORM_QUERY_FILTERING_NEEDS_DELEGATE")
	}
	return nil
}

func (q *FreeformQuery) SetOrderBy(orderBys []builder.OrderBy) error {
	if q.delegate != nil {
		return q.delegate.SetOrderBy(orderBys)
	}
	if len(orderBys) > 0 {
		return errors.Unsupportedf("FREEFORM_QUERY_SORTING_NEEDS_DELEGATE")
	}
	return nil
}

func (q *FreeformQuery) SetRowIdChangeListener(listener RowIdChangeListener) {
	q.rowIdChangeListener = listener
}

func (q *FreeformQuery) BeginTransaction(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.BeginTransaction", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.begin(ctx)
}

func (q *FreeformQuery) Commit(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.Commit", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.commit(ctx)
}

func (q *FreeformQuery) Rollback(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.Rollback", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.rollback(ctx)
}

// wrapped is the query as a sub-query source for generated statements.
func (q *FreeformQuery) wrapped() (*builder.Statement, string) {
	inner := q.bind(q.queryString)
	source := "(" + inner.SQL + ")"
	if q.dbType != base.DXDatabaseTypeOracle {
		source += " AS"
	}
	return inner, source + " " + freeformAlias
}

func (q *FreeformQuery) countStatement() (*builder.Statement, error) {
	if d, ok := q.statementDelegate(); ok {
		return d.GetCountStatement()
	}
	if q.delegate != nil {
		s, err := q.delegate.GetCountQuery()
		if err != nil {
			return nil, err
		}
		return q.bind(s), nil
	}
	inner, source := q.wrapped()
	return &builder.Statement{SQL: "SELECT COUNT(*) FROM " + source, Params: inner.Params}, nil
}

func (q *FreeformQuery) GetCount(ctx context.Context) (count int, err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.GetCount", q.attributes()...)
	defer func() { endSpan(span, err) }()

	stmt, err := q.countStatement()
	if err != nil {
		return 0, err
	}
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) error {
		n, err := db.QueryCount(l, ex, stmt)
		count = int(n)
		return err
	})
	return count, err
}

func (q *FreeformQuery) resultsStatement(offset int, pageLength int) (*builder.Statement, error) {
	if d, ok := q.statementDelegate(); ok {
		return d.GetQueryStatement(offset, pageLength)
	}
	if q.delegate != nil {
		s, err := q.delegate.GetQueryString(offset, pageLength)
		if err != nil {
			return nil, err
		}
		return q.bind(s), nil
	}
	if offset != 0 || pageLength != 0 {
		return nil, errors.Unsupportedf("FREEFORM_QUERY_PAGING_NEEDS_DELEGATE")
	}
	return q.bind(q.queryString), nil
}

func (q *FreeformQuery) GetResults(ctx context.Context, offset int, pageLength int) (rs *db.ResultSet, err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.GetResults", q.attributes()...)
	span.SetAttributes(attribute.Int("offset", offset), attribute.Int("page_length", pageLength))
	defer func() { endSpan(span, err) }()

	stmt, err := q.resultsStatement(offset, pageLength)
	if err != nil {
		return nil, err
	}
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) error {
		rs, err = db.QueryRows(l, ex, stmt)
		return err
	})
	if err != nil {
		return nil, err
	}
	if q.generator.IsWindowed() {
		rs.DropColumn(builder.RowNumColumn)
	}
	metas := rs.ColumnMetadata()
	for i := range metas {
		metas[i].PrimaryKey = utils.IfStringInSliceFold(metas[i].Name, q.primaryKeys)
	}
	return rs, nil
}

func (q *FreeformQuery) containsStatement(keys []any) (*builder.Statement, error) {
	if d, ok := q.statementDelegate(); ok {
		return d.GetContainsRowQueryStatement(keys...)
	}
	if q.delegate != nil {
		s, err := q.delegate.GetContainsRowQueryString(keys...)
		if err != nil {
			return nil, err
		}
		return q.bind(s), nil
	}
	inner, source := q.wrapped()
	stmt, err := q.generator.GenerateContains(source, q.primaryKeys, keys)
	if err != nil {
		return nil, err
	}
	stmt.Params = append(inner.Params, stmt.Params...)
	return stmt, nil
}

func (q *FreeformQuery) ContainsRowWithKey(ctx context.Context, keys ...any) (found bool, err error) {
	ctx, span := startSpan(ctx, "FreeformQuery.ContainsRowWithKey", q.attributes()...)
	defer func() { endSpan(span, err) }()

	if len(keys) != len(q.primaryKeys) {
		return false, errors.Validationf("PRIMARY_KEY_VALUE_COUNT_MISMATCH:%d:%d", len(keys), len(q.primaryKeys))
	}
	for i, k := range keys {
		if k == nil {
			return false, errors.Validationf("PRIMARY_KEY_VALUE_IS_NULL:%s", q.primaryKeys[i])
		}
	}
	stmt, err := q.containsStatement(keys)
	if err != nil {
		return false, err
	}
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) error {
		rs, err := db.QueryRows(l, ex, stmt)
		if err != nil {
			return err
		}
		found = rs.Len() > 0
		return nil
	})
	return found, err
}

func (q *FreeformQuery) StoreRow(ctx context.Context, item *row.RowItem) (affected int, err error) {
	if item == nil {
		return 0, errors.Validationf("STORE_ROW_ITEM_IS_NULL")
	}
	if q.delegate == nil {
		return 0, errors.Unsupportedf("FREEFORM_QUERY_STORE_ROW_NEEDS_DELEGATE")
	}
	ctx, span := startSpan(ctx, "FreeformQuery.StoreRow", q.attributes()...)
	defer func() { endSpan(span, err) }()

	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) (err error) {
		ec := ExecutorContext{Executor: ex, Log: l, rowIdChanged: func(newId row.RowId) {
			if q.rowIdChangeListener != nil {
				q.rowIdChangeListener(RowIdChangeEvent{OldId: item.Id(), NewId: newId})
			}
		}}
		affected, err = q.delegate.StoreRow(ctx, ec, item)
		return err
	})
	return affected, err
}

func (q *FreeformQuery) RemoveRow(ctx context.Context, item *row.RowItem) (removed bool, err error) {
	if item == nil {
		return false, errors.Validationf("REMOVE_ROW_ITEM_IS_NULL")
	}
	if q.delegate == nil {
		return false, errors.Unsupportedf("FREEFORM_QUERY_REMOVE_ROW_NEEDS_DELEGATE")
	}
	ctx, span := startSpan(ctx, "FreeformQuery.RemoveRow", q.attributes()...)
	defer func() { endSpan(span, err) }()

	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) (err error) {
		removed, err = q.delegate.RemoveRow(ctx, ExecutorContext{Executor: ex, Log: l}, item)
		return err
	})
	return removed, err
}

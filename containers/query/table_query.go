package query

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	queryutils "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"go.opentelemetry.io/otel/attribute"
)

// TableQuery reads and writes the rows of one table, generating SQL for the
// dialect of its database type.
type TableQuery struct {
	transaction

	tableName     string
	dbType        base.DXDatabaseType
	generator     *builder.Generator
	primaryKeys   []string
	generated     []string
	versionColumn string

	filters       []filter.Filter
	filteringMode filter.FilteringMode
	orderBys      []builder.OrderBy

	rowIdChangeListener RowIdChangeListener
}

var _ QueryDelegate = (*TableQuery)(nil)

// NewTableQuery binds a backend to tableName. When no primary key columns are
// given they are read from the database catalog, together with the columns
// the database generates.
func NewTableQuery(ctx context.Context, pool databases.ConnectionPool, dbType base.DXDatabaseType, tableName string, primaryKeys ...string) (q *TableQuery, err error) {
	if pool == nil {
		return nil, errors.Validationf("CONNECTION_POOL_IS_NULL")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.Validationf("TABLE_NAME_IS_EMPTY")
	}
	if !queryutils.IsValidTableName(tableName) {
		return nil, errors.Validationf("TABLE_NAME_INVALID:%s", tableName)
	}
	if !dbType.IsValid() {
		return nil, errors.Validationf("DATABASE_TYPE_NOT_SUPPORTED:%s", dbType.String())
	}
	q = &TableQuery{
		transaction: newTransaction(pool, "TableQuery:"+tableName),
		tableName:   tableName,
		dbType:      dbType,
		generator:   builder.NewGenerator(dbType),
		primaryKeys: primaryKeys,
	}
	if len(primaryKeys) > 0 {
		return q, nil
	}

	ctx, span := startSpan(ctx, "TableQuery.DiscoverPrimaryKeys", q.attributes()...)
	defer func() { endSpan(span, err) }()
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) error {
		pks, generated, err := discoverTableMetadata(l, ex, dbType, tableName)
		if err != nil {
			return err
		}
		q.primaryKeys, q.generated = pks, generated
		return nil
	})
	if err != nil {
		return nil, err
	}
	q.log.Debugf("PRIMARY_KEYS %v GENERATED %v", q.primaryKeys, q.generated)
	return q, nil
}

func (q *TableQuery) attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", q.dbType.String()),
		attribute.String("db.sql.table", q.tableName),
	}
}

func (q *TableQuery) TableName() string {
	return q.tableName
}

func (q *TableQuery) DatabaseType() base.DXDatabaseType {
	return q.dbType
}

// SetVersionColumn names the column compared in UPDATE and DELETE to detect
// concurrent modification. The column is read-only in loaded rows.
func (q *TableQuery) SetVersionColumn(column string) {
	q.versionColumn = column
}

func (q *TableQuery) GetVersionColumn() string {
	return q.versionColumn
}

// SetGeneratedColumns overrides the columns the database fills in on insert.
func (q *TableQuery) SetGeneratedColumns(columns ...string) {
	q.generated = columns
}

func (q *TableQuery) GetPrimaryKeyColumns() []string {
	out := make([]string, len(q.primaryKeys))
	copy(out, q.primaryKeys)
	return out
}

func (q *TableQuery) ImplementationRespectsPagingLimits() bool {
	return true
}

func (q *TableQuery) SetFilters(filters []filter.Filter, mode filter.FilteringMode) error {
	q.filters = append([]filter.Filter(nil), filters...)
	q.filteringMode = mode
	return nil
}

func (q *TableQuery) SetOrderBy(orderBys []builder.OrderBy) error {
	q.orderBys = append([]builder.OrderBy(nil), orderBys...)
	return nil
}

func (q *TableQuery) SetRowIdChangeListener(listener RowIdChangeListener) {
	q.rowIdChangeListener = listener
}

func (q *TableQuery) BeginTransaction(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "TableQuery.BeginTransaction", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.begin(ctx)
}

func (q *TableQuery) Commit(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "TableQuery.Commit", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.commit(ctx)
}

func (q *TableQuery) Rollback(ctx context.Context) (err error) {
	ctx, span := startSpan(ctx, "TableQuery.Rollback", q.attributes()...)
	defer func() { endSpan(span, err) }()
	return q.rollback(ctx)
}

func (q *TableQuery) GetCount(ctx context.Context) (count int, err error) {
	ctx, span := startSpan(ctx, "TableQuery.GetCount", q.attributes()...)
	defer func() { endSpan(span, err) }()

	stmt, err := q.generator.GenerateCount(q.tableName, q.filters, q.filteringMode)
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

// GetResults orders by the primary key when no order is set, so pages of
// consecutive calls do not overlap.
func (q *TableQuery) GetResults(ctx context.Context, offset int, pageLength int) (rs *db.ResultSet, err error) {
	ctx, span := startSpan(ctx, "TableQuery.GetResults", q.attributes()...)
	span.SetAttributes(attribute.Int("offset", offset), attribute.Int("page_length", pageLength))
	defer func() { endSpan(span, err) }()

	orderBys := q.orderBys
	if len(orderBys) == 0 {
		for _, pk := range q.primaryKeys {
			orderBys = append(orderBys, builder.Asc(pk))
		}
	}
	stmt, err := q.generator.GenerateSelect(q.tableName, q.filters, q.filteringMode, orderBys, offset, pageLength, "*")
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
	q.describe(rs)
	return rs, nil
}

// describe marks key, version and generated columns in the result metadata.
func (q *TableQuery) describe(rs *db.ResultSet) {
	metas := rs.ColumnMetadata()
	for i := range metas {
		name := metas[i].Name
		metas[i].PrimaryKey = utils.IfStringInSliceFold(name, q.primaryKeys)
		metas[i].VersionColumn = q.versionColumn != "" && strings.EqualFold(name, q.versionColumn)
		metas[i].AutoGenerated = utils.IfStringInSliceFold(name, q.generated)
	}
}

// ContainsRowWithKey looks the key up among the rows passing the current filters.
func (q *TableQuery) ContainsRowWithKey(ctx context.Context, keys ...any) (found bool, err error) {
	ctx, span := startSpan(ctx, "TableQuery.ContainsRowWithKey", q.attributes()...)
	defer func() { endSpan(span, err) }()

	stmt, err := q.generator.GenerateContainsFiltered(q.tableName, q.filters, q.filteringMode, q.primaryKeys, keys)
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

func (q *TableQuery) StoreRow(ctx context.Context, item *row.RowItem) (affected int, err error) {
	if item == nil {
		return 0, errors.Validationf("STORE_ROW_ITEM_IS_NULL")
	}
	ctx, span := startSpan(ctx, "TableQuery.StoreRow", q.attributes()...)
	span.SetAttributes(attribute.String("row.id", item.Id().String()))
	defer func() { endSpan(span, err) }()

	if row.IsTemporary(item.Id()) {
		return q.insertRow(ctx, item)
	}
	return q.updateRow(ctx, item)
}

func (q *TableQuery) updateRow(ctx context.Context, item *row.RowItem) (int, error) {
	stmt, err := q.generator.GenerateUpdate(q.tableName, item, q.primaryKeys, q.versionColumn)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) (err error) {
		n, err = db.ExecRowsAffected(l, ex, stmt)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n == 0 && q.versionColumn != "" {
		return 0, errors.Concurrencyf("ROW_VERSION_MISMATCH_ON_UPDATE:%s:%s", q.tableName, item.Id().String())
	}
	return int(n), nil
}

// missingKeys returns the primary key columns the item has no value for.
func (q *TableQuery) missingKeys(item *row.RowItem) []string {
	var missing []string
	for _, pk := range q.primaryKeys {
		if v, ok := item.PropertyValue(pk); !ok || v == nil {
			missing = append(missing, pk)
		}
	}
	return missing
}

func (q *TableQuery) insertRow(ctx context.Context, item *row.RowItem) (int, error) {
	missing := q.missingKeys(item)
	returning := missing
	switch q.dbType {
	case base.DXDatabaseTypeMariaDB, base.DXDatabaseTypeSQLite:
		returning = nil
	}
	stmt, qb, err := q.generator.GenerateInsert(q.tableName, item, returning)
	if err != nil {
		return 0, err
	}

	generated := utils.JSON{}
	var affected int64
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) error {
		switch {
		case qb.ReturnsRows():
			rs, err := db.QueryRows(l, ex, stmt)
			if err != nil {
				return err
			}
			if rs.Len() != 1 {
				return errors.BackendFailuref(errors.Errorf("INSERT_RETURNED_%d_ROWS", rs.Len()), "DB_INSERT_ERROR:%s", q.tableName)
			}
			for _, c := range missing {
				generated[c] = lookupFold(rs.Rows[0], c)
			}
			affected = 1
			return nil

		case q.dbType == base.DXDatabaseTypeOracle && len(missing) > 0:
			dests := make([]any, len(missing))
			for i := range missing {
				var v string
				dests[i] = &v
				stmt.Params = append(stmt.Params, sql.Out{Dest: dests[i]})
			}
			r, err := db.Exec(l, ex, stmt)
			if err != nil {
				return err
			}
			for i, c := range missing {
				generated[c] = *(dests[i].(*string))
			}
			affected, err = r.RowsAffected()
			return db.CheckDatabaseError(err, "DB_ROWS_AFFECTED_ERROR")

		default:
			r, err := db.Exec(l, ex, stmt)
			if err != nil {
				return err
			}
			affected, err = r.RowsAffected()
			if err != nil {
				return db.CheckDatabaseError(err, "DB_ROWS_AFFECTED_ERROR")
			}
			if len(missing) == 1 {
				id, err := r.LastInsertId()
				if err != nil {
					return db.CheckDatabaseError(err, "DB_LAST_INSERT_ID_ERROR")
				}
				generated[missing[0]] = id
			} else if len(missing) > 1 {
				return errors.Unsupportedf("GENERATED_COMPOSITE_KEY_NOT_SUPPORTED:%s:%v", q.tableName, missing)
			}
			return nil
		}
	})
	if err != nil {
		return 0, err
	}

	keys := make([]any, len(q.primaryKeys))
	for i, pk := range q.primaryKeys {
		if v, ok := generated[pk]; ok {
			keys[i] = v
		} else {
			keys[i] = item.Value(pk)
		}
	}
	newId, err := row.NewRowId(keys...)
	if err != nil {
		return 0, errors.WithMessagef(err, "INSERTED_ROW_ID_UNRESOLVED:%s", q.tableName)
	}
	if q.rowIdChangeListener != nil {
		q.rowIdChangeListener(RowIdChangeEvent{OldId: item.Id(), NewId: newId})
	}
	return int(affected), nil
}

func lookupFold(r utils.JSON, column string) any {
	if v, ok := r[column]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, column) {
			return v
		}
	}
	return nil
}

func (q *TableQuery) RemoveRow(ctx context.Context, item *row.RowItem) (removed bool, err error) {
	if item == nil {
		return false, errors.Validationf("REMOVE_ROW_ITEM_IS_NULL")
	}
	ctx, span := startSpan(ctx, "TableQuery.RemoveRow", q.attributes()...)
	span.SetAttributes(attribute.String("row.id", item.Id().String()))
	defer func() { endSpan(span, err) }()

	stmt, err := q.generator.GenerateDelete(q.tableName, item, q.primaryKeys, q.versionColumn)
	if err != nil {
		return false, err
	}
	var n int64
	err = q.run(ctx, func(l *log.DXLog, ex db.Executor) (err error) {
		n, err = db.ExecRowsAffected(l, ex, stmt)
		return err
	})
	if err != nil {
		return false, err
	}
	if n == 0 && q.versionColumn != "" {
		return false, errors.Concurrencyf("ROW_VERSION_MISMATCH_ON_DELETE:%s:%s", q.tableName, item.Id().String())
	}
	return n == 1, nil
}

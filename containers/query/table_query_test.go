package query

import (
	"context"
	"testing"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableQueryDiscoversPrimaryKey(t *testing.T) {
	d := newPeopleDatabase(t)
	q, err := NewTableQuery(context.Background(), d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, q.GetPrimaryKeyColumns())
	assert.Equal(t, []string{"id"}, q.generated)
	assert.True(t, q.ImplementationRespectsPagingLimits())
	assert.Equal(t, int64(0), d.Reserved())
}

func TestNewTableQueryErrors(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	_, err := d.Execute(ctx, `CREATE TABLE nokey (name TEXT)`, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		table string
		db    base.DXDatabaseType
	}{
		{"empty table name", " ", base.DXDatabaseTypeSQLite},
		{"unknown database type", "people", base.UnknownDatabaseType},
		{"no primary key", "nokey", base.DXDatabaseTypeSQLite},
		{"statement in table name", "people; DROP TABLE people", base.DXDatabaseTypeSQLite},
		{"empty schema part", "main..people", base.DXDatabaseTypeSQLite},
		{"leading digit", "1people", base.DXDatabaseTypeSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTableQuery(ctx, d, tt.db, tt.table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
	_, err = NewTableQuery(ctx, nil, base.DXDatabaseTypeSQLite, "people")
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryCountAndPaging(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rs, err := q.GetResults(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kalle", "Pelle"}, names(rs))

	rs, err = q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ville", "Kalle", "Pelle", "Börje"}, names(rs))

	metas := rs.ColumnMetadata()
	require.Len(t, metas, 4)
	assert.Equal(t, "id", metas[0].Name)
	assert.True(t, metas[0].PrimaryKey)
	assert.True(t, metas[0].AutoGenerated)
	assert.False(t, metas[1].PrimaryKey)
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryFiltersAndOrder(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	require.NoError(t, q.SetFilters([]filter.Filter{filter.NewLike("name", "%lle")}, filter.FilteringModeInclusive))
	require.NoError(t, q.SetOrderBy([]builder.OrderBy{builder.Asc("name")}))

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rs, err := q.GetResults(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kalle", "Pelle", "Ville"}, names(rs))

	require.NoError(t, q.SetFilters([]filter.Filter{filter.Ge("age", 18), filter.Eq("name", "Kalle")}, filter.FilteringModeExclusive))
	require.NoError(t, q.SetOrderBy([]builder.OrderBy{builder.Desc("age")}))
	rs, err = q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Börje", "Ville", "Pelle", "Kalle"}, names(rs))
}

func TestTableQueryContainsRowWithKey(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	found, err := q.ContainsRowWithKey(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = q.ContainsRowWithKey(ctx, 99)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = q.ContainsRowWithKey(ctx, nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	_, err = q.ContainsRowWithKey(ctx)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	_, err = q.ContainsRowWithKey(ctx, 1, 2)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryTransactionStates(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	assert.True(t, errors.Is(q.Commit(ctx), errors.ErrPrecondition))
	assert.True(t, errors.Is(q.Rollback(ctx), errors.ErrPrecondition))

	require.NoError(t, q.BeginTransaction(ctx))
	assert.True(t, q.IsActive())
	assert.Equal(t, int64(1), d.Reserved())
	assert.True(t, errors.Is(q.BeginTransaction(ctx), errors.ErrPrecondition))

	// reads inside the transaction use its connection
	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, q.Commit(ctx))
	assert.False(t, q.IsActive())
	assert.Equal(t, int64(0), d.Reserved())
	assert.True(t, errors.Is(q.Commit(ctx), errors.ErrPrecondition))
}

func TestTableQueryInsert(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	var events []RowIdChangeEvent
	q.SetRowIdChangeListener(func(event RowIdChangeEvent) {
		events = append(events, event)
	})

	rs, err := q.GetResults(ctx, 0, 1)
	require.NoError(t, err)
	item := newItem(t, rs)
	require.NoError(t, item.SetValue("name", "Sune"))
	require.NoError(t, item.SetValue("age", 40))
	assert.Error(t, item.SetValue("id", 100))

	require.NoError(t, q.BeginTransaction(ctx))
	n, err := q.StoreRow(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, q.Commit(ctx))

	require.Len(t, events, 1)
	assert.True(t, events[0].OldId.Equal(item.Id()))
	assert.True(t, events[0].NewId.Equal(row.MustRowId(int64(5))))

	found, err := q.ContainsRowWithKey(ctx, 5)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryInsertRollback(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	rs, err := q.GetResults(ctx, 0, 1)
	require.NoError(t, err)
	item := newItem(t, rs)
	require.NoError(t, item.SetValue("name", "Sune"))

	require.NoError(t, q.BeginTransaction(ctx))
	_, err = q.StoreRow(ctx, item)
	require.NoError(t, err)
	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, q.Rollback(ctx))

	n, err = q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryUpdate(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	rs, err := q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	item := itemAt(t, rs, 1, q.GetPrimaryKeyColumns())
	require.NoError(t, item.SetValue("name", "Kalle Anka"))

	n, err := q.StoreRow(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rs, err = q.GetResults(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kalle Anka"}, names(rs))
}

func TestTableQueryVersionColumn(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)
	q.SetVersionColumn("version")

	rs, err := q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.True(t, rs.ColumnMetadata()[3].VersionColumn)
	stale := itemAt(t, rs, 0, q.GetPrimaryKeyColumns())
	doomed := itemAt(t, rs, 2, q.GetPrimaryKeyColumns())
	assert.Error(t, stale.SetValue("version", 7))

	_, err = d.Execute(ctx, `UPDATE people SET version = version + 1`, nil)
	require.NoError(t, err)

	require.NoError(t, stale.SetValue("name", "Ville Vallaton"))
	_, err = q.StoreRow(ctx, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConcurrency))

	_, err = q.RemoveRow(ctx, doomed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConcurrency))

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(0), d.Reserved())
}

func TestTableQueryRemoveRow(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)

	rs, err := q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	item := itemAt(t, rs, 3, q.GetPrimaryKeyColumns())

	removed, err := q.RemoveRow(ctx, item)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = q.RemoveRow(ctx, item)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = q.RemoveRow(ctx, nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTableQueryExplicitKeys(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewTableQuery(ctx, d, base.DXDatabaseTypeSQLite, "people", "name")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, q.GetPrimaryKeyColumns())

	rs, err := q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Börje", "Kalle", "Pelle", "Ville"}, names(rs))

	found, err := q.ContainsRowWithKey(ctx, "Pelle")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(0), d.Reserved())
}

func TestPrimaryKeyStatements(t *testing.T) {
	tests := []struct {
		db       base.DXDatabaseType
		table    string
		contains string
		params   []any
	}{
		{base.DXDatabaseTypePostgreSQL, "people", "tc.table_schema = current_schema()", []any{"people"}},
		{base.DXDatabaseTypePostgreSQL, "hr.people", "tc.table_schema = ?", []any{"people", "hr"}},
		{base.DXDatabaseTypeMariaDB, "people", "tc.table_schema = DATABASE()", []any{"people"}},
		{base.DXDatabaseTypeSQLServer, "people", "tc.table_schema = SCHEMA_NAME()", []any{"people"}},
		{base.DXDatabaseTypeOracle, "hr.people", "all_cons_columns", []any{"PEOPLE", "HR"}},
		{base.DXDatabaseTypeSQLite, "people", "pragma_table_info(?)", []any{"people"}},
	}
	for _, tt := range tests {
		t.Run(tt.db.String()+"/"+tt.table, func(t *testing.T) {
			stmt, err := primaryKeyStatement(tt.db, tt.table)
			require.NoError(t, err)
			assert.Contains(t, stmt.SQL, tt.contains)
			assert.Equal(t, tt.params, stmt.Params)
		})
	}
	_, err := primaryKeyStatement(base.UnknownDatabaseType, "people")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
	assert.Nil(t, generatedColumnStatement(base.DXDatabaseTypeSQLite, "people"))
}

func TestLookupFold(t *testing.T) {
	r := utils.JSON{"ID": int64(3)}
	assert.Equal(t, int64(3), lookupFold(r, "id"))
	assert.Nil(t, lookupFold(r, "name"))
}

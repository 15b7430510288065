package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peopleDelegate pages, filters and writes the people table through statements.
type peopleDelegate struct {
	generator *builder.Generator
	filters   []filter.Filter
	mode      filter.FilteringMode
	orderBys  []builder.OrderBy
}

func newPeopleDelegate() *peopleDelegate {
	return &peopleDelegate{generator: builder.NewGenerator(base.DXDatabaseTypeSQLite)}
}

func (p *peopleDelegate) GetQueryString(offset int, limit int) (string, error) {
	return "", errors.Unsupportedf("STATEMENTS_ONLY")
}

func (p *peopleDelegate) GetCountQuery() (string, error) {
	return "", errors.Unsupportedf("STATEMENTS_ONLY")
}

func (p *peopleDelegate) GetContainsRowQueryString(keys ...any) (string, error) {
	return "", errors.Unsupportedf("STATEMENTS_ONLY")
}

func (p *peopleDelegate) SetFilters(filters []filter.Filter, mode filter.FilteringMode) error {
	p.filters, p.mode = filters, mode
	return nil
}

func (p *peopleDelegate) SetOrderBy(orderBys []builder.OrderBy) error {
	p.orderBys = orderBys
	return nil
}

func (p *peopleDelegate) GetQueryStatement(offset int, limit int) (*builder.Statement, error) {
	orderBys := p.orderBys
	if len(orderBys) == 0 {
		orderBys = []builder.OrderBy{builder.Asc("id")}
	}
	return p.generator.GenerateSelect("people", p.filters, p.mode, orderBys, offset, limit, "*")
}

func (p *peopleDelegate) GetCountStatement() (*builder.Statement, error) {
	return p.generator.GenerateCount("people", p.filters, p.mode)
}

func (p *peopleDelegate) GetContainsRowQueryStatement(keys ...any) (*builder.Statement, error) {
	return p.generator.GenerateContains("people", []string{"id"}, keys)
}

func (p *peopleDelegate) StoreRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (int, error) {
	if !row.IsTemporary(item.Id()) {
		stmt, err := p.generator.GenerateUpdate("people", item, []string{"id"}, "")
		if err != nil {
			return 0, err
		}
		n, err := ec.Exec(stmt)
		return int(n), err
	}
	stmt, _, err := p.generator.GenerateInsert("people", item, nil)
	if err != nil {
		return 0, err
	}
	r, err := db.Exec(ec.Log, ec.Executor, stmt)
	if err != nil {
		return 0, err
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}
	ec.RowIdChanged(row.MustRowId(id))
	return 1, nil
}

func (p *peopleDelegate) RemoveRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (bool, error) {
	stmt, err := p.generator.GenerateDelete("people", item, []string{"id"}, "")
	if err != nil {
		return false, err
	}
	n, err := ec.Exec(stmt)
	return n == 1, err
}

// adultsDelegate answers with plain query strings using the :age parameter.
type adultsDelegate struct {
	order string
}

func (a *adultsDelegate) GetQueryString(offset int, limit int) (string, error) {
	q := "SELECT * FROM people WHERE age >= :age ORDER BY " + a.order
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	return q, nil
}

func (a *adultsDelegate) GetCountQuery() (string, error) {
	return "SELECT COUNT(*) FROM people WHERE age >= :age", nil
}

func (a *adultsDelegate) GetContainsRowQueryString(keys ...any) (string, error) {
	return fmt.Sprintf("SELECT 1 FROM people WHERE age >= :age AND id = %d", keys[0]), nil
}

func (a *adultsDelegate) SetFilters(filters []filter.Filter, mode filter.FilteringMode) error {
	if len(filters) > 0 {
		return errors.Unsupportedf("ADULTS_DELEGATE_FILTERING")
	}
	return nil
}

func (a *adultsDelegate) SetOrderBy(orderBys []builder.OrderBy) error {
	a.order = "id"
	if len(orderBys) > 0 {
		a.order = builder.BuildOrderByClause(orderBys)
	}
	return nil
}

func (a *adultsDelegate) StoreRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (int, error) {
	return 0, errors.Unsupportedf("ADULTS_DELEGATE_READ_ONLY")
}

func (a *adultsDelegate) RemoveRow(ctx context.Context, ec ExecutorContext, item *row.RowItem) (bool, error) {
	return false, errors.Unsupportedf("ADULTS_DELEGATE_READ_ONLY")
}

func TestNewFreeformQueryErrors(t *testing.T) {
	d := newPeopleDatabase(t)
	tests := []struct {
		name  string
		query string
		db    base.DXDatabaseType
		keys  []string
	}{
		{"empty query", "  ", base.DXDatabaseTypeSQLite, []string{"id"}},
		{"no keys", "SELECT * FROM people", base.DXDatabaseTypeSQLite, nil},
		{"unknown database type", "SELECT * FROM people", base.UnknownDatabaseType, []string{"id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFreeformQuery(d, tt.db, tt.query, tt.keys...)
			assert.True(t, errors.Is(err, errors.ErrValidation))
		})
	}
}

func TestFreeformQueryWithoutDelegate(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewFreeformQuery(d, base.DXDatabaseTypeSQLite, "SELECT * FROM people WHERE age >= :age ORDER BY id", "id")
	require.NoError(t, err)
	q.SetParameter("age", 18)
	assert.False(t, q.ImplementationRespectsPagingLimits())

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rs, err := q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ville", "Pelle", "Börje"}, names(rs))
	assert.True(t, rs.ColumnMetadata()[0].PrimaryKey)

	_, err = q.GetResults(ctx, 0, 10)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))

	found, err := q.ContainsRowWithKey(ctx, 3)
	require.NoError(t, err)
	assert.True(t, found)
	found, err = q.ContainsRowWithKey(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found, "Kalle is filtered out by the query")
	_, err = q.ContainsRowWithKey(ctx, nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	assert.True(t, errors.Is(q.SetFilters([]filter.Filter{filter.Eq("name", "Ville")}, filter.FilteringModeInclusive), errors.ErrUnsupportedOperation))
	assert.NoError(t, q.SetFilters(nil, filter.FilteringModeInclusive))
	assert.True(t, errors.Is(q.SetOrderBy([]builder.OrderBy{builder.Asc("name")}), errors.ErrUnsupportedOperation))
	assert.NoError(t, q.SetOrderBy(nil))

	item := itemAt(t, rs, 0, q.GetPrimaryKeyColumns())
	_, err = q.StoreRow(ctx, item)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
	_, err = q.RemoveRow(ctx, item)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
	assert.Equal(t, int64(0), d.Reserved())
}

func TestFreeformQueryStatementDelegate(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewFreeformQuery(d, base.DXDatabaseTypeSQLite, "SELECT * FROM people", "id")
	require.NoError(t, err)
	q.SetDelegate(newPeopleDelegate())
	assert.True(t, q.ImplementationRespectsPagingLimits())

	require.NoError(t, q.SetFilters([]filter.Filter{filter.NewLike("name", "%lle")}, filter.FilteringModeInclusive))
	require.NoError(t, q.SetOrderBy([]builder.OrderBy{builder.Desc("name")}))

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rs, err := q.GetResults(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pelle", "Kalle"}, names(rs))

	item := itemAt(t, rs, 0, q.GetPrimaryKeyColumns())
	require.NoError(t, item.SetValue("name", "Pellelle"))
	require.NoError(t, q.BeginTransaction(ctx))
	affected, err := q.StoreRow(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	removed, err := q.RemoveRow(ctx, itemAt(t, rs, 1, q.GetPrimaryKeyColumns()))
	require.NoError(t, err)
	assert.True(t, removed)
	require.NoError(t, q.Commit(ctx))

	rs, err = q.GetResults(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ville", "Pellelle"}, names(rs))

	found, err := q.ContainsRowWithKey(ctx, 2)
	require.NoError(t, err)
	assert.False(t, found)

	var events []RowIdChangeEvent
	q.SetRowIdChangeListener(func(event RowIdChangeEvent) {
		events = append(events, event)
	})
	added := newItem(t, rs)
	require.NoError(t, added.SetValue("name", "Nalle"))
	affected, err = q.StoreRow(ctx, added)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	require.Len(t, events, 1)
	assert.True(t, events[0].OldId.Equal(added.Id()))
	assert.True(t, events[0].NewId.Equal(row.MustRowId(5)))
	assert.Equal(t, int64(0), d.Reserved())
}

func TestFreeformQueryStringDelegate(t *testing.T) {
	d := newPeopleDatabase(t)
	ctx := context.Background()
	q, err := NewFreeformQuery(d, base.DXDatabaseTypeSQLite, "SELECT * FROM people WHERE age >= :age", "id")
	require.NoError(t, err)
	q.SetParameter("age", 18)
	q.SetDelegate(&adultsDelegate{order: "id"})

	n, err := q.GetCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, q.SetOrderBy([]builder.OrderBy{builder.Asc("age")}))
	rs, err := q.GetResults(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pelle", "Ville"}, names(rs))

	found, err := q.ContainsRowWithKey(ctx, 4)
	require.NoError(t, err)
	assert.True(t, found)

	assert.True(t, errors.Is(q.SetFilters([]filter.Filter{filter.Eq("name", "x")}, filter.FilteringModeInclusive), errors.ErrUnsupportedOperation))
	_, err = q.StoreRow(ctx, itemAt(t, rs, 0, q.GetPrimaryKeyColumns()))
	assert.True(t, errors.Is(err, errors.ErrUnsupportedOperation))
	assert.Equal(t, int64(0), d.Reserved())
}

func TestFreeformQueryWrappedSource(t *testing.T) {
	d := newPeopleDatabase(t)
	q, err := NewFreeformQuery(d, base.DXDatabaseTypeOracle, "SELECT * FROM people WHERE age >= :age", "id")
	require.NoError(t, err)
	q.SetParameter("age", 18)
	stmt, err := q.countStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM people WHERE age >= ?) fq", stmt.SQL)
	assert.Equal(t, []any{18}, stmt.Params)

	q, err = NewFreeformQuery(d, base.DXDatabaseTypePostgreSQL, "SELECT * FROM people", "id")
	require.NoError(t, err)
	stmt, err = q.countStatement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM people) AS fq", stmt.SQL)
}

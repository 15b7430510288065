package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/stretchr/testify/require"
)

var people = []struct {
	name string
	age  int
}{
	{"Ville", 33},
	{"Kalle", 7},
	{"Pelle", 18},
	{"Börje", 64},
}

// newPeopleDatabase opens an in-memory database holding the people table.
func newPeopleDatabase(t *testing.T) *databases.DXDatabase {
	t.Helper()
	d, err := databases.NewSQLiteMemoryDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Disconnect()
	})

	ctx := context.Background()
	_, err = d.Execute(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER, version INTEGER NOT NULL DEFAULT 0)`, nil)
	require.NoError(t, err)
	for _, p := range people {
		_, err = d.Execute(ctx, `INSERT INTO people (name, age) VALUES (:name, :age)`, utils.JSON{"name": p.name, "age": p.age})
		require.NoError(t, err)
	}
	return d
}

// itemAt turns row i of rs into a RowItem identified by its key columns.
func itemAt(t *testing.T, rs *db.ResultSet, i int, primaryKeys []string) *row.RowItem {
	t.Helper()
	metas := rs.ColumnMetadata()
	props := make([]*row.ColumnProperty, len(metas))
	for k, m := range metas {
		props[k] = row.NewColumnProperty(m, rs.Rows[i][m.Name])
	}
	keys := make([]any, len(primaryKeys))
	for k, pk := range primaryKeys {
		keys[k] = rs.Rows[i][pk]
	}
	id, err := row.NewRowId(keys...)
	require.NoError(t, err)
	item, err := row.NewRowItem(id, props)
	require.NoError(t, err)
	return item
}

// newItem is an unsaved row with the columns of rs and every cell nil.
func newItem(t *testing.T, rs *db.ResultSet) *row.RowItem {
	t.Helper()
	metas := rs.ColumnMetadata()
	props := make([]*row.ColumnProperty, len(metas))
	for k, m := range metas {
		props[k] = row.NewColumnProperty(m, nil)
	}
	item, err := row.NewRowItem(row.NewTemporaryRowId(nil), props)
	require.NoError(t, err)
	return item
}

func names(rs *db.ResultSet) []string {
	out := make([]string, 0, rs.Len())
	for _, r := range rs.Rows {
		out = append(out, fmt.Sprint(r["name"]))
	}
	return out
}

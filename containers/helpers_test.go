package containers

import (
	"context"
	"testing"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/query"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases"
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

func newPeopleDatabase(t *testing.T) *databases.DXDatabase {
	t.Helper()
	d, err := databases.NewSQLiteMemoryDatabase(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Disconnect()
	})

	ctx := context.Background()
	_, err = d.Execute(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER)`, nil)
	require.NoError(t, err)
	for _, p := range people {
		_, err = d.Execute(ctx, `INSERT INTO people (name, age) VALUES (:name, :age)`, utils.JSON{"name": p.name, "age": p.age})
		require.NoError(t, err)
	}
	_, err = d.Execute(ctx, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `CREATE TABLE tags (code TEXT PRIMARY KEY, label TEXT)`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `INSERT INTO tags (code, label) VALUES ('a', 'first'), ('b', 'second')`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `CREATE TABLE accounts (id INTEGER PRIMARY KEY, owner TEXT, version INTEGER NOT NULL DEFAULT 0)`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `INSERT INTO accounts (owner) VALUES ('Ville'), ('Kalle')`, nil)
	require.NoError(t, err)
	return d
}

func newPeopleQuery(t *testing.T, d *databases.DXDatabase) *query.TableQuery {
	t.Helper()
	q, err := query.NewTableQuery(context.Background(), d, base.DXDatabaseTypeSQLite, "people")
	require.NoError(t, err)
	return q
}

func newPeopleContainer(t *testing.T, options ...Option) (*SQLContainer, *databases.DXDatabase) {
	t.Helper()
	d := newPeopleDatabase(t)
	c, err := NewSQLContainer(context.Background(), newPeopleQuery(t, d), options...)
	require.NoError(t, err)
	return c, d
}

// storedCount counts the rows of table through a fresh backend, bypassing the
// container under test.
func storedCount(t *testing.T, d *databases.DXDatabase, table string) int {
	t.Helper()
	q, err := query.NewTableQuery(context.Background(), d, base.DXDatabaseTypeSQLite, table)
	require.NoError(t, err)
	n, err := q.GetCount(context.Background())
	require.NoError(t, err)
	return n
}

// visibleNames reads the name of every visible row in index order.
func visibleNames(t *testing.T, c *SQLContainer) []string {
	t.Helper()
	ctx := context.Background()
	size, err := c.Size(ctx)
	require.NoError(t, err)
	out := make([]string, 0, size)
	for i := 0; i < size; i++ {
		id, err := c.GetIdByIndex(ctx, i)
		require.NoError(t, err)
		require.NotNil(t, id, "index %d", i)
		item, err := c.GetItemUnfiltered(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, item, "id %s", id.String())
		name, _ := item.Value("name").(string)
		out = append(out, name)
	}
	return out
}

func requireSize(t *testing.T, c *SQLContainer, expected int) {
	t.Helper()
	size, err := c.Size(context.Background())
	require.NoError(t, err)
	require.Equal(t, expected, size)
}

// refusingQuery reports a chosen row as not removed.
type refusingQuery struct {
	*query.TableQuery
	refuse row.ItemId
}

func (q *refusingQuery) RemoveRow(ctx context.Context, item *row.RowItem) (bool, error) {
	if item != nil && item.Id().Equal(q.refuse) {
		return false, nil
	}
	return q.TableQuery.RemoveRow(ctx, item)
}

// countingQuery counts backend row count reads.
type countingQuery struct {
	*query.TableQuery
	counts int
}

func (q *countingQuery) GetCount(ctx context.Context) (int, error) {
	q.counts++
	return q.TableQuery.GetCount(ctx)
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

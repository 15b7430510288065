package databases

import (
	"context"
	"testing"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/configuration"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		config   configuration.DatabaseConfiguration
		contains []string
	}{
		{
			name: "postgres",
			config: configuration.DatabaseConfiguration{NameId: "pg", DatabaseType: "postgres", Address: "127.0.0.1:5432",
				UserName: "postgres", UserPassword: "pw", DatabaseName: "people", ConnectionOptions: "sslmode=disable"},
			contains: []string{"user=postgres", "host=127.0.0.1", "port=5432", "dbname=people", "sslmode=disable"},
		},
		{
			name: "mariadb",
			config: configuration.DatabaseConfiguration{NameId: "my", DatabaseType: "mariadb", Address: "127.0.0.1:3306",
				UserName: "root", UserPassword: "pw", DatabaseName: "people"},
			contains: []string{"root:pw@tcp(127.0.0.1:3306)/people", "parseTime=true"},
		},
		{
			name: "sqlserver",
			config: configuration.DatabaseConfiguration{NameId: "ms", DatabaseType: "sqlserver", Address: "127.0.0.1:1433",
				UserName: "sa", UserPassword: "pw", DatabaseName: "people"},
			contains: []string{"server=127.0.0.1", "port=1433", "database=people"},
		},
		{
			name: "oracle",
			config: configuration.DatabaseConfiguration{NameId: "ora", DatabaseType: "oracle", Address: "127.0.0.1:1521",
				UserName: "system", UserPassword: "pw", DatabaseName: "FREEPDB1"},
			contains: []string{"oracle://", "127.0.0.1:1521", "FREEPDB1"},
		},
		{
			name:     "sqlite",
			config:   configuration.DatabaseConfiguration{NameId: "lite", DatabaseType: "sqlite", DatabaseName: "people.db", ConnectionOptions: "_foreign_keys=on"},
			contains: []string{"people.db?_foreign_keys=on"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDXDatabaseFromConfiguration(&tt.config)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, d.ConnectionString, s)
			}
			assert.NotContains(t, d.NonSensitiveConnectionString, "pw")
		})
	}
}

func TestNewDXDatabaseFromConfigurationErrors(t *testing.T) {
	_, err := NewDXDatabaseFromConfiguration(nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = NewDXDatabaseFromConfiguration(&configuration.DatabaseConfiguration{NameId: "x", DatabaseType: "db2"})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = NewDXDatabaseFromConfiguration(&configuration.DatabaseConfiguration{NameId: "x", DatabaseType: "postgres", Address: "no-port"})
	assert.Error(t, err)
}

func TestReserveRelease(t *testing.T) {
	d, err := NewSQLiteMemoryDatabase("test")
	require.NoError(t, err)
	assert.Equal(t, base.DXDatabaseTypeSQLite, d.GetDatabaseType())
	defer func() {
		_ = d.Disconnect()
	}()

	ctx := context.Background()
	_, err = d.Execute(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`, nil)
	require.NoError(t, err)

	n, err := d.Execute(ctx, `INSERT INTO people (name) VALUES (:name)`, utils.JSON{"name": "Ville"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(0), d.Reserved())

	conn, err := d.Reserve(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Reserved())
	rs, err := db.QueryRows(nil, conn, &builder.Statement{SQL: `SELECT name FROM people`})
	require.NoError(t, err)
	d.Release(conn)
	assert.Equal(t, int64(0), d.Reserved())

	require.Equal(t, 1, rs.Len())
	assert.Equal(t, "Ville", rs.Rows[0]["name"])
}

func TestExecuteDuplicateKey(t *testing.T) {
	d, err := NewSQLiteMemoryDatabase("dup")
	require.NoError(t, err)
	defer func() {
		_ = d.Disconnect()
	}()

	ctx := context.Background()
	_, err = d.Execute(ctx, `CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT)`, nil)
	require.NoError(t, err)
	_, err = d.Execute(ctx, `INSERT INTO people (id, name) VALUES (:id, :name)`, utils.JSON{"id": 1, "name": "a"})
	require.NoError(t, err)
	_, err = d.Execute(ctx, `INSERT INTO people (id, name) VALUES (:id, :name)`, utils.JSON{"id": 1, "name": "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBackendFailure))
	assert.True(t, errors.Is(err, db.ERROR_DB_DUPLICATE_KEY))
	assert.Equal(t, int64(0), d.Reserved())
}

package query

import (
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
)

// splitTableName splits "schema.table" into its parts; schema is empty for an
// unqualified name.
func splitTableName(tableName string) (schema string, table string) {
	i := strings.LastIndex(tableName, ".")
	if i < 0 {
		return "", tableName
	}
	return tableName[:i], tableName[i+1:]
}

// schemaCondition restricts a catalog query to the given schema, or to the
// session's current schema.
func schemaCondition(column string, schema string, current string, params []any) (string, []any) {
	if schema == "" {
		return " AND " + column + " = " + current, params
	}
	return " AND " + column + " = ?", append(params, schema)
}

func primaryKeyStatement(dbType base.DXDatabaseType, tableName string) (*builder.Statement, error) {
	schema, table := splitTableName(tableName)
	params := []any{table}
	var where string
	switch dbType {
	case base.DXDatabaseTypePostgreSQL, base.DXDatabaseTypeMariaDB, base.DXDatabaseTypeSQLServer:
		current := map[base.DXDatabaseType]string{
			base.DXDatabaseTypePostgreSQL: "current_schema()",
			base.DXDatabaseTypeMariaDB:    "DATABASE()",
			base.DXDatabaseTypeSQLServer:  "SCHEMA_NAME()",
		}[dbType]
		where, params = schemaCondition("tc.table_schema", schema, current, params)
		return &builder.Statement{
			SQL: "SELECT kcu.column_name AS column_name FROM information_schema.table_constraints tc" +
				" JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name" +
				" AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name" +
				" WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_name = ?" + where +
				" ORDER BY kcu.ordinal_position",
			Params: params,
		}, nil
	case base.DXDatabaseTypeOracle:
		params[0] = strings.ToUpper(table)
		if schema != "" {
			schema = strings.ToUpper(schema)
		}
		where, params = schemaCondition("cols.owner", schema, "SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')", params)
		return &builder.Statement{
			SQL: "SELECT cols.column_name AS column_name FROM all_constraints cons" +
				" JOIN all_cons_columns cols ON cons.constraint_name = cols.constraint_name AND cons.owner = cols.owner" +
				" WHERE cons.constraint_type = 'P' AND cols.table_name = ?" + where +
				" ORDER BY cols.position",
			Params: params,
		}, nil
	case base.DXDatabaseTypeSQLite:
		return &builder.Statement{
			SQL:    "SELECT name AS column_name, type AS column_type FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk",
			Params: params,
		}, nil
	}
	return nil, errors.Unsupportedf("PRIMARY_KEY_DISCOVERY_NOT_SUPPORTED:%s", dbType.String())
}

// generatedColumnStatement lists the columns the database fills in itself.
// SQLite has none besides the rowid alias, handled by discoverTableMetadata.
func generatedColumnStatement(dbType base.DXDatabaseType, tableName string) *builder.Statement {
	schema, table := splitTableName(tableName)
	params := []any{table}
	var where string
	switch dbType {
	case base.DXDatabaseTypePostgreSQL:
		where, params = schemaCondition("table_schema", schema, "current_schema()", params)
		return &builder.Statement{
			SQL: "SELECT column_name FROM information_schema.columns WHERE table_name = ?" + where +
				" AND (column_default LIKE 'nextval(%' OR is_identity = 'YES' OR is_generated = 'ALWAYS')",
			Params: params,
		}
	case base.DXDatabaseTypeMariaDB:
		where, params = schemaCondition("table_schema", schema, "DATABASE()", params)
		return &builder.Statement{
			SQL: "SELECT column_name FROM information_schema.columns WHERE table_name = ?" + where +
				" AND (extra LIKE '%auto_increment%' OR extra LIKE '%GENERATED%')",
			Params: params,
		}
	case base.DXDatabaseTypeSQLServer:
		return &builder.Statement{
			SQL:    "SELECT c.name AS column_name FROM sys.columns c WHERE c.object_id = OBJECT_ID(?) AND (c.is_identity = 1 OR c.is_computed = 1)",
			Params: []any{tableName},
		}
	case base.DXDatabaseTypeOracle:
		params[0] = strings.ToUpper(table)
		if schema != "" {
			schema = strings.ToUpper(schema)
		}
		where, params = schemaCondition("owner", schema, "SYS_CONTEXT('USERENV', 'CURRENT_SCHEMA')", params)
		return &builder.Statement{
			SQL: "SELECT column_name FROM all_tab_cols WHERE table_name = ?" + where +
				" AND (identity_column = 'YES' OR virtual_column = 'YES')",
			Params: params,
		}
	}
	return nil
}

func firstColumnStrings(rs *db.ResultSet) []string {
	if len(rs.RowsInfo.Columns) == 0 {
		return nil
	}
	column := rs.RowsInfo.Columns[0]
	out := make([]string, 0, rs.Len())
	for _, r := range rs.Rows {
		if s, ok := utils.NormalizeValue(r[column]).(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// discoverTableMetadata reads the primary key columns of a table and the
// columns whose values the database generates.
func discoverTableMetadata(l *log.DXLog, ex db.Executor, dbType base.DXDatabaseType, tableName string) (primaryKeys []string, generated []string, err error) {
	stmt, err := primaryKeyStatement(dbType, tableName)
	if err != nil {
		return nil, nil, err
	}
	rs, err := db.QueryRows(l, ex, stmt)
	if err != nil {
		return nil, nil, err
	}
	primaryKeys = firstColumnStrings(rs)
	if len(primaryKeys) == 0 {
		return nil, nil, errors.Validationf("PRIMARY_KEY_NOT_FOUND:%s", tableName)
	}

	if dbType == base.DXDatabaseTypeSQLite {
		// A single INTEGER PRIMARY KEY column aliases the rowid.
		if rs.Len() == 1 {
			if t, ok := rs.Rows[0]["column_type"].(string); ok && strings.EqualFold(strings.TrimSpace(t), "INTEGER") {
				generated = []string{primaryKeys[0]}
			}
		}
		return primaryKeys, generated, nil
	}

	rs, err = db.QueryRows(l, ex, generatedColumnStatement(dbType, tableName))
	if err != nil {
		return nil, nil, err
	}
	return primaryKeys, firstColumnStrings(rs), nil
}

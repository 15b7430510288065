package base

import (
	"fmt"
)

type DXDatabaseType int64

const (
	UnknownDatabaseType DXDatabaseType = iota
	DXDatabaseTypePostgreSQL
	DXDatabaseTypeMariaDB
	DXDatabaseTypeOracle
	DXDatabaseTypeSQLServer
	DXDatabaseTypeSQLite
)

func (t DXDatabaseType) String() string {
	switch t {
	case DXDatabaseTypePostgreSQL:
		return "postgres"
	case DXDatabaseTypeOracle:
		return "oracle"
	case DXDatabaseTypeSQLServer:
		return "sqlserver"
	case DXDatabaseTypeMariaDB:
		return "mariadb"
	case DXDatabaseTypeSQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

func (t DXDatabaseType) IsValid() bool {
	return t > UnknownDatabaseType && t <= DXDatabaseTypeSQLite
}

// Driver returns the database/sql driver name registered for the database type.
func (t DXDatabaseType) Driver() string {
	switch t {
	case DXDatabaseTypePostgreSQL:
		return "postgres"
	case DXDatabaseTypeOracle:
		return "oracle"
	case DXDatabaseTypeSQLServer:
		return "sqlserver"
	case DXDatabaseTypeMariaDB:
		return "mysql"
	case DXDatabaseTypeSQLite:
		return "sqlite3"
	default:
		return "unknown"
	}
}

// SQLDialect returns the paging dialect used to generate SELECT statements for the database type.
func (t DXDatabaseType) SQLDialect() DXSQLDialect {
	switch t {
	case DXDatabaseTypeOracle:
		return DXSQLDialectPseudoColumn
	case DXDatabaseTypeSQLServer:
		return DXSQLDialectRowNumber
	default:
		return DXSQLDialectGeneric
	}
}

func StringToDXDatabaseType(v string) DXDatabaseType {
	switch v {
	case "postgres", "postgresql":
		return DXDatabaseTypePostgreSQL
	case "mysql":
		return DXDatabaseTypeMariaDB
	case "mariadb":
		return DXDatabaseTypeMariaDB
	case "oracle":
		return DXDatabaseTypeOracle
	case "sqlserver", "mssql":
		return DXDatabaseTypeSQLServer
	case "sqlite", "sqlite3":
		return DXDatabaseTypeSQLite
	default:
		return UnknownDatabaseType
	}
}

// DXSQLDialect selects how a windowed SELECT is expressed.
type DXSQLDialect int64

const (
	// DXSQLDialectGeneric pages with LIMIT n OFFSET m.
	DXSQLDialectGeneric DXSQLDialect = iota
	// DXSQLDialectRowNumber pages with a ROW_NUMBER() OVER (...) window.
	DXSQLDialectRowNumber
	// DXSQLDialectPseudoColumn pages with the ROWNUM pseudo column.
	DXSQLDialectPseudoColumn
)

func (d DXSQLDialect) String() string {
	switch d {
	case DXSQLDialectGeneric:
		return "generic"
	case DXSQLDialectRowNumber:
		return "row_number"
	case DXSQLDialectPseudoColumn:
		return "pseudo_column"
	default:
		return fmt.Sprintf("unknown(%d)", d)
	}
}

package builder

import (
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	utils2 "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// InsertQueryBuilder builds INSERT SQL statements with fluent API
type InsertQueryBuilder struct {
	SourceName string              // Table name for INSERT INTO
	DbType     base.DXDatabaseType // Database type for syntax differences
	Error      error               // Accumulated error
	Columns    []string            // Inserted columns, in placeholder order
	Values     []any
	OutFields  []string // RETURNING/OUTPUT fields
}

// NewInsertQueryBuilder creates a new InsertQueryBuilder
func NewInsertQueryBuilder(dbType base.DXDatabaseType) *InsertQueryBuilder {
	return &InsertQueryBuilder{
		DbType: dbType,
	}
}

// Into sets the table name for INSERT
func (qb *InsertQueryBuilder) Into(tableName string) *InsertQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.SourceName = tableName
	return qb
}

// Set adds a field-value pair to insert
func (qb *InsertQueryBuilder) Set(fieldName string, value any) *InsertQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	if fieldName == "" {
		qb.Error = errors.Validationf("INVALID_INSERT_FIELD_NAME:%s", fieldName)
		return qb
	}
	for _, c := range qb.Columns {
		if c == fieldName {
			qb.Error = errors.Validationf("DUPLICATE_INSERT_FIELD_NAME:%s", fieldName)
			return qb
		}
	}
	qb.Columns = append(qb.Columns, fieldName)
	qb.Values = append(qb.Values, value)
	return qb
}

// Returning specifies fields whose generated values the statement reports back.
func (qb *InsertQueryBuilder) Returning(fields ...string) *InsertQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.OutFields = append(qb.OutFields, fields...)
	return qb
}

func (qb *InsertQueryBuilder) quotedOutFields(prefix string) string {
	quoted := make([]string, len(qb.OutFields))
	for i, f := range qb.OutFields {
		quoted[i] = prefix + utils2.QuoteIdentifier(f)
	}
	return strings.Join(quoted, ", ")
}

// BuildReturningClause returns the RETURNING clause for PostgreSQL and the
// RETURNING ... INTO clause for Oracle, whose out binds the caller appends.
func (qb *InsertQueryBuilder) BuildReturningClause() string {
	if len(qb.OutFields) == 0 {
		return ""
	}
	switch qb.DbType {
	case base.DXDatabaseTypePostgreSQL:
		return " RETURNING " + qb.quotedOutFields("")
	case base.DXDatabaseTypeOracle:
		return " RETURNING " + qb.quotedOutFields("") + " INTO " + utils2.Placeholders(len(qb.OutFields))
	}
	return ""
}

// BuildOutputClause returns the OUTPUT clause string for SQL Server
func (qb *InsertQueryBuilder) BuildOutputClause() string {
	if len(qb.OutFields) == 0 || qb.DbType != base.DXDatabaseTypeSQLServer {
		return ""
	}
	return " OUTPUT " + qb.quotedOutFields("INSERTED.")
}

// ReturnsRows reports whether the statement yields the OutFields as a result row.
func (qb *InsertQueryBuilder) ReturnsRows() bool {
	if len(qb.OutFields) == 0 {
		return false
	}
	return qb.DbType == base.DXDatabaseTypePostgreSQL || qb.DbType == base.DXDatabaseTypeSQLServer
}

func (qb *InsertQueryBuilder) Build() (*Statement, error) {
	if qb.Error != nil {
		return nil, qb.Error
	}
	if qb.SourceName == "" {
		return nil, errors.Validationf("INSERT_SOURCE_NAME_IS_EMPTY")
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(qb.SourceName)

	if len(qb.Columns) == 0 {
		switch qb.DbType {
		case base.DXDatabaseTypeMariaDB:
			sb.WriteString(" () VALUES ()")
		case base.DXDatabaseTypeOracle:
			return nil, errors.Validationf("INSERT_WITHOUT_COLUMNS_NOT_SUPPORTED:%s", qb.DbType.String())
		default:
			sb.WriteString(qb.BuildOutputClause())
			sb.WriteString(" DEFAULT VALUES")
		}
		sb.WriteString(qb.BuildReturningClause())
		return &Statement{SQL: sb.String()}, nil
	}

	quoted := make([]string, len(qb.Columns))
	for i, c := range qb.Columns {
		quoted[i] = utils2.QuoteIdentifier(c)
	}
	sb.WriteString(" (")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(")")
	sb.WriteString(qb.BuildOutputClause())
	sb.WriteString(" VALUES (")
	sb.WriteString(utils2.Placeholders(len(qb.Columns)))
	sb.WriteString(")")
	sb.WriteString(qb.BuildReturningClause())

	params := make([]any, len(qb.Values))
	copy(params, qb.Values)
	return &Statement{SQL: sb.String(), Params: params}, nil
}

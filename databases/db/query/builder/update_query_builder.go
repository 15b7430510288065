package builder

import (
	"strings"

	utils2 "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// UpdateQueryBuilder builds UPDATE SQL statements with fluent API
type UpdateQueryBuilder struct {
	SourceName string          // Table name for UPDATE
	Error      error           // Accumulated error
	SetColumns []string        // Updated columns, in placeholder order
	SetValues  []any
	Where      *ConditionGroup // WHERE conditions, rendered after SET
}

// NewUpdateQueryBuilder creates a new UpdateQueryBuilder
func NewUpdateQueryBuilder() *UpdateQueryBuilder {
	return &UpdateQueryBuilder{
		Where: NewConditionGroup(),
	}
}

// Table sets the table name for UPDATE
func (qb *UpdateQueryBuilder) Table(tableName string) *UpdateQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.SourceName = tableName
	return qb
}

// Set adds a field-value pair to update
func (qb *UpdateQueryBuilder) Set(fieldName string, value any) *UpdateQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	if fieldName == "" {
		qb.Error = errors.Validationf("INVALID_UPDATE_FIELD_NAME:%s", fieldName)
		return qb
	}
	qb.SetColumns = append(qb.SetColumns, fieldName)
	qb.SetValues = append(qb.SetValues, value)
	return qb
}

// WhereEq restricts the update to rows where field equals value.
func (qb *UpdateQueryBuilder) WhereEq(fieldName string, value any) *UpdateQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.Where.Eq(fieldName, value)
	return qb
}

func (qb *UpdateQueryBuilder) Build() (*Statement, error) {
	if qb.Error != nil {
		return nil, qb.Error
	}
	if qb.SourceName == "" {
		return nil, errors.Validationf("UPDATE_SOURCE_NAME_IS_EMPTY")
	}
	if len(qb.SetColumns) == 0 {
		return nil, errors.Validationf("UPDATE_HAS_NO_COLUMNS:%s", qb.SourceName)
	}
	where, whereArgs, err := qb.Where.Build()
	if err != nil {
		return nil, err
	}
	if where == "" {
		// An unrestricted UPDATE would rewrite the whole table.
		return nil, errors.Validationf("UPDATE_WITHOUT_WHERE_NOT_ALLOWED:%s", qb.SourceName)
	}

	sets := make([]string, len(qb.SetColumns))
	for i, c := range qb.SetColumns {
		sets[i] = utils2.QuoteIdentifier(c) + " = ?"
	}
	params := make([]any, 0, len(qb.SetValues)+len(whereArgs))
	params = append(params, qb.SetValues...)
	params = append(params, whereArgs...)

	return &Statement{
		SQL:    "UPDATE " + qb.SourceName + " SET " + strings.Join(sets, ", ") + " WHERE " + where,
		Params: params,
	}, nil
}

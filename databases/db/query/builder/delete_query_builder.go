package builder

import (
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// DeleteQueryBuilder builds DELETE SQL statements with fluent API
type DeleteQueryBuilder struct {
	SourceName string          // Table name for DELETE FROM
	Error      error           // Accumulated error
	Where      *ConditionGroup // WHERE conditions
}

// NewDeleteQueryBuilder creates a new DeleteQueryBuilder
func NewDeleteQueryBuilder() *DeleteQueryBuilder {
	return &DeleteQueryBuilder{
		Where: NewConditionGroup(),
	}
}

// From sets the table name for DELETE
func (qb *DeleteQueryBuilder) From(tableName string) *DeleteQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.SourceName = tableName
	return qb
}

// WhereEq restricts the delete to rows where field equals value.
func (qb *DeleteQueryBuilder) WhereEq(fieldName string, value any) *DeleteQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.Where.Eq(fieldName, value)
	return qb
}

func (qb *DeleteQueryBuilder) Build() (*Statement, error) {
	if qb.Error != nil {
		return nil, qb.Error
	}
	if qb.SourceName == "" {
		return nil, errors.Validationf("DELETE_SOURCE_NAME_IS_EMPTY")
	}
	where, args, err := qb.Where.Build()
	if err != nil {
		return nil, err
	}
	if where == "" {
		return nil, errors.Validationf("DELETE_WITHOUT_WHERE_NOT_ALLOWED:%s", qb.SourceName)
	}
	return &Statement{SQL: "DELETE FROM " + qb.SourceName + " WHERE " + where, Params: args}, nil
}

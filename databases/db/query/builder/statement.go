package builder

import (
	"fmt"
	"strings"

	utils2 "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
)

// Statement is SQL text with "?" placeholders and the values bound to them, in order.
type Statement struct {
	SQL    string
	Params []any
}

func (s *Statement) String() string {
	if len(s.Params) == 0 {
		return s.SQL
	}
	return fmt.Sprintf("%s %v", s.SQL, s.Params)
}

// OrderBy sorts by one column.
type OrderBy struct {
	Column    string
	Ascending bool
}

func Asc(column string) OrderBy {
	return OrderBy{Column: column, Ascending: true}
}

func Desc(column string) OrderBy {
	return OrderBy{Column: column, Ascending: false}
}

// BuildOrderByClause returns `"a" ASC, "b" DESC`, or "" for no columns.
func BuildOrderByClause(orderBys []OrderBy) string {
	if len(orderBys) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orderBys))
	for _, o := range orderBys {
		direction := "DESC"
		if o.Ascending {
			direction = "ASC"
		}
		parts = append(parts, utils2.QuoteIdentifier(o.Column)+" "+direction)
	}
	return strings.Join(parts, ", ")
}

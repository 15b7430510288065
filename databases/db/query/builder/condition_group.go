package builder

import (
	"strings"

	utils2 "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// ConditionGroup builds a set of AND-joined conditions with positional parameters.
// It renders the key lookups of UPDATE, DELETE and point queries.
type ConditionGroup struct {
	Conditions []string
	Args       []any
	Error      error
}

func NewConditionGroup() *ConditionGroup {
	return &ConditionGroup{
		Conditions: []string{},
	}
}

// Eq adds "field" = ?. A nil value renders "field" IS NULL.
func (cg *ConditionGroup) Eq(field string, value any) *ConditionGroup {
	if cg.Error != nil {
		return cg
	}
	if field == "" {
		cg.Error = errors.Validationf("CONDITION_FIELD_IS_EMPTY")
		return cg
	}
	if value == nil {
		cg.Conditions = append(cg.Conditions, utils2.QuoteIdentifier(field)+" IS NULL")
		return cg
	}
	cg.Conditions = append(cg.Conditions, utils2.QuoteIdentifier(field)+" = ?")
	cg.Args = append(cg.Args, value)
	return cg
}

// And adds a raw condition string with the values of its placeholders.
func (cg *ConditionGroup) And(raw string, args ...any) *ConditionGroup {
	if raw != "" {
		cg.Conditions = append(cg.Conditions, raw)
		cg.Args = append(cg.Args, args...)
	}
	return cg
}

// Build returns the AND-joined conditions string.
func (cg *ConditionGroup) Build() (string, []any, error) {
	if cg.Error != nil {
		return "", nil, cg.Error
	}
	if len(cg.Conditions) == 0 {
		return "", nil, nil
	}
	return strings.Join(cg.Conditions, " AND "), cg.Args, nil
}

// Package filter holds the predicate tree used to restrict a container. Each
// predicate kind is registered with both its SQL translation and its
// in-memory evaluation so buffered rows and persisted rows are filtered alike.
package filter

import (
	"strings"
)

// Filter is one node of a predicate tree.
type Filter interface {
	// PropertyIds lists the columns the predicate reads.
	PropertyIds() []string
}

// FilteringMode joins the top level filters of a container.
type FilteringMode int

const (
	FilteringModeInclusive FilteringMode = iota // AND
	FilteringModeExclusive                      // OR
)

func (m FilteringMode) Joiner() string {
	if m == FilteringModeExclusive {
		return "OR"
	}
	return "AND"
}

type CompareOperator int

const (
	Equal CompareOperator = iota
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
)

var compareOperatorSQL = map[CompareOperator]string{
	Equal:          "=",
	Greater:        ">",
	GreaterOrEqual: ">=",
	Less:           "<",
	LessOrEqual:    "<=",
}

func (o CompareOperator) String() string {
	if s, ok := compareOperatorSQL[o]; ok {
		return s
	}
	return "?"
}

type Compare struct {
	Operator   CompareOperator
	PropertyId string
	Value      any
}

func Eq(propertyId string, value any) Compare {
	return Compare{Operator: Equal, PropertyId: propertyId, Value: value}
}

func Gt(propertyId string, value any) Compare {
	return Compare{Operator: Greater, PropertyId: propertyId, Value: value}
}

func Ge(propertyId string, value any) Compare {
	return Compare{Operator: GreaterOrEqual, PropertyId: propertyId, Value: value}
}

func Lt(propertyId string, value any) Compare {
	return Compare{Operator: Less, PropertyId: propertyId, Value: value}
}

func Le(propertyId string, value any) Compare {
	return Compare{Operator: LessOrEqual, PropertyId: propertyId, Value: value}
}

func (f Compare) PropertyIds() []string {
	return []string{f.PropertyId}
}

// Like matches a string column against a pattern where % is any run of
// characters and _ is exactly one.
type Like struct {
	PropertyId    string
	Pattern       string
	CaseSensitive bool
}

func NewLike(propertyId string, pattern string) Like {
	return Like{PropertyId: propertyId, Pattern: pattern, CaseSensitive: true}
}

func (f Like) PropertyIds() []string {
	return []string{f.PropertyId}
}

type Between struct {
	PropertyId string
	Low        any
	High       any
}

func (f Between) PropertyIds() []string {
	return []string{f.PropertyId}
}

type IsNull struct {
	PropertyId string
}

func (f IsNull) PropertyIds() []string {
	return []string{f.PropertyId}
}

type Not struct {
	Filter Filter
}

func (f Not) PropertyIds() []string {
	if f.Filter == nil {
		return nil
	}
	return f.Filter.PropertyIds()
}

type And struct {
	Filters []Filter
}

func NewAnd(filters ...Filter) And {
	return And{Filters: filters}
}

func (f And) PropertyIds() []string {
	return collectPropertyIds(f.Filters)
}

type Or struct {
	Filters []Filter
}

func NewOr(filters ...Filter) Or {
	return Or{Filters: filters}
}

func (f Or) PropertyIds() []string {
	return collectPropertyIds(f.Filters)
}

// SimpleString is a substring (or prefix) match on the text form of a column.
type SimpleString struct {
	PropertyId      string
	Text            string
	IgnoreCase      bool
	OnlyMatchPrefix bool
}

func (f SimpleString) PropertyIds() []string {
	return []string{f.PropertyId}
}

// AsLike is the Like predicate a SimpleString is translated through.
func (f SimpleString) AsLike() Like {
	pattern := f.Text + "%"
	if !f.OnlyMatchPrefix {
		pattern = "%" + pattern
	}
	return Like{PropertyId: f.PropertyId, Pattern: pattern, CaseSensitive: !f.IgnoreCase}
}

// AppliesToProperty reports whether f reads propertyId.
func AppliesToProperty(f Filter, propertyId string) bool {
	if f == nil {
		return false
	}
	for _, id := range f.PropertyIds() {
		if id == propertyId {
			return true
		}
	}
	return false
}

func collectPropertyIds(filters []Filter) []string {
	var ids []string
	seen := map[string]bool{}
	for _, f := range filters {
		if f == nil {
			continue
		}
		for _, id := range f.PropertyIds() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func describe(f Filter) string {
	return strings.TrimPrefix(typeName(f), "filter.")
}

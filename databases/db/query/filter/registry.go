package filter

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// ValueSource provides column values to the in-memory evaluator. RowItem
// satisfies it.
type ValueSource interface {
	PropertyValue(propertyId string) (any, bool)
}

// Translator renders f into a WHERE fragment, appending bound values to the
// compiler in placeholder order.
type Translator func(c *Compiler, f Filter) (string, error)

// Evaluator decides whether source satisfies f.
type Evaluator func(f Filter, source ValueSource) (bool, error)

// Definition pairs the two renderings of one predicate kind.
type Definition struct {
	Translate Translator
	Evaluate  Evaluator
}

var (
	registryMu sync.RWMutex
	registry   = map[reflect.Type]Definition{}
)

// Register installs the definition used for filters of the same dynamic type
// as sample. A later registration replaces an earlier one.
func Register(sample Filter, def Definition) error {
	if sample == nil || def.Translate == nil || def.Evaluate == nil {
		return errors.Validationf("FILTER_DEFINITION_INCOMPLETE:%s", typeName(sample))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reflect.TypeOf(sample)] = def
	return nil
}

func lookup(f Filter) (Definition, error) {
	if f == nil {
		return Definition{}, errors.Validationf("FILTER_IS_NULL")
	}
	registryMu.RLock()
	def, ok := registry[reflect.TypeOf(f)]
	registryMu.RUnlock()
	if !ok {
		return Definition{}, errors.Unsupportedf("FILTER_TYPE_NOT_SUPPORTED:%s", describe(f))
	}
	return def, nil
}

// Compiler accumulates the bound values of one WHERE clause.
type Compiler struct {
	params []any
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// AddParam records a bound value for the next "?" placeholder.
func (c *Compiler) AddParam(v any) {
	c.params = append(c.params, v)
}

func (c *Compiler) Params() []any {
	return c.params
}

// Translate renders a single filter, recursing through registered definitions.
func (c *Compiler) Translate(f Filter) (string, error) {
	def, err := lookup(f)
	if err != nil {
		return "", err
	}
	return def.Translate(c, f)
}

// Join renders filters joined by "AND" or "OR" without surrounding parentheses.
func (c *Compiler) Join(filters []Filter, joiner string) (string, error) {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		s, err := c.Translate(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "+joiner+" "), nil
}

// Where renders the WHERE clause of a top level filter list, including the
// leading " WHERE ". An empty list gives an empty clause.
func (c *Compiler) Where(filters []Filter, mode FilteringMode) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	s, err := c.Join(filters, mode.Joiner())
	if err != nil {
		return "", err
	}
	return " WHERE " + s, nil
}

// Compile is Where on a fresh compiler, returning the clause and its values.
func Compile(filters []Filter, mode FilteringMode) (string, []any, error) {
	c := NewCompiler()
	where, err := c.Where(filters, mode)
	if err != nil {
		return "", nil, err
	}
	return where, c.Params(), nil
}

// Matches evaluates f against source in memory.
func Matches(f Filter, source ValueSource) (bool, error) {
	def, err := lookup(f)
	if err != nil {
		return false, err
	}
	return def.Evaluate(f, source)
}

// MatchesAll evaluates a top level filter list the way Where joins it.
func MatchesAll(filters []Filter, mode FilteringMode, source ValueSource) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	for _, f := range filters {
		ok, err := Matches(f, source)
		if err != nil {
			return false, err
		}
		if mode == FilteringModeExclusive && ok {
			return true, nil
		}
		if mode == FilteringModeInclusive && !ok {
			return false, nil
		}
	}
	return mode == FilteringModeInclusive, nil
}

func typeName(f any) string {
	return fmt.Sprintf("%T", f)
}

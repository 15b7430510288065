package filter

import (
	"fmt"
	"strings"
	"time"

	queryutils "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
)

func init() {
	mustRegister(Compare{}, Definition{Translate: translateCompare, Evaluate: evaluateCompare})
	mustRegister(Like{}, Definition{Translate: translateLike, Evaluate: evaluateLike})
	mustRegister(Between{}, Definition{Translate: translateBetween, Evaluate: evaluateBetween})
	mustRegister(IsNull{}, Definition{Translate: translateIsNull, Evaluate: evaluateIsNull})
	mustRegister(Not{}, Definition{Translate: translateNot, Evaluate: evaluateNot})
	mustRegister(And{}, Definition{Translate: translateAnd, Evaluate: evaluateAnd})
	mustRegister(Or{}, Definition{Translate: translateOr, Evaluate: evaluateOr})
	mustRegister(SimpleString{}, Definition{Translate: translateSimpleString, Evaluate: evaluateSimpleString})
}

func mustRegister(sample Filter, def Definition) {
	if err := Register(sample, def); err != nil {
		panic(err)
	}
}

func translateCompare(c *Compiler, f Filter) (string, error) {
	cf := f.(Compare)
	column := queryutils.QuoteIdentifier(cf.PropertyId)
	if cf.Value == nil {
		if cf.Operator != Equal {
			return "", errors.Validationf("COMPARE_WITH_NULL_NOT_SUPPORTED:%s:%s", cf.PropertyId, cf.Operator.String())
		}
		return column + " IS NULL", nil
	}
	op, ok := compareOperatorSQL[cf.Operator]
	if !ok {
		return "", errors.Unsupportedf("COMPARE_OPERATOR_NOT_SUPPORTED:%d", cf.Operator)
	}
	c.AddParam(cf.Value)
	return column + " " + op + " ?", nil
}

func evaluateCompare(f Filter, source ValueSource) (bool, error) {
	cf := f.(Compare)
	v, ok := source.PropertyValue(cf.PropertyId)
	if !ok {
		return false, nil
	}
	if cf.Value == nil {
		if cf.Operator != Equal {
			return false, errors.Validationf("COMPARE_WITH_NULL_NOT_SUPPORTED:%s:%s", cf.PropertyId, cf.Operator.String())
		}
		return v == nil, nil
	}
	if v == nil {
		return false, nil
	}
	cmp, comparable := compareValues(v, cf.Value)
	if !comparable {
		if cf.Operator == Equal {
			return utils.ValuesEqual(v, cf.Value), nil
		}
		return false, nil
	}
	switch cf.Operator {
	case Equal:
		return cmp == 0, nil
	case Greater:
		return cmp > 0, nil
	case GreaterOrEqual:
		return cmp >= 0, nil
	case Less:
		return cmp < 0, nil
	case LessOrEqual:
		return cmp <= 0, nil
	}
	return false, errors.Unsupportedf("COMPARE_OPERATOR_NOT_SUPPORTED:%d", cf.Operator)
}

func translateLike(c *Compiler, f Filter) (string, error) {
	lf := f.(Like)
	column := queryutils.QuoteIdentifier(lf.PropertyId)
	c.AddParam(lf.Pattern)
	if lf.CaseSensitive {
		return column + " LIKE ?", nil
	}
	return "UPPER(" + column + ") LIKE UPPER(?)", nil
}

func evaluateLike(f Filter, source ValueSource) (bool, error) {
	lf := f.(Like)
	v, ok := source.PropertyValue(lf.PropertyId)
	if !ok || v == nil {
		return false, nil
	}
	s := textOf(v)
	pattern := lf.Pattern
	if !lf.CaseSensitive {
		s = strings.ToUpper(s)
		pattern = strings.ToUpper(pattern)
	}
	return matchLike([]rune(s), []rune(pattern)), nil
}

func translateBetween(c *Compiler, f Filter) (string, error) {
	bf := f.(Between)
	if bf.Low == nil || bf.High == nil {
		return "", errors.Validationf("BETWEEN_BOUND_IS_NULL:%s", bf.PropertyId)
	}
	c.AddParam(bf.Low)
	c.AddParam(bf.High)
	return queryutils.QuoteIdentifier(bf.PropertyId) + " BETWEEN ? AND ?", nil
}

func evaluateBetween(f Filter, source ValueSource) (bool, error) {
	bf := f.(Between)
	if bf.Low == nil || bf.High == nil {
		return false, errors.Validationf("BETWEEN_BOUND_IS_NULL:%s", bf.PropertyId)
	}
	v, ok := source.PropertyValue(bf.PropertyId)
	if !ok || v == nil {
		return false, nil
	}
	low, okLow := compareValues(v, bf.Low)
	high, okHigh := compareValues(v, bf.High)
	return okLow && okHigh && low >= 0 && high <= 0, nil
}

func translateIsNull(c *Compiler, f Filter) (string, error) {
	return queryutils.QuoteIdentifier(f.(IsNull).PropertyId) + " IS NULL", nil
}

func evaluateIsNull(f Filter, source ValueSource) (bool, error) {
	v, ok := source.PropertyValue(f.(IsNull).PropertyId)
	return ok && v == nil, nil
}

func translateNot(c *Compiler, f Filter) (string, error) {
	nf := f.(Not)
	if isNull, ok := nf.Filter.(IsNull); ok {
		return queryutils.QuoteIdentifier(isNull.PropertyId) + " IS NOT NULL", nil
	}
	inner, err := c.Translate(nf.Filter)
	if err != nil {
		return "", err
	}
	return "NOT " + inner, nil
}

func evaluateNot(f Filter, source ValueSource) (bool, error) {
	ok, err := Matches(f.(Not).Filter, source)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func translateAnd(c *Compiler, f Filter) (string, error) {
	af := f.(And)
	if len(af.Filters) == 0 {
		return "1 = 1", nil
	}
	s, err := c.Join(af.Filters, "AND")
	if err != nil {
		return "", err
	}
	return "(" + s + ")", nil
}

func evaluateAnd(f Filter, source ValueSource) (bool, error) {
	return MatchesAll(f.(And).Filters, FilteringModeInclusive, source)
}

func translateOr(c *Compiler, f Filter) (string, error) {
	of := f.(Or)
	if len(of.Filters) == 0 {
		return "1 = 0", nil
	}
	s, err := c.Join(of.Filters, "OR")
	if err != nil {
		return "", err
	}
	return "(" + s + ")", nil
}

func evaluateOr(f Filter, source ValueSource) (bool, error) {
	of := f.(Or)
	if len(of.Filters) == 0 {
		return false, nil
	}
	return MatchesAll(of.Filters, FilteringModeExclusive, source)
}

func translateSimpleString(c *Compiler, f Filter) (string, error) {
	return c.Translate(f.(SimpleString).AsLike())
}

func evaluateSimpleString(f Filter, source ValueSource) (bool, error) {
	return Matches(f.(SimpleString).AsLike(), source)
}

// compareValues orders two SQL values of compatible kinds. The second result
// is false when the kinds cannot be ordered against each other.
func compareValues(a, b any) (int, bool) {
	a = utils.NormalizeValue(a)
	b = utils.NormalizeValue(b)
	if utils.IsNumber(a) && utils.IsNumber(b) {
		da, okA := utils.ConvertToDecimal(a)
		db, okB := utils.ConvertToDecimal(b)
		if okA && okB {
			return da.Cmp(db), true
		}
		return 0, false
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

func textOf(v any) string {
	switch t := utils.NormalizeValue(v).(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// matchLike implements SQL LIKE: % matches any run of characters, _ exactly one.
func matchLike(s, pattern []rune) bool {
	si, pi := 0, 0
	starP, starS := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && pattern[pi] == '%':
			starP = pi
			starS = si
			pi++
		case pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == s[si]):
			si++
			pi++
		case starP >= 0:
			pi = starP + 1
			starS++
			si = starS
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}

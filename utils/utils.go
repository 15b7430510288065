package utils

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/shopspring/decimal"
)

type JSON = map[string]any

func TypeAsString(v any) string {
	return fmt.Sprintf("%T", v)
}

func IfStringInSlice(str string, list []string) bool {
	for _, v := range list {
		if v == str {
			return true
		}
	}
	return false
}

// IfStringInSliceFold is IfStringInSlice with case-insensitive comparison.
func IfStringInSliceFold(str string, list []string) bool {
	for _, v := range list {
		if strings.EqualFold(v, str) {
			return true
		}
	}
	return false
}

// NormalizeValue maps the many Go representations a driver or a caller may use
// for the same SQL value onto one: signed and unsigned integers become int64
// (uint64 above MaxInt64 stays uint64), float32 becomes float64 and []byte
// becomes string. Other values are returned unchanged.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	}
	return v
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return u
	}
	return int64(u)
}

func ConvertToInt64(v any) (int64, error) {
	switch t := NormalizeValue(v).(type) {
	case int64:
		return t, nil
	case float64:
		if math.Trunc(t) != t {
			return 0, errors.Errorf("FLOAT_NUMBER_IS_NOT_INTEGER:%v", t)
		}
		return int64(t), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "STRING_IS_NOT_CONVERTABLE_TO_INT64:%s", t)
		}
		return i, nil
	case decimal.Decimal:
		if !t.IsInteger() {
			return 0, errors.Errorf("DECIMAL_IS_NOT_INTEGER:%s", t.String())
		}
		return t.IntPart(), nil
	}
	return 0, errors.Errorf("TYPE_IS_NOT_CONVERTABLE_TO_INT64:%T", v)
}

// ConvertToDecimal converts any numeric representation (and numeric strings) to a decimal.
func ConvertToDecimal(v any) (decimal.Decimal, bool) {
	switch t := NormalizeValue(v).(type) {
	case int64:
		return decimal.NewFromInt(t), true
	case uint64:
		d, err := decimal.NewFromString(strconv.FormatUint(t, 10))
		return d, err == nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(t), true
	case decimal.Decimal:
		return t, true
	case *decimal.Decimal:
		if t == nil {
			return decimal.Decimal{}, false
		}
		return *t, true
	}
	return decimal.Decimal{}, false
}

// IsNumber reports whether v is a number ConvertToDecimal accepts without parsing text.
func IsNumber(v any) bool {
	switch NormalizeValue(v).(type) {
	case int64, uint64, float64, decimal.Decimal, *decimal.Decimal:
		return true
	}
	return false
}

// ValuesEqual compares two SQL values: numbers by numeric value, times by instant,
// everything else after NormalizeValue with reflect.DeepEqual.
func ValuesEqual(a, b any) bool {
	a = NormalizeValue(a)
	b = NormalizeValue(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNumber(a) && IsNumber(b) {
		da, okA := ConvertToDecimal(a)
		db, okB := ConvertToDecimal(b)
		if okA && okB {
			return da.Equal(db)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

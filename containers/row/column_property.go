package row

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/shopspring/decimal"
)

// ColumnMetadata describes one result column as reported by the backend.
type ColumnMetadata struct {
	Name          string
	Type          reflect.Type
	Nullable      bool
	ReadOnly      bool
	PrimaryKey    bool
	VersionColumn bool
	AutoGenerated bool
}

var (
	typeDecimal = reflect.TypeOf(decimal.Decimal{})
	typeTime    = reflect.TypeOf(time.Time{})
)

// ColumnProperty is one cell of a RowItem. It keeps the value loaded from the
// backend and, once edited, the pending value that will be written on commit.
type ColumnProperty struct {
	propertyId            string
	typ                   reflect.Type
	nullable              bool
	readOnly              bool
	readOnlyChangeAllowed bool
	versionColumn         bool
	primaryKey            bool

	value        any
	pendingValue any
	modified     bool
}

func NewColumnProperty(meta ColumnMetadata, value any) *ColumnProperty {
	readOnly := meta.ReadOnly || meta.VersionColumn || meta.AutoGenerated
	return &ColumnProperty{
		propertyId:            meta.Name,
		typ:                   meta.Type,
		nullable:              meta.Nullable,
		readOnly:              readOnly,
		readOnlyChangeAllowed: !readOnly,
		versionColumn:         meta.VersionColumn,
		primaryKey:            meta.PrimaryKey,
		value:                 value,
	}
}

func (p *ColumnProperty) PropertyId() string {
	return p.propertyId
}

// Type is the declared type of the column, nil when the backend could not tell.
func (p *ColumnProperty) Type() reflect.Type {
	return p.typ
}

func (p *ColumnProperty) IsNullable() bool {
	return p.nullable
}

func (p *ColumnProperty) IsReadOnly() bool {
	return p.readOnly
}

func (p *ColumnProperty) IsReadOnlyChangeAllowed() bool {
	return p.readOnlyChangeAllowed
}

func (p *ColumnProperty) IsVersionColumn() bool {
	return p.versionColumn
}

func (p *ColumnProperty) IsPrimaryKey() bool {
	return p.primaryKey
}

// IsPersistent reports whether the column is written by INSERT and UPDATE.
func (p *ColumnProperty) IsPersistent() bool {
	return !p.versionColumn && !p.readOnly && p.readOnlyChangeAllowed
}

func (p *ColumnProperty) IsModified() bool {
	return p.modified
}

func (p *ColumnProperty) Value() any {
	if p.modified {
		return p.pendingValue
	}
	return p.value
}

// OriginalValue is the value as loaded, ignoring any pending edit.
func (p *ColumnProperty) OriginalValue() any {
	return p.value
}

func (p *ColumnProperty) SetReadOnly(readOnly bool) error {
	if !p.readOnlyChangeAllowed {
		return errors.Validationf("COLUMN_PROPERTY_READ_ONLY_CHANGE_NOT_ALLOWED:%s", p.propertyId)
	}
	p.readOnly = readOnly
	return nil
}

// SetValue stores v as the pending value. It reports whether the visible value
// changed; a write equal to the current value is a no-op.
func (p *ColumnProperty) SetValue(v any) (bool, error) {
	if p.readOnly {
		return false, errors.Validationf("COLUMN_PROPERTY_READ_ONLY:%s", p.propertyId)
	}
	if v == nil && !p.nullable {
		return false, errors.Validationf("COLUMN_PROPERTY_NOT_NULLABLE:%s", p.propertyId)
	}
	if v != nil {
		coerced, err := coerce(v, p.typ)
		if err != nil {
			return false, errors.Validationf("COLUMN_PROPERTY_TYPE_MISMATCH:%s:%s", p.propertyId, err.Error())
		}
		v = coerced
	}
	if utils.ValuesEqual(v, p.Value()) {
		return false, nil
	}
	if utils.ValuesEqual(v, p.value) {
		p.pendingValue = nil
		p.modified = false
		return true, nil
	}
	p.pendingValue = v
	p.modified = true
	return true, nil
}

// Commit makes the pending value the original one.
func (p *ColumnProperty) Commit() {
	if p.modified {
		p.value = p.pendingValue
	}
	p.pendingValue = nil
	p.modified = false
}

// restore brings the visible value back to v, an earlier Value() result.
func (p *ColumnProperty) restore(v any) {
	if utils.ValuesEqual(v, p.value) {
		p.pendingValue = nil
		p.modified = false
		return
	}
	p.pendingValue = v
	p.modified = true
}

func (p *ColumnProperty) Rollback() {
	p.pendingValue = nil
	p.modified = false
}

func (p *ColumnProperty) String() string {
	return fmt.Sprintf("%s=%v", p.propertyId, p.Value())
}

func coerce(v any, typ reflect.Type) (any, error) {
	if typ == nil {
		return v, nil
	}
	vt := reflect.TypeOf(v)
	if vt == typ {
		return v, nil
	}
	if typ.Kind() == reflect.Interface {
		if vt.Implements(typ) {
			return v, nil
		}
		return nil, errors.Errorf("VALUE_DOES_NOT_IMPLEMENT:%s", typ.String())
	}

	if typ == typeDecimal {
		if d, ok := utils.ConvertToDecimal(v); ok {
			return d, nil
		}
		if s, ok := v.(string); ok {
			d, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return nil, errors.Wrapf(err, "STRING_IS_NOT_DECIMAL:%s", s)
			}
			return d, nil
		}
		return nil, errors.Errorf("CANNOT_CONVERT:%T:%s", v, typ.String())
	}

	if s, ok := v.(string); ok {
		return parseString(s, typ)
	}
	if b, ok := v.([]byte); ok && typ.Kind() == reflect.String {
		return reflect.ValueOf(string(b)).Convert(typ).Interface(), nil
	}
	if d, ok := v.(decimal.Decimal); ok && isNumericKind(typ.Kind()) {
		if isIntKind(typ.Kind()) {
			if !d.IsInteger() {
				return nil, errors.Errorf("DECIMAL_IS_NOT_INTEGER:%s", d.String())
			}
			return reflect.ValueOf(d.IntPart()).Convert(typ).Interface(), nil
		}
		f, _ := d.Float64()
		return reflect.ValueOf(f).Convert(typ).Interface(), nil
	}
	if isNumericKind(vt.Kind()) && isNumericKind(typ.Kind()) {
		return reflect.ValueOf(v).Convert(typ).Interface(), nil
	}
	if typ.Kind() == reflect.String {
		if s, ok := v.(fmt.Stringer); ok {
			return reflect.ValueOf(s.String()).Convert(typ).Interface(), nil
		}
	}
	if vt.ConvertibleTo(typ) && vt.Kind() == typ.Kind() {
		return reflect.ValueOf(v).Convert(typ).Interface(), nil
	}
	return nil, errors.Errorf("CANNOT_CONVERT:%T:%s", v, typ.String())
}

func parseString(s string, typ reflect.Type) (any, error) {
	trimmed := strings.TrimSpace(s)
	if typ == typeTime {
		for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
		}
		return nil, errors.Errorf("STRING_IS_NOT_TIME:%s", s)
	}
	switch {
	case typ.Kind() == reflect.String:
		return reflect.ValueOf(s).Convert(typ).Interface(), nil
	case isIntKind(typ.Kind()):
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "STRING_IS_NOT_INTEGER:%s", s)
		}
		return reflect.ValueOf(i).Convert(typ).Interface(), nil
	case isUintKind(typ.Kind()):
		u, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "STRING_IS_NOT_UNSIGNED_INTEGER:%s", s)
		}
		return reflect.ValueOf(u).Convert(typ).Interface(), nil
	case typ.Kind() == reflect.Float32 || typ.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "STRING_IS_NOT_FLOAT:%s", s)
		}
		return reflect.ValueOf(f).Convert(typ).Interface(), nil
	case typ.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return nil, errors.Wrapf(err, "STRING_IS_NOT_BOOL:%s", s)
		}
		return reflect.ValueOf(b).Convert(typ).Interface(), nil
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8:
		return reflect.ValueOf([]byte(s)).Convert(typ).Interface(), nil
	}
	return nil, errors.Errorf("CANNOT_CONVERT:string:%s", typ.String())
}

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || k == reflect.Float32 || k == reflect.Float64
}

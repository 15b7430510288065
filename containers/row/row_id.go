package row

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	"github.com/google/uuid"
)

// ItemId identifies one row of a container. Persisted rows carry a RowId,
// rows added but not yet committed carry a TemporaryRowId.
type ItemId interface {
	// Keys returns a copy of the primary key values in primary key column order.
	Keys() []any
	// Key returns a string usable as a map key. Two ids are Equal iff their Keys match.
	Key() string
	Equal(other ItemId) bool
	String() string
}

// RowId is the immutable primary key tuple of a persisted row. Equality is
// componentwise and order sensitive; numbers compare by value regardless of
// their Go type.
type RowId struct {
	keys []any
	key  string
}

// NewRowId returns the id for the given primary key values. At least one value
// is required and no value may be nil.
func NewRowId(keys ...any) (RowId, error) {
	if len(keys) == 0 {
		return RowId{}, errors.Validationf("ROW_ID_REQUIRES_AT_LEAST_ONE_KEY")
	}
	normalized := make([]any, len(keys))
	for i, k := range keys {
		if k == nil {
			return RowId{}, errors.Validationf("ROW_ID_KEY_IS_NULL:%d", i)
		}
		normalized[i] = utils.NormalizeValue(k)
	}
	return RowId{keys: normalized, key: "r:" + encodeKeys(normalized)}, nil
}

// MustRowId is NewRowId for literal keys known to be valid.
func MustRowId(keys ...any) RowId {
	id, err := NewRowId(keys...)
	if err != nil {
		panic(err)
	}
	return id
}

func (r RowId) Keys() []any {
	out := make([]any, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r RowId) Key() string {
	return r.key
}

func (r RowId) Equal(other ItemId) bool {
	if other == nil {
		return false
	}
	o, ok := other.(RowId)
	if !ok {
		return false
	}
	return r.key == o.key
}

func (r RowId) IsZero() bool {
	return len(r.keys) == 0
}

func (r RowId) String() string {
	parts := make([]string, len(r.keys))
	for i, k := range r.keys {
		parts[i] = formatKey(k)
	}
	return strings.Join(parts, "/")
}

// TemporaryRowId identifies a row that has been added but not committed. Its
// placeholder keys are informational only: a TemporaryRowId is equal to
// itself and to nothing else.
type TemporaryRowId struct {
	placeholders []any
	token        uuid.UUID
}

// NewTemporaryRowId allocates a fresh identity with the given placeholder keys.
func NewTemporaryRowId(placeholders ...any) TemporaryRowId {
	p := make([]any, len(placeholders))
	copy(p, placeholders)
	return TemporaryRowId{placeholders: p, token: uuid.New()}
}

func (t TemporaryRowId) Keys() []any {
	out := make([]any, len(t.placeholders))
	copy(out, t.placeholders)
	return out
}

func (t TemporaryRowId) Key() string {
	return "t:" + t.token.String()
}

func (t TemporaryRowId) Equal(other ItemId) bool {
	if other == nil {
		return false
	}
	o, ok := other.(TemporaryRowId)
	if !ok {
		return false
	}
	return t.token == o.token
}

func (t TemporaryRowId) String() string {
	return "tmp-" + t.token.String()
}

// IsTemporary reports whether id belongs to a row that is not persisted yet.
func IsTemporary(id ItemId) bool {
	_, ok := id.(TemporaryRowId)
	return ok
}

func encodeKeys(keys []any) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = encodeKey(k)
	}
	return strings.Join(parts, "\x1f")
}

func encodeKey(k any) string {
	if d, ok := utils.ConvertToDecimal(k); ok && utils.IsNumber(k) {
		return "n:" + d.String()
	}
	switch v := k.(type) {
	case string:
		return "s:" + strconv.Quote(v)
	case bool:
		return "b:" + strconv.FormatBool(v)
	case time.Time:
		return "d:" + v.UTC().Format(time.RFC3339Nano)
	}
	return "o:" + utils.TypeAsString(k) + ":" + formatKey(k)
}

func formatKey(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	}
	if d, ok := utils.ConvertToDecimal(k); ok {
		return d.String()
	}
	return fmt.Sprintf("%v", k)
}

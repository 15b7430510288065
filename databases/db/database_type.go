package db

import (
	"database/sql"
	"reflect"
	"strings"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
)

type DXDatabaseTableRowsInfo struct {
	Columns     []string
	ColumnTypes []*sql.ColumnType
}

// ResultSet is a fully read query result. It stays valid after the
// connection it was read from is released.
type ResultSet struct {
	RowsInfo DXDatabaseTableRowsInfo
	Rows     []utils.JSON
	metadata []row.ColumnMetadata
}

// Len is the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// ColumnMetadata describes each column as the driver reports it. Primary key,
// version and read-only flags are filled in by the backend through the
// returned slice, which the result set keeps.
func (rs *ResultSet) ColumnMetadata() []row.ColumnMetadata {
	if rs.metadata != nil {
		return rs.metadata
	}
	metas := make([]row.ColumnMetadata, len(rs.RowsInfo.Columns))
	for i, name := range rs.RowsInfo.Columns {
		meta := row.ColumnMetadata{Name: name, Nullable: true}
		if i < len(rs.RowsInfo.ColumnTypes) && rs.RowsInfo.ColumnTypes[i] != nil {
			ct := rs.RowsInfo.ColumnTypes[i]
			meta.Type = valueType(ct.ScanType())
			if nullable, ok := ct.Nullable(); ok {
				meta.Nullable = nullable
			}
		}
		metas[i] = meta
	}
	rs.metadata = metas
	return metas
}

// DropColumn removes a column, such as the paging rownum, from the result.
func (rs *ResultSet) DropColumn(name string) {
	i := -1
	for k, c := range rs.RowsInfo.Columns {
		if strings.EqualFold(c, name) {
			i = k
			break
		}
	}
	if i < 0 {
		return
	}
	dropped := rs.RowsInfo.Columns[i]
	rs.RowsInfo.Columns = append(rs.RowsInfo.Columns[:i:i], rs.RowsInfo.Columns[i+1:]...)
	if i < len(rs.RowsInfo.ColumnTypes) {
		rs.RowsInfo.ColumnTypes = append(rs.RowsInfo.ColumnTypes[:i:i], rs.RowsInfo.ColumnTypes[i+1:]...)
	}
	if rs.metadata != nil && i < len(rs.metadata) {
		rs.metadata = append(rs.metadata[:i:i], rs.metadata[i+1:]...)
	}
	for _, r := range rs.Rows {
		delete(r, dropped)
	}
}

var (
	typeRawBytes    = reflect.TypeOf(sql.RawBytes{})
	typeBytes       = reflect.TypeOf([]byte{})
	typeNullString  = reflect.TypeOf(sql.NullString{})
	typeNullInt64   = reflect.TypeOf(sql.NullInt64{})
	typeNullInt32   = reflect.TypeOf(sql.NullInt32{})
	typeNullInt16   = reflect.TypeOf(sql.NullInt16{})
	typeNullFloat64 = reflect.TypeOf(sql.NullFloat64{})
	typeNullBool    = reflect.TypeOf(sql.NullBool{})
	typeNullTime    = reflect.TypeOf(sql.NullTime{})
	typeInt64       = reflect.TypeOf(int64(0))
	typeString      = reflect.TypeOf("")
)

// valueType maps a driver scan type onto the Go type cells hold after
// utils.NormalizeValue. It returns nil when the driver gives no usable hint.
func valueType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	switch t {
	case typeRawBytes, typeBytes, typeNullString:
		return typeString
	case typeNullInt64, typeNullInt32, typeNullInt16:
		return typeInt64
	case typeNullFloat64:
		return reflect.TypeOf(float64(0))
	case typeNullBool:
		return reflect.TypeOf(false)
	case typeNullTime:
		return reflect.TypeOf(time.Time{})
	}
	switch t.Kind() {
	case reflect.Interface:
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return typeInt64
	case reflect.Float32:
		return reflect.TypeOf(float64(0))
	case reflect.Ptr:
		return valueType(t.Elem())
	}
	return t
}

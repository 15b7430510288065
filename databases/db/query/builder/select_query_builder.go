package builder

import (
	"strconv"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	utils2 "github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/utils"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// CountProjection selects the row count instead of rows.
const CountProjection = "COUNT(*)"

// SelectQueryBuilder builds one paged SELECT with fluent API.
// The paging form depends on Dialect:
//
//	Generic:      SELECT p FROM t WHERE ... ORDER BY ... LIMIT n OFFSET m
//	RowNumber:    SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY ...) AS rownum, p FROM t WHERE ...) AS a WHERE a.rownum BETWEEN o AND o+l
//	PseudoColumn: SELECT * FROM (SELECT x.*, ROWNUM AS "rownum" FROM (SELECT p FROM t WHERE ... ORDER BY ...) x) WHERE "rownum" BETWEEN o AND o+l
type SelectQueryBuilder struct {
	SourceName    string
	Dialect       base.DXSQLDialect
	Projection    string
	Filters       []filter.Filter
	FilteringMode filter.FilteringMode
	OrderBys      []OrderBy
	OffsetValue   int
	LimitValue    int // 0 = no limit
	Error         error
}

func NewSelectQueryBuilder(dialect base.DXSQLDialect) *SelectQueryBuilder {
	return &SelectQueryBuilder{
		Dialect:    dialect,
		Projection: "*",
	}
}

// From sets the table or sub-query the rows are read from. It is emitted as given.
func (qb *SelectQueryBuilder) From(sourceName string) *SelectQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	if strings.TrimSpace(sourceName) == "" {
		qb.Error = errors.Validationf("SELECT_SOURCE_NAME_IS_EMPTY")
		return qb
	}
	qb.SourceName = sourceName
	return qb
}

// Select sets a comma separated projection such as "NAME,ID".
func (qb *SelectQueryBuilder) Select(projection string) *SelectQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.Projection = utils2.SplitProjection(projection)
	return qb
}

func (qb *SelectQueryBuilder) Where(mode filter.FilteringMode, filters ...filter.Filter) *SelectQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	qb.FilteringMode = mode
	qb.Filters = append(qb.Filters, filters...)
	return qb
}

func (qb *SelectQueryBuilder) OrderBy(orderBys ...OrderBy) *SelectQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	for _, o := range orderBys {
		if o.Column == "" {
			qb.Error = errors.Validationf("INVALID_ORDER_BY_FIELD:%s", o.Column)
			return qb
		}
	}
	qb.OrderBys = append(qb.OrderBys, orderBys...)
	return qb
}

func (qb *SelectQueryBuilder) Page(offset, limit int) *SelectQueryBuilder {
	if qb.Error != nil {
		return qb
	}
	if offset < 0 || limit < 0 {
		qb.Error = errors.Validationf("INVALID_PAGE:%d:%d", offset, limit)
		return qb
	}
	qb.OffsetValue = offset
	qb.LimitValue = limit
	return qb
}

func (qb *SelectQueryBuilder) isCount() bool {
	return strings.EqualFold(strings.ReplaceAll(qb.Projection, " ", ""), CountProjection)
}

// Build renders the statement for the configured dialect.
func (qb *SelectQueryBuilder) Build() (*Statement, error) {
	if qb.Error != nil {
		return nil, qb.Error
	}
	if qb.SourceName == "" {
		return nil, errors.Validationf("SELECT_SOURCE_NAME_IS_EMPTY")
	}

	compiler := filter.NewCompiler()
	where, err := compiler.Where(qb.Filters, qb.FilteringMode)
	if err != nil {
		return nil, err
	}

	var sql string
	switch qb.Dialect {
	case base.DXSQLDialectGeneric:
		sql = qb.buildGeneric(where)
	case base.DXSQLDialectRowNumber:
		sql = qb.buildRowNumber(where)
	case base.DXSQLDialectPseudoColumn:
		sql = qb.buildPseudoColumn(where)
	default:
		return nil, errors.Unsupportedf("SQL_DIALECT_NOT_SUPPORTED:%s", qb.Dialect.String())
	}
	return &Statement{SQL: sql, Params: compiler.Params()}, nil
}

func (qb *SelectQueryBuilder) orderByClause() string {
	clause := BuildOrderByClause(qb.OrderBys)
	if clause == "" {
		return ""
	}
	return " ORDER BY " + clause
}

func (qb *SelectQueryBuilder) plainSelect(where string) string {
	return "SELECT " + qb.Projection + " FROM " + qb.SourceName + where + qb.orderByClause()
}

func (qb *SelectQueryBuilder) buildGeneric(where string) string {
	if qb.isCount() {
		return "SELECT " + CountProjection + " FROM " + qb.SourceName + where
	}
	sql := qb.plainSelect(where)
	if qb.LimitValue > 0 {
		sql += " LIMIT " + strconv.Itoa(qb.LimitValue) + " OFFSET " + strconv.Itoa(qb.OffsetValue)
	}
	return sql
}

// window converts a 0-based offset and a length into the inclusive 1-based
// bounds used by the windowed dialects.
func (qb *SelectQueryBuilder) window() (int, int) {
	offset, limit := qb.OffsetValue, qb.LimitValue
	if limit > 1 {
		offset++
		limit--
	}
	return offset, offset + limit
}

func (qb *SelectQueryBuilder) buildRowNumber(where string) string {
	if qb.isCount() {
		return `SELECT COUNT(*) AS "rowcount" FROM (SELECT * FROM ` + qb.SourceName + where + ") AS t"
	}
	if qb.OffsetValue == 0 && qb.LimitValue == 0 {
		return qb.plainSelect(where)
	}
	over := BuildOrderByClause(qb.OrderBys)
	if over == "" {
		over = "(SELECT NULL)"
	}
	from, to := qb.window()
	return "SELECT * FROM (SELECT ROW_NUMBER() OVER (ORDER BY " + over + ") AS rownum, " + qb.Projection +
		" FROM " + qb.SourceName + where + ") AS a WHERE a.rownum BETWEEN " + strconv.Itoa(from) + " AND " + strconv.Itoa(to)
}

func (qb *SelectQueryBuilder) buildPseudoColumn(where string) string {
	if qb.isCount() {
		return `SELECT COUNT(*) AS "rowcount" FROM (SELECT * FROM ` + qb.SourceName + where + ")"
	}
	if qb.OffsetValue == 0 && qb.LimitValue == 0 {
		return qb.plainSelect(where)
	}
	from, to := qb.window()
	return `SELECT * FROM (SELECT x.*, ROWNUM AS "rownum" FROM (` + qb.plainSelect(where) +
		`) x) WHERE "rownum" BETWEEN ` + strconv.Itoa(from) + " AND " + strconv.Itoa(to)
}

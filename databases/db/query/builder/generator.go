package builder

import (
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
)

// RowNumColumn is the paging column added by the windowed dialects.
const RowNumColumn = "rownum"

// Generator renders the statements of one table for one database. The paging
// dialect is fixed at construction.
type Generator struct {
	DbType  base.DXDatabaseType
	Dialect base.DXSQLDialect
}

func NewGenerator(dbType base.DXDatabaseType) *Generator {
	return &Generator{DbType: dbType, Dialect: dbType.SQLDialect()}
}

// NewGeneratorForDialect is used when only the paging form matters. Inserts
// built by it never report generated keys through the statement.
func NewGeneratorForDialect(dialect base.DXSQLDialect) *Generator {
	return &Generator{DbType: base.UnknownDatabaseType, Dialect: dialect}
}

// IsWindowed reports whether SELECT results carry the rownum paging column.
func (g *Generator) IsWindowed() bool {
	return g.Dialect == base.DXSQLDialectRowNumber || g.Dialect == base.DXSQLDialectPseudoColumn
}

// GenerateSelect renders a SELECT of projection from table. limit 0 means unbounded.
func (g *Generator) GenerateSelect(table string, filters []filter.Filter, mode filter.FilteringMode, orderBys []OrderBy,
	offset int, limit int, projection string) (*Statement, error) {
	return NewSelectQueryBuilder(g.Dialect).
		From(table).
		Select(projection).
		Where(mode, filters...).
		OrderBy(orderBys...).
		Page(offset, limit).
		Build()
}

// GenerateCount renders COUNT(*) over the filtered table.
func (g *Generator) GenerateCount(table string, filters []filter.Filter, mode filter.FilteringMode) (*Statement, error) {
	return g.GenerateSelect(table, filters, mode, nil, 0, 0, CountProjection)
}

// GenerateContains renders a point lookup by primary key.
func (g *Generator) GenerateContains(table string, primaryKeys []string, keys []any) (*Statement, error) {
	return g.GenerateContainsFiltered(table, nil, filter.FilteringModeInclusive, primaryKeys, keys)
}

// GenerateContainsFiltered is GenerateContains restricted to the rows passing
// filters joined by mode.
func (g *Generator) GenerateContainsFiltered(table string, filters []filter.Filter, mode filter.FilteringMode,
	primaryKeys []string, keys []any) (*Statement, error) {
	if len(primaryKeys) == 0 {
		return nil, errors.Validationf("PRIMARY_KEY_COLUMNS_NOT_DEFINED:%s", table)
	}
	if len(keys) != len(primaryKeys) {
		return nil, errors.Validationf("PRIMARY_KEY_VALUE_COUNT_MISMATCH:%d:%d", len(keys), len(primaryKeys))
	}
	conditions := make([]filter.Filter, 0, len(primaryKeys)+1)
	for _, pk := range primaryKeys {
		i := len(conditions)
		if keys[i] == nil {
			return nil, errors.Validationf("PRIMARY_KEY_VALUE_IS_NULL:%s", pk)
		}
		conditions = append(conditions, filter.Eq(pk, keys[i]))
	}
	switch {
	case len(filters) == 1:
		conditions = append(conditions, filters[0])
	case len(filters) > 1 && mode == filter.FilteringModeExclusive:
		conditions = append(conditions, filter.NewOr(filters...))
	case len(filters) > 1:
		conditions = append(conditions, filter.NewAnd(filters...))
	}
	return g.GenerateSelect(table, conditions, filter.FilteringModeInclusive, nil, 0, 0, "*")
}

func (g *Generator) skipColumn(name string) bool {
	return g.IsWindowed() && strings.EqualFold(name, RowNumColumn)
}

// GenerateInsert inserts the persistent cells of item that carry a value.
// returning names generated columns the database should report back.
func (g *Generator) GenerateInsert(table string, item *row.RowItem, returning []string) (*Statement, *InsertQueryBuilder, error) {
	if item == nil {
		return nil, nil, errors.Validationf("INSERT_ITEM_IS_NULL")
	}
	qb := NewInsertQueryBuilder(g.DbType).Into(table)
	for _, p := range item.Properties() {
		if g.skipColumn(p.PropertyId()) || !p.IsPersistent() || p.Value() == nil {
			continue
		}
		qb.Set(p.PropertyId(), p.Value())
	}
	qb.Returning(returning...)
	stmt, err := qb.Build()
	if err != nil {
		return nil, nil, err
	}
	return stmt, qb, nil
}

// GenerateUpdate writes every persistent non key cell of item, located by its
// primary key and, when configured, its version column.
func (g *Generator) GenerateUpdate(table string, item *row.RowItem, primaryKeys []string, versionColumn string) (*Statement, error) {
	if item == nil {
		return nil, errors.Validationf("UPDATE_ITEM_IS_NULL")
	}
	qb := NewUpdateQueryBuilder().Table(table)
	for _, p := range item.Properties() {
		if utils.IfStringInSliceFold(p.PropertyId(), primaryKeys) {
			if p.IsModified() {
				return nil, errors.Validationf("PRIMARY_KEY_CHANGE_NOT_SUPPORTED:%s:%s", table, p.PropertyId())
			}
			continue
		}
		if g.skipColumn(p.PropertyId()) || !p.IsPersistent() {
			continue
		}
		qb.Set(p.PropertyId(), p.Value())
	}
	if err := g.rowCondition(qb.Where, item, primaryKeys, versionColumn); err != nil {
		return nil, err
	}
	return qb.Build()
}

func (g *Generator) GenerateDelete(table string, item *row.RowItem, primaryKeys []string, versionColumn string) (*Statement, error) {
	if item == nil {
		return nil, errors.Validationf("DELETE_ITEM_IS_NULL")
	}
	qb := NewDeleteQueryBuilder().From(table)
	if err := g.rowCondition(qb.Where, item, primaryKeys, versionColumn); err != nil {
		return nil, err
	}
	return qb.Build()
}

func (g *Generator) rowCondition(cg *ConditionGroup, item *row.RowItem, primaryKeys []string, versionColumn string) error {
	if len(primaryKeys) == 0 {
		return errors.Validationf("PRIMARY_KEY_COLUMNS_NOT_DEFINED")
	}
	for _, pk := range primaryKeys {
		p, ok := item.Property(pk)
		if !ok {
			return errors.Validationf("PRIMARY_KEY_COLUMN_NOT_IN_ITEM:%s", pk)
		}
		if p.OriginalValue() == nil {
			return errors.Validationf("PRIMARY_KEY_VALUE_IS_NULL:%s", pk)
		}
		cg.Eq(pk, p.OriginalValue())
	}
	if versionColumn != "" {
		p, ok := item.Property(versionColumn)
		if !ok {
			return errors.Validationf("VERSION_COLUMN_NOT_IN_ITEM:%s", versionColumn)
		}
		cg.Eq(versionColumn, p.OriginalValue())
	}
	return cg.Error
}

package containers

import (
	"reflect"

	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

func (c *SQLContainer) checkProperties(propertyIds []string) error {
	for _, id := range propertyIds {
		if _, ok := c.property(id); !ok {
			return errors.Validationf("PROPERTY_NOT_FOUND:%s", id)
		}
	}
	return nil
}

// AddContainerFilter narrows the visible rows. The filter applies to the
// backend query and, in memory, to buffered additions.
func (c *SQLContainer) AddContainerFilter(f filter.Filter) error {
	if f == nil {
		return errors.Validationf("FILTER_IS_NULL")
	}
	if err := c.checkProperties(f.PropertyIds()); err != nil {
		return err
	}
	c.filters = append(c.filters, f)
	return c.applyFilters()
}

func (c *SQLContainer) RemoveContainerFilter(f filter.Filter) error {
	kept := c.filters[:0:0]
	for _, existing := range c.filters {
		if !reflect.DeepEqual(existing, f) {
			kept = append(kept, existing)
		}
	}
	c.filters = kept
	return c.applyFilters()
}

func (c *SQLContainer) RemoveAllContainerFilters() error {
	c.filters = nil
	return c.applyFilters()
}

// RemoveContainerFilters drops every filter that refers to propertyId.
func (c *SQLContainer) RemoveContainerFilters(propertyId string) error {
	kept := c.filters[:0:0]
	for _, existing := range c.filters {
		if !filter.AppliesToProperty(existing, propertyId) {
			kept = append(kept, existing)
		}
	}
	c.filters = kept
	return c.applyFilters()
}

func (c *SQLContainer) GetContainerFilters() []filter.Filter {
	return append([]filter.Filter(nil), c.filters...)
}

// SetFilteringMode chooses whether the top level filters are joined with AND
// (inclusive) or OR (exclusive).
func (c *SQLContainer) SetFilteringMode(mode filter.FilteringMode) error {
	if mode != filter.FilteringModeInclusive && mode != filter.FilteringModeExclusive {
		return errors.Validationf("FILTERING_MODE_INVALID:%d", mode)
	}
	c.filteringMode = mode
	return c.applyFilters()
}

func (c *SQLContainer) GetFilteringMode() filter.FilteringMode {
	return c.filteringMode
}

func (c *SQLContainer) applyFilters() error {
	err := c.delegate.SetFilters(c.filters, c.filteringMode)
	if errors.Is(err, errors.ErrUnsupportedOperation) {
		c.log.Warnf("FILTERING_NOT_SUPPORTED_BY_BACKEND:%s", err.Error())
	} else if err != nil {
		return err
	}
	c.unresolveRemoved()
	c.Refresh()
	return nil
}

// AddOrderBy appends a sort column after the existing ones.
func (c *SQLContainer) AddOrderBy(orderBy builder.OrderBy) error {
	if err := c.checkProperties([]string{orderBy.Column}); err != nil {
		return err
	}
	c.orderBys = append(c.orderBys, orderBy)
	return c.applyOrderBys()
}

// Sort replaces the sort columns. ascending[i] applies to propertyIds[i].
func (c *SQLContainer) Sort(propertyIds []string, ascending []bool) error {
	if len(propertyIds) != len(ascending) {
		return errors.Validationf("SORT_ARGUMENT_LENGTH_MISMATCH:%d:%d", len(propertyIds), len(ascending))
	}
	if err := c.checkProperties(propertyIds); err != nil {
		return err
	}
	orderBys := make([]builder.OrderBy, len(propertyIds))
	for i, id := range propertyIds {
		orderBys[i] = builder.OrderBy{Column: id, Ascending: ascending[i]}
	}
	c.orderBys = orderBys
	return c.applyOrderBys()
}

func (c *SQLContainer) GetOrderBys() []builder.OrderBy {
	return append([]builder.OrderBy(nil), c.orderBys...)
}

func (c *SQLContainer) applyOrderBys() error {
	err := c.delegate.SetOrderBy(c.orderBys)
	if errors.Is(err, errors.ErrUnsupportedOperation) {
		c.log.Warnf("SORTING_NOT_SUPPORTED_BY_BACKEND:%s", err.Error())
	} else if err != nil {
		return err
	}
	c.unresolveRemoved()
	c.Refresh()
	return nil
}

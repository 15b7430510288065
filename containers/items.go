package containers

import (
	"context"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// Size is the number of visible rows: backend rows minus buffered removals,
// plus buffered additions passing the filters.
func (c *SQLContainer) Size(ctx context.Context) (int, error) {
	if err := c.sync(ctx); err != nil {
		return 0, err
	}
	return c.persistedSize() + len(c.filteredAdded()), nil
}

func (c *SQLContainer) passesFilters(item *row.RowItem) bool {
	ok, err := filter.MatchesAll(c.filters, c.filteringMode, item)
	if err != nil {
		c.log.Warnf("FILTER_EVALUATION_FAILED:%s:%s", item.Id().String(), err.Error())
		return false
	}
	return ok
}

func (c *SQLContainer) filteredAdded() []*row.RowItem {
	if len(c.filters) == 0 {
		return c.added
	}
	out := make([]*row.RowItem, 0, len(c.added))
	for _, item := range c.added {
		if c.passesFilters(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c *SQLContainer) addedItem(id row.ItemId) (int, *row.RowItem) {
	for i, item := range c.added {
		if item.Id().Equal(id) {
			return i, item
		}
	}
	return -1, nil
}

func (c *SQLContainer) modifiedItem(key string) *row.RowItem {
	for _, item := range c.modified {
		if item.Id().Key() == key {
			return item
		}
	}
	return nil
}

func (c *SQLContainer) isRemoved(id row.ItemId) bool {
	_, ok := c.removed.Get(id.Key())
	return ok
}

// GetIdByIndex returns nil for an index outside [0, Size()-1].
func (c *SQLContainer) GetIdByIndex(ctx context.Context, index int) (row.ItemId, error) {
	if index < 0 {
		return nil, nil
	}
	if err := c.sync(ctx); err != nil {
		return nil, err
	}
	persisted := c.persistedSize()
	if index < persisted {
		b := c.toBackend(index)
		if err := c.updateOffsetAndCache(ctx, b); err != nil {
			return nil, err
		}
		id, ok := c.window.Get(b)
		if !ok {
			return nil, nil
		}
		return id, nil
	}
	added := c.filteredAdded()
	if index-persisted < len(added) {
		return added[index-persisted].Id(), nil
	}
	return nil, nil
}

// IndexOfId returns -1 when id is not visible. Indexes change with every
// mutation, filter or sort; only ids are stable.
func (c *SQLContainer) IndexOfId(ctx context.Context, id row.ItemId) (int, error) {
	if id == nil {
		return -1, nil
	}
	if err := c.sync(ctx); err != nil {
		return -1, err
	}
	if row.IsTemporary(id) {
		for i, item := range c.filteredAdded() {
			if item.Id().Equal(id) {
				return c.persistedSize() + i, nil
			}
		}
		return -1, nil
	}
	rid, ok := id.(row.RowId)
	if !ok || c.isRemoved(id) {
		return -1, nil
	}
	b, err := c.backendIndexOf(ctx, rid)
	if err != nil || b < 0 {
		return -1, err
	}
	return c.toVisible(b), nil
}

// GetItem returns nil for an unknown, removed or filtered out id.
func (c *SQLContainer) GetItem(ctx context.Context, id row.ItemId) (*row.RowItem, error) {
	return c.getItem(ctx, id, true)
}

// GetItemUnfiltered is GetItem that also returns buffered additions the
// current filters exclude.
func (c *SQLContainer) GetItemUnfiltered(ctx context.Context, id row.ItemId) (*row.RowItem, error) {
	return c.getItem(ctx, id, false)
}

func (c *SQLContainer) getItem(ctx context.Context, id row.ItemId, filtered bool) (*row.RowItem, error) {
	if id == nil {
		return nil, nil
	}
	if row.IsTemporary(id) {
		_, item := c.addedItem(id)
		if item == nil || (filtered && !c.passesFilters(item)) {
			return nil, nil
		}
		return item, nil
	}
	if c.isRemoved(id) {
		return nil, nil
	}
	key := id.Key()
	if item := c.modifiedItem(key); item != nil {
		return item, nil
	}
	if item, ok := c.cache.Get(key); ok {
		return item, nil
	}
	rid, ok := id.(row.RowId)
	if !ok {
		return nil, nil
	}
	b, err := c.backendIndexOf(ctx, rid)
	if err != nil || b < 0 {
		return nil, err
	}
	if item, ok := c.cache.Get(key); ok {
		return item, nil
	}
	// evicted while the window still lists it
	if err = c.fetchPage(ctx, max(0, b-c.capacity()/2)); err != nil {
		return nil, err
	}
	item, _ := c.cache.Get(key)
	return item, nil
}

// GetItemIds lists every visible id in order. It reads the whole result.
func (c *SQLContainer) GetItemIds(ctx context.Context) ([]row.ItemId, error) {
	if err := c.sync(ctx); err != nil {
		return nil, err
	}
	ids := make([]row.ItemId, 0, c.persistedSize())
	err := c.eachPersisted(ctx, func(b int, id row.RowId) bool {
		if !c.isRemoved(id) {
			ids = append(ids, id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	for _, item := range c.filteredAdded() {
		ids = append(ids, item.Id())
	}
	return ids, nil
}

func (c *SQLContainer) ContainsId(ctx context.Context, id row.ItemId) (bool, error) {
	if id == nil {
		return false, nil
	}
	if row.IsTemporary(id) {
		_, item := c.addedItem(id)
		return item != nil, nil
	}
	if c.isRemoved(id) {
		return false, nil
	}
	key := id.Key()
	if c.modifiedItem(key) != nil || c.cache.Contains(key) {
		return true, nil
	}
	rid, ok := id.(row.RowId)
	if !ok {
		return false, nil
	}
	found, err := c.delegate.ContainsRowWithKey(ctx, rid.Keys()...)
	if errors.Is(err, errors.ErrUnsupportedOperation) {
		b, err := c.backendIndexOf(ctx, rid)
		return b >= 0, err
	}
	return found, err
}

func (c *SQLContainer) FirstItemId(ctx context.Context) (row.ItemId, error) {
	return c.GetIdByIndex(ctx, 0)
}

func (c *SQLContainer) LastItemId(ctx context.Context) (row.ItemId, error) {
	size, err := c.Size(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetIdByIndex(ctx, size-1)
}

func (c *SQLContainer) NextItemId(ctx context.Context, id row.ItemId) (row.ItemId, error) {
	i, err := c.IndexOfId(ctx, id)
	if err != nil || i < 0 {
		return nil, err
	}
	return c.GetIdByIndex(ctx, i+1)
}

func (c *SQLContainer) PrevItemId(ctx context.Context, id row.ItemId) (row.ItemId, error) {
	i, err := c.IndexOfId(ctx, id)
	if err != nil || i <= 0 {
		return nil, err
	}
	return c.GetIdByIndex(ctx, i-1)
}

func (c *SQLContainer) IsFirstId(ctx context.Context, id row.ItemId) (bool, error) {
	first, err := c.FirstItemId(ctx)
	if err != nil || first == nil || id == nil {
		return false, err
	}
	return first.Equal(id), nil
}

func (c *SQLContainer) IsLastId(ctx context.Context, id row.ItemId) (bool, error) {
	last, err := c.LastItemId(ctx)
	if err != nil || last == nil || id == nil {
		return false, err
	}
	return last.Equal(id), nil
}

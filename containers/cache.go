package containers

import (
	"context"
	"sort"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Backend indexes count every row the backend returns, including rows whose
// removal is buffered. Visible indexes skip those rows.

func (c *SQLContainer) capacity() int {
	return c.pageLength * c.cacheRatio
}

// updateCount re-reads the backend row count once it is older than the size
// validity window.
func (c *SQLContainer) updateCount(ctx context.Context) error {
	if !c.sizeDirty && c.now().Sub(c.sizeUpdated) < c.sizeValidity {
		return nil
	}
	n, err := c.delegate.GetCount(ctx)
	if err != nil {
		return errors.WithMessagef(err, "SQL_CONTAINER_COUNT_FAILED")
	}
	if n != c.size {
		// rows moved under the window
		c.clearCache()
		c.unresolveRemoved()
	}
	c.size, c.sizeDirty, c.sizeUpdated = n, false, c.now()
	if c.fullRead {
		c.setPageLengthInternal(max(n, 1))
	}
	return nil
}

// sync brings the row count and the positions of buffered removals up to date.
func (c *SQLContainer) sync(ctx context.Context) error {
	if err := c.updateCount(ctx); err != nil {
		return err
	}
	return c.resolveRemoved(ctx)
}

// fetchPage replaces the window with the rows starting at backend index offset.
func (c *SQLContainer) fetchPage(ctx context.Context, offset int) error {
	limit := c.capacity()
	if c.fullRead {
		offset, limit = 0, 0
	}
	rs, err := c.delegate.GetResults(ctx, offset, limit)
	if err != nil && !c.fullRead && errors.Is(err, errors.ErrUnsupportedOperation) {
		c.log.Warnf("PAGING_NOT_SUPPORTED_READING_ALL_ROWS:%s", err.Error())
		c.fullRead = true
		offset = 0
		rs, err = c.delegate.GetResults(ctx, 0, 0)
	}
	if err != nil {
		return errors.WithMessagef(err, "SQL_CONTAINER_PAGE_FETCH_FAILED:%d", offset)
	}
	if c.fullRead {
		c.setPageLengthInternal(max(rs.Len(), 1))
	}

	window := orderedmap.New[int, row.RowId]()
	for k := range rs.Rows {
		id, err := c.itemFromRow(rs, k)
		if err != nil {
			return err
		}
		window.Set(offset+k, id)
	}
	c.currentOffset, c.window = offset, window
	c.log.Debugf("PAGE offset=%d rows=%d", offset, rs.Len())
	return nil
}

// updateOffsetAndCache centers the window on backend index b unless it is
// loaded already.
func (c *SQLContainer) updateOffsetAndCache(ctx context.Context, b int) error {
	if _, ok := c.window.Get(b); ok {
		return nil
	}
	return c.fetchPage(ctx, max(0, b-c.capacity()/2))
}

// itemFromRow returns the cached item of row k, creating it if needed. An
// item with buffered edits is reused so one RowId never has two items.
func (c *SQLContainer) itemFromRow(rs *db.ResultSet, k int) (row.RowId, error) {
	values := rs.Rows[k]
	pks := c.delegate.GetPrimaryKeyColumns()
	keys := make([]any, len(pks))
	for i, pk := range pks {
		v, ok := lookupFold(values, pk)
		if !ok {
			return row.RowId{}, errors.Validationf("PRIMARY_KEY_COLUMN_NOT_IN_RESULT:%s", pk)
		}
		keys[i] = v
	}
	id, err := row.NewRowId(keys...)
	if err != nil {
		return row.RowId{}, errors.WithMessagef(err, "ROW_ID_UNRESOLVED:%d", k)
	}

	key := id.Key()
	if item := c.modifiedItem(key); item != nil {
		c.cache.Add(key, item)
		return id, nil
	}
	// Get, not Contains: the row must count as recent while its page loads
	if _, ok := c.cache.Get(key); ok {
		return id, nil
	}
	metas := rs.ColumnMetadata()
	props := make([]*row.ColumnProperty, len(metas))
	for i, m := range metas {
		props[i] = row.NewColumnProperty(m, values[m.Name])
	}
	item, err := row.NewRowItem(id, props)
	if err != nil {
		return row.RowId{}, err
	}
	if err = item.Bind(c); err != nil {
		return row.RowId{}, err
	}
	c.cache.Add(key, item)
	return id, nil
}

func lookupFold(values utils.JSON, column string) (any, bool) {
	if v, ok := values[column]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return nil, false
}

// windowIndexOf is the backend index of id within the loaded window.
func (c *SQLContainer) windowIndexOf(id row.ItemId) (int, bool) {
	for pair := c.window.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Equal(id) {
			return pair.Key, true
		}
	}
	return -1, false
}

// backendIndexOf searches the loaded window, then loads the following windows,
// wrapping around to 0, until every backend row has been seen once.
func (c *SQLContainer) backendIndexOf(ctx context.Context, id row.RowId) (int, error) {
	if err := c.updateCount(ctx); err != nil {
		return -1, err
	}
	if b, ok := c.windowIndexOf(id); ok {
		return b, nil
	}
	offset := c.currentOffset + c.window.Len()
	for scanned := 0; scanned < c.size; {
		if offset >= c.size {
			offset = 0
		}
		if err := c.fetchPage(ctx, offset); err != nil {
			return -1, err
		}
		if b, ok := c.windowIndexOf(id); ok {
			return b, nil
		}
		n := c.window.Len()
		if n == 0 {
			break
		}
		scanned += n
		offset = c.currentOffset + n
	}
	return -1, nil
}

// eachPersisted calls fn for every backend row in order until fn returns false.
func (c *SQLContainer) eachPersisted(ctx context.Context, fn func(b int, id row.RowId) bool) error {
	if err := c.updateCount(ctx); err != nil {
		return err
	}
	for offset := 0; offset < c.size; {
		if _, ok := c.window.Get(offset); !ok {
			if err := c.fetchPage(ctx, offset); err != nil {
				return err
			}
		}
		n := 0
		for pair := c.window.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Key < offset {
				continue
			}
			n++
			if !fn(pair.Key, pair.Value) {
				return nil
			}
		}
		if n == 0 {
			break
		}
		offset += n
	}
	return nil
}

func (c *SQLContainer) unresolveRemoved() {
	for pair := c.removed.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.resolved = false
	}
}

// resolveRemoved finds the backend index of every buffered removal whose
// position is unknown, in a single pass, and rebuilds removedIndexes.
func (c *SQLContainer) resolveRemoved(ctx context.Context) error {
	pending := map[string]*removedRow{}
	for pair := c.removed.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.resolved {
			pending[pair.Key] = pair.Value
		}
	}
	if len(pending) > 0 {
		err := c.eachPersisted(ctx, func(b int, id row.RowId) bool {
			if r, ok := pending[id.Key()]; ok {
				r.backendIndex, r.resolved = b, true
				delete(pending, id.Key())
			}
			return len(pending) > 0
		})
		if err != nil {
			return err
		}
		for _, r := range pending {
			r.backendIndex, r.resolved = -1, true
		}
	}

	c.removedIndexes = c.removedIndexes[:0]
	for pair := c.removed.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.backendIndex >= 0 {
			c.removedIndexes = append(c.removedIndexes, pair.Value.backendIndex)
		}
	}
	sort.Ints(c.removedIndexes)
	return nil
}

// toBackend maps a visible index of the persisted part onto a backend index.
func (c *SQLContainer) toBackend(i int) int {
	b := i
	for _, r := range c.removedIndexes {
		if r > b {
			break
		}
		b++
	}
	return b
}

func (c *SQLContainer) toVisible(b int) int {
	return b - sort.SearchInts(c.removedIndexes, b)
}

func (c *SQLContainer) persistedSize() int {
	return c.size - len(c.removedIndexes)
}

package containers

import (
	"context"

	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var errRowNotRemoved = errors.New("ROW_NOT_REMOVED")

// inTransaction runs fn inside one backend transaction and rolls back when fn
// fails. Row id changes reported by the backend are delivered only after the
// transaction committed.
func (c *SQLContainer) inTransaction(ctx context.Context, fn func() error) error {
	if err := c.delegate.BeginTransaction(ctx); err != nil {
		return err
	}
	c.pendingRowIdEvents = nil
	if err := fn(); err != nil {
		c.pendingRowIdEvents = nil
		if rbErr := c.delegate.Rollback(ctx); rbErr != nil {
			c.log.Errorf(rbErr, "SQL_CONTAINER_ROLLBACK_FAILED")
		}
		return err
	}
	events := c.pendingRowIdEvents
	c.pendingRowIdEvents = nil
	if err := c.delegate.Commit(ctx); err != nil {
		return err
	}
	for _, event := range events {
		c.fireRowIdChange(event)
	}
	return nil
}

// mutate is the one place deciding between writing now and buffering.
// Under auto-commit, immediate runs in its own transaction and the container
// is refreshed afterwards.
func (c *SQLContainer) mutate(ctx context.Context, immediate func() error, buffered func() error) error {
	if !c.autoCommit {
		return buffered()
	}
	if err := c.inTransaction(ctx, immediate); err != nil {
		return err
	}
	c.Refresh()
	return nil
}

func (c *SQLContainer) pendingNewId(oldId row.ItemId) row.ItemId {
	for _, event := range c.pendingRowIdEvents {
		if event.OldId.Equal(oldId) {
			return event.NewId
		}
	}
	return nil
}

// AddItem appends a row with every cell nil and returns its temporary id.
// Under auto-commit the row is inserted at once and its new RowId returned.
func (c *SQLContainer) AddItem(ctx context.Context) (row.ItemId, error) {
	props := make([]*row.ColumnProperty, len(c.properties))
	for i, m := range c.properties {
		props[i] = row.NewColumnProperty(m, nil)
	}
	placeholders := make([]any, len(c.delegate.GetPrimaryKeyColumns()))
	item, err := row.NewRowItem(row.NewTemporaryRowId(placeholders...), props)
	if err != nil {
		return nil, err
	}

	var id row.ItemId = item.Id()
	err = c.mutate(ctx, func() error {
		if _, err := c.delegate.StoreRow(ctx, item); err != nil {
			return err
		}
		if newId := c.pendingNewId(item.Id()); newId != nil {
			id = newId
		}
		return nil
	}, func() error {
		if err := item.Bind(c); err != nil {
			return err
		}
		c.added = append(c.added, item)
		c.fireItemSetChange()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

// RemoveItem removes a visible row. A buffered addition is discarded at once;
// a buffered removal refreshes the container, unlike AddItem.
func (c *SQLContainer) RemoveItem(ctx context.Context, id row.ItemId) (bool, error) {
	if id == nil {
		return false, nil
	}
	if row.IsTemporary(id) {
		i, _ := c.addedItem(id)
		if i < 0 {
			return false, nil
		}
		c.added = append(c.added[:i:i], c.added[i+1:]...)
		c.fireItemSetChange()
		return true, nil
	}
	item, err := c.GetItemUnfiltered(ctx, id)
	if err != nil || item == nil {
		return false, err
	}

	removed := false
	err = c.mutate(ctx, func() error {
		ok, err := c.delegate.RemoveRow(ctx, item)
		removed = ok
		return err
	}, func() error {
		b, err := c.backendIndexOf(ctx, item.Id().(row.RowId))
		if err != nil {
			return err
		}
		c.bufferRemoval(item, b)
		c.Refresh()
		removed = true
		return nil
	})
	return removed, err
}

func (c *SQLContainer) bufferRemoval(item *row.RowItem, b int) {
	key := item.Id().Key()
	c.removed.Set(key, &removedRow{item: item, backendIndex: b, resolved: true})
	c.cache.Remove(key)
	for i, m := range c.modified {
		if m.Id().Key() == key {
			c.modified = append(c.modified[:i:i], c.modified[i+1:]...)
			break
		}
	}
}

// RemoveAllItems removes every visible row. Under auto-commit this is one
// transaction that is rolled back, returning false, when any row was not
// removed.
func (c *SQLContainer) RemoveAllItems(ctx context.Context) (bool, error) {
	type entry struct {
		b    int
		item *row.RowItem
	}
	var entries []entry
	err := c.eachPersisted(ctx, func(b int, id row.RowId) bool {
		if c.isRemoved(id) {
			return true
		}
		item, ok := c.cache.Peek(id.Key())
		if !ok {
			item = c.modifiedItem(id.Key())
		}
		if item == nil {
			c.log.Warnf("REMOVE_ALL_ITEM_NOT_CACHED:%s", id.String())
			return true
		}
		entries = append(entries, entry{b: b, item: item})
		return true
	})
	if err != nil {
		return false, err
	}

	err = c.mutate(ctx, func() error {
		for _, e := range entries {
			ok, err := c.delegate.RemoveRow(ctx, e.item)
			if err != nil {
				return err
			}
			if !ok {
				return errors.WithMessagef(errRowNotRemoved, "%s", e.item.Id().String())
			}
		}
		return nil
	}, func() error {
		for _, e := range entries {
			c.bufferRemoval(e.item, e.b)
		}
		return nil
	})
	if errors.Is(err, errRowNotRemoved) {
		c.log.Warnf("REMOVE_ALL_ROLLED_BACK:%s", err.Error())
		c.Refresh()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.added = nil
	c.Refresh()
	return true, nil
}

// ItemChangeNotification receives cell edits of the container's rows.
func (c *SQLContainer) ItemChangeNotification(change row.Change) error {
	item := change.Item
	if item == nil || row.IsTemporary(item.Id()) || c.isRemoved(item.Id()) {
		return nil
	}
	if utils.IfStringInSliceFold(change.PropertyId, c.delegate.GetPrimaryKeyColumns()) {
		return errors.Validationf("PRIMARY_KEY_CHANGE_NOT_SUPPORTED:%s:%s", item.Id().String(), change.PropertyId)
	}
	ctx := c.context()
	err := c.mutate(ctx, func() error {
		_, err := c.delegate.StoreRow(ctx, item)
		return err
	}, func() error {
		if c.modifiedItem(item.Id().Key()) == nil {
			c.modified = append(c.modified, item)
		}
		return nil
	})
	if err == nil && c.autoCommit {
		item.Commit()
	}
	return err
}

// IsModified reports whether there are buffered changes.
func (c *SQLContainer) IsModified() bool {
	if c.removed.Len() > 0 || len(c.added) > 0 {
		return true
	}
	for _, item := range c.modified {
		if item.IsModified() {
			return true
		}
	}
	return false
}

// Commit writes the buffered changes in one transaction: removals, then
// edits, then additions. On failure the transaction is rolled back and the
// buffers are left as they were.
func (c *SQLContainer) Commit(ctx context.Context) error {
	c.log.Debugf("COMMIT removed=%d modified=%d added=%d", c.removed.Len(), len(c.modified), len(c.added))
	err := c.inTransaction(ctx, func() error {
		for pair := c.removed.Oldest(); pair != nil; pair = pair.Next() {
			ok, err := c.delegate.RemoveRow(ctx, pair.Value.item)
			if err != nil {
				return err
			}
			if !ok {
				c.log.Warnf("COMMIT_REMOVE_AFFECTED_NO_ROW:%s", pair.Key)
			}
		}
		for _, item := range c.modified {
			if !item.IsModified() {
				continue
			}
			if _, err := c.delegate.StoreRow(ctx, item); err != nil {
				return err
			}
		}
		for _, item := range c.added {
			if _, err := c.delegate.StoreRow(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.log.Warnf("COMMIT_FAILED:%s", err.Error())
		return err
	}
	for _, item := range c.modified {
		item.Commit()
	}
	c.clearBuffers()
	c.Refresh()
	return nil
}

// Rollback discards the buffered changes without touching the backend.
func (c *SQLContainer) Rollback() {
	c.log.Debugf("ROLLBACK removed=%d modified=%d added=%d", c.removed.Len(), len(c.modified), len(c.added))
	for _, item := range c.modified {
		item.Rollback()
	}
	c.clearBuffers()
	c.Refresh()
}

func (c *SQLContainer) clearBuffers() {
	c.removed = orderedmap.New[string, *removedRow]()
	c.removedIndexes = nil
	c.added = nil
	c.modified = nil
}

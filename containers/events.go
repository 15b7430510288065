package containers

import (
	"github.com/ahoy-jon/SQLContainer-sub000/containers/query"
)

// ItemSetChangeEvent is fired after the visible rows may have changed:
// additions, removals, commits, rollbacks and refreshes.
type ItemSetChangeEvent struct {
	Container *SQLContainer
}

type ItemSetChangeListener func(event ItemSetChangeEvent)

// RowIdChangeEvent is fired when a committed addition gets its real RowId.
type RowIdChangeEvent = query.RowIdChangeEvent

type RowIdChangeListener = query.RowIdChangeListener

// AddItemSetChangeListener registers l and returns the function removing it.
// Listeners are called synchronously in registration order.
func (c *SQLContainer) AddItemSetChangeListener(l ItemSetChangeListener) (remove func()) {
	c.nextListenerId++
	id := c.nextListenerId
	c.itemSetListeners.Set(id, l)
	return func() {
		c.itemSetListeners.Delete(id)
	}
}

func (c *SQLContainer) AddRowIdChangeListener(l RowIdChangeListener) (remove func()) {
	c.nextListenerId++
	id := c.nextListenerId
	c.rowIdListeners.Set(id, l)
	return func() {
		c.rowIdListeners.Delete(id)
	}
}

func (c *SQLContainer) fireItemSetChange() {
	event := ItemSetChangeEvent{Container: c}
	for pair := c.itemSetListeners.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value(event)
	}
}

func (c *SQLContainer) fireRowIdChange(event RowIdChangeEvent) {
	c.log.Debugf("ROW_ID_CHANGED %s -> %s", event.OldId.String(), event.NewId.String())
	for pair := c.rowIdListeners.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value(event)
	}
}

// onRowIdChange collects the backend's id changes until the transaction
// they belong to commits.
func (c *SQLContainer) onRowIdChange(event RowIdChangeEvent) {
	c.pendingRowIdEvents = append(c.pendingRowIdEvents, event)
}

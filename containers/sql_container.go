// Package containers presents the result of a SQL query as an ordered,
// indexable, filterable and sortable collection of rows. Only a window of the
// result is held in memory; additions, removals and edits are buffered until
// Commit, or written at once in auto-commit mode.
package containers

import (
	"context"
	"reflect"
	"time"

	"github.com/ahoy-jon/SQLContainer-sub000/configuration"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/query"
	"github.com/ahoy-jon/SQLContainer-sub000/containers/row"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/builder"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db/query/filter"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	lru "github.com/hashicorp/golang-lru/v2"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SQLContainer is not safe for concurrent use.
type SQLContainer struct {
	delegate query.QueryDelegate
	log      log.DXLog

	pageLength   int
	cacheRatio   int
	sizeValidity time.Duration
	autoCommit   bool
	// fullRead is set when the backend cannot page: the whole result is
	// read at once and the window always starts at 0.
	fullRead bool

	properties []row.ColumnMetadata

	filters       []filter.Filter
	filteringMode filter.FilteringMode
	orderBys      []builder.OrderBy

	size        int
	sizeDirty   bool
	sizeUpdated time.Time
	now         func() time.Time

	currentOffset int
	window        *orderedmap.OrderedMap[int, row.RowId]
	cache         *lru.Cache[string, *row.RowItem]

	removed        *orderedmap.OrderedMap[string, *removedRow]
	removedIndexes []int
	added          []*row.RowItem
	modified       []*row.RowItem

	itemSetListeners   *orderedmap.OrderedMap[int, ItemSetChangeListener]
	rowIdListeners     *orderedmap.OrderedMap[int, RowIdChangeListener]
	nextListenerId     int
	pendingRowIdEvents []RowIdChangeEvent
}

var _ row.ChangeSink = (*SQLContainer)(nil)

// removedRow is a buffered removal. backendIndex is the position of the row
// in the backend result, -1 when the current filters exclude it.
type removedRow struct {
	item         *row.RowItem
	backendIndex int
	resolved     bool
}

type Option func(c *SQLContainer)

// WithConfiguration applies the container section of a configuration file.
// Zero values keep the defaults.
func WithConfiguration(cfg configuration.ContainerConfiguration) Option {
	return func(c *SQLContainer) {
		if cfg.PageLength > 0 {
			c.pageLength = cfg.PageLength
		}
		if cfg.CacheRatio > 0 {
			c.cacheRatio = cfg.CacheRatio
		}
		if cfg.SizeValidity > 0 {
			c.sizeValidity = cfg.SizeValidity
		}
		c.autoCommit = cfg.AutoCommit
	}
}

func WithPageLength(pageLength int) Option {
	return func(c *SQLContainer) {
		if pageLength > 0 {
			c.pageLength = pageLength
		}
	}
}

func WithAutoCommit(autoCommit bool) Option {
	return func(c *SQLContainer) {
		c.autoCommit = autoCommit
	}
}

// NewSQLContainer reads the column layout of the delegate's result and
// returns a container over it.
func NewSQLContainer(ctx context.Context, delegate query.QueryDelegate, options ...Option) (*SQLContainer, error) {
	if delegate == nil {
		return nil, errors.Validationf("QUERY_DELEGATE_IS_NULL")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// cell edits outlive the constructor's ctx: keep its values, not its deadline
	editCtx := context.WithoutCancel(ctx)
	c := &SQLContainer{
		delegate:         delegate,
		log:              log.NewLog(&log.Log, editCtx, "SQLContainer"),
		pageLength:       configuration.DefaultPageLength,
		cacheRatio:       configuration.DefaultCacheRatio,
		sizeValidity:     configuration.DefaultSizeValidity,
		sizeDirty:        true,
		now:              time.Now,
		window:           orderedmap.New[int, row.RowId](),
		removed:          orderedmap.New[string, *removedRow](),
		itemSetListeners: orderedmap.New[int, ItemSetChangeListener](),
		rowIdListeners:   orderedmap.New[int, RowIdChangeListener](),
	}
	for _, option := range options {
		option(c)
	}
	cache, err := lru.New[string, *row.RowItem](c.capacity())
	if err != nil {
		return nil, errors.Wrapf(err, "ITEM_CACHE_CREATE_ERROR:%d", c.capacity())
	}
	c.cache = cache
	c.fullRead = !delegate.ImplementationRespectsPagingLimits()
	delegate.SetRowIdChangeListener(c.onRowIdChange)

	if err = c.loadProperties(ctx); err != nil {
		return nil, err
	}
	c.log.Debugf("CREATED properties=%v page_length=%d cache_ratio=%d auto_commit=%v full_read=%v",
		c.GetContainerPropertyIds(), c.pageLength, c.cacheRatio, c.autoCommit, c.fullRead)
	return c, nil
}

// loadProperties reads the column layout from a one row page, or from the
// whole result when the backend cannot page.
func (c *SQLContainer) loadProperties(ctx context.Context) error {
	rs, err := c.delegate.GetResults(ctx, 0, 1)
	if errors.Is(err, errors.ErrUnsupportedOperation) {
		rs, err = c.delegate.GetResults(ctx, 0, 0)
	}
	if err != nil {
		return errors.WithMessagef(err, "SQL_CONTAINER_PROPERTIES_UNREADABLE")
	}
	metas := rs.ColumnMetadata()
	if len(metas) == 0 {
		return errors.Validationf("SQL_CONTAINER_QUERY_HAS_NO_COLUMNS")
	}
	c.properties = append([]row.ColumnMetadata(nil), metas...)
	for _, pk := range c.delegate.GetPrimaryKeyColumns() {
		if _, ok := c.property(pk); !ok {
			return errors.Validationf("PRIMARY_KEY_COLUMN_NOT_IN_RESULT:%s", pk)
		}
	}
	return nil
}

func (c *SQLContainer) context() context.Context {
	if c.log.Context == nil {
		return context.Background()
	}
	return c.log.Context
}

func (c *SQLContainer) property(propertyId string) (row.ColumnMetadata, bool) {
	for _, m := range c.properties {
		if m.Name == propertyId {
			return m, true
		}
	}
	return row.ColumnMetadata{}, false
}

func (c *SQLContainer) GetQueryDelegate() query.QueryDelegate {
	return c.delegate
}

// GetContainerPropertyIds returns the column names in result order.
func (c *SQLContainer) GetContainerPropertyIds() []string {
	ids := make([]string, len(c.properties))
	for i, m := range c.properties {
		ids[i] = m.Name
	}
	return ids
}

// GetType is the Go type of a column's values, nil for an unknown column or
// when the driver reported no type.
func (c *SQLContainer) GetType(propertyId string) reflect.Type {
	m, ok := c.property(propertyId)
	if !ok {
		return nil
	}
	return m.Type
}

func (c *SQLContainer) GetPageLength() int {
	return c.pageLength
}

// SetPageLength changes the page size; the window holds pageLength times the
// cache ratio rows.
func (c *SQLContainer) SetPageLength(pageLength int) error {
	if pageLength < 1 {
		return errors.Validationf("PAGE_LENGTH_INVALID:%d", pageLength)
	}
	c.setPageLengthInternal(pageLength)
	c.Refresh()
	return nil
}

func (c *SQLContainer) setPageLengthInternal(pageLength int) {
	c.pageLength = pageLength
	c.cache.Resize(c.capacity())
}

func (c *SQLContainer) IsAutoCommit() bool {
	return c.autoCommit
}

// SetAutoCommit switches between buffered and immediate writes. Buffered
// changes are committed when auto-commit is turned on.
func (c *SQLContainer) SetAutoCommit(ctx context.Context, autoCommit bool) error {
	if autoCommit && !c.autoCommit && c.IsModified() {
		if err := c.Commit(ctx); err != nil {
			return err
		}
	}
	c.autoCommit = autoCommit
	return nil
}

// Refresh drops the cached window and row count. Buffered changes are kept.
func (c *SQLContainer) Refresh() {
	c.invalidate()
	c.fireItemSetChange()
}

func (c *SQLContainer) invalidate() {
	c.sizeDirty = true
	c.clearCache()
}

func (c *SQLContainer) clearCache() {
	c.currentOffset = 0
	c.window = orderedmap.New[int, row.RowId]()
	c.cache.Purge()
}

package row

import (
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
)

// Change describes one cell edit. It is handed to the sink the row is bound to.
type Change struct {
	Item       *RowItem
	PropertyId string
	OldValue   any
	NewValue   any
}

// ChangeSink receives cell edits of a bound RowItem. An error refuses the
// edit: SetValue restores the cell and returns it.
type ChangeSink interface {
	ItemChangeNotification(change Change) error
}

// RowItem is one row: an identity plus an ordered set of uniquely named cells.
type RowItem struct {
	id         ItemId
	properties []*ColumnProperty
	index      map[string]int
	sink       ChangeSink
}

func NewRowItem(id ItemId, properties []*ColumnProperty) (*RowItem, error) {
	if id == nil {
		return nil, errors.Validationf("ROW_ITEM_ID_IS_NULL")
	}
	r := &RowItem{
		id:         id,
		properties: make([]*ColumnProperty, 0, len(properties)),
		index:      make(map[string]int, len(properties)),
	}
	for _, p := range properties {
		if p == nil {
			continue
		}
		if _, exists := r.index[p.PropertyId()]; exists {
			return nil, errors.Validationf("ROW_ITEM_DUPLICATE_PROPERTY_ID:%s", p.PropertyId())
		}
		r.index[p.PropertyId()] = len(r.properties)
		r.properties = append(r.properties, p)
	}
	return r, nil
}

// Bind attaches the row to its owning container. A row can be bound once.
func (r *RowItem) Bind(sink ChangeSink) error {
	if sink == nil {
		return errors.Validationf("ROW_ITEM_SINK_IS_NULL")
	}
	if r.sink != nil {
		return errors.Preconditionf("ROW_ITEM_ALREADY_BOUND:%s", r.id.String())
	}
	r.sink = sink
	return nil
}

func (r *RowItem) IsBound() bool {
	return r.sink != nil
}

func (r *RowItem) Id() ItemId {
	return r.id
}

func (r *RowItem) PropertyIds() []string {
	ids := make([]string, len(r.properties))
	for i, p := range r.properties {
		ids[i] = p.PropertyId()
	}
	return ids
}

// Properties returns the cells in column order.
func (r *RowItem) Properties() []*ColumnProperty {
	out := make([]*ColumnProperty, len(r.properties))
	copy(out, r.properties)
	return out
}

func (r *RowItem) Property(propertyId string) (*ColumnProperty, bool) {
	i, ok := r.index[propertyId]
	if !ok {
		return nil, false
	}
	return r.properties[i], true
}

// PropertyValue returns the current value of a cell and whether the cell exists.
func (r *RowItem) PropertyValue(propertyId string) (any, bool) {
	p, ok := r.Property(propertyId)
	if !ok {
		return nil, false
	}
	return p.Value(), true
}

func (r *RowItem) Value(propertyId string) any {
	v, _ := r.PropertyValue(propertyId)
	return v
}

// SetValue edits one cell and forwards the change to the bound sink.
func (r *RowItem) SetValue(propertyId string, v any) error {
	p, ok := r.Property(propertyId)
	if !ok {
		return errors.Validationf("UNKNOWN_PROPERTY_ID:%s", propertyId)
	}
	old := p.Value()
	changed, err := p.SetValue(v)
	if err != nil {
		return err
	}
	if changed && r.sink != nil {
		err = r.sink.ItemChangeNotification(Change{Item: r, PropertyId: propertyId, OldValue: old, NewValue: p.Value()})
		if err != nil {
			p.restore(old)
			return err
		}
	}
	return nil
}

func (r *RowItem) IsModified() bool {
	for _, p := range r.properties {
		if p.IsModified() {
			return true
		}
	}
	return false
}

func (r *RowItem) Commit() {
	for _, p := range r.properties {
		p.Commit()
	}
}

func (r *RowItem) Rollback() {
	for _, p := range r.properties {
		p.Rollback()
	}
}

func (r *RowItem) String() string {
	parts := make([]string, len(r.properties))
	for i, p := range r.properties {
		parts[i] = p.String()
	}
	return r.id.String() + "{" + strings.Join(parts, ", ") + "}"
}

package tools

import (
	"context"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

type handlers struct {
	client Client
	now    func() time.Time
}

func (h *handlers) lists(ctx context.Context) ([]*anylist.List, error) {
	snap, err := h.client.Lists(ctx, SessionIDFrom(ctx))
	if err != nil {
		return nil, err
	}
	return snap.Items, nil
}

func (h *handlers) list(ctx context.Context, t schema.ListTarget) (*anylist.List, error) {
	lists, err := h.lists(ctx)
	if err != nil {
		return nil, err
	}
	return findList(lists, t)
}

func (h *handlers) listLists(ctx context.Context, _ *schema.Empty) (any, error) {
	lists, err := h.lists(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]listView, len(lists))
	for i, l := range lists {
		views[i] = newListView(l)
	}
	return map[string]any{"lists": views}, nil
}

func (h *handlers) listItems(ctx context.Context, in *schema.ListItemsInput) (any, error) {
	l, err := h.list(ctx, in.ListTarget)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"list":  newListView(l),
		"items": newItemViews(l.Items),
	}, nil
}

func (h *handlers) addItem(ctx context.Context, in *schema.AddItemInput) (any, error) {
	sid := SessionIDFrom(ctx)
	l, err := h.list(ctx, in.ListTarget)
	if err != nil {
		return nil, err
	}
	checked := in.Checked.Or(false)

	if in.ReuseExisting.Or(true) {
		if existing, ok := findByName(l.Items, in.Name, itemName); ok {
			it := *existing
			if q, ok := in.Quantity.Get(); ok {
				it.Quantity = q.String()
			}
			if d, ok := in.Details.Get(); ok {
				it.Details = d
			}
			it.Checked = checked
			if err := h.client.SaveItem(ctx, sid, &it); err != nil {
				return nil, err
			}
			return map[string]any{"item": newItemView(&it), "reused": true}, nil
		}
	}

	q, _ := in.Quantity.Get()
	item := &anylist.Item{
		Name:     in.Name,
		Quantity: q.String(),
		Details:  in.Details.Or(""),
		Checked:  checked,
	}
	saved, err := h.client.AddItem(ctx, sid, l.ID, item)
	if err != nil {
		return nil, err
	}
	return map[string]any{"item": newItemView(saved), "reused": false}, nil
}

func (h *handlers) updateItem(ctx context.Context, in *schema.UpdateItemInput) (any, error) {
	l, err := h.list(ctx, in.ListTarget)
	if err != nil {
		return nil, err
	}
	found, err := findItem(l, in.ItemTarget)
	if err != nil {
		return nil, err
	}

	it := *found
	if v, ok := in.Name.Get(); ok {
		it.Name = v
	}
	if in.Quantity.Present() {
		q, _ := in.Quantity.Get()
		it.Quantity = q.String()
	}
	applyString(&it.Details, in.Details)
	if v, ok := in.Checked.Get(); ok {
		it.Checked = v
	}

	if err := h.client.SaveItem(ctx, SessionIDFrom(ctx), &it); err != nil {
		return nil, err
	}
	return map[string]any{"item": newItemView(&it)}, nil
}

func (h *handlers) removeItem(ctx context.Context, in *schema.RemoveItemInput) (any, error) {
	l, err := h.list(ctx, in.ListTarget)
	if err != nil {
		return nil, err
	}
	it, err := findItem(l, in.ItemTarget)
	if err != nil {
		return nil, err
	}
	if err := h.client.RemoveItem(ctx, SessionIDFrom(ctx), l.ID, it.ID); err != nil {
		return nil, err
	}
	return map[string]any{"removed": newItemView(it)}, nil
}

func (h *handlers) uncheckAll(ctx context.Context, in *schema.UncheckAllInput) (any, error) {
	l, err := h.list(ctx, in.ListTarget)
	if err != nil {
		return nil, err
	}
	if err := h.client.UncheckAll(ctx, SessionIDFrom(ctx), l.ID); err != nil {
		return nil, err
	}
	return map[string]any{"list": newListView(l), "status": "ok"}, nil
}

// applyString writes a tri-state string field: null clears, a value sets,
// absent leaves dst alone.
func applyString(dst *string, f schema.Field[string]) {
	switch f.State() {
	case schema.Clear:
		*dst = ""
	case schema.Set:
		*dst, _ = f.Get()
	}
}

// applyPtr is applyString for optional numeric fields, where null unsets.
func applyPtr[T, U any](dst **U, f schema.Field[T], conv func(T) U) {
	switch f.State() {
	case schema.Clear:
		*dst = nil
	case schema.Set:
		v, _ := f.Get()
		u := conv(v)
		*dst = &u
	}
}

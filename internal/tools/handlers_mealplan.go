package tools

import (
	"context"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

func (h *handlers) mealPlanEvents(ctx context.Context, in *schema.MealPlanEventsInput) (any, error) {
	snap, err := h.client.MealPlanEvents(ctx)
	if err != nil {
		return nil, err
	}

	start, hasStart := in.StartDate.Get()
	end, hasEnd := in.EndDate.Get()
	views := make([]eventView, 0, len(snap.Items))
	for _, e := range snap.Items {
		if hasStart || hasEnd {
			if e.Date == nil {
				continue
			}
			if hasStart && e.Date.Before(start.Time()) {
				continue
			}
			if hasEnd && e.Date.After(end.Time()) {
				continue
			}
		}
		views = append(views, newEventView(e))
	}
	return map[string]any{"events": views}, nil
}

func (h *handlers) mealPlanLabels(ctx context.Context, _ *schema.Empty) (any, error) {
	snap, err := h.client.MealPlanLabels(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]labelView, len(snap.Items))
	for i, l := range snap.Items {
		views[i] = newLabelView(l)
	}
	return map[string]any{"labels": views}, nil
}

func (h *handlers) createMealPlanEvent(ctx context.Context, in *schema.CreateMealPlanEventInput) (any, error) {
	date := in.Date.Time()
	e := &anylist.MealPlanEvent{
		Date:     &date,
		Title:    in.Title.Or(""),
		Details:  in.Details.Or(""),
		RecipeID: in.RecipeID.Or(""),
		LabelID:  in.LabelID.Or(""),
	}
	applyPtr(&e.RecipeScaleFactor, in.RecipeScaleFactor, identity)

	if err := h.client.SaveEvent(ctx, e); err != nil {
		return nil, err
	}
	return map[string]any{"event": newEventView(e)}, nil
}

func (h *handlers) deleteMealPlanEvent(ctx context.Context, in *schema.DeleteMealPlanEventInput) (any, error) {
	snap, err := h.client.MealPlanEvents(ctx)
	if err != nil {
		return nil, err
	}
	var found *anylist.MealPlanEvent
	for _, e := range snap.Items {
		if e.ID == in.EventID {
			found = e
			break
		}
	}
	if found == nil {
		return nil, &NotFoundError{Kind: "Event"}
	}
	if err := h.client.DeleteEvent(ctx, found.ID); err != nil {
		return nil, err
	}
	return map[string]any{"deleted": newEventView(found)}, nil
}

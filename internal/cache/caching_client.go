package cache

import (
	"context"

	"github.com/revittco/anylist-mcp/internal/anylist"
)

// LookupRecorder observes cache lookups. Implemented by observe.Metrics.
type LookupRecorder interface {
	RecordCacheLookup(ctx context.Context, kind string, hit bool)
}

// CachingClient wraps an anylist.Session with a per-session read-through
// cache for lists and recipes. Writes go straight upstream and invalidate
// the affected kind for the calling session only once they succeed.
type CachingClient struct {
	session *anylist.Session
	cache   *SessionCache
	metrics LookupRecorder
}

// NewCachingClient creates a caching wrapper around a Session. metrics may
// be nil.
func NewCachingClient(s *anylist.Session, c *SessionCache, metrics LookupRecorder) *CachingClient {
	return &CachingClient{session: s, cache: c, metrics: metrics}
}

// SessionCache returns the underlying cache for stats/management.
func (c *CachingClient) SessionCache() *SessionCache {
	return c.cache
}

// Lists returns the shopping lists, from cache when fresh.
func (c *CachingClient) Lists(ctx context.Context, sessionID string) (anylist.Snapshot[*anylist.List], error) {
	return readThrough(ctx, c, sessionID, KindLists, c.session.Lists, (*anylist.List).Clone)
}

// Recipes returns the recipes, from cache when fresh.
func (c *CachingClient) Recipes(ctx context.Context, sessionID string) (anylist.Snapshot[*anylist.Recipe], error) {
	return readThrough(ctx, c, sessionID, KindRecipes, c.session.Recipes, (*anylist.Recipe).Clone)
}

// MealPlanEvents is not cached.
func (c *CachingClient) MealPlanEvents(ctx context.Context) (anylist.Snapshot[*anylist.MealPlanEvent], error) {
	return c.session.MealPlanEvents(ctx)
}

// MealPlanLabels is not cached.
func (c *CachingClient) MealPlanLabels(ctx context.Context) (anylist.Snapshot[*anylist.Label], error) {
	return c.session.MealPlanLabels(ctx)
}

func (c *CachingClient) AddItem(ctx context.Context, sessionID, listID string, item *anylist.Item) (*anylist.Item, error) {
	out, err := c.session.AddItem(ctx, listID, item)
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(sessionID, KindLists)
	return out, nil
}

func (c *CachingClient) SaveItem(ctx context.Context, sessionID string, item *anylist.Item) error {
	return c.mutate(sessionID, KindLists, c.session.SaveItem(ctx, item))
}

func (c *CachingClient) RemoveItem(ctx context.Context, sessionID, listID, itemID string) error {
	return c.mutate(sessionID, KindLists, c.session.RemoveItem(ctx, listID, itemID))
}

func (c *CachingClient) UncheckAll(ctx context.Context, sessionID, listID string) error {
	return c.mutate(sessionID, KindLists, c.session.UncheckAll(ctx, listID))
}

func (c *CachingClient) SaveRecipe(ctx context.Context, sessionID string, r *anylist.Recipe) error {
	return c.mutate(sessionID, KindRecipes, c.session.SaveRecipe(ctx, r))
}

func (c *CachingClient) DeleteRecipe(ctx context.Context, sessionID, id string) error {
	return c.mutate(sessionID, KindRecipes, c.session.DeleteRecipe(ctx, id))
}

func (c *CachingClient) SaveEvent(ctx context.Context, e *anylist.MealPlanEvent) error {
	return c.session.SaveEvent(ctx, e)
}

func (c *CachingClient) DeleteEvent(ctx context.Context, id string) error {
	return c.session.DeleteEvent(ctx, id)
}

// mutate invalidates kind for the session when the write err is nil.
func (c *CachingClient) mutate(sessionID string, kind Kind, err error) error {
	if err != nil {
		return err
	}
	c.cache.Invalidate(sessionID, kind)
	return nil
}

func readThrough[T any](
	ctx context.Context,
	c *CachingClient,
	sessionID string,
	kind Kind,
	load func(context.Context) (anylist.Snapshot[T], error),
	clone func(T) T,
) (anylist.Snapshot[T], error) {
	if !c.cache.Enabled() {
		return load(ctx)
	}

	if v, ok := c.cache.Get(sessionID, kind); ok {
		if snap, ok := v.(anylist.Snapshot[T]); ok {
			c.record(ctx, kind, true)
			return snap, nil
		}
	}
	c.record(ctx, kind, false)

	// A write finishing while the load is in flight invalidates a slot that
	// holds nothing yet; the generation check keeps the older snapshot out.
	gen := c.cache.Generation(sessionID, kind)
	snap, err := load(ctx)
	if err != nil {
		return snap, err
	}
	stored := snap
	stored.Items = make([]T, len(snap.Items))
	for i, it := range snap.Items {
		stored.Items[i] = clone(it)
	}
	c.cache.SetIfGeneration(sessionID, kind, gen, stored)
	return snap, nil
}

func (c *CachingClient) record(ctx context.Context, kind Kind, hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup(ctx, string(kind), hit)
	}
}
